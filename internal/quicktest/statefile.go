package quicktest

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
)

// FileKVStore is a MemoryKVStore mirrored to a file, so UI state outlives a
// single CLI run. Entries keep their original expiry across runs.
type FileKVStore struct {
	*MemoryKVStore
	path string
	log  logger.Logger
	mu   sync.Mutex
}

type fileEntry struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expiresAt"` // unix nanoseconds, 0 never expires
}

// OpenFileKVStore loads the store at path. A missing file is an empty store.
func OpenFileKVStore(path string, ttl time.Duration, log logger.Logger) (*FileKVStore, error) {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if log == nil {
		log = logger.Global().Module("quicktest")
	}

	items := make(map[string]cache.Item)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, stateFileError(err, path)
	default:
		var entries map[string]fileEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, stateFileError(err, path)
		}
		now := time.Now().UnixNano()
		for key, e := range entries {
			if e.ExpiresAt > 0 && e.ExpiresAt <= now {
				continue
			}
			items[key] = cache.Item{Object: e.Value, Expiration: e.ExpiresAt}
		}
	}

	return &FileKVStore{
		MemoryKVStore: &MemoryKVStore{cache: cache.NewFrom(ttl, ttl*2, items)},
		path:          path,
		log:           log,
	}, nil
}

// Set stores value and writes the store through to disk. Write failures are
// logged; the value stays available in memory.
func (s *FileKVStore) Set(key string, value []byte) {
	s.MemoryKVStore.Set(key, value)
	if err := s.Save(); err != nil {
		s.log.Warn("failed to save ui state", logger.String("path", s.path), logger.Error(err))
	}
}

// Save writes every unexpired entry to the file.
func (s *FileKVStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[string]fileEntry)
	for key, item := range s.cache.Items() {
		if b, ok := item.Object.([]byte); ok {
			entries[key] = fileEntry{Value: b, ExpiresAt: item.Expiration}
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return stateFileError(err, s.path)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return stateFileError(err, s.path)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return stateFileError(err, s.path)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return stateFileError(err, s.path)
	}
	return nil
}

// OpenStateStore returns a file-backed store at path. When path is empty or
// the file cannot be used, it logs why and falls back to a process-local store.
func OpenStateStore(path string, ttl time.Duration, log logger.Logger) KVStore {
	if log == nil {
		log = logger.Global().Module("quicktest")
	}
	if path == "" {
		return NewMemoryKVStore(ttl)
	}
	store, err := OpenFileKVStore(path, ttl, log)
	if err != nil {
		log.Warn("ui state file unusable, state will not be kept between runs",
			logger.String("path", path), logger.Error(err))
		return NewMemoryKVStore(ttl)
	}
	return store
}

// StateStoreFromSettings opens the store named by client.statefile, or the
// default location under the user cache directory.
func StateStoreFromSettings(settings *conf.ClientSettings, log logger.Logger) KVStore {
	if log == nil {
		log = logger.Global().Module("quicktest")
	}
	path, err := settings.StateFilePath()
	if err != nil {
		log.Warn("ui state will not be kept between runs", logger.Error(err))
	}
	return OpenStateStore(path, settings.StateTTL, log)
}

func stateFileError(err error, path string) error {
	return errors.New(err).
		Component("quicktest").
		Category(errors.CategoryState).
		Context("path", path).
		Build()
}
