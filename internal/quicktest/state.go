package quicktest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
)

// DefaultScrollDelay is how long scroll restoration waits for content to paint.
const DefaultScrollDelay = 100 * time.Millisecond

// DefaultStateTTL bounds how long a persisted UI state survives.
const DefaultStateTTL = 12 * time.Hour

// UIState is the part of the page that must survive a reload.
type UIState struct {
	ScrollPosition     float64      `json:"scrollPosition"`
	ExpandedFeatureIDs []uint       `json:"expandedFeatureIds"`
	StatusFilter       StatusFilter `json:"statusFilter"`
}

// KVStore is a scoped key-value slot.
type KVStore interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// MemoryKVStore keeps values for the lifetime of the process. Entries expire
// after the configured TTL.
type MemoryKVStore struct {
	cache *cache.Cache
}

// NewMemoryKVStore creates a store whose entries live for ttl.
// A non-positive ttl selects DefaultStateTTL.
func NewMemoryKVStore(ttl time.Duration) *MemoryKVStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &MemoryKVStore{cache: cache.New(ttl, ttl*2)}
}

// Get returns the value stored under key.
func (m *MemoryKVStore) Get(key string) ([]byte, bool) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Set stores a copy of value under key.
func (m *MemoryKVStore) Set(key string, value []byte) {
	m.cache.SetDefault(key, append([]byte(nil), value...))
}

// StateKey is the store key for a session's UI state.
func StateKey(sessionID uint) string {
	return fmt.Sprintf("quicktest-state-%d", sessionID)
}

// StatePersister serializes UIState per session.
type StatePersister struct {
	store KVStore
	log   logger.Logger
}

// NewStatePersister wraps store. log may be nil.
func NewStatePersister(store KVStore, log logger.Logger) *StatePersister {
	if log == nil {
		log = logger.Global().Module("quicktest")
	}
	return &StatePersister{store: store, log: log}
}

// CaptureState saves state for the session.
func (p *StatePersister) CaptureState(sessionID uint, state UIState) error {
	if state.StatusFilter == "" {
		state.StatusFilter = FilterAll
	}
	b, err := json.Marshal(state)
	if err != nil {
		return errors.New(err).
			Component("quicktest").
			Category(errors.CategoryState).
			Context("session_id", sessionID).
			Build()
	}
	p.store.Set(StateKey(sessionID), b)
	return nil
}

// RestoreState loads the saved state for the session. An unreadable entry is
// logged and treated as absent.
func (p *StatePersister) RestoreState(sessionID uint) (UIState, bool) {
	b, ok := p.store.Get(StateKey(sessionID))
	if !ok {
		return UIState{}, false
	}
	var state UIState
	if err := json.Unmarshal(b, &state); err != nil {
		p.log.Warn("discarding unreadable ui state",
			logger.Uint("session_id", sessionID),
			logger.Error(err))
		return UIState{}, false
	}
	if _, err := ParseStatusFilter(string(state.StatusFilter)); err != nil {
		state.StatusFilter = FilterAll
	}
	return state, true
}

// View is the rendering surface UI state is applied to.
type View interface {
	SetStatusFilter(f StatusFilter)
	SetExpanded(featureIDs []uint)
	ScrollTo(position float64)
}

// AfterPaint runs fn after delay. The returned function cancels it.
func AfterPaint(delay time.Duration, fn func()) (cancel func()) {
	if delay <= 0 {
		delay = DefaultScrollDelay
	}
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// Apply restores a freshly loaded dashboard's UI state. Filter and expansion are
// applied immediately; the scroll position is applied after delay. Without a
// saved state only the first feature is expanded. The returned function cancels
// a scroll that has not run yet.
func Apply(vm *dashboard.ViewModel, saved UIState, ok bool, view View, delay time.Duration) (cancel func()) {
	if !ok {
		view.SetStatusFilter(FilterAll)
		view.SetExpanded(DefaultExpanded(vm))
		return func() {}
	}

	filter := saved.StatusFilter
	if filter == "" {
		filter = FilterAll
	}
	view.SetStatusFilter(filter)
	view.SetExpanded(knownFeatures(vm, saved.ExpandedFeatureIDs))

	position := saved.ScrollPosition
	return AfterPaint(delay, func() { view.ScrollTo(position) })
}

// DefaultExpanded is the expansion set of a first visit.
func DefaultExpanded(vm *dashboard.ViewModel) []uint {
	if vm == nil || len(vm.Features) == 0 {
		return []uint{}
	}
	return []uint{vm.Features[0].ID}
}

// knownFeatures drops expanded IDs of features that no longer exist.
func knownFeatures(vm *dashboard.ViewModel, ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	if vm == nil {
		return out
	}
	present := make(map[uint]struct{}, len(vm.Features))
	for _, f := range vm.Features {
		present[f.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
