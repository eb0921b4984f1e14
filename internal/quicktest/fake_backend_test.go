package quicktest

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/rollup"
	"github.com/quicktest-hq/quicktest/internal/status"
	"github.com/quicktest-hq/quicktest/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var errBoom = errors.NewStd("boom")

// fakeBackend is an in-memory server for one session with two features:
// feature 10 holds cases 100 and 101, feature 20 holds case 200.
type fakeBackend struct {
	mu        sync.Mutex
	features  map[uint][]uint
	order     []uint
	mine      map[uint]dashboard.FeedbackView
	nextID    uint
	clock     time.Time
	createErr error
	updateErr error
	dashErr   error
	gates     map[uint]chan struct{}
	loadHold  *loadHold
	creates   int
	updates   int
	loads     int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		features: map[uint][]uint{10: {100, 101}, 20: {200}},
		order:    []uint{10, 20},
		mine:     make(map[uint]dashboard.FeedbackView),
		nextID:   1,
		clock:    t0,
		gates:    make(map[uint]chan struct{}),
	}
}

// hold makes writes for caseID block until the returned function is called.
func (f *fakeBackend) hold(caseID uint) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[caseID] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

type loadHold struct {
	fetched chan struct{}
	release chan struct{}
}

// holdNextLoad makes the next dashboard load take its snapshot and then block
// until release is called. fetched is closed once the snapshot is taken.
func (f *fakeBackend) holdNextLoad() (fetched <-chan struct{}, release func()) {
	h := &loadHold{fetched: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.loadHold = h
	f.mu.Unlock()
	var once sync.Once
	return h.fetched, func() { once.Do(func() { close(h.release) }) }
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) wait(ctx context.Context, caseID uint) error {
	f.mu.Lock()
	gate := f.gates[caseID]
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) GetDashboard(ctx context.Context, sessionID uint) (*dashboard.ViewModel, error) {
	vm, hold, err := f.snapshot(sessionID)
	if hold != nil {
		close(hold.fetched)
		select {
		case <-hold.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return vm, err
}

func (f *fakeBackend) snapshot(sessionID uint) (*dashboard.ViewModel, *loadHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	hold := f.loadHold
	f.loadHold = nil
	if f.dashErr != nil {
		return nil, hold, f.dashErr
	}

	vm := &dashboard.ViewModel{
		Session:  dashboard.SessionSummary{ID: sessionID, Title: "Sprint 1 Testing", Status: "active", AssigneeIDs: []uint{}},
		Features: []dashboard.FeatureView{},
	}
	var featureStats []rollup.FeatureStats
	for i, fid := range f.order {
		fv := dashboard.FeatureView{ID: fid, Title: "feature " + strconv.Itoa(int(fid)), SortOrder: i, Cases: []dashboard.CaseView{}}
		var inputs []rollup.CaseInput
		var roster []rollup.Feedback
		for j, cid := range f.features[fid] {
			cv := dashboard.CaseView{ID: cid, FeatureID: fid, SortOrder: j, Status: status.Untested}
			if fb, ok := f.mine[cid]; ok {
				cp := fb
				cv.MyFeedback = &cp
				cv.Status = fb.Result.Status()
				id, _ := cp.ServerID()
				roster = append(roster, rollup.Feedback{CaseID: cid, Entry: status.Entry{ID: id, TesterID: 7, Result: fb.Result, CreatedAt: fb.CreatedAt}})
			}
			inputs = append(inputs, rollup.CaseInput{ID: cid, Status: cv.Status})
			fv.Cases = append(fv.Cases, cv)
		}
		fv.Stats = rollup.Feature(inputs, roster)
		featureStats = append(featureStats, fv.Stats)
		vm.Features = append(vm.Features, fv)
	}
	vm.Stats = rollup.Session(featureStats)
	return vm, hold, nil
}

func (f *fakeBackend) CreateFeedback(ctx context.Context, caseID uint, result status.Result, comment string) (*dashboard.FeedbackView, error) {
	if err := f.wait(ctx, caseID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.clock = f.clock.Add(time.Second)
	fb := dashboard.FeedbackView{ID: strconv.Itoa(int(f.nextID)), Result: result, Comment: comment, CreatedAt: f.clock}
	f.nextID++
	f.mine[caseID] = fb
	return &fb, nil
}

func (f *fakeBackend) UpdateFeedback(ctx context.Context, feedbackID uint, result status.Result, comment string) (*dashboard.FeedbackView, error) {
	f.mu.Lock()
	var caseID uint
	for cid, fb := range f.mine {
		if id, _ := fb.ServerID(); id == feedbackID {
			caseID = cid
		}
	}
	f.mu.Unlock()
	if err := f.wait(ctx, caseID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if caseID == 0 {
		return nil, errors.NotFoundError(ErrCaseNotFound, feedbackID)
	}
	fb := f.mine[caseID]
	fb.Result, fb.Comment = result, comment
	f.mine[caseID] = fb
	return &fb, nil
}

// recorder collects notifications.
type recorder struct {
	mu   sync.Mutex
	seen []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recorder) failures() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.seen {
		if n.Level == LevelError {
			out = append(out, n)
		}
	}
	return out
}

// mapStore is a KVStore backed by a plain map.
type mapStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMapStore() *mapStore { return &mapStore{m: make(map[string][]byte)} }

func (s *mapStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *mapStore) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func discardLogger() logger.Logger {
	return logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
}

// newLoadedController returns a controller that has loaded session 1.
func newLoadedController(t *testing.T, backend *fakeBackend, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{WithLogger(discardLogger()), WithNotifier(rec), WithSubmitTimeout(2 * time.Second)}, opts...)
	c := New(backend, 1, opts...)
	t.Cleanup(c.Close)
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	return c, rec
}

func waitDone(t *testing.T, sub *Submission) error {
	t.Helper()
	testutil.WaitForChannel(t, sub.Done(), testutil.DefaultTestTimeout, "submission did not finish")
	return sub.Err()
}
