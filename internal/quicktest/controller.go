package quicktest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/observability/metrics"
	"github.com/quicktest-hq/quicktest/internal/status"
)

// Defaults for controller timeouts.
const (
	DefaultSubmitTimeout = 15 * time.Second
	DefaultReloadTimeout = 15 * time.Second
)

// Controller owns one tester's view model of one session. The view model is
// replaced, never edited: optimistic patches and reloads each install a new
// snapshot, so values returned by Snapshot stay valid and must not be modified.
type Controller struct {
	backend       Backend
	sessionID     uint
	log           logger.Logger
	metrics       *metrics.QuickTestMetrics
	notifier      Notifier
	persister     *StatePersister
	stateSource   func() UIState
	submitTimeout time.Duration
	reloadTimeout time.Duration
	now           func() time.Time

	mu          sync.Mutex
	vm          *dashboard.ViewModel
	pending     map[uint]*Submission
	subscribers map[int]chan *dashboard.ViewModel
	nextSub     int
	closed      bool

	// fetchSeq numbers dashboard fetches in start order; installedSeq is the
	// fetch the current view model came from.
	fetchSeq     uint64
	installedSeq uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics records submission metrics.
func WithMetrics(m *metrics.QuickTestMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithNotifier sets where user-visible notifications go. The default logs them.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithStatePersister enables UI state capture. source reports the current UI
// state and is called before every reload and on Close.
func WithStatePersister(p *StatePersister, source func() UIState) Option {
	return func(c *Controller) {
		c.persister = p
		c.stateSource = source
	}
}

// WithSubmitTimeout bounds each feedback write.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.submitTimeout = d
		}
	}
}

// WithReloadTimeout bounds each silent reload.
func WithReloadTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.reloadTimeout = d
		}
	}
}

// New creates a controller for sessionID. Call Reload to load the dashboard.
func New(backend Backend, sessionID uint, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend:       backend,
		sessionID:     sessionID,
		submitTimeout: DefaultSubmitTimeout,
		reloadTimeout: DefaultReloadTimeout,
		now:           time.Now,
		pending:       make(map[uint]*Submission),
		subscribers:   make(map[int]chan *dashboard.ViewModel),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Global().Module("quicktest")
	}
	if c.notifier == nil {
		c.notifier = logNotifier{log: c.log}
	}
	return c
}

// SessionID returns the session the controller is bound to.
func (c *Controller) SessionID() uint {
	return c.sessionID
}

// Snapshot returns the current view model, or nil before the first load.
func (c *Controller) Snapshot() *dashboard.ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vm
}

// Subscribe returns a channel receiving every new snapshot. Slow readers only
// see the latest one. The returned function unsubscribes.
func (c *Controller) Subscribe() (<-chan *dashboard.ViewModel, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan *dashboard.ViewModel, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(ch)
			}
		})
	}
}

// Pending reports whether caseID has a submission in flight. The UI disables
// the case's controls while this is true.
func (c *Controller) Pending(caseID uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[caseID]
	return ok
}

// PendingCases returns the cases with a submission in flight, ascending.
func (c *Controller) PendingCases() []uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Reload fetches the dashboard and replaces the view model. A missing session
// clears the view model; other failures keep the last good one. Both are
// reported to the notifier and returned.
func (c *Controller) Reload(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.captureState()

	vm, seq, err := c.fetch(ctx)
	if err != nil {
		c.mu.Lock()
		if errors.IsNotFound(err) && c.installLocked(seq) {
			c.vm = nil
			c.publishLocked()
		}
		c.mu.Unlock()
		c.notifier.Notify(Notification{Level: LevelError, Message: "Failed to load dashboard", Err: err})
		return err
	}

	c.mu.Lock()
	if c.installLocked(seq) {
		c.vm = c.withPendingPatches(vm)
		c.publishLocked()
	}
	c.mu.Unlock()
	return nil
}

// fetch loads the dashboard and returns the sequence number the fetch was
// started under.
func (c *Controller) fetch(ctx context.Context) (*dashboard.ViewModel, uint64, error) {
	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	c.mu.Unlock()

	vm, err := c.backend.GetDashboard(ctx, c.sessionID)
	return vm, seq, err
}

// installLocked reports whether the fetch numbered seq is newer than the one
// the view model came from, and records it as installed if so. Results of
// older fetches must not replace newer ones.
func (c *Controller) installLocked(seq uint64) bool {
	if seq <= c.installedSeq {
		return false
	}
	c.installedSeq = seq
	return true
}

// Submit patches the case optimistically and writes the feedback in the
// background. An empty comment is replaced by "Marked as <result>". The case's
// existing feedback is updated; otherwise new feedback is created.
func (c *Controller) Submit(ctx context.Context, caseID uint, result status.Result, comment string) (*Submission, error) {
	if !result.Valid() {
		return nil, errors.ValidationError(fmt.Sprintf("invalid result %q", result))
	}
	if comment == "" {
		comment = autoComment(result)
	}

	c.mu.Lock()
	sub, err := c.beginLocked(caseID, result, comment)
	c.mu.Unlock()
	if err != nil {
		if errors.Is(err, ErrSubmissionInFlight) && c.metrics != nil {
			c.metrics.SubmissionRejected()
		}
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.SubmissionStarted()
	}
	c.log.Debug("submission started",
		logger.Uint("case_id", caseID),
		logger.String("result", string(result)),
		logger.Bool("update", sub.Update))

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.submitTimeout)
	stop := context.AfterFunc(c.ctx, cancel)
	c.wg.Go(func() {
		defer cancel()
		defer stop()
		c.run(runCtx, sub)
	})
	return sub, nil
}

// beginLocked installs the optimistic patch and registers the submission.
func (c *Controller) beginLocked(caseID uint, result status.Result, comment string) (*Submission, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.vm == nil {
		return nil, ErrNotLoaded
	}
	if _, busy := c.pending[caseID]; busy {
		return nil, errors.New(ErrSubmissionInFlight).
			Component("quicktest").
			Category(errors.CategoryConflict).
			Context("case_id", caseID).
			Build()
	}
	cv, ok := c.vm.Case(caseID)
	if !ok {
		return nil, errors.NotFoundError(ErrCaseNotFound, caseID)
	}

	sub := newSubmission(caseID, result, comment)
	sub.previous = cv.MyFeedback
	sub.started = c.now()

	patch := &dashboard.FeedbackView{Result: result, Comment: comment}
	if id, ok := cv.MyFeedback.ServerID(); ok {
		sub.Update = true
		sub.feedbackID = id
		patch.ID = cv.MyFeedback.ID
		patch.CreatedAt = cv.MyFeedback.CreatedAt
	} else {
		patch.ID = dashboard.TempIDPrefix + uuid.NewString()
		patch.CreatedAt = sub.started
	}
	sub.optimistic = patch

	c.vm, _ = c.vm.WithFeedback(caseID, patch)
	c.pending[caseID] = sub
	sub.setState(StateSubmitting)
	c.publishLocked()
	return sub, nil
}

// run performs the write and the mandatory reconciling reload.
func (c *Controller) run(ctx context.Context, sub *Submission) {
	var (
		saved *dashboard.FeedbackView
		err   error
	)
	if sub.Update {
		saved, err = c.backend.UpdateFeedback(ctx, sub.feedbackID, sub.Result, sub.Comment)
	} else {
		saved, err = c.backend.CreateFeedback(ctx, sub.CaseID, sub.Result, sub.Comment)
	}

	if err != nil {
		err = errors.New(fmt.Errorf("%w: %w", ErrSubmissionFailed, err)).
			Component("quicktest").
			Category(errors.CategorySubmission).
			Context("case_id", sub.CaseID).
			Context("update", sub.Update).
			Build()
		c.notifier.Notify(Notification{
			Level:   LevelError,
			CaseID:  sub.CaseID,
			Message: "Failed to submit feedback",
			Err:     err,
		})
	}

	c.captureState()
	reloadCtx, cancel := context.WithTimeout(c.ctx, c.reloadTimeout)
	fresh, seq, reloadErr := c.fetch(reloadCtx)
	cancel()

	c.finish(sub, saved, err, fresh, seq, reloadErr)
}

func (c *Controller) finish(sub *Submission, saved *dashboard.FeedbackView, err error, fresh *dashboard.ViewModel, seq uint64, reloadErr error) {
	c.mu.Lock()
	delete(c.pending, sub.CaseID)

	switch {
	case reloadErr == nil && c.installLocked(seq):
		c.vm = c.withPendingPatches(fresh)
	case reloadErr == nil:
		// A newer fetch is already installed, but it carried this case's
		// optimistic patch. The fetch made after the write is authoritative
		// for this case.
		if cv, ok := fresh.Case(sub.CaseID); ok {
			c.vm, _ = c.vm.WithFeedback(sub.CaseID, cv.MyFeedback)
		}
	case err != nil:
		// No authoritative state to fall back on: put back what the case showed
		// before the patch.
		c.vm, _ = c.vm.WithFeedback(sub.CaseID, sub.previous)
	case saved != nil:
		c.vm, _ = c.vm.WithFeedback(sub.CaseID, saved)
	}
	c.publishLocked()
	c.mu.Unlock()

	if reloadErr != nil {
		c.log.Warn("silent reload after submission failed",
			logger.Uint("case_id", sub.CaseID),
			logger.Error(reloadErr))
		c.notifier.Notify(Notification{
			Level:   LevelError,
			CaseID:  sub.CaseID,
			Message: "Failed to refresh dashboard",
			Err:     reloadErr,
		})
	}

	state, outcome := StateReconciled, metrics.OutcomeReconciled
	if err != nil {
		state, outcome = StateReverted, metrics.OutcomeReverted
	} else {
		c.notifier.Notify(Notification{Level: LevelInfo, CaseID: sub.CaseID, Message: "Feedback submitted"})
	}
	if c.metrics != nil {
		c.metrics.SubmissionFinished(outcome, c.now().Sub(sub.started))
	}
	c.log.Debug("submission finished",
		logger.Uint("case_id", sub.CaseID),
		logger.String("state", state.String()))
	sub.finish(state, err)
}

// withPendingPatches re-applies the optimistic patches of submissions that are
// still in flight on top of a freshly loaded view model.
func (c *Controller) withPendingPatches(vm *dashboard.ViewModel) *dashboard.ViewModel {
	for caseID, sub := range c.pending {
		vm, _ = vm.WithFeedback(caseID, sub.optimistic)
	}
	return vm
}

func (c *Controller) publishLocked() {
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- c.vm
	}
}

// CaptureState persists the current UI state. It is a no-op without a persister.
func (c *Controller) CaptureState() error {
	if c.persister == nil || c.stateSource == nil {
		return nil
	}
	return c.persister.CaptureState(c.sessionID, c.stateSource())
}

// RestoreState returns the saved UI state of the session.
func (c *Controller) RestoreState() (UIState, bool) {
	if c.persister == nil {
		return UIState{}, false
	}
	return c.persister.RestoreState(c.sessionID)
}

// captureState saves the UI state once something has been shown; before the
// first successful load there is no view to capture.
func (c *Controller) captureState() {
	if c.Snapshot() == nil {
		return
	}
	if err := c.CaptureState(); err != nil {
		c.log.Warn("failed to capture ui state", logger.Error(err))
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close captures UI state, cancels in-flight submissions and waits for them
// to settle, then closes subscriber channels.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.captureState()
	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
	c.mu.Unlock()
}
