package quicktest

import (
	"context"
	"sync"
	"time"

	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/status"
)

// SubmissionState is the lifecycle of one submission.
type SubmissionState int

const (
	StateIdle SubmissionState = iota
	StateSubmitting
	StateReconciled
	StateReverted
)

func (s SubmissionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateReconciled:
		return "reconciled"
	case StateReverted:
		return "reverted"
	}
	return "unknown"
}

// Terminal reports whether the submission has finished.
func (s SubmissionState) Terminal() bool {
	return s == StateReconciled || s == StateReverted
}

// Submission tracks one optimistic feedback write for a case.
type Submission struct {
	CaseID  uint
	Result  status.Result
	Comment string
	Update  bool // true when an existing entry is being changed

	feedbackID uint                    // server identity, set for updates
	previous   *dashboard.FeedbackView // MyFeedback before the patch
	optimistic *dashboard.FeedbackView // the patch itself
	started    time.Time

	mu    sync.Mutex
	state SubmissionState
	err   error
	done  chan struct{}
}

func newSubmission(caseID uint, result status.Result, comment string) *Submission {
	return &Submission{
		CaseID:  caseID,
		Result:  result,
		Comment: comment,
		state:   StateIdle,
		done:    make(chan struct{}),
	}
}

// State returns the current state.
func (s *Submission) State() SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the submission is reconciled or reverted.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Err returns the submission error. It is nil while submitting and after a
// successful reconcile.
func (s *Submission) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the submission finishes or ctx is done.
func (s *Submission) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Submission) setState(state SubmissionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Submission) finish(state SubmissionState, err error) {
	s.mu.Lock()
	s.state = state
	s.err = err
	s.mu.Unlock()
	close(s.done)
}
