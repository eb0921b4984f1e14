// Package dashboard builds the per-tester quick test view model for a session.
package dashboard

import (
	"context"
	"strconv"
	"time"

	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/observability/metrics"
	"github.com/quicktest-hq/quicktest/internal/rollup"
)

// BuildRecorder receives build outcomes. *metrics.QuickTestMetrics implements it.
type BuildRecorder interface {
	RecordDashboardBuild(status string, duration time.Duration)
}

// Builder assembles view models from the record store.
type Builder struct {
	sessions repository.SessionRepository
	feedback repository.FeedbackRepository
	recorder BuildRecorder
	log      logger.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder reports build outcomes to r.
func WithRecorder(r BuildRecorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// WithLogger sets the builder's logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// NewBuilder creates a Builder.
func NewBuilder(sessions repository.SessionRepository, feedback repository.FeedbackRepository, opts ...Option) *Builder {
	b := &Builder{sessions: sessions, feedback: feedback}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Global().Module("dashboard")
	}
	return b
}

// Build returns the view model of sessionID as seen by testerID. Canonical
// statuses and rollups are identical for every tester; only MyFeedback differs.
// A zero testerID builds an anonymous view with no MyFeedback.
func (b *Builder) Build(ctx context.Context, sessionID, testerID uint) (*ViewModel, error) {
	start := time.Now()
	vm, err := b.build(ctx, sessionID, testerID)
	b.record(err, time.Since(start))
	if err != nil {
		return nil, err
	}

	b.log.Debug("dashboard built",
		logger.Uint("session_id", sessionID),
		logger.Uint("tester_id", testerID),
		logger.Int("features", len(vm.Features)),
		logger.Duration("elapsed", time.Since(start)))
	return vm, nil
}

func (b *Builder) build(ctx context.Context, sessionID, testerID uint) (*ViewModel, error) {
	session, err := b.sessions.GetSessionTree(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, errors.NotFoundError(err, sessionID)
	}
	if err != nil {
		return nil, errors.New(err).
			Component("dashboard").
			Category(errors.CategoryDatabase).
			Context("operation", "load_session").
			Context("session_id", sessionID).
			Build()
	}

	var caseIDs []uint
	for i := range session.Features {
		for j := range session.Features[i].Cases {
			caseIDs = append(caseIDs, session.Features[i].Cases[j].ID)
		}
	}
	roster, err := b.feedback.ListForCases(ctx, caseIDs)
	if err != nil {
		return nil, errors.New(err).
			Component("dashboard").
			Category(errors.CategoryDatabase).
			Context("operation", "load_feedback").
			Context("session_id", sessionID).
			Build()
	}

	return assemble(session, roster, testerID), nil
}

func (b *Builder) record(err error, elapsed time.Duration) {
	if b.recorder == nil {
		return
	}
	outcome := metrics.StatusSuccess
	switch {
	case errors.IsNotFound(err):
		outcome = metrics.StatusNotFound
	case err != nil:
		outcome = metrics.StatusError
	}
	b.recorder.RecordDashboardBuild(outcome, elapsed)
}

// assemble is the pure part of Build.
func assemble(session *entities.Session, roster []entities.Feedback, testerID uint) *ViewModel {
	byCase := make(map[uint][]rollup.Feedback)
	for i := range roster {
		fb := &roster[i]
		byCase[fb.CaseID] = append(byCase[fb.CaseID], rollup.Feedback{CaseID: fb.CaseID, Entry: fb.Entry()})
	}
	mine := myFeedback(roster, testerID)

	vm := &ViewModel{
		Session:  summarize(session),
		Features: make([]FeatureView, 0, len(session.Features)),
	}

	featureStats := make([]rollup.FeatureStats, 0, len(session.Features))
	for i := range session.Features {
		f := &session.Features[i]
		view := FeatureView{
			ID:          f.ID,
			Title:       f.Title,
			Description: f.Description,
			Status:      f.Status,
			SortOrder:   f.SortOrder,
			Cases:       make([]CaseView, 0, len(f.Cases)),
		}

		inputs := make([]rollup.CaseInput, 0, len(f.Cases))
		var featureRoster []rollup.Feedback
		for j := range f.Cases {
			c := &f.Cases[j]
			view.Cases = append(view.Cases, CaseView{
				ID:             c.ID,
				FeatureID:      f.ID,
				Title:          c.Title,
				Note:           c.Note,
				ExpectedOutput: c.ExpectedOutput,
				SortOrder:      c.SortOrder,
				Status:         c.Status,
				MyFeedback:     mine[c.ID],
			})
			inputs = append(inputs, rollup.CaseInput{ID: c.ID, Status: c.Status})
			featureRoster = append(featureRoster, byCase[c.ID]...)
		}

		view.Stats = rollup.Feature(inputs, featureRoster)
		featureStats = append(featureStats, view.Stats)
		vm.Features = append(vm.Features, view)
	}

	vm.Stats = rollup.Session(featureStats)
	return vm
}

func summarize(s *entities.Session) SessionSummary {
	sum := SessionSummary{
		ID:             s.ID,
		OrganizationID: s.OrganizationID,
		Title:          s.Title,
		Description:    s.Description,
		Status:         s.Status,
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
		AssigneeIDs:    make([]uint, 0, len(s.Assignees)),
	}
	for _, a := range s.Assignees {
		sum.AssigneeIDs = append(sum.AssigneeIDs, a.TesterID)
	}
	return sum
}

// myFeedback maps case ID to the tester's current entry on that case.
func myFeedback(roster []entities.Feedback, testerID uint) map[uint]*FeedbackView {
	out := make(map[uint]*FeedbackView)
	if testerID == 0 {
		return out
	}
	current := make(map[uint]*entities.Feedback)
	for i := range roster {
		fb := &roster[i]
		if fb.TesterID != testerID {
			continue
		}
		if prev, ok := current[fb.CaseID]; !ok || fb.Entry().After(prev.Entry()) {
			current[fb.CaseID] = fb
		}
	}
	for caseID, fb := range current {
		out[caseID] = ToFeedbackView(fb)
	}
	return out
}

// ToFeedbackView converts a stored entry.
func ToFeedbackView(fb *entities.Feedback) *FeedbackView {
	return &FeedbackView{
		ID:        strconv.FormatUint(uint64(fb.ID), 10),
		Result:    fb.Result,
		Comment:   fb.Comment,
		CreatedAt: fb.CreatedAt,
	}
}

// EmptyStats is the zeroed session rollup used when stats are unavailable.
func EmptyStats() rollup.SessionStats {
	return rollup.Session(nil)
}
