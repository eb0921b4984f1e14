package submit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/quicktest"
	"github.com/quicktest-hq/quicktest/internal/status"
)

type recordingBackend struct {
	mu       sync.Mutex
	vm       *dashboard.ViewModel
	comments []string
}

func (b *recordingBackend) GetDashboard(context.Context, uint) (*dashboard.ViewModel, error) {
	return b.vm, nil
}

func (b *recordingBackend) CreateFeedback(_ context.Context, _ uint, result status.Result, comment string) (*dashboard.FeedbackView, error) {
	return b.record("10", result, comment), nil
}

func (b *recordingBackend) UpdateFeedback(_ context.Context, _ uint, result status.Result, comment string) (*dashboard.FeedbackView, error) {
	return b.record("1", result, comment), nil
}

func (b *recordingBackend) record(id string, result status.Result, comment string) *dashboard.FeedbackView {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.comments = append(b.comments, comment)
	return &dashboard.FeedbackView{ID: id, Result: result, Comment: comment}
}

func loadedController(t *testing.T, b *recordingBackend) *quicktest.Controller {
	t.Helper()
	b.vm = &dashboard.ViewModel{
		Session: dashboard.SessionSummary{ID: 1, Title: "Sprint 1 Testing", Status: "active"},
		Features: []dashboard.FeatureView{
			{ID: 10, Title: "Login", Cases: []dashboard.CaseView{
				{ID: 100, Title: "Valid password", Status: status.Fail,
					MyFeedback: &dashboard.FeedbackView{ID: "1", Result: status.ResultFail, Comment: "spinner never stops"}},
				{ID: 101, Title: "Wrong password", Status: status.Untested},
			}},
		},
	}
	ctrl := quicktest.New(b, 1)
	t.Cleanup(ctrl.Close)
	require.NoError(t, ctrl.Reload(context.Background()))
	return ctrl
}

func TestQuickSubmitRefusesFirstFailWithoutComment(t *testing.T) {
	b := &recordingBackend{}
	ctrl := loadedController(t, b)

	sub, err := quickSubmit(context.Background(), ctrl, 101, status.ResultFail)
	require.ErrorIs(t, err, errCommentRequired)
	assert.Nil(t, sub)
	assert.Empty(t, b.comments)
}

func TestQuickSubmitUpdateKeepsExistingComment(t *testing.T) {
	b := &recordingBackend{}
	ctrl := loadedController(t, b)

	sub, err := quickSubmit(context.Background(), ctrl, 100, status.ResultPass)
	require.NoError(t, err)
	require.NoError(t, sub.Wait(context.Background()))
	assert.True(t, sub.Update)
	assert.Equal(t, []string{"spinner never stops"}, b.comments)
}

func TestQuickSubmitFirstPassNeedsNoComment(t *testing.T) {
	b := &recordingBackend{}
	ctrl := loadedController(t, b)

	sub, err := quickSubmit(context.Background(), ctrl, 101, status.ResultPass)
	require.NoError(t, err)
	require.NoError(t, sub.Wait(context.Background()))
	assert.Equal(t, []string{"Marked as pass"}, b.comments)
}
