package dashboard

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/quicktest"
	"github.com/quicktest-hq/quicktest/internal/rollup"
	"github.com/quicktest-hq/quicktest/internal/status"
)

func sampleView() *dashboard.ViewModel {
	return &dashboard.ViewModel{
		Session: dashboard.SessionSummary{ID: 1, Title: "Sprint 1 Testing", Status: "active"},
		Features: []dashboard.FeatureView{
			{ID: 10, Title: "Login", Cases: []dashboard.CaseView{
				{ID: 100, Title: "Valid password", Status: status.Pass,
					MyFeedback: &dashboard.FeedbackView{ID: "1", Result: status.ResultPass, Comment: "Marked as pass"}},
				{ID: 101, Title: "Wrong password", Status: status.Untested},
			}, Stats: rollup.FeatureStats{Total: 2, Tested: 1, ProgressPercentage: 50}},
			{ID: 20, Title: "Checkout", Cases: []dashboard.CaseView{
				{ID: 200, Title: "Pay by card", Status: status.Untested},
			}, Stats: rollup.FeatureStats{Total: 1}},
		},
		Stats: rollup.SessionStats{TotalCases: 3, TestedCases: 1, ProgressPercentage: 33, PassRate: 100},
	}
}

func TestRenderFirstVisitShowsFirstFeatureOnly(t *testing.T) {
	vm := sampleView()
	view := &terminalView{}
	cancel := quicktest.Apply(vm, quicktest.UIState{}, false, view, 0)
	defer cancel()

	var out bytes.Buffer
	Render(&out, vm, view.filter, view.expanded)

	s := out.String()
	assert.Contains(t, s, "Sprint 1 Testing [active]")
	assert.Contains(t, s, "progress 33%")
	assert.Contains(t, s, "- Login  1/2 tested, 50%")
	assert.Contains(t, s, "+ Checkout")
	assert.Contains(t, s, `you: pass "Marked as pass"`)
	assert.NotContains(t, s, "Pay by card")
}

func TestRenderAppliesFilter(t *testing.T) {
	vm := sampleView()
	var out bytes.Buffer
	Render(&out, vm, quicktest.FilterUntested, quicktest.ToggleAll(vm, nil))

	s := out.String()
	assert.NotContains(t, s, "Valid password")
	assert.Contains(t, s, "Wrong password")
	assert.Contains(t, s, "Pay by card")
}

func TestViewStateCarriesOverBetweenRuns(t *testing.T) {
	settings := &conf.ClientSettings{
		StateFile: filepath.Join(t.TempDir(), "ui-state.json"),
		StateTTL:  time.Hour,
	}
	log := logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	vm := sampleView()

	first := &terminalView{}
	quicktest.Apply(vm, quicktest.UIState{}, false, first, time.Millisecond)()
	assert.Equal(t, []uint{10}, first.State().ExpandedFeatureIDs)

	first.SetStatusFilter(quicktest.FilterUntested)
	first.SetExpanded([]uint{20})
	first.ScrollTo(240)
	persister := quicktest.NewStatePersister(quicktest.StateStoreFromSettings(settings, log), log)
	require.NoError(t, persister.CaptureState(1, first.State()))

	saved, ok := quicktest.NewStatePersister(quicktest.StateStoreFromSettings(settings, log), log).RestoreState(1)
	require.True(t, ok)
	second := &terminalView{scroll: saved.ScrollPosition}
	cancel := quicktest.Apply(vm, saved, ok, second, time.Millisecond)
	defer cancel()

	state := second.State()
	assert.Equal(t, quicktest.FilterUntested, state.StatusFilter)
	assert.Equal(t, []uint{20}, state.ExpandedFeatureIDs)
	assert.InDelta(t, 240, state.ScrollPosition, 0)
}
