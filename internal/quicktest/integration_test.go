package quicktest_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv2 "github.com/quicktest-hq/quicktest/internal/api/v2"
	"github.com/quicktest-hq/quicktest/internal/client"
	"github.com/quicktest-hq/quicktest/internal/conf"
	dstestutil "github.com/quicktest-hq/quicktest/internal/datastore/testutil"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/quicktest"
	"github.com/quicktest-hq/quicktest/internal/status"
)

var _ quicktest.Backend = (*client.Client)(nil)

func serveAPI(t *testing.T) (baseURL string, sessionID uint, caseIDs []uint) {
	t.Helper()

	db := dstestutil.NewSQLite(t)
	session := dstestutil.SeedSession(t, db.DB(), 2)

	e := echo.New()
	ctrl, err := apiv2.New(e, db, &conf.Settings{}, apiv2.WithLogger(logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)))
	require.NoError(t, err)

	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		srv.Close()
		ctrl.Shutdown()
	})

	for _, c := range session.Features[0].Cases {
		caseIDs = append(caseIDs, c.ID)
	}
	return srv.URL + "/api/v2", session.ID, caseIDs
}

func newTesterController(t *testing.T, baseURL string, sessionID, testerID uint) *quicktest.Controller {
	t.Helper()
	log := logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)

	cl, err := client.New(client.Config{BaseURL: baseURL, TesterID: testerID, Timeout: 5 * time.Second, Strict: true}, log)
	require.NoError(t, err)

	c := quicktest.New(cl, sessionID, quicktest.WithLogger(log))
	t.Cleanup(func() {
		c.Close()
		cl.Close()
	})
	require.NoError(t, c.Reload(context.Background()))
	return c
}

func wait(t *testing.T, sub *quicktest.Submission) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sub.Wait(ctx))
	require.Equal(t, quicktest.StateReconciled, sub.State())
}

// Two testers share a session with one feature of two cases. The later write
// decides the case status while each tester keeps seeing their own feedback.
func TestTwoTestersAgainstRealServer(t *testing.T) {
	baseURL, sessionID, cases := serveAPI(t)
	c1, c2 := cases[0], cases[1]
	ctx := context.Background()

	tester := newTesterController(t, baseURL, sessionID, 1)

	sub, prompt, err := tester.Quick(ctx, c1, status.ResultPass)
	require.NoError(t, err)
	require.Nil(t, prompt)
	wait(t, sub)

	vm := tester.Snapshot()
	cv, _ := vm.Case(c1)
	assert.Equal(t, "Marked as pass", cv.MyFeedback.Comment)
	assert.Equal(t, 1, vm.Features[0].Stats.Tested)
	assert.Equal(t, 2, vm.Features[0].Stats.Total)
	assert.Equal(t, 1, vm.Features[0].Stats.PassedCases)
	assert.Equal(t, 50, vm.Stats.ProgressPercentage)
	firstID := cv.MyFeedback.ID

	_, prompt, err = tester.Quick(ctx, c1, status.ResultFail)
	require.NoError(t, err)
	require.NotNil(t, prompt)
	require.True(t, prompt.Update)
	sub, err = tester.Confirm(ctx, prompt, status.ResultFail, "error toast never appears")
	require.NoError(t, err)
	wait(t, sub)

	vm = tester.Snapshot()
	cv, _ = vm.Case(c1)
	assert.Equal(t, firstID, cv.MyFeedback.ID)
	assert.Equal(t, status.Fail, cv.Status)
	assert.Equal(t, 0, vm.Features[0].Stats.PassedCases)
	assert.Equal(t, 1, vm.Features[0].Stats.FailedCases)

	other := newTesterController(t, baseURL, sessionID, 2)
	sub, err = other.Submit(ctx, c1, status.ResultPass, "")
	require.NoError(t, err)
	wait(t, sub)

	otherCase, _ := other.Snapshot().Case(c1)
	assert.Equal(t, status.Pass, otherCase.Status)

	stale, _ := tester.Snapshot().Case(c1)
	assert.Equal(t, status.Fail, stale.Status, "no update until the tester reloads")

	require.NoError(t, tester.Reload(ctx))
	mine, _ := tester.Snapshot().Case(c1)
	assert.Equal(t, status.Pass, mine.Status)
	assert.Equal(t, status.ResultFail, mine.MyFeedback.Result)
	assert.Equal(t, 2, tester.Snapshot().Stats.ActiveTesters)

	untouched, _ := tester.Snapshot().Case(c2)
	assert.Nil(t, untouched.MyFeedback)
}

func TestReloadOfMissingSessionClearsView(t *testing.T) {
	baseURL, sessionID, _ := serveAPI(t)
	log := logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	cl, err := client.New(client.Config{BaseURL: baseURL, TesterID: 1, Timeout: 5 * time.Second}, log)
	require.NoError(t, err)
	defer cl.Close()

	c := quicktest.New(cl, sessionID+100, quicktest.WithLogger(log))
	defer c.Close()

	err = c.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.Nil(t, c.Snapshot())
}
