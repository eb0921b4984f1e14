package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/status"
)

const baseURL = "http://qa.test/api/v2"

const dashboardJSON = `{
  "session": {"id": 1, "orgId": 1, "title": "Sprint 1 Testing", "status": "active", "assigneeIds": []},
  "features": [{
    "id": 10, "title": "Login", "status": "active", "sortOrder": 0,
    "cases": [
      {"id": 100, "featureId": 10, "title": "Valid password", "sortOrder": 0, "status": "pass",
       "myFeedback": {"id": "5", "result": "pass", "comment": "Marked as pass", "createdAt": "2026-03-01T09:00:00Z"}},
      {"id": 101, "featureId": 10, "title": "Wrong password", "sortOrder": 1, "status": "untested", "myFeedback": null}
    ],
    "stats": {"total": 2, "tested": 1, "untested": 1, "passedCases": 1, "failedCases": 0, "progressPercentage": 50, "testerStats": {"7": {"tested": 1, "passed": 1, "failed": 0}}}
  }],
  "stats": {"totalFeatures": 1, "totalCases": 2, "testedCases": 1, "untestedCases": 1, "passedCases": 1, "failedCases": 0, "progressPercentage": 50, "passRate": 100, "activeTesters": 1, "testers": [{"testerId": 7, "tested": 1, "passed": 1, "failed": 0}]}
}`

// newMockedClient returns a client whose transport is a fresh httpmock transport.
func newMockedClient(t *testing.T, strict bool, logOut *bytes.Buffer) (*Client, *httpmock.MockTransport) {
	t.Helper()

	var log logger.Logger
	if logOut != nil {
		log = logger.NewSlogLogger(logOut, logger.LogLevelDebug, nil)
	} else {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}

	c, err := New(Config{BaseURL: baseURL + "/", TesterID: 7, Timeout: time.Second, Strict: strict}, log)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	mock := httpmock.NewMockTransport()
	c.http.HTTPClient().Transport = mock
	return c, mock
}

func TestNewValidatesBaseURL(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "qa.test/api", "://nope"} {
		_, err := New(Config{BaseURL: bad}, nil)
		assert.Error(t, err, bad)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	}
}

func TestGetDashboard(t *testing.T) {
	t.Parallel()

	c, mock := newMockedClient(t, true, nil)
	mock.RegisterResponder(http.MethodGet, baseURL+"/sessions/1/dashboard",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "7", req.Header.Get(HeaderTesterID))
			return httpmock.NewStringResponse(http.StatusOK, dashboardJSON), nil
		})

	vm, err := c.GetDashboard(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "Sprint 1 Testing", vm.Session.Title)
	require.Len(t, vm.Features, 1)
	require.Len(t, vm.Features[0].Cases, 2)
	assert.Equal(t, status.Pass, vm.Features[0].Cases[0].Status)
	require.NotNil(t, vm.Features[0].Cases[0].MyFeedback)
	assert.Equal(t, "5", vm.Features[0].Cases[0].MyFeedback.ID)
	assert.Nil(t, vm.Features[0].Cases[1].MyFeedback)
	assert.Equal(t, 50, vm.Stats.ProgressPercentage)
	assert.Equal(t, 1, vm.Features[0].Stats.TesterStats[7].Passed)
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestGetDashboardMissingStats(t *testing.T) {
	t.Parallel()

	var withoutStats map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(dashboardJSON), &withoutStats))
	delete(withoutStats, "stats")
	body, err := json.Marshal(withoutStats)
	require.NoError(t, err)

	t.Run("strict mode rejects", func(t *testing.T) {
		t.Parallel()
		c, mock := newMockedClient(t, true, nil)
		mock.RegisterResponder(http.MethodGet, baseURL+"/sessions/1/dashboard",
			httpmock.NewBytesResponder(http.StatusOK, body))

		_, err := c.GetDashboard(context.Background(), 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedResponse)
		assert.True(t, errors.IsCategory(err, errors.CategoryMalformedResponse))
	})

	t.Run("lenient mode degrades to zeroed stats", func(t *testing.T) {
		t.Parallel()
		var logs bytes.Buffer
		c, mock := newMockedClient(t, false, &logs)
		mock.RegisterResponder(http.MethodGet, baseURL+"/sessions/1/dashboard",
			httpmock.NewBytesResponder(http.StatusOK, body))

		vm, err := c.GetDashboard(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 0, vm.Stats.TotalCases)
		assert.NotNil(t, vm.Stats.Testers)
		assert.Len(t, vm.Features, 1)
		assert.Contains(t, logs.String(), "without stats")
	})
}

func TestGetDashboardIncompleteStats(t *testing.T) {
	t.Parallel()

	var partial map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(dashboardJSON), &partial))
	partial["stats"] = json.RawMessage(`{"totalCases": 2, "testedCases": 1}`)
	body, err := json.Marshal(partial)
	require.NoError(t, err)

	t.Run("strict mode rejects", func(t *testing.T) {
		t.Parallel()
		c, mock := newMockedClient(t, true, nil)
		mock.RegisterResponder(http.MethodGet, baseURL+"/sessions/1/dashboard",
			httpmock.NewBytesResponder(http.StatusOK, body))

		_, err := c.GetDashboard(context.Background(), 1)
		require.ErrorIs(t, err, ErrMalformedResponse)
		assert.Contains(t, err.Error(), "stats.progressPercentage")
		assert.NotContains(t, err.Error(), "stats.totalCases")
	})

	t.Run("lenient mode logs and zero-fills", func(t *testing.T) {
		t.Parallel()
		var logs bytes.Buffer
		c, mock := newMockedClient(t, false, &logs)
		mock.RegisterResponder(http.MethodGet, baseURL+"/sessions/1/dashboard",
			httpmock.NewBytesResponder(http.StatusOK, body))

		vm, err := c.GetDashboard(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 2, vm.Stats.TotalCases)
		assert.Equal(t, 1, vm.Stats.TestedCases)
		assert.Equal(t, 0, vm.Stats.ProgressPercentage)
		assert.NotNil(t, vm.Stats.Testers)
		assert.Contains(t, logs.String(), "stats incomplete")
		assert.Contains(t, logs.String(), "progressPercentage")
	})

	t.Run("non-object stats are malformed", func(t *testing.T) {
		t.Parallel()
		c, mock := newMockedClient(t, false, nil)
		mock.RegisterResponder(http.MethodGet, baseURL+"/sessions/1/dashboard",
			httpmock.NewStringResponder(http.StatusOK, `{"session": {"id": 1}, "features": [], "stats": 42}`))

		_, err := c.GetDashboard(context.Background(), 1)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestGetDashboardMissingFeaturesIsAlwaysMalformed(t *testing.T) {
	t.Parallel()

	c, mock := newMockedClient(t, false, nil)
	mock.RegisterResponder(http.MethodGet, baseURL+"/sessions/1/dashboard",
		httpmock.NewStringResponder(http.StatusOK, `{"session": {"id": 1}, "stats": {}}`))

	_, err := c.GetDashboard(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGetDashboardNotFound(t *testing.T) {
	t.Parallel()

	c, mock := newMockedClient(t, true, nil)
	mock.RegisterResponder(http.MethodGet, baseURL+"/sessions/9/dashboard",
		httpmock.NewStringResponder(http.StatusNotFound,
			`{"error":"session not found","message":"Failed to load dashboard","code":404,"correlation_id":"ab12cd34"}`))

	_, err := c.GetDashboard(context.Background(), 9)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, errors.IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ab12cd34", apiErr.CorrelationID)
	assert.Equal(t, "session not found", apiErr.Detail)
}

func TestCreateFeedback(t *testing.T) {
	t.Parallel()

	c, mock := newMockedClient(t, true, nil)
	mock.RegisterResponder(http.MethodPost, baseURL+"/cases/101/feedback",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]string
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return nil, err
			}
			assert.Equal(t, map[string]string{"result": "fail", "comment": "error toast missing"}, body)
			return httpmock.NewJsonResponse(http.StatusCreated, map[string]any{
				"id": 77, "caseId": 101, "testerId": 7, "result": "fail",
				"comment": "error toast missing", "createdAt": "2026-03-01T10:00:00Z", "caseStatus": "fail",
			})
		})

	fb, err := c.CreateFeedback(context.Background(), 101, status.ResultFail, "error toast missing")
	require.NoError(t, err)
	assert.Equal(t, "77", fb.ID)
	assert.Equal(t, status.ResultFail, fb.Result)
	assert.False(t, fb.IsTemporary())
}

func TestUpdateFeedbackForbidden(t *testing.T) {
	t.Parallel()

	c, mock := newMockedClient(t, true, nil)
	mock.RegisterResponder(http.MethodPut, baseURL+"/feedback/5",
		httpmock.NewStringResponder(http.StatusForbidden, `{"error":"feedback belongs to another tester","code":403}`))

	_, err := c.UpdateFeedback(context.Background(), 5, status.ResultPass, "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNetworkErrorsAreCategorized(t *testing.T) {
	t.Parallel()

	c, mock := newMockedClient(t, true, nil)
	mock.RegisterResponder(http.MethodPut, baseURL+"/feedback/5",
		httpmock.NewErrorResponder(errors.NewStd("connection reset")))

	_, err := c.UpdateFeedback(context.Background(), 5, status.ResultPass, "")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))

	var ee *errors.EnhancedError
	require.ErrorAs(t, err, &ee)
	ctx := ee.GetContext()
	assert.Equal(t, "PUT /feedback/5", ctx["operation"])
	assert.Contains(t, ctx, "duration_ms")
}

func TestRequestsAreLoggedAtDebug(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	c, mock := newMockedClient(t, true, &logs)
	mock.RegisterResponder(http.MethodGet, baseURL+"/sessions/1/dashboard",
		httpmock.NewStringResponder(http.StatusOK, dashboardJSON))
	mock.RegisterResponder(http.MethodDelete, baseURL+"/feedback/5",
		httpmock.NewErrorResponder(errors.NewStd("connection reset")))

	_, err := c.GetDashboard(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `msg="api request"`)
	assert.Contains(t, logs.String(), "method=GET")
	assert.Contains(t, logs.String(), "status=200")
	assert.Contains(t, logs.String(), "elapsed=")

	logs.Reset()
	require.Error(t, c.DeleteFeedback(context.Background(), 5))
	assert.Contains(t, logs.String(), `msg="api request failed"`)
	assert.Contains(t, logs.String(), "method=DELETE")
	assert.NotContains(t, logs.String(), "status=")
}

func TestListFeedbackAndDelete(t *testing.T) {
	t.Parallel()

	c, mock := newMockedClient(t, true, nil)
	mock.RegisterResponderWithQuery(http.MethodGet, baseURL+"/cases/100/feedback", "page=2&limit=5",
		httpmock.NewStringResponder(http.StatusOK, `{
			"items": [{"id": 3, "caseId": 100, "testerId": 2, "result": "pass", "comment": "", "createdAt": "2026-03-01T09:00:00Z", "updatedAt": "2026-03-01T09:00:00Z"}],
			"meta": {"total": 6, "page": 2, "limit": 5, "totalPages": 2}}`))
	mock.RegisterResponder(http.MethodDelete, baseURL+"/feedback/3",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	page, err := c.ListFeedback(context.Background(), 100, 2, 5)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(6), page.Meta.Total)
	assert.Equal(t, 2, page.Meta.TotalPages)

	require.NoError(t, c.DeleteFeedback(context.Background(), 3))
}

func TestChangelog(t *testing.T) {
	t.Parallel()

	c, mock := newMockedClient(t, true, nil)
	mock.RegisterResponder(http.MethodGet, baseURL+"/changelog/feedback/3",
		httpmock.NewStringResponder(http.StatusOK, `{
			"items": [{"id": 1, "entityType": "feedback", "entityId": 3, "testerId": 2, "action": "created",
			           "changes": {"result": {"new": "pass"}}, "createdAt": "2026-03-01T09:00:00Z"}],
			"meta": {"total": 1, "page": 1, "limit": 10, "totalPages": 1}}`))

	page, err := c.Changelog(context.Background(), 3, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "created", page.Items[0].Action)
	assert.JSONEq(t, `{"result": {"new": "pass"}}`, string(page.Items[0].Changes))
}

func TestUndecodableBody(t *testing.T) {
	t.Parallel()

	c, mock := newMockedClient(t, true, nil)
	mock.RegisterResponder(http.MethodPost, baseURL+"/cases/1/feedback",
		httpmock.NewStringResponder(http.StatusCreated, `<html>`))

	_, err := c.CreateFeedback(context.Background(), 1, status.ResultPass, "")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
