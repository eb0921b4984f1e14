// Package client is the REST client the quick test controller uses to reach
// the quicktest API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quicktest-hq/quicktest/internal/api/v2/dto"
	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/httpclient"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/status"
)

// HeaderTesterID carries the caller identity.
const HeaderTesterID = "X-Tester-ID"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Config configures a Client.
type Config struct {
	BaseURL  string        // API root, e.g. http://localhost:8080/api/v2
	TesterID uint          // sent as X-Tester-ID; zero sends no identity
	Timeout  time.Duration // default per-request timeout
	Strict   bool          // reject dashboards without stats instead of degrading
}

// ConfigFromSettings maps the client section of the settings.
func ConfigFromSettings(s *conf.ClientSettings) Config {
	return Config{
		BaseURL:  s.BaseURL,
		TesterID: s.TesterID,
		Timeout:  s.Timeout,
		Strict:   s.Strict,
	}
}

// Client talks to the quicktest REST API on behalf of one tester.
type Client struct {
	http     *httpclient.Client
	baseURL  string
	testerID uint
	strict   bool
	log      logger.Logger
}

// New creates a Client. log may be nil.
func New(cfg Config, log logger.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid client base url %q", cfg.BaseURL).
			Component("client").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if log == nil {
		log = logger.Global().Module("client")
	}

	headers := http.Header{}
	if cfg.TesterID != 0 {
		headers.Set(HeaderTesterID, strconv.FormatUint(uint64(cfg.TesterID), 10))
	}

	hc := httpclient.New(&httpclient.Config{
		DefaultTimeout: cfg.Timeout,
		Headers:        headers,
	})
	rl := &requestLog{log: log}
	hc.SetBeforeRequestHook(rl.before)
	hc.SetAfterResponseHook(rl.after)

	return &Client{
		http:     hc,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		testerID: cfg.TesterID,
		strict:   cfg.Strict,
		log:      log,
	}, nil
}

// TesterID returns the identity this client acts as.
func (c *Client) TesterID() uint {
	return c.testerID
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.Close()
}

// GetDashboard loads the personalized view model of a session.
func (c *Client) GetDashboard(ctx context.Context, sessionID uint) (*dashboard.ViewModel, error) {
	var raw struct {
		Session  json.RawMessage `json:"session"`
		Features json.RawMessage `json:"features"`
		Stats    json.RawMessage `json:"stats"`
	}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/sessions/%d/dashboard", sessionID), nil, &raw); err != nil {
		return nil, err
	}
	return c.decodeDashboard(sessionID, raw.Session, raw.Features, raw.Stats)
}

func (c *Client) decodeDashboard(sessionID uint, session, features, stats json.RawMessage) (*dashboard.ViewModel, error) {
	if isAbsent(session) {
		return nil, malformed(sessionID, "session")
	}
	if isAbsent(features) {
		return nil, malformed(sessionID, "features")
	}

	vm := &dashboard.ViewModel{}
	if err := json.Unmarshal(session, &vm.Session); err != nil {
		return nil, malformedErr(sessionID, "session", err)
	}
	if err := json.Unmarshal(features, &vm.Features); err != nil {
		return nil, malformedErr(sessionID, "features", err)
	}

	if isAbsent(stats) {
		if c.strict {
			return nil, malformed(sessionID, "stats")
		}
		c.log.Warn("dashboard response without stats, using zeroed stats",
			logger.Uint("session_id", sessionID))
		vm.Stats = dashboard.EmptyStats()
		return vm, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(stats, &fields); err != nil {
		return nil, malformedErr(sessionID, "stats", err)
	}
	if missing := missingStats(fields); len(missing) > 0 {
		if c.strict {
			return nil, malformed(sessionID, "stats."+strings.Join(missing, ", stats."))
		}
		c.log.Warn("dashboard stats incomplete, missing fields read as zero",
			logger.Uint("session_id", sessionID),
			logger.String("missing", strings.Join(missing, ",")))
	}
	if err := json.Unmarshal(stats, &vm.Stats); err != nil {
		return nil, malformedErr(sessionID, "stats", err)
	}
	if vm.Stats.Testers == nil {
		vm.Stats.Testers = dashboard.EmptyStats().Testers
	}
	return vm, nil
}

// requiredStats are the session stats keys the server always sends.
var requiredStats = []string{
	"totalFeatures", "totalCases", "testedCases", "untestedCases",
	"passedCases", "failedCases", "progressPercentage", "passRate", "activeTesters",
}

func missingStats(fields map[string]json.RawMessage) []string {
	var missing []string
	for _, key := range requiredStats {
		if isAbsent(fields[key]) {
			missing = append(missing, key)
		}
	}
	return missing
}

// CreateFeedback records new feedback on a case and returns the stored entry.
func (c *Client) CreateFeedback(ctx context.Context, caseID uint, result status.Result, comment string) (*dashboard.FeedbackView, error) {
	var resp dto.FeedbackResponse
	body := dto.FeedbackRequest{Result: string(result), Comment: comment}
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/cases/%d/feedback", caseID), body, &resp); err != nil {
		return nil, err
	}
	return toView(&resp), nil
}

// UpdateFeedback changes an existing entry owned by this tester.
func (c *Client) UpdateFeedback(ctx context.Context, feedbackID uint, result status.Result, comment string) (*dashboard.FeedbackView, error) {
	var resp dto.FeedbackResponse
	body := dto.FeedbackRequest{Result: string(result), Comment: comment}
	if err := c.call(ctx, http.MethodPut, fmt.Sprintf("/feedback/%d", feedbackID), body, &resp); err != nil {
		return nil, err
	}
	return toView(&resp), nil
}

// DeleteFeedback removes an entry owned by this tester.
func (c *Client) DeleteFeedback(ctx context.Context, feedbackID uint) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/feedback/%d", feedbackID), nil, nil)
}

// ListFeedback returns one page of a case's history, newest first.
func (c *Client) ListFeedback(ctx context.Context, caseID uint, page, limit int) (*dto.FeedbackPage, error) {
	var resp dto.FeedbackPage
	path := fmt.Sprintf("/cases/%d/feedback?%s", caseID, pageQuery(page, limit))
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Changelog returns one page of audit entries for a feedback entry.
func (c *Client) Changelog(ctx context.Context, feedbackID uint, page, limit int) (*dto.ChangelogPage, error) {
	var resp dto.ChangelogPage
	path := fmt.Sprintf("/changelog/feedback/%d?%s", feedbackID, pageQuery(page, limit))
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// call sends a request and decodes a 2xx JSON body into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	resp, err := c.http.Send(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.New(err).
			Component("client").
			Category(errors.CategoryNetwork).
			Timing(method+" "+path, time.Since(start)).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(fmt.Errorf("%w: %w", ErrMalformedResponse, err)).
			Component("client").
			Category(errors.CategoryMalformedResponse).
			Context("path", path).
			Build()
	}
	return nil
}

func (c *Client) apiError(method, path string, resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path}

	var body struct {
		Error         string `json:"error"`
		Message       string `json:"message"`
		CorrelationID string `json:"correlation_id"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Message
		apiErr.Detail = body.Error
		apiErr.CorrelationID = body.CorrelationID
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	c.log.Debug("api error",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.String("correlation_id", apiErr.CorrelationID))

	return errors.New(apiErr).
		Component("client").
		Category(apiErr.category()).
		Context("status", resp.StatusCode).
		Build()
}

func toView(resp *dto.FeedbackResponse) *dashboard.FeedbackView {
	return &dashboard.FeedbackView{
		ID:        strconv.FormatUint(uint64(resp.ID), 10),
		Result:    status.Result(resp.Result),
		Comment:   resp.Comment,
		CreatedAt: resp.CreatedAt,
	}
}

func pageQuery(page, limit int) string {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q.Encode()
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
