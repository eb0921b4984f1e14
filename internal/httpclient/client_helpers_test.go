package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestClient builds a client from DefaultConfig with the given overrides.
func newTestClient(t *testing.T, overrides ...func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig()
	for _, o := range overrides {
		o(&cfg)
	}
	c := New(&cfg)
	t.Cleanup(c.Close)
	return c
}

func withTesterHeader(id string) func(*Config) {
	return func(cfg *Config) {
		cfg.Headers = http.Header{"X-Tester-Id": {id}}
	}
}

func withTimeout(d time.Duration) func(*Config) {
	return func(cfg *Config) { cfg.DefaultTimeout = d }
}

// apiServer serves handler until the test ends and returns its base URL.
func apiServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func drain(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp == nil || resp.Body == nil {
		return
	}
	if err := resp.Body.Close(); err != nil {
		t.Logf("close body: %v", err)
	}
}
