package client

import (
	"net/http"
	"sync"
	"time"

	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/privacy"
)

// requestLog writes one debug line per API round trip.
type requestLog struct {
	log     logger.Logger
	started sync.Map // *http.Request -> time.Time
}

func (r *requestLog) before(req *http.Request) {
	r.started.Store(req, time.Now())
}

func (r *requestLog) after(req *http.Request, resp *http.Response, err error) {
	fields := []logger.Field{
		logger.String("method", req.Method),
		logger.String("url", privacy.RedactURL(req.URL.String())),
	}
	if start, ok := r.started.LoadAndDelete(req); ok {
		fields = append(fields, logger.Duration("elapsed", time.Since(start.(time.Time))))
	}
	if err != nil {
		r.log.Debug("api request failed", append(fields, logger.Error(err))...)
		return
	}
	r.log.Debug("api request", append(fields, logger.Int("status", resp.StatusCode))...)
}
