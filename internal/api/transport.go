package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/shopverse/internal/ctxutil"
)

// transport stamps a request ID on every call and logs one line per round trip.
// Only metadata is logged, never bodies or credentials.
type transport struct {
	next http.RoundTripper
	log  *zap.Logger
}

func newTransport(next http.RoundTripper, log *zap.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{next: next, log: log}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, id := ctxutil.EnsureRequestID(req.Context())
	r := req.Clone(ctx)
	r.Header.Set("X-Request-ID", id.String())

	start := time.Now()
	resp, err := t.next.RoundTrip(r)

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Duration("dur", time.Since(start)),
		zap.String("request_id", id.String()),
		zap.Bool("auth", r.Header.Get("Authorization") != ""),
	}
	if err != nil {
		t.log.Warn("http", append(fields, zap.Error(err))...)
		return nil, err
	}
	t.log.Info("http", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
