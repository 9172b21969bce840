package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/kiranshivaraju/buildscope/internal/api/response"
)

// commitWriter notes whether the wrapped handler started its response.
type commitWriter struct {
	http.ResponseWriter
	committed bool
}

func (c *commitWriter) WriteHeader(code int) {
	c.committed = true
	c.ResponseWriter.WriteHeader(code)
}

func (c *commitWriter) Write(b []byte) (int, error) {
	c.committed = true
	return c.ResponseWriter.Write(b)
}

// Recovery converts a panic in an analysis handler into a 500 error body that
// carries the request id, so a crashed upload can be matched to its log line.
// A handler that already started writing cannot get a clean error body; its
// connection is aborted instead. http.ErrAbortHandler is passed through.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := &commitWriter{ResponseWriter: w}
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			reqID := RequestIDFrom(r.Context())
			slog.Error("handler panicked",
				"panic", v,
				"stack", string(debug.Stack()),
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
				"response_started", cw.committed,
			)
			if cw.committed {
				panic(http.ErrAbortHandler)
			}

			var details any
			if reqID != "" {
				details = map[string]string{"request_id": reqID}
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "The request failed unexpectedly", details)
		}()
		next.ServeHTTP(cw, r)
	})
}
