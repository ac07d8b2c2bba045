package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// RequestLogger writes one record per request. Server errors are logged at
// error level, everything else at info.
func RequestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			begin := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				leveled := level.Info(logger)
				if status >= http.StatusInternalServerError {
					leveled = level.Error(logger)
				}
				leveled.Log(
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"remote", r.RemoteAddr,
					"request_id", chimiddleware.GetReqID(r.Context()),
					"took", time.Since(begin),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
