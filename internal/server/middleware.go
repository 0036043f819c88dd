package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// requestLogger logs one line per request through logrus.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				entry := log.WithFields(logrus.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
					"request_id":  middleware.GetReqID(r.Context()),
					"client_ip":   r.RemoteAddr,
				})
				switch {
				case status >= 500:
					entry.Error("http_request")
				case status >= 400:
					entry.Warn("http_request")
				default:
					entry.Info("http_request")
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
