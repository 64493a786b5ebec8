package echo

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"time"
)

// logRequests logs every request with its status and duration and turns
// handler panics into a 500.
func logRequests(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			defer func() {
				if err := recover(); err != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					logger.Error("panic recovered", "panic", err, "ip", ip, "path", r.URL.Path, "stack", string(buf[:n]))
					if !wrapped.hijacked {
						http.Error(wrapped, "internal server error", http.StatusInternalServerError)
					}
				}

				level := slog.LevelDebug
				if wrapped.statusCode >= 400 {
					level = slog.LevelWarn
				}
				logger.Log(r.Context(), level, "http request",
					"method", r.Method, "path", r.URL.Path, "ip", ip,
					"status", wrapped.statusCode, "duration", time.Since(start))
			}()

			wrapped.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(wrapped, r)
		})
	}
}

// responseWriter records the status code and passes Hijack through for the
// WebSocket upgrade.
type responseWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
	hijacked   bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	conn, brw, err := hj.Hijack()
	if err == nil {
		rw.hijacked = true
		rw.statusCode = http.StatusSwitchingProtocols
	}
	return conn, brw, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
