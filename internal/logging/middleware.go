// ABOUTME: HTTP request logging middleware for the mock API.
// ABOUTME: Captures method, path, status, duration and bodies, and stores them in the database.

package logging

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/2389/basiclist/internal/auth"
	"github.com/2389/basiclist/internal/store"
	"go.uber.org/zap"
)

const maxBodySize = 10 * 1024 // 10KB limit for body capture

// Recorder persists request log entries.
type Recorder interface {
	LogRequest(*store.RequestLog) error
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	if rw.body.Len() < maxBodySize {
		toCopy := len(b)
		if rw.body.Len()+toCopy > maxBodySize {
			toCopy = maxBodySize - rw.body.Len()
		}
		rw.body.Write(b[:toCopy])
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack implements http.Hijacker
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

// Middleware records /api/* requests through rec. Writes happen off the
// request goroutine; failures are logged and otherwise ignored.
func Middleware(rec Recorder, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("requestlog")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rec == nil || !shouldRecord(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var requestBody string
			if r.Body != nil {
				bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
				if err == nil {
					requestBody = string(bodyBytes)
					// Hand the handler the captured prefix followed by whatever was not read.
					r.Body = struct {
						io.Reader
						io.Closer
					}{io.MultiReader(bytes.NewReader(bodyBytes), r.Body), r.Body}
				}
			}

			start := time.Now()
			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(wrapped, r)

			ip := r.RemoteAddr
			if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
				ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
			}

			entry := &store.RequestLog{
				PluginName:   GetPluginFromPath(r.URL.Path),
				Method:       r.Method,
				Path:         r.URL.Path,
				StatusCode:   wrapped.statusCode,
				DurationMs:   int(time.Since(start).Milliseconds()),
				UserID:       auth.UserFromContext(r.Context()),
				IPAddress:    ip,
				UserAgent:    r.Header.Get("User-Agent"),
				RequestBody:  requestBody,
				ResponseBody: wrapped.body.String(),
			}
			go func() {
				if err := rec.LogRequest(entry); err != nil {
					log.Warn("failed to record request", zap.String("path", entry.Path), zap.Error(err))
				}
			}()
		})
	}
}
