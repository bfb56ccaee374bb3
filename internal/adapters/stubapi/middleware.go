package stubapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// requestRecord travels with a request so inner handlers can annotate the
// access log line written when the request finishes.
type requestRecord struct {
	id       string
	staff    string
	role     string
	status   int
	bytesOut int
}

type requestRecordKey struct{}

func recordFrom(ctx context.Context) *requestRecord {
	rec, _ := ctx.Value(requestRecordKey{}).(*requestRecord)
	return rec
}

// trackRequests assigns the request id, echoes it back and logs one line per
// request. Staff requests carry the account and role the bearer check saw.
func trackRequests(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &requestRecord{id: strings.TrimSpace(r.Header.Get(requestIDHeader)), status: http.StatusOK}
			if rec.id == "" {
				rec.id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, rec.id)

			start := time.Now()
			next.ServeHTTP(&recordingWriter{ResponseWriter: w, rec: rec}, r.WithContext(context.WithValue(r.Context(), requestRecordKey{}, rec)))

			attrs := []any{
				"request_id", rec.id,
				"method", r.Method,
				"route", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytesOut,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if rec.staff != "" {
				attrs = append(attrs, "staff", rec.staff, "rol", rec.role)
			}
			level := slog.LevelInfo
			if rec.status >= 500 {
				level = slog.LevelError
			} else if rec.status >= 400 {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "stub_request", attrs...)
		})
	}
}

type recordingWriter struct {
	http.ResponseWriter
	rec *requestRecord
}

func (w *recordingWriter) WriteHeader(status int) {
	w.rec.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.rec.bytesOut += n
	return n, err
}
