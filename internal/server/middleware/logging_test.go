package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		wantLevel string
		status    int
	}{
		{"success", "level=INFO", http.StatusOK},
		{"conflict", "level=WARN", http.StatusConflict},
		{"server error", "level=ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf strings.Builder
			logger := slog.New(slog.NewTextHandler(&logBuf, nil))

			handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("Hello, World!"))
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/mutations", nil)
			req.Header.Set("Authorization", "Bearer secret-token")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			out := logBuf.String()
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, "path=/api/v1/mutations")
			assert.Contains(t, out, "bytes_written=13")
			assert.NotContains(t, out, "secret-token")
		})
	}
}

func TestLoggingMiddleware_Skip(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := LoggingMiddleware(logger, "/api/v1/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Empty(t, logBuf.String())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/rows/cart_items/1", nil))
	assert.Contains(t, logBuf.String(), "HTTP request")
}

func TestResponseWriter_DefaultsToOK(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	_, _ = rw.Write([]byte("Hello, "))
	_, _ = rw.Write([]byte("World!"))

	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.Equal(t, int64(13), rw.written)
}
