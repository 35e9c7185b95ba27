package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		LogRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
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
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func LogRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	level := slog.LevelInfo
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Default().LogAttrs(ctx, level, "HTTP Request",
		slog.String("trace_id", TraceIDFromContext(ctx)),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", statusCode),
		slog.String("duration", duration.String()),
	)
}

func LogError(ctx context.Context, message string, err error, attrs ...any) {
	args := append([]any{"trace_id", TraceIDFromContext(ctx)}, attrs...)
	if err != nil {
		args = append(args, "error", err.Error())
	}
	slog.ErrorContext(ctx, message, args...)
}

func LogWarn(ctx context.Context, message string, attrs ...any) {
	args := append([]any{"trace_id", TraceIDFromContext(ctx)}, attrs...)
	slog.WarnContext(ctx, message, args...)
}

func LogInfo(ctx context.Context, message string, attrs ...any) {
	args := append([]any{"trace_id", TraceIDFromContext(ctx)}, attrs...)
	slog.InfoContext(ctx, message, args...)
}
