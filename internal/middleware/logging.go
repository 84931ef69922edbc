package middleware

import (
	"net/http"
	"time"

	"vinyl-store/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LoggingMiddleware opens a server span per request and logs its outcome
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	tracer := otel.Tracer("http/server")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			span.SetAttributes(
				attribute.String("http.request_id", requestID),
				attribute.Int("http.status_code", ww.Status()),
			)

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Error(ctx, log, "Request completed", fields...)
				return
			}
			logger.Info(ctx, log, "Request completed", fields...)
		})
	}
}
