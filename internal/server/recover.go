package server

import (
	"log/slog"
	"net/http"

	"gamebay/internal/api"
	"gamebay/internal/observability/logging"
)

// recoverMiddleware converts handler panics into a generic 500 response. The
// panic value is logged server-side only; nothing internal reaches the client.
func recoverMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				panicLogger := logging.LoggerFromContext(r.Context())
				if panicLogger == nil {
					panicLogger = logger
				}
				if panicLogger != nil {
					panicLogger.Error("handler panic",
						"method", r.Method,
						"path", r.URL.Path,
						"panic", recovered)
				}
				api.WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
