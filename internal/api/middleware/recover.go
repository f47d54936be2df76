package middleware

import (
	"net/http"

	"github.com/bgtwallet/bgtwallet/internal/api/problem"
	"go.uber.org/zap"
)

// RecoverMiddleware turns panics into 500 responses instead of
// dropping the connection.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("trace_id", TraceIDFromContext(r.Context())),
				)
				problem.Write(w, r, http.StatusInternalServerError, problem.Type("internal/panic"), http.StatusText(http.StatusInternalServerError), "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
