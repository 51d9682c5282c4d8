package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"society-billing/internal/logger"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(r.Context()).Error().
					Str("panic", fmt.Sprint(err)).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
