package middleware

import (
	"net/http"
	"runtime/debug"

	"vellum/internal/gateway/handlers"
	"vellum/pkg/logger"
)

// Recovery returns a middleware that turns a handler panic into a 500 with
// the standard error envelope. http.ErrAbortHandler is passed through so the
// server can abort the response quietly.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			logger.Error().
				Interface("error", err).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			handlers.SendError(w, handlers.ErrCodeInternalError, "internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
