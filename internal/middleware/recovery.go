package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"idempotent-api/pkg/logging/logging"
)

// Recoverer turns a handler panic into a logged 500. http.ErrAbortHandler is
// re-panicked so the server aborts the connection as usual.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := debug.Stack()
				if p, ok := rec.(*handlerPanic); ok {
					rec, stack = p.value, p.stack
				}
				logging.L(r.Context()).Error("panic recovered",
					zap.Any("error", rec),
					zap.ByteString("stack", stack),
				)
				writeError(w, http.StatusInternalServerError, "internal_server_error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
