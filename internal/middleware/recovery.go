package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"giftstudio/internal/httputil"
)

// Recovery turns a handler panic into a 500 problem response naming the
// request path. http.ErrAbortHandler is re-raised so net/http can drop the
// connection quietly.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.Error("handler panicked",
					"panic", fmt.Sprint(rec),
					"method", r.Method,
					"path", r.URL.Path,
					"query", r.URL.RawQuery,
					"editor_id", httputil.GetEditorID(r),
					"remote_addr", r.RemoteAddr,
					"stack", string(debug.Stack()),
				)

				httputil.RespondErrorWithExtras(w, http.StatusInternalServerError, "internal server error", map[string]interface{}{
					"instance": r.URL.Path,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
