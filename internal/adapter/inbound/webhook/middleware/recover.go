package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/jonny/engagebot/pkg/apierror"
)

// Recover turns a panic in next into a logged 500 response.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error("panic while handling request",
						"path", r.URL.Path,
						"panic", v,
						"requestID", RequestID(r.Context()),
						"stack", string(debug.Stack()),
					)
					apierror.Write(w, apierror.Internal("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
