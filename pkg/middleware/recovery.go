package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	apperrors "github.com/gomarketplace/cartstore/pkg/errors"
	"github.com/gomarketplace/cartstore/pkg/httputil"
)

// Recovery turns a handler panic into a 500 response. A panic carrying an
// error (for example from cart.MustFromContext) is mapped through
// httputil.WriteError so its code survives.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
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

				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				var appErr *apperrors.AppError
				if !errors.As(err, &appErr) {
					err = apperrors.Internal(err)
				}
				httputil.WriteError(w, r, err, l)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
