package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recovery turns a panicking handler into a call to respond. The panic and
// its stack are logged.
func Recovery(logger *zap.Logger, respond func(http.ResponseWriter, *http.Request, error)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}

					err, ok := v.(error)
					if !ok {
						err = fmt.Errorf("panic: %v", v)
					}
					logger.Error("panic recovered",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.Error(err),
						zap.ByteString("stack", debug.Stack()),
					)
					respond(w, r, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
