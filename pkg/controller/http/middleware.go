package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/model/auth"
	"github.com/deadline-guardian/guardian/pkg/usecase"
	"github.com/deadline-guardian/guardian/pkg/utils/errutil"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

// requestLogger puts a logger tagged with the request id into the request context
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(logging.With(r.Context(), logger)))
	})
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// authMiddleware resolves the caller from the bearer session token
func authMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authUC.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				handleError(w, r, err)
				return
			}

			ctx := auth.ContextWithUser(r.Context(), user)
			ctx = logging.With(ctx, logging.From(ctx).With(usecase.UserIDKey, user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// cronAuthMiddleware rejects trigger calls without the shared secret. An empty secret
// leaves the trigger open.
func cronAuthMiddleware(secret string) func(http.Handler) http.Handler {
	expected := []byte("Bearer " + secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := []byte(r.Header.Get("Authorization"))
				if subtle.ConstantTimeCompare(got, expected) != 1 {
					errutil.HandleHTTPWithCode(r.Context(), w,
						goerr.New("cron trigger rejected", goerr.V("remote", r.RemoteAddr)),
						http.StatusUnauthorized, "", "Unauthorized")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
