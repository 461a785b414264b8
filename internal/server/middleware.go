package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Tomlord1122/qa-todo-api/internal/domain"
	"github.com/Tomlord1122/qa-todo-api/internal/metrics"
	"github.com/Tomlord1122/qa-todo-api/internal/security"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// TokenVerifier checks a bearer token and returns the identity it carries.
type TokenVerifier interface {
	Verify(token string) (security.Identity, error)
}

// Authenticate rejects requests without a bearer token (401) or with one
// that does not verify (403). Otherwise the token's identity is put in the
// request context for IdentityFromContext.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondWithError(w, http.StatusUnauthorized, domain.ErrMissingToken.Message)
				return
			}

			identity, err := tokens.Verify(token)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("rejected bearer token")
				respondWithError(w, http.StatusForbidden, domain.ErrInvalidToken.Message)
				return
			}

			hlog.FromRequest(r).Debug().
				Uint("user_id", identity.UserID).
				Time("token_expires_at", identity.ExpiresAt).
				Msg("authenticated request")

			ctx := context.WithValue(r.Context(), ctxIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IdentityFromContext returns the identity set by Authenticate.
func IdentityFromContext(ctx context.Context) (security.Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(security.Identity)
	return id, ok
}

// requestLogging attaches log to every request context and writes one
// access line per request.
func requestLogging(log zerolog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(log),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				l := zerolog.Ctx(r.Context())
				if reqID := middleware.GetReqID(r.Context()); reqID != "" {
					l.UpdateContext(func(c zerolog.Context) zerolog.Context {
						return c.Str("request_id", reqID)
					})
				}
				next.ServeHTTP(w, r)
			})
		},
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		}),
	}
}

// recoverer turns a panic in a handler into a logged stack trace and a
// generic 500 body.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				hlog.FromRequest(r).Error().
					Interface("panic", rvr).
					Bytes("stack", debug.Stack()).
					Msg("recovered from panic")
				respondWithError(w, http.StatusInternalServerError, domain.ErrInternal.Message)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// recordMetrics labels requests with the chi route pattern, not the raw path.
func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}
		metrics.RecordHTTPRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}
