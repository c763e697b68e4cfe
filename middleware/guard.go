package middleware

import (
	"context"
	"net/http"
	"strings"

	authkit "github.com/youthy-app/authkit"
)

type authResultContextKey struct{}

// IdentityFromContext returns the validation result attached by [Guard].
func IdentityFromContext(ctx context.Context) (*authkit.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authkit.AuthResult)
	return res, ok
}

// ReasonMissing is the rejection reason recorded when a request carries no
// credential at all, so validation never reaches the engine. All other
// reasons come from [authkit.FailureReason].
const ReasonMissing = "missing"

// RejectionFunc receives the machine-readable reason for each rejected
// request. The reason stays server-side; the response never reflects it.
type RejectionFunc func(r *http.Request, reason string)

// Guard wraps a handler with access token validation. The token is read
// from the Authorization header, falling back to the access_token cookie.
// Every failure, whatever its cause, gets the same 401 response; request
// IP and user agent are attached to the context so downstream engine calls
// carry them into audit events.
func Guard(engine *authkit.Engine) func(http.Handler) http.Handler {
	return GuardWithDiagnostics(engine, nil)
}

// GuardWithDiagnostics is [Guard] with a rejection hook for server-side
// logs. onReject gets [ReasonMissing] for credential-less requests and the
// [authkit.FailureReason] mapping for everything the engine rejected, while
// the client still sees the uniform 401.
func GuardWithDiagnostics(engine *authkit.Engine, onReject RejectionFunc) func(http.Handler) http.Handler {
	reject := func(w http.ResponseWriter, r *http.Request, reason string) {
		if onReject != nil {
			onReject(r, reason)
		}
		unauthorized(w)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, r, authkit.FailureReason(authkit.ErrEngineNotReady))
				return
			}

			token, ok := requestToken(r)
			if !ok {
				reject(w, r, ReasonMissing)
				return
			}

			ctx := authkit.WithClientIP(r.Context(), remoteIP(r))
			ctx = authkit.WithUserAgent(ctx, r.UserAgent())

			res, err := engine.ValidateAccess(ctx, token)
			if err != nil {
				reject(w, r, authkit.FailureReason(err))
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestToken(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func remoteIP(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i > 0 {
		return strings.Trim(addr[:i], "[]")
	}
	return addr
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
