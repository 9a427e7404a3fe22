// Package admin authenticates callers with HS256 bearer tokens. Tokens carrying
// role=admin unlock the administrative surface; any valid token identifies an actor.
package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/httputil"
	"custody/pkg/requestcontext"
)

// RoleAdmin is the role claim required for administrative calls.
const RoleAdmin = "admin"

// Claims are the bearer token claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and validates bearer tokens.
type Tokens struct {
	signingKey []byte
	issuer     string
}

// NewTokens creates a token service.
func NewTokens(signingKey, issuer string) *Tokens {
	return &Tokens{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a token for subject with role, valid for ttl.
func (t *Tokens) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(t.signingKey)
}

// Validate parses and verifies a token.
func (t *Tokens) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return t.signingKey, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// RequireAuth admits any caller with a valid token and records the actor.
func RequireAuth(tokens *Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(tokens, logger, false)
}

// RequireAdmin admits only callers whose token carries role=admin.
func RequireAdmin(tokens *Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(tokens, logger, true)
}

func authenticate(tokens *Tokens, logger *slog.Logger, adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			if claims.Role == RoleAdmin {
				ctx = requestcontext.WithAdmin(ctx, claims.Subject)
			} else if adminOnly {
				logger.WarnContext(ctx, "unauthorized access - admin role required",
					"request_id", requestID,
					"subject", claims.Subject,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin role required"))
				return
			} else {
				ctx = requestcontext.WithActorID(ctx, claims.Subject)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
