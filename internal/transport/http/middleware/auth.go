package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/promokit/adserve/internal/transport/http/response"
)

type ctxKey string

const (
	ctxUserID ctxKey = "user_id"
	ctxRole   ctxKey = "role"
)

type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies the HS256 tokens minted by the platform's identity
// service. This service never issues tokens itself.
type AuthMiddleware struct {
	secret []byte
	issuer string
}

func NewAuth(secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), issuer: issuer}
}

func (a *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, role, err := a.parse(r)
		if err != nil {
			response.Fail(
				w,
				http.StatusUnauthorized,
				"unauthorized",
				"unauthorized",
				map[string]string{"reason": err.Error()},
				response.RequestIDFromRequest(r),
			)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, uid)
		ctx = context.WithValue(ctx, ctxRole, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route group on the token's role claim; runs after
// Require has populated the context.
func (a *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Role(r) != role {
				response.Fail(
					w,
					http.StatusForbidden,
					"forbidden",
					"insufficient role",
					nil,
					response.RequestIDFromRequest(r),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *AuthMiddleware) parse(r *http.Request) (string, string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(h, "Bearer ") {
		return "", "", errors.New("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(30*time.Second))
	if err != nil {
		return "", "", err
	}
	if !tok.Valid {
		return "", "", errors.New("invalid token")
	}

	if a.issuer != "" && claims.Issuer != a.issuer {
		return "", "", errors.New("invalid issuer")
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", "", errors.New("missing uid")
	}
	role := strings.TrimSpace(claims.Role)
	if role == "" {
		role = "user"
	}
	return claims.UserID, role, nil
}

func UserID(r *http.Request) string {
	if v, ok := r.Context().Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func Role(r *http.Request) string {
	if v, ok := r.Context().Value(ctxRole).(string); ok {
		return v
	}
	return ""
}
