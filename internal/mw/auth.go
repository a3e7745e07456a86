// internal/mw/auth.go
package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type CtxUserKey struct{}

type CtxTokenKey struct{}

// Auth verifies the HS256 bearer token and puts the user_id claim and the
// raw token in the request context. The token is forwarded to the backend
// on submission.
func Auth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			tok := strings.TrimPrefix(h, "Bearer ")
			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(tok, claims, func(token *jwt.Token) (interface{}, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			userID, _ := claims["user_id"].(string)
			if userID == "" {
				http.Error(w, "user_id claim required", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), CtxUserKey{}, userID)
			ctx = context.WithValue(ctx, CtxTokenKey{}, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(CtxUserKey{}).(string)
	return v
}

func Token(ctx context.Context) string {
	v, _ := ctx.Value(CtxTokenKey{}).(string)
	return v
}
