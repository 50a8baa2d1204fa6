package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/bidmarket/pkg/auth"
	"github.com/shashiranjanraj/bidmarket/pkg/logger"
	"github.com/shashiranjanraj/bidmarket/pkg/response"
)

// Authenticate requires a valid, unrevoked bearer access token and stores
// its claims in the request context.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			response.Unauthorized(w, "Authentication credentials were not provided.")
			return
		}

		claims, err := auth.Verify(r.Context(), strings.TrimSpace(token))
		if err != nil {
			msg := "Given token not valid for any token type"
			if errors.Is(err, auth.ErrTokenRevoked) {
				msg = "Token has been revoked"
			}
			response.Unauthorized(w, msg)
			return
		}

		ctx := auth.WithClaims(r.Context(), claims)
		ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user_id", claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
