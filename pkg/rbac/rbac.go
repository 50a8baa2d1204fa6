// Package rbac gates routes on the role flags carried in the access token.
// Authenticate must run first.
//
//	g.Get("/my-bids", "bids.mine", h, rbac.Require(rbac.Supplier))
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/bidmarket/pkg/auth"
	"github.com/shashiranjanraj/bidmarket/pkg/response"
)

// Role names matched against token claims.
const (
	Buyer    = "buyer"
	Supplier = "supplier"
	Staff    = "staff"
)

// Has reports whether c carries role.
func Has(c *auth.Claims, role string) bool {
	if c == nil {
		return false
	}
	switch role {
	case Buyer:
		return c.IsBuyer
	case Supplier:
		return c.IsSupplier
	case Staff:
		return c.IsStaff
	}
	return false
}

// Require lets the request through when the caller holds any of roles.
// Everyone else gets 403 with message.
func Require(message string, roles ...string) func(http.Handler) http.Handler {
	if message == "" {
		message = "You do not have permission to perform this action."
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := auth.FromCtx(r.Context())
			for _, role := range roles {
				if Has(claims, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, http.StatusForbidden, message)
		})
	}
}
