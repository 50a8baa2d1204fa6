// Package controllers adapts HTTP requests to service calls. Controllers
// resolve the caller, bind the body and translate service errors through
// ctx.Fail; they hold no business rules.
package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/app/services"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/ctx"
	"github.com/shashiranjanraj/bidmarket/pkg/response"
)

// actors loads the authenticated user for a request.
type actors struct {
	auth *services.AuthService
}

func newActors(c *container.Container) actors {
	return actors{auth: container.Make[*services.AuthService](c)}
}

// actor answers 401 and returns false when the token's user is gone.
func (a actors) actor(c *ctx.Context) (models.User, bool) {
	u, err := a.auth.Actor(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return models.User{}, false
	}
	return u, true
}

// Index lists the public entry points.
func Index(c *ctx.Context) {
	c.Message(http.StatusOK, "Welcome to the bidmarket API", response.H{
		"endpoints": response.H{
			"register": "/api/register",
			"login":    "/api/login",
		},
	})
}
