package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/bidmarket/app/services"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/ctx"
	"github.com/shashiranjanraj/bidmarket/pkg/response"
)

type AuthController struct {
	actors
	service *services.AuthService
}

func NewAuthController(c *container.Container) *AuthController {
	return &AuthController{
		actors:  newActors(c),
		service: container.Make[*services.AuthService](c),
	}
}

// Register handles POST /api/register.
func (ac *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}

	u, err := ac.service.Register(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusCreated, "User created successfully", response.H{
		"user": response.H{"username": u.Username, "email": u.Email, "role": u.Role()},
	})
}

// Login handles POST /api/login.
func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}

	s, err := ac.service.Login(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Login successful", response.H{
		"user": response.H{
			"id":       s.User.ID,
			"username": s.User.Username,
			"email":    s.User.Email,
			"role":     s.User.Role(),
		},
		"access":  s.Access,
		"refresh": s.Refresh,
	})
}

// Logout handles POST /api/logout by revoking the presented token.
func (ac *AuthController) Logout(c *ctx.Context) {
	claims, _ := c.Claims()
	if err := ac.service.Logout(c.Context(), claims); err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Logged out successfully.", nil)
}

type addressInput struct {
	Address string `json:"address"`
}

// UpdateAddress handles PUT /api/update-address.
func (ac *AuthController) UpdateAddress(c *ctx.Context) {
	u, ok := ac.actor(c)
	if !ok {
		return
	}
	var in addressInput
	if !c.BindJSON(&in) {
		return
	}

	address, err := ac.service.UpdateAddress(c.Context(), u, in.Address)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Address updated successfully", response.H{"address": address})
}

// Profile handles GET /api/user-profile.
func (ac *AuthController) Profile(c *ctx.Context) {
	u, ok := ac.actor(c)
	if !ok {
		return
	}
	c.Message(http.StatusOK, "Profile fetched successfully.", response.H{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"address":     u.Address,
		"is_buyer":    u.IsBuyer,
		"is_supplier": u.IsSupplier,
	})
}
