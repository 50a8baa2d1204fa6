package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/app/repositories"
	"github.com/shashiranjanraj/bidmarket/pkg/apperr"
	"github.com/shashiranjanraj/bidmarket/pkg/auth"
	"github.com/shashiranjanraj/bidmarket/pkg/database"
	"github.com/shashiranjanraj/bidmarket/pkg/logger"
	"github.com/shashiranjanraj/bidmarket/pkg/validate"
)

// AuthService registers users and issues their tokens.
type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{users: repositories.NewUserRepository(db)}
}

// RegisterInput is the body of POST /register.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"required,in=buyer|supplier"`
}

// Register creates a buyer or supplier account. Every failure is reported
// against the offending field.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return models.User{}, apperr.ValidationFields("Validation failed", errs)
	}

	taken, err := s.users.UsernameTaken(ctx, in.Username)
	if err != nil {
		return models.User{}, internal(err)
	}
	if taken {
		return models.User{}, usernameTaken()
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, internal(err)
	}
	u := models.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   hash,
		IsBuyer:    in.Role == "buyer",
		IsSupplier: in.Role == "supplier",
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if database.IsDuplicateKey(err) {
			return models.User{}, usernameTaken()
		}
		return models.User{}, internal(err)
	}

	logger.WithCtx(ctx).Info("user registered", "user_id", u.ID, "role", u.Role())
	return u, nil
}

func usernameTaken() error {
	return apperr.ValidationFields("Validation failed", map[string]string{
		"username": "A user with that username already exists.",
	})
}

// LoginInput accepts either username or email.
type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

// Session is the result of a successful login.
type Session struct {
	User    models.User
	Access  string
	Refresh string
}

// Login checks credentials and issues an access/refresh pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	login := strings.TrimSpace(in.Username)
	if login == "" {
		login = strings.TrimSpace(in.Email)
	}
	if login == "" {
		return Session{}, apperr.ValidationFields("Validation failed", map[string]string{
			"username": "The username field is required.",
		})
	}

	u, err := s.users.FindByLogin(ctx, login)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, internal(err)
	}
	if err != nil || !auth.CheckPassword(u.Password, in.Password) {
		return Session{}, apperr.Authentication("Invalid username or password")
	}

	access, err := auth.GenerateToken(u.Subject())
	if err != nil {
		return Session{}, internal(err)
	}
	refresh, err := auth.GenerateRefreshToken(u.Subject())
	if err != nil {
		return Session{}, internal(err)
	}
	return Session{User: u, Access: access, Refresh: refresh}, nil
}

// Logout revokes the presented access token.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	return internal(auth.Revoke(ctx, claims))
}

// Actor loads the user behind verified claims.
func (s *AuthService) Actor(ctx context.Context, userID uint) (models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, apperr.Authentication("User not found")
	}
	return u, internal(err)
}

// UpdateAddress sets the actor's delivery address.
func (s *AuthService) UpdateAddress(ctx context.Context, actor models.User, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", apperr.Validation("Address is required")
	}
	if err := s.users.UpdateAddress(ctx, actor.ID, address); err != nil {
		return "", internal(err)
	}
	return address, nil
}
