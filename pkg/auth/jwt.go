package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shashiranjanraj/bidmarket/config"
	"github.com/shashiranjanraj/bidmarket/pkg/cache"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"

	refreshTTL = 7 * 24 * time.Hour
)

// ErrTokenRevoked is returned for tokens whose id is on the denylist.
var ErrTokenRevoked = errors.New("auth: token revoked")

// Subject is the identity encoded into a token.
type Subject struct {
	UserID     uint
	Username   string
	IsBuyer    bool
	IsSupplier bool
	IsStaff    bool
}

// Claims holds the typed JWT payload.
type Claims struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	IsBuyer    bool   `json:"is_buyer,omitempty"`
	IsSupplier bool   `json:"is_supplier,omitempty"`
	IsStaff    bool   `json:"is_staff,omitempty"`
	Type       string `json:"typ"`
	jwt.RegisteredClaims
}

func secret() []byte {
	return []byte(config.JWTSecret())
}

func sign(sub Subject, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     sub.UserID,
		Username:   sub.Username,
		IsBuyer:    sub.IsBuyer,
		IsSupplier: sub.IsSupplier,
		IsStaff:    sub.IsStaff,
		Type:       kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

// GenerateToken creates a signed access token for sub.
func GenerateToken(sub Subject) (string, error) {
	return sign(sub, TokenAccess, config.TokenTTL())
}

// GenerateRefreshToken creates a longer-lived token used to refresh access.
func GenerateRefreshToken(sub Subject) (string, error) {
	return sign(sub, TokenRefresh, refreshTTL)
}

// ValidateToken parses and validates a JWT string. It does not consult the
// denylist; see Verify.
func ValidateToken(t string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(tok *jwt.Token) (any, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// Verify validates an access token and rejects revoked ones.
func Verify(ctx context.Context, t string) (*Claims, error) {
	claims, err := ValidateToken(t)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenAccess {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if IsRevoked(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke puts the token id on the denylist until the token would have
// expired anyway.
func Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	return cache.Set(ctx, revokedKey(claims.ID), true, ttl)
}

func IsRevoked(ctx context.Context, jti string) bool {
	return jti != "" && cache.Has(ctx, revokedKey(jti))
}

func revokedKey(jti string) string { return "auth:revoked:" + jti }

// HashPassword returns a bcrypt hash of the plain-text password.
func HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hash against the plain-text candidate.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
