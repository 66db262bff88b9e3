package service

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims mirrors the HS256 access tokens issued by the user service.
type AuthClaims struct {
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

type AuthUser struct {
	ID          string
	Permissions []string
}

// AuthService verifies bearer tokens locally with the shared signing secret.
type AuthService struct {
	secret []byte
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// IsAdmin reports whether the user carries the admin permission.
func (a *AuthService) IsAdmin(user *AuthUser) bool {
	return slices.Contains(user.Permissions, "admin")
}

func (a *AuthService) ValidateToken(token string) (*AuthUser, error) {
	var claims AuthClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid token: missing subject")
	}
	return &AuthUser{ID: claims.Subject, Permissions: claims.Permissions}, nil
}
