package authsvc

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mkrupp/taskapp/internal/domain"
)

type tokenClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256-signed session tokens. Tokens carry
// the user id and never expire; revocation happens in the user store.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret []byte) *TokenService {
	return &TokenService{
		secret: secret,
		now:    time.Now,
	}
}

// Issue returns a signed token embedding userID. Each call yields a distinct
// token, so sessions of the same user can be revoked one by one.
func (s *TokenService) Issue(userID string) (string, error) {
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return token, nil
}

// Verify checks the signature of token and returns its claims.
// Returns domain.ErrInvalidAuthToken for any validation failure.
func (s *TokenService) Verify(token string) (domain.AuthClaims, error) {
	var claims tokenClaims

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return domain.AuthClaims{}, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("parse token: %w", err))
	}

	if claims.UserID == "" {
		return domain.AuthClaims{}, errors.Join(domain.ErrInvalidAuthToken, errors.New("missing user id"))
	}

	var issuedAt int64
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Unix()
	}

	return domain.AuthClaims{UserID: claims.UserID, IssuedAt: issuedAt}, nil
}
