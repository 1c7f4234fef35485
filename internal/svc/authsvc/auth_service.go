package authsvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/taskapp/internal/domain"
	"github.com/mkrupp/taskapp/internal/infra/logging"
)

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// Secret is the HMAC signing secret; when empty SecretFile is used
	Secret string `env:"SECRET" default:""`

	// SecretFile is the path to the hex-encoded signing secret, created on first start
	SecretFile string `env:"SECRET_FILE" default:"var/storage/tasksvc.secret"`

	// BcryptCost is the work factor for password hashes
	BcryptCost int `env:"BCRYPT_COST" default:"8"`
}

// AuthService bundles password hashing and session token handling.
type AuthService struct {
	Credentials *CredentialService
	Tokens      *TokenService
	Log         logging.Logger
}

// NewAuthService creates a new AuthService with the given configuration.
// Returns an error if the signing secret cannot be loaded.
func NewAuthService(cfg AuthConfig) (*AuthService, error) {
	secret, err := LoadSecret(cfg)
	if err != nil {
		return nil, fmt.Errorf("load secret: %w", err)
	}

	return NewAuthServiceWithSecret(secret, cfg.BcryptCost), nil
}

// NewAuthServiceWithSecret creates a new AuthService from an already loaded secret.
func NewAuthServiceWithSecret(secret []byte, bcryptCost int) *AuthService {
	return &AuthService{
		Credentials: NewCredentialService(bcryptCost),
		Tokens:      NewTokenService(secret),
		Log:         logging.GetLogger("svc.authsvc.auth_service"),
	}
}

// HashPassword returns the one-way hash of password.
func (s *AuthService) HashPassword(ctx context.Context, password string) (_ string, err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "hash password failed", "error", err)
		}
	}()

	return s.Credentials.Hash(password)
}

// VerifyPassword reports whether password matches hash.
func (s *AuthService) VerifyPassword(ctx context.Context, hash, password string) (_ bool, err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "verify password failed", "error", err)
		}
	}()

	return s.Credentials.Verify(hash, password)
}

// IssueToken generates a signed session token for userID.
func (s *AuthService) IssueToken(ctx context.Context, userID string) (_ string, err error) {
	log := s.Log.With(logging.Group("token", "userID", userID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "issue token failed", "error", err)
		} else {
			log.DebugContext(ctx, "token issued")
		}
	}()

	return s.Tokens.Issue(userID)
}

// VerifyToken validates a token's signature and returns its claims.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (_ domain.AuthClaims, err error) {
	defer func() {
		if err != nil {
			s.Log.DebugContext(ctx, "verify token failed", "error", err)
		}
	}()

	return s.Tokens.Verify(token)
}
