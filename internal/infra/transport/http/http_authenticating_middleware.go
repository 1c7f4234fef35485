package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mkrupp/taskapp/internal/domain"
	context_ "github.com/mkrupp/taskapp/internal/infra/context"
	"github.com/mkrupp/taskapp/internal/infra/logging"
)

const unauthenticatedMessage = "Please authenticate."

// Authenticator resolves a raw bearer token to the user owning it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// AuthenticatingMiddleware creates middleware that validates bearer tokens.
// Requests without a token, or with a token that does not resolve to a user
// currently holding it, are rejected with 401.
// On success the user and token are added to the request context.
func AuthenticatingMiddleware(
	next http.Handler,
	auth Authenticator,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			log.WarnContext(r.Context(), "no token provided")
			WriteError(w, http.StatusUnauthorized, unauthenticatedMessage)

			return
		}

		user, err := auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				log.WarnContext(r.Context(), "invalid token", "error", err)
			} else {
				log.ErrorContext(r.Context(), "authenticate failed", "error", err)
			}

			WriteError(w, http.StatusUnauthorized, unauthenticatedMessage)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithSession(r.Context(), user, token)))
	})
}

// BearerToken extracts the token from the Authorization header.
// The "Bearer " scheme prefix is optional.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))

	token := header
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		token = strings.TrimSpace(rest)
	}

	if token == "" {
		return "", domain.ErrNoAuthToken
	}

	return token, nil
}
