package usersvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mkrupp/taskapp/internal/domain"
	"github.com/mkrupp/taskapp/internal/infra/logging"
	"github.com/mkrupp/taskapp/internal/repo/task"
	"github.com/mkrupp/taskapp/internal/repo/user"
	"github.com/mkrupp/taskapp/internal/svc/authsvc"
)

// UserService owns user documents: registration, sessions, profile updates,
// avatars and removal with cascade to the user's tasks.
type UserService struct {
	UserRepo user.Repository
	TaskRepo task.Repository
	Auth     *authsvc.AuthService
	Avatars  *AvatarProcessor
	Log      logging.Logger
}

// NewUserService creates a new UserService.
// Returns an error if a repository cannot be created or the avatar settings are invalid.
func NewUserService(
	userRepoFactory user.RepositoryFactory,
	taskRepoFactory task.RepositoryFactory,
	auth *authsvc.AuthService,
	cfg AvatarConfig,
) (*UserService, error) {
	avatars, err := NewAvatarProcessor(cfg)
	if err != nil {
		return nil, fmt.Errorf("new avatar processor: %w", err)
	}

	userRepo, err := userRepoFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	taskRepo, err := taskRepoFactory()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new task repo: %w", err), userRepo.Close())
	}

	return &UserService{
		UserRepo: userRepo,
		TaskRepo: taskRepo,
		Auth:     auth,
		Avatars:  avatars,
		Log:      logging.GetLogger("svc.usersvc.user_service"),
	}, nil
}

// Create registers a new user and opens its first session.
// The token is stored together with the user record.
func (s *UserService) Create(ctx context.Context, profile domain.UserProfile) (_ *domain.User, _ string, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "create user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user created")
		}
	}()

	profile, err = validateProfile(profile)
	if err != nil {
		return nil, "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", fmt.Errorf("generate id: %w", err)
	}

	log = log.With(logging.Group("user", "id", id.String()))

	hash, err := s.Auth.HashPassword(ctx, profile.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	token, err := s.Auth.IssueToken(ctx, id.String())
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	u := &domain.User{
		ID:           id.String(),
		Name:         profile.Name,
		Email:        profile.Email,
		Age:          profile.Age,
		PasswordHash: hash,
		Tokens:       []string{token},
	}

	if err := s.UserRepo.CreateUser(ctx, u); err != nil {
		return nil, "", fmt.Errorf("create user: %w", emailTaken(err))
	}

	return u, token, nil
}

// FindByCredentials returns the user with the given email if password matches.
// Fails with ErrInvalidCredentials joined with ErrWrongEmail or ErrWrongPassword.
func (s *UserService) FindByCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.UserRepo.GetUserByEmail(ctx, normalizeLoginEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, errors.Join(domain.ErrInvalidCredentials, domain.ErrWrongEmail)
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := s.Auth.VerifyPassword(ctx, u.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	} else if !ok {
		return nil, errors.Join(domain.ErrInvalidCredentials, domain.ErrWrongPassword)
	}

	return u, nil
}

// Login checks the credentials and opens a new session for the user.
func (s *UserService) Login(ctx context.Context, email, password string) (_ *domain.User, _ string, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	u, err := s.FindByCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	log = log.With(logging.Group("user", "id", u.ID))

	token, err := s.Auth.IssueToken(ctx, u.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	u.Tokens = append(u.Tokens, token)

	if err := s.UserRepo.UpdateUser(ctx, u); err != nil {
		return nil, "", fmt.Errorf("save user: %w", err)
	}

	return u, token, nil
}

// Logout ends the session identified by token. Other sessions stay active.
func (s *UserService) Logout(ctx context.Context, u *domain.User, token string) error {
	u.RemoveToken(token)

	if err := s.UserRepo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}

// LogoutAll ends every session of the user.
func (s *UserService) LogoutAll(ctx context.Context, u *domain.User) error {
	u.Tokens = []string{}

	if err := s.UserRepo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}

// Update applies a partial update to the user. Only name, email, password and
// age may be changed; any other key fails with ErrInvalidUpdate and nothing is
// saved. The password is re-hashed only when it is part of the update.
func (s *UserService) Update(ctx context.Context, u *domain.User, fields domain.UpdateFields) (_ *domain.User, err error) {
	log := s.Log.With(logging.Group("user", "id", u.ID, "fields", fields.Keys()))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "update user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user updated")
		}
	}()

	if err := domain.CheckUpdate(fields, domain.UserUpdatableFields); err != nil {
		return nil, err
	}

	updated := *u

	var (
		verr     domain.ValidationError
		password string
	)

	for _, key := range fields.Keys() {
		var msg string

		switch key {
		case "name":
			if err := fields.Decode(key, &updated.Name); err != nil {
				msg = "must be a string"
			} else {
				updated.Name, msg = normalizeName(updated.Name)
			}
		case "email":
			if err := fields.Decode(key, &updated.Email); err != nil {
				msg = "must be a string"
			} else {
				updated.Email, msg = normalizeEmail(updated.Email)
			}
		case "password":
			if err := fields.Decode(key, &password); err != nil {
				msg = "must be a string"
			} else {
				password, msg = normalizePassword(password)
			}
		case "age":
			if err := fields.Decode(key, &updated.Age); err != nil {
				msg = "must be an integer"
			} else {
				msg = validateAge(updated.Age)
			}
		}

		if msg != "" {
			verr.Add(key, msg)
		}
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	if _, ok := fields["password"]; ok {
		if updated.PasswordHash, err = s.Auth.HashPassword(ctx, password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	if err := s.UserRepo.UpdateUser(ctx, &updated); err != nil {
		return nil, fmt.Errorf("save user: %w", emailTaken(err))
	}

	*u = updated

	return u, nil
}

// Remove deletes the user, then deletes every task the user owns. The task
// cascade runs even when the user deletion fails.
func (s *UserService) Remove(ctx context.Context, u *domain.User) (err error) {
	log := s.Log.With(logging.Group("user", "id", u.ID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "remove user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user removed")
		}
	}()

	if err := s.UserRepo.DeleteUser(ctx, u.ID); err != nil {
		err = fmt.Errorf("delete user: %w", err)

		if _, cascadeErr := s.TaskRepo.DeleteTasksByOwner(ctx, u.ID); cascadeErr != nil {
			err = errors.Join(err, fmt.Errorf("delete tasks: %w", cascadeErr))
		}

		return err
	}

	n, err := s.TaskRepo.DeleteTasksByOwner(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}

	log = log.With("tasks", n)

	return nil
}

// SetAvatar validates and normalizes an uploaded image and stores it as the user's avatar.
func (s *UserService) SetAvatar(ctx context.Context, u *domain.User, filename string, data []byte) (err error) {
	log := s.Log.With(logging.Group("user", "id", u.ID), logging.Group("avatar", "filename", filename, "size", len(data)))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "set avatar failed", "error", err)
		} else {
			log.DebugContext(ctx, "avatar set")
		}
	}()

	avatar, err := s.Avatars.Process(filename, data)
	if err != nil {
		return fmt.Errorf("process avatar: %w", err)
	}

	u.Avatar = avatar

	if err := s.UserRepo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}

// ClearAvatar removes the user's avatar.
func (s *UserService) ClearAvatar(ctx context.Context, u *domain.User) error {
	u.Avatar = nil

	if err := s.UserRepo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}

// Avatar returns the user's avatar image and its content type.
// Returns ErrNoAvatar if none is set.
func (s *UserService) Avatar(u *domain.User) ([]byte, string, error) {
	if !u.HasAvatar() {
		return nil, "", domain.ErrNoAvatar
	}

	return u.Avatar, MIMETypePNG, nil
}

// Authenticate resolves a session token to its user. The token must carry a
// valid signature and still be one of the user's active sessions; otherwise
// the result wraps ErrUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.Auth.VerifyToken(ctx, token)
	if err != nil {
		return nil, errors.Join(domain.ErrUnauthorized, err)
	}

	u, err := s.UserRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, errors.Join(domain.ErrUnauthorized, err)
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	if !u.HasToken(token) {
		return nil, fmt.Errorf("%w: session revoked", domain.ErrUnauthorized)
	}

	return u, nil
}

// Close releases resources held by the service, such as database connections.
func (s *UserService) Close() error {
	return errors.Join(s.UserRepo.Close(), s.TaskRepo.Close())
}

// emailTaken turns a duplicate email into a validation failure on the email field.
func emailTaken(err error) error {
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		return err
	}

	verr := &domain.ValidationError{}
	verr.Add("email", msgEmailTaken)

	return errors.Join(verr, err)
}

func normalizeLoginEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
