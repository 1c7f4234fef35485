package usersvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/mkrupp/taskapp/internal/domain"
	context_ "github.com/mkrupp/taskapp/internal/infra/context"
	"github.com/mkrupp/taskapp/internal/infra/logging"
	http_ "github.com/mkrupp/taskapp/internal/infra/transport/http"
)

// multipartOverhead is the allowance for multipart framing on top of the avatar size limit.
const multipartOverhead = 64 << 10

// HTTPTransport handles HTTP requests for the user service.
type HTTPTransport struct {
	userSvc *UserService
	log     logging.Logger
	cfg     AvatarConfig
}

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
func NewHTTPTransport(userSvc *UserService, cfg AvatarConfig) *HTTPTransport {
	return &HTTPTransport{
		userSvc: userSvc,
		log:     logging.GetLogger("svc.usersvc.http_transport"),
		cfg:     cfg,
	}
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// Register sets up routes for the user service endpoints:
// - POST /users: Register a new user
// - POST /users/login: Login and get a session token
// - POST /users/logout, POST /users/logoutAll: End the current or every session
// - GET /user/me, PATCH /users/me, DELETE /users/me: Read, update or delete the profile
// - POST, GET, DELETE /users/me/avatar: Manage the avatar image.
func (ht *HTTPTransport) Register(mux *http.ServeMux) {
	authed := func(h http.HandlerFunc) http.Handler {
		return http_.AuthenticatingMiddleware(h, ht.userSvc, ht.log)
	}

	mux.HandleFunc("POST /users", ht.HandleCreate)
	mux.HandleFunc("POST /users/login", ht.HandleLogin)
	mux.Handle("POST /users/logout", authed(ht.HandleLogout))
	mux.Handle("POST /users/logoutAll", authed(ht.HandleLogoutAll))
	mux.Handle("GET /user/me", authed(ht.HandleProfile))
	mux.Handle("GET /users/me", authed(ht.HandleProfile))
	mux.Handle("PATCH /users/me", authed(ht.HandleUpdate))
	mux.Handle("DELETE /users/me", authed(ht.HandleDelete))
	mux.Handle("POST /users/me/avatar", authed(ht.HandleSetAvatar))
	mux.Handle("GET /users/me/avatar", authed(ht.HandleGetAvatar))
	mux.Handle("DELETE /users/me/avatar", authed(ht.HandleClearAvatar))
}

func (ht *HTTPTransport) requestLog(r *http.Request) logging.Logger {
	return ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))
}

func (ht *HTTPTransport) logResult(ctx context.Context, log logging.Logger, op string, err error) {
	if err != nil {
		log.ErrorContext(ctx, op+" failed", "error", err)
	} else {
		log.DebugContext(ctx, op)
	}
}

// sessionUser returns the user the request was authenticated as.
func sessionUser(r *http.Request) (*domain.User, error) {
	u, ok := context_.UserFromContext(r.Context())
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	return u, nil
}

// HandleCreate processes user registration requests.
// Expects a JSON body with name, email, password and optional age.
// Responds 201 with the public user and its first session token.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreate(w, r)
}

func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { ht.logResult(r.Context(), log, "user register", err) }()

	var profile domain.UserProfile
	if err := http_.DecodeJSON(r, &profile); err != nil {
		http_.WriteBadRequest(w, err)

		return fmt.Errorf("decode body: %w", err)
	}

	u, token, err := ht.userSvc.Create(r.Context(), profile)
	if err != nil {
		http_.WriteDomainError(w, err)

		return fmt.Errorf("create user: %w", err)
	}

	http_.WriteJSON(w, http.StatusCreated, domain.UserTokenResponse{User: u.Public(), Token: token})

	return nil
}

// HandleLogin processes user login requests.
// Expects a JSON body with email and password.
// Returns the public user and a new session token on successful login.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { ht.logResult(r.Context(), log, "user login", err) }()

	var req domain.LoginRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		http_.WriteBadRequest(w, err)

		return fmt.Errorf("decode body: %w", err)
	}

	u, token, err := ht.userSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWrongEmail):
			http_.WriteError(w, http.StatusBadRequest, "Wrong email!")
		case errors.Is(err, domain.ErrWrongPassword):
			http_.WriteError(w, http.StatusBadRequest, "Wrong password!")
		default:
			http_.WriteDomainError(w, err)
		}

		return fmt.Errorf("login: %w", err)
	}

	http_.WriteJSON(w, http.StatusOK, domain.UserTokenResponse{User: u.Public(), Token: token})

	return nil
}

// HandleLogout ends the session the request was authenticated with.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogout(w, r, false)
}

// HandleLogoutAll ends every session of the authenticated user.
func (ht *HTTPTransport) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogout(w, r, true)
}

func (ht *HTTPTransport) handleLogout(w http.ResponseWriter, r *http.Request, all bool) (err error) {
	log := ht.requestLog(r).With("all", all)
	defer func() { ht.logResult(r.Context(), log, "user logout", err) }()

	u, err := sessionUser(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	if all {
		err = ht.userSvc.LogoutAll(r.Context(), u)
	} else {
		token, _ := context_.TokenFromContext(r.Context())
		err = ht.userSvc.Logout(r.Context(), u, token)
	}

	if err != nil {
		http_.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))

		return fmt.Errorf("logout: %w", err)
	}

	http_.WriteStatus(w, http.StatusOK)

	return nil
}

// HandleProfile returns the authenticated user.
func (ht *HTTPTransport) HandleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := sessionUser(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return
	}

	http_.WriteJSON(w, http.StatusOK, u.Public())
}

// HandleUpdate applies a partial update to the authenticated user.
// Keys other than name, email, password and age are rejected with 404.
func (ht *HTTPTransport) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdate(w, r)
}

func (ht *HTTPTransport) handleUpdate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { ht.logResult(r.Context(), log, "user update", err) }()

	u, err := sessionUser(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	var fields domain.UpdateFields
	if err := http_.DecodeJSON(r, &fields); err != nil {
		http_.WriteBadRequest(w, err)

		return fmt.Errorf("decode body: %w", err)
	}

	u, err = ht.userSvc.Update(r.Context(), u, fields)
	if err != nil {
		http_.WriteDomainError(w, err)

		return fmt.Errorf("update user: %w", err)
	}

	http_.WriteJSON(w, http.StatusOK, u.Public())

	return nil
}

// HandleDelete removes the authenticated user and every task it owns.
// Responds with the removed user.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { ht.logResult(r.Context(), log, "user delete", err) }()

	u, err := sessionUser(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	if err := ht.userSvc.Remove(r.Context(), u); err != nil {
		http_.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))

		return fmt.Errorf("remove user: %w", err)
	}

	http_.WriteJSON(w, http.StatusOK, u.Public())

	return nil
}

// HandleSetAvatar stores the uploaded image as the user's avatar.
// Expects a multipart form with the image in the configured field.
func (ht *HTTPTransport) HandleSetAvatar(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleSetAvatar(w, r)
}

func (ht *HTTPTransport) handleSetAvatar(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { ht.logResult(r.Context(), log, "avatar upload", err) }()

	u, err := sessionUser(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, ht.cfg.MaxSize+multipartOverhead)

	file, header, err := r.FormFile(ht.cfg.FormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http_.WriteError(w, http.StatusBadRequest, domain.ErrAvatarTooLarge.Error())
		} else {
			http_.WriteError(w, http.StatusBadRequest, "Please upload a file in the "+
				strconv.Quote(ht.cfg.FormField)+" field")
		}

		return fmt.Errorf("read form file: %w", err)
	}
	defer file.Close()

	log = log.With(logging.Group("avatar", "filename", header.Filename, "size", header.Size))

	data, err := io.ReadAll(io.LimitReader(file, ht.cfg.MaxSize+1))
	if err != nil {
		http_.WriteError(w, http.StatusBadRequest, err.Error())

		return fmt.Errorf("read avatar: %w", err)
	}

	if err := ht.userSvc.SetAvatar(r.Context(), u, header.Filename, data); err != nil {
		if isAvatarError(err) {
			http_.WriteError(w, http.StatusBadRequest, avatarErrorMessage(err))
		} else {
			http_.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}

		return fmt.Errorf("set avatar: %w", err)
	}

	http_.WriteStatus(w, http.StatusOK)

	return nil
}

// HandleGetAvatar serves the authenticated user's avatar image.
func (ht *HTTPTransport) HandleGetAvatar(w http.ResponseWriter, r *http.Request) {
	u, err := sessionUser(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return
	}

	avatar, ctype, err := ht.userSvc.Avatar(u)
	if err != nil {
		http_.WriteError(w, http.StatusBadRequest, err.Error())

		return
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.Itoa(len(avatar)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(avatar)
}

// HandleClearAvatar removes the authenticated user's avatar.
func (ht *HTTPTransport) HandleClearAvatar(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleClearAvatar(w, r)
}

func (ht *HTTPTransport) handleClearAvatar(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { ht.logResult(r.Context(), log, "avatar delete", err) }()

	u, err := sessionUser(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	if err := ht.userSvc.ClearAvatar(r.Context(), u); err != nil {
		http_.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))

		return fmt.Errorf("clear avatar: %w", err)
	}

	http_.WriteStatus(w, http.StatusOK)

	return nil
}

func isAvatarError(err error) bool {
	return errors.Is(err, domain.ErrAvatarTooLarge) ||
		errors.Is(err, domain.ErrAvatarTypeNotSupported) ||
		errors.Is(err, domain.ErrAvatarTypeMismatch)
}

func avatarErrorMessage(err error) string {
	for _, known := range []error{
		domain.ErrAvatarTooLarge,
		domain.ErrAvatarTypeNotSupported,
		domain.ErrAvatarTypeMismatch,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	return err.Error()
}
