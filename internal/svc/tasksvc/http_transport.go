package tasksvc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mkrupp/taskapp/internal/domain"
	context_ "github.com/mkrupp/taskapp/internal/infra/context"
	"github.com/mkrupp/taskapp/internal/infra/logging"
	http_ "github.com/mkrupp/taskapp/internal/infra/transport/http"
)

// HTTPTransport handles HTTP requests for the task service.
type HTTPTransport struct {
	taskSvc *TaskService
	auth    http_.Authenticator
	log     logging.Logger
}

// NewHTTPTransport creates a new HTTPTransport instance.
// Every route requires a session resolved by auth.
func NewHTTPTransport(taskSvc *TaskService, auth http_.Authenticator) *HTTPTransport {
	return &HTTPTransport{
		taskSvc: taskSvc,
		auth:    auth,
		log:     logging.GetLogger("svc.tasksvc.http_transport"),
	}
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// Register sets up routes for the task service endpoints:
// - POST /tasks: Create a task
// - GET /tasks: List tasks (?completed, ?skip, ?limit)
// - GET /tasks/{id}, PATCH /tasks/{id}, DELETE /tasks/{id}: Read, update or delete a task.
func (ht *HTTPTransport) Register(mux *http.ServeMux) {
	authed := func(h http.HandlerFunc) http.Handler {
		return http_.AuthenticatingMiddleware(h, ht.auth, ht.log)
	}

	mux.Handle("POST /tasks", authed(ht.HandleCreate))
	mux.Handle("GET /tasks", authed(ht.HandleList))
	mux.Handle("GET /tasks/{id}", authed(ht.HandleGet))
	mux.Handle("PATCH /tasks/{id}", authed(ht.HandleUpdate))
	mux.Handle("DELETE /tasks/{id}", authed(ht.HandleDelete))
}

func (ht *HTTPTransport) requestLog(r *http.Request) logging.Logger {
	return ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))
}

func logResult(ctx context.Context, log logging.Logger, op string, err error) {
	if err != nil {
		log.ErrorContext(ctx, op+" failed", "error", err)
	} else {
		log.DebugContext(ctx, op)
	}
}

func owner(r *http.Request) (string, error) {
	u, ok := context_.UserFromContext(r.Context())
	if !ok {
		return "", domain.ErrUnauthorized
	}

	return u.ID, nil
}

// ParseTaskQuery reads the completed, skip and limit query parameters.
// A non-empty completed matches completed tasks when it is "true" and open
// tasks otherwise. Negative or non-integer skip and limit are ignored.
func ParseTaskQuery(values url.Values) domain.TaskQuery {
	var query domain.TaskQuery

	if completed := values.Get("completed"); completed != "" {
		v := completed == "true"
		query.Completed = &v
	}

	query.Skip = parseCount(values.Get("skip"))
	query.Limit = parseCount(values.Get("limit"))

	return query
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}

	return n
}

// HandleCreate creates a task owned by the authenticated user.
// Responds 201 with the task.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreate(w, r)
}

func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { logResult(r.Context(), log, "task create", err) }()

	ownerID, err := owner(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	var fields domain.TaskFields
	if err := http_.DecodeJSON(r, &fields); err != nil {
		http_.WriteBadRequest(w, err)

		return fmt.Errorf("decode body: %w", err)
	}

	t, err := ht.taskSvc.Create(r.Context(), ownerID, fields)
	if err != nil {
		http_.WriteDomainError(w, err)

		return fmt.Errorf("create task: %w", err)
	}

	http_.WriteJSON(w, http.StatusCreated, t)

	return nil
}

// HandleList lists the authenticated user's tasks.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleList(w, r)
}

func (ht *HTTPTransport) handleList(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { logResult(r.Context(), log, "task list", err) }()

	ownerID, err := owner(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	tasks, err := ht.taskSvc.List(r.Context(), ownerID, ParseTaskQuery(r.URL.Query()))
	if err != nil {
		http_.WriteDomainError(w, err)

		return fmt.Errorf("list tasks: %w", err)
	}

	http_.WriteJSON(w, http.StatusOK, tasks)

	return nil
}

// HandleGet returns one of the authenticated user's tasks.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGet(w, r)
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { logResult(r.Context(), log, "task get", err) }()

	ownerID, err := owner(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	t, err := ht.taskSvc.Get(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		http_.WriteDomainError(w, err)

		return fmt.Errorf("get task: %w", err)
	}

	http_.WriteJSON(w, http.StatusOK, t)

	return nil
}

// HandleUpdate applies a partial update to one of the authenticated user's tasks.
// Keys other than description and completed are rejected with 404.
func (ht *HTTPTransport) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdate(w, r)
}

func (ht *HTTPTransport) handleUpdate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { logResult(r.Context(), log, "task update", err) }()

	ownerID, err := owner(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	var fields domain.UpdateFields
	if err := http_.DecodeJSON(r, &fields); err != nil {
		http_.WriteBadRequest(w, err)

		return fmt.Errorf("decode body: %w", err)
	}

	t, err := ht.taskSvc.Update(r.Context(), ownerID, r.PathValue("id"), fields)
	if err != nil {
		http_.WriteDomainError(w, err)

		return fmt.Errorf("update task: %w", err)
	}

	http_.WriteJSON(w, http.StatusOK, t)

	return nil
}

// HandleDelete removes one of the authenticated user's tasks and responds with it.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)
	defer func() { logResult(r.Context(), log, "task delete", err) }()

	ownerID, err := owner(r)
	if err != nil {
		http_.WriteDomainError(w, err)

		return err
	}

	t, err := ht.taskSvc.Delete(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		http_.WriteDomainError(w, err)

		return fmt.Errorf("delete task: %w", err)
	}

	http_.WriteJSON(w, http.StatusOK, t)

	return nil
}
