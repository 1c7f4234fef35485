package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mkrupp/taskapp/internal/domain"
)

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an {"error": msg} JSON response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteStatus writes an empty response with the given status code.
func WriteStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

// DecodeJSON decodes the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	//nolint:wrapcheck
	return json.NewDecoder(r.Body).Decode(dst)
}

// WriteValidationError writes a 400 response listing each rejected field.
func WriteValidationError(w http.ResponseWriter, verr *domain.ValidationError) {
	fields := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}

	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Fields: fields})
}

// WriteDomainError maps the shared domain errors to responses:
// validation failures to 400, disallowed update keys to 404 with a message,
// missing resources to an empty 404, and anything else to 500.
func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, verr)
	case errors.Is(err, domain.ErrInvalidUpdate):
		WriteError(w, http.StatusNotFound, "Invalid updates!")
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrTaskNotFound):
		WriteStatus(w, http.StatusNotFound)
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, unauthenticatedMessage)
	default:
		WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// WriteBadRequest writes a 400 response for a body that could not be decoded.
func WriteBadRequest(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
}
