package httpapi

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/invoices/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// fieldError is a request validation failure with a stable code.
type fieldError struct {
	code string
	msg  string
}

func (e *fieldError) Error() string { return e.msg }

func missingField(name string) error {
	return &fieldError{code: "missing_field", msg: name + " is required"}
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// internalError logs err server-side and answers a bare 500 with no body.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.Error(op+" failed", "req_id", chimw.GetReqID(r.Context()), "err", err)
	w.WriteHeader(http.StatusInternalServerError)
}

// mapValidationError normalizes validation errors into a code and message.
func mapValidationError(err error) (code, msg string) {
	if err == nil {
		return "", ""
	}
	var fe *fieldError
	if errors.As(err, &fe) {
		return fe.code, fe.msg
	}
	if errors.Is(err, errs.ErrInvalid) {
		return "invalid", err.Error()
	}
	return "validation_error", err.Error()
}
