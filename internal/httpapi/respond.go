package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrModelOutput), errors.Is(err, common.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, common.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := common.UserMessage(err)
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	var ae *common.AppError
	code := ""
	if errors.As(err, &ae) {
		code = ae.Code
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
