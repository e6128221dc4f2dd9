package apperrors

import (
	"errors"
	"net/http"
)

// StatusCode maps err onto an HTTP status. Unknown errors are 500.
func StatusCode(err error) int {
	var (
		validation     *ValidationError
		authentication *AuthenticationError
		authorization  *AuthorizationError
		notFound       *NotFoundError
		conflict       *ConflictError
		upstream       *UpstreamError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &authentication):
		return http.StatusUnauthorized
	case errors.As(err, &authorization):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error payload. Fields is only set for validation errors.
type Body struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ToBody builds the payload for err. Internal errors get a generic message.
func ToBody(err error) Body {
	if StatusCode(err) == http.StatusInternalServerError {
		return Body{Error: "internal server error"}
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return Body{Error: validation.Message, Fields: validation.Fields}
	}
	return Body{Error: err.Error()}
}
