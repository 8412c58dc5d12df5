package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/munajjam/munajjam/internal/align"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
)

// APIError is the body of every non-2xx response:
//
//	{"code": "NOT_FOUND", "message": "...", "details": ...}
type APIError struct { //nolint:revive // exported under the name clients see in the OpenAPI document
	status  int
	Code    string `json:"code" doc:"Machine-readable error code" example:"NO_CONFIDENT_MATCH"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Per-field validation messages or other context"`
}

func (e *APIError) Error() string               { return e.Message }
func (e *APIError) GetStatus() int              { return e.status }
func (e *APIError) ContentType(_ string) string { return "application/json" }

// Codes for statuses that no domain error produces.
const (
	codeRateLimited = "RATE_LIMITED"
	codeUnavailable = "UNAVAILABLE"
)

var statusCodes = map[int]string{
	http.StatusBadRequest:         string(domainerrors.CodeValidation),
	http.StatusNotFound:           string(domainerrors.CodeNotFound),
	http.StatusTooManyRequests:    codeRateLimited,
	http.StatusServiceUnavailable: codeUnavailable,
}

// RegisterErrorHandler replaces huma.NewError so that handler errors and
// huma's own failures share the APIError shape. Domain errors keep their
// code and status; huma's request validation (422) is reported as a 400
// VALIDATION with one message per problem. It must run before any API is
// created.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := fromDomainError(err); apiErr != nil {
				return apiErr
			}
		}

		e := &APIError{status: status, Message: message}
		if status == http.StatusUnprocessableEntity && len(errs) > 0 {
			problems := make([]string, len(errs))
			for i, err := range errs {
				problems[i] = err.Error()
			}
			e.status = http.StatusBadRequest
			e.Details = problems
		}
		e.Code = codeForStatus(e.status)
		return e
	}
}

func fromDomainError(err error) *APIError {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return &APIError{status: de.HTTPStatus(), Code: string(de.Code), Message: de.Message, Details: de.Details}
	}
	// The DP aligner's sentinel sits below the domain error layer.
	if errors.Is(err, align.ErrNoPartition) {
		code := domainerrors.CodeNoConfidentMatch
		return &APIError{status: code.HTTPStatus(), Code: string(code), Message: err.Error()}
	}
	return nil
}

func codeForStatus(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return string(domainerrors.CodeInternal)
}

// toHTTPError sends a handler error through huma.NewError unless it already
// carries a status.
func toHTTPError(err error) error {
	var se huma.StatusError
	if errors.As(err, &se) {
		return err
	}
	return huma.NewError(http.StatusInternalServerError, err.Error(), err)
}
