// Package supabase is the anti-corruption layer over the hosted backend.
// It translates PostgREST rows and auth responses into domain types and
// maps HTTP failures to domain errors.
package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/quotevault/quotevault/internal/adapters/clients"
	"github.com/quotevault/quotevault/internal/domain"
)

const serviceName = "supabase"

// errorResponse is the PostgREST/GoTrue error body shape.
type errorResponse struct {
	Message          string `json:"message,omitempty"`
	Msg              string `json:"msg,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (e *errorResponse) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Msg != "":
		return e.Msg
	default:
		return e.ErrorDescription
	}
}

// parseErrorResponse attempts to parse an error response body.
// Returns an empty string if the body cannot be parsed.
func parseErrorResponse(body io.Reader) string {
	if body == nil {
		return ""
	}

	var errResp errorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		return ""
	}

	return errResp.text()
}

// mapHTTPError maps an HTTP response or client error to a domain error.
// resp may be nil for transport-level failures.
func mapHTTPError(resp *http.Response, clientErr error, operation string) error {
	if clientErr != nil {
		return mapClientError(clientErr, operation)
	}

	if resp == nil {
		return domain.NewUnavailableError(serviceName, "no response received")
	}

	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	message := parseErrorResponse(resp.Body)
	if message == "" {
		message = fmt.Sprintf("%s failed with status %d", operation, resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewNotAuthenticatedError(operation)

	case http.StatusNotFound:
		return domain.NewNotFoundError(serviceName, "")

	case http.StatusTooManyRequests:
		return domain.NewUnavailableError(serviceName, "rate limit exceeded")

	default:
		if resp.StatusCode >= http.StatusInternalServerError {
			return domain.NewUnavailableError(serviceName, message)
		}

		return domain.NewValidationError("", message)
	}
}

// mapClientError translates client-level errors to domain errors.
func mapClientError(err error, operation string) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("circuit breaker open during %s", operation))

	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("max retries exceeded during %s", operation))

	default:
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("%s failed: %v", operation, err))
	}
}
