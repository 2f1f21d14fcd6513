package kcadmin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the admin REST API. Keycloak is
// inconsistent about its error bodies: some endpoints return
// {"error": "..."}, others {"errorMessage": "..."}, a few both.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("admin api error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is an APIError with status 409, which
// Keycloak returns when creating a resource that already exists.
func IsConflict(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusConflict
}

// parseAPIError builds an APIError from a response body, tolerating the
// several shapes Keycloak emits.
func parseAPIError(statusCode int, body []byte) *APIError {
	var wire struct {
		Error        string `json:"error"`
		ErrorMessage string `json:"errorMessage"`
	}

	message := ""
	if err := json.Unmarshal(body, &wire); err == nil {
		switch {
		case wire.ErrorMessage != "":
			message = wire.ErrorMessage
		case wire.Error != "":
			message = wire.Error
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return &APIError{StatusCode: statusCode, Message: message}
}
