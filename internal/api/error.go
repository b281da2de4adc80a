package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError carries the HTTP status and parsed body of a failed backend call.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
	Body       map[string]interface{}
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// newAPIError builds an APIError from a non-2xx response, pulling the
// human-readable detail out of whichever field the backend used.
func newAPIError(op string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Op:         op,
		StatusCode: statusCode,
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Body = parsed
		for _, key := range []string{"detail", "message", "error_message"} {
			if v, ok := parsed[key].(string); ok && v != "" {
				apiErr.Detail = v
				break
			}
		}
	}
	if apiErr.Detail == "" && len(body) > 0 {
		raw := string(body)
		if len(raw) > 200 {
			raw = raw[:200]
		}
		apiErr.Detail = raw
	}
	return apiErr
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
