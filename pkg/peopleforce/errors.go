package peopleforce

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the PeopleForce API.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "peopleforce: HTTP %d: %s", err.StatusCode, err.Message)
	for _, detail := range err.Errors {
		fmt.Fprintf(&builder, "; %s", detail)
	}
	return builder.String()
}

// UserMessage is the error text suitable for showing to an end user.
func (err *APIError) UserMessage() string {
	if len(err.Errors) == 0 {
		return err.Message
	}
	return err.Message + ": " + strings.Join(err.Errors, "; ")
}

func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsUnprocessable reports a 422 (or 400) validation rejection.
func IsUnprocessable(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && (apiError.StatusCode == 422 || apiError.StatusCode == 400)
}

func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wire map[string]any
	if err := json.Unmarshal(body, &wire); err != nil {
		apiError.Message = strings.TrimSpace(string(body))
		return apiError
	}

	for _, key := range []string{"message", "error", "title"} {
		if text, ok := wire[key].(string); ok && text != "" {
			apiError.Message = text
			break
		}
	}

	switch details := wire["errors"].(type) {
	case []any:
		for _, detail := range details {
			apiError.Errors = append(apiError.Errors, describe(detail))
		}
	case map[string]any:
		for field, detail := range details {
			apiError.Errors = append(apiError.Errors, field+": "+describe(detail))
		}
	}

	if apiError.Message == "" {
		apiError.Message = strings.TrimSpace(string(body))
	}
	return apiError
}

func describe(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, describe(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		for _, key := range []string{"detail", "message", "title"} {
			if text, ok := v[key].(string); ok {
				return text
			}
		}
	}
	return fmt.Sprint(value)
}
