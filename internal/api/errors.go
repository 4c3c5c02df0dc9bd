package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error is a server-reported business error: an HTTP error status with
// the backend's message field.
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// parseError turns an error response body into an *Error, preferring the
// backend's message field over raw body text.
func parseError(body []byte, statusCode int) error {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(body, &envelope); err != nil {
		return &Error{Message: strings.TrimSpace(string(body)), StatusCode: statusCode}
	}

	msg := envelope.Message
	if msg == "" {
		msg = envelope.Error
	}
	return &Error{Message: msg, StatusCode: statusCode}
}

// UserMessage extracts a message fit for a notification: the server's
// message when the error carries one, otherwise the fallback. Raw
// transport detail is never surfaced.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
