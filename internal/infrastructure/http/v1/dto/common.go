// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import "net/http"

// Envelope wraps every response body, successful or not.
type Envelope struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// NewEnvelope creates an envelope; an empty message defaults to the
// status text.
func NewEnvelope(status int, message string, data any) Envelope {
	if message == "" {
		message = http.StatusText(status)
	}
	return Envelope{Data: data, Status: status, Message: message}
}

// ErrorEnvelope creates an envelope without data.
func ErrorEnvelope(status int, message string) Envelope {
	return NewEnvelope(status, message, nil)
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewListResponse creates a list response; a nil slice renders as [].
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}
