// Package llm holds parley's internal representation of a conversation and of
// the chat completion requests built from it.
package llm

// ErrorResponse represents an error returned to a client of parley's HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}
