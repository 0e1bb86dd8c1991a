package models

import "time"

// APIStatus is the status discriminator for success responses.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the envelope for successful API responses.
type APIResponse struct {
	Status  APIStatus   `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message and
// optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error type discriminators for the error envelope.
const (
	ErrorTypeValidation = "VALIDATION_ERROR"
	ErrorTypeNotFound   = "NOT_FOUND_ERROR"
	ErrorTypeInternal   = "INTERNAL_ERROR"
)

// ErrorEnvelope is the pinned error response shape.
type ErrorEnvelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// ValidationError creates a 4xx error envelope.
func ValidationError(message string) ErrorEnvelope {
	return ErrorEnvelope{
		Error:     "Validation Error",
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Type:      ErrorTypeValidation,
	}
}

// NotFoundError creates a 404 error envelope.
func NotFoundError(message string) ErrorEnvelope {
	return ErrorEnvelope{
		Error:     "Not Found",
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Type:      ErrorTypeNotFound,
	}
}

// InternalError creates a 5xx error envelope. The message is generic on
// purpose; detail stays in the logs.
func InternalError() ErrorEnvelope {
	return ErrorEnvelope{
		Error:     "Internal Server Error",
		Message:   "An unexpected error occurred",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Type:      ErrorTypeInternal,
	}
}
