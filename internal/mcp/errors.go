package mcp

import (
	"errors"
	"fmt"

	"github.com/ganot/task-timer/internal/domain/task"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return &APIError{Code: "TASK_NOT_FOUND", Message: "task not found", RecoveryHint: "Check the ID with list_tasks"}
	case errors.Is(err, task.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: "invalid session state change", RecoveryHint: "Check the task state with list_tasks"}
	case errors.Is(err, task.ErrInvalidName):
		return &APIError{Code: "INVALID_NAME", Message: "task name must not be empty", RecoveryHint: "Provide a non-blank name"}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
