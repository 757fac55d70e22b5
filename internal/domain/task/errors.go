package task

import "errors"

var (
	// ErrInvalidTransition indicates an illegal session state change.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrTaskNotFound indicates the task doesn't exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidName indicates an empty or whitespace-only task name.
	ErrInvalidName = errors.New("invalid task name")
)
