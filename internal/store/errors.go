package store

import (
	"errors"
	"fmt"
)

// ErrRepositoryExists indicates the repository URL is already registered.
var ErrRepositoryExists = errors.New("This repository is already added.")

// ErrRepositoryNotFound indicates no repository is registered under the URL.
var ErrRepositoryNotFound = errors.New("Repository not found.")

// ErrSettingNotFound indicates the setting key has never been stored.
var ErrSettingNotFound = errors.New("setting not found")

// OperationError wraps a failed SQL statement with the store operation it served.
type OperationError struct {
	Operation string
	Cause     error
}

func (operationError OperationError) Error() string {
	return fmt.Sprintf("store %s: %v", operationError.Operation, operationError.Cause)
}

// Unwrap exposes the driver error.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

func wrapOperation(operation string, cause error) error {
	if cause == nil {
		return nil
	}
	return OperationError{Operation: operation, Cause: cause}
}
