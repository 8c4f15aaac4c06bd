// Package common defines shared constants and sentinel errors used across
// the server layers of filesmanager. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrorBadRequest   = errors.New("bad request")

	// Auth errors.
	ErrorBadCredentialFormat = errors.New("bad credential format")
)

// Validation errors reported by user and file creation. Each one wraps its
// kind so that transport code can map it with errors.Is.
var (
	ErrMissingEmail    = fmt.Errorf("missing email: %w", ErrorValidation)
	ErrMissingPassword = fmt.Errorf("missing password: %w", ErrorValidation)

	ErrMissingName      = fmt.Errorf("missing name: %w", ErrorValidation)
	ErrMissingType      = fmt.Errorf("missing type: %w", ErrorValidation)
	ErrMissingData      = fmt.Errorf("missing data: %w", ErrorValidation)
	ErrParentNotFound   = fmt.Errorf("parent not found: %w", ErrorNotFound)
	ErrParentNotAFolder = fmt.Errorf("parent is not a folder: %w", ErrorValidation)

	ErrFolderHasNoContent = fmt.Errorf("folder has no content: %w", ErrorBadRequest)
	ErrWrongImageSize     = fmt.Errorf("wrong image size: %w", ErrorBadRequest)

	ErrUserAlreadyExists = fmt.Errorf("user: %w", ErrorAlreadyExists)
)

// ErrEnqueueFailed marks a file that was stored but whose thumbnail job could
// not be queued. The accompanying record is still valid.
var ErrEnqueueFailed = errors.New("thumbnail job enqueue failed")
