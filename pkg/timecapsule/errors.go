package timecapsule

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrCapsuleNotFound indicates a capsule was not found
	ErrCapsuleNotFound = errors.New("capsule not found")

	// ErrCapsuleExists indicates the owner already has a capsule
	ErrCapsuleExists = errors.New("capsule already exists for owner")

	// ErrProfileNotFound indicates a profile was not found
	ErrProfileNotFound = errors.New("profile not found")

	// ErrItemNotFound indicates a capsule item was not found
	ErrItemNotFound = errors.New("capsule item not found")

	// ErrNotCapsuleOwner indicates the caller does not own the capsule
	ErrNotCapsuleOwner = errors.New("caller is not the capsule owner")

	// ErrItemLimitExceeded indicates the capsule already holds the maximum number of items
	ErrItemLimitExceeded = errors.New("item limit exceeded")

	// ErrSizeLimitExceeded indicates the admission would push the capsule over its size limit
	ErrSizeLimitExceeded = errors.New("size limit exceeded")

	// ErrUnsupportedType indicates a file payload with a MIME type outside the allowlist
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrInvalidUnlockDate indicates an unlock date that is not strictly in the future
	ErrInvalidUnlockDate = errors.New("unlock date must be in the future")

	// ErrEmptyPayload indicates an admission with neither text nor file content
	ErrEmptyPayload = errors.New("payload has neither text nor file")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")
)

// IsQuotaError reports whether err is one of the quota-class errors. Quota
// errors are expected, user-facing, and must not be retried automatically.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrItemLimitExceeded) || errors.Is(err, ErrSizeLimitExceeded)
}

// IsValidationError reports whether err is one of the validation-class errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrInvalidUnlockDate) ||
		errors.Is(err, ErrEmptyPayload)
}

// CapsuleError represents an error related to capsule operations
type CapsuleError struct {
	CapsuleID uuid.UUID
	Op        string
	Err       error
}

func (e *CapsuleError) Error() string {
	return fmt.Sprintf("capsule operation %s failed for capsule %s: %v", e.Op, e.CapsuleID, e.Err)
}

func (e *CapsuleError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
