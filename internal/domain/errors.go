package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors - use with errors.Is()
var (
	// ErrNotFound indicates the target document is absent from the structure
	// (or the collection itself does not exist).
	ErrNotFound = errors.New("not found")

	// ErrNotInitialized indicates a structural mutation was attempted on a
	// collection whose structure was never seeded (non-tree collection types).
	// Distinguishes "nothing happened" from "succeeded vacuously".
	ErrNotInitialized = errors.New("document structure not initialized")

	// ErrConflict indicates the mutation would violate a uniqueness rule,
	// e.g. inserting a document id already present in the structure.
	ErrConflict = errors.New("already exists")

	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrLockTimeout indicates the per-collection lock could not be acquired
	// within the bounded wait. Retryable.
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrCascade indicates one or more descendant document deletions failed
	// during a delete-mode removal. Matched by CascadeError.Is.
	ErrCascade = errors.New("cascading delete failed")

	// ErrCorruptStructure indicates a stored structure violates the id
	// uniqueness invariant and cannot be safely mutated.
	ErrCorruptStructure = errors.New("corrupt document structure")
)

// CascadeError reports which descendant document deletions failed during a
// delete-mode removal. The whole mutation is rolled back when it occurs, so
// the structure and the document store stay consistent with each other.
type CascadeError struct {
	CollectionID string   // collection whose structure was being mutated
	DocumentIDs  []string // documents whose deletion failed
	Errs         []error  // underlying causes, parallel to DocumentIDs
}

// Error implements the error interface
func (e *CascadeError) Error() string {
	if len(e.DocumentIDs) == 1 {
		return fmt.Sprintf("cascading delete failed for document %s: %v", e.DocumentIDs[0], e.Errs[0])
	}
	return fmt.Sprintf("cascading delete failed for %d documents (%s)", len(e.DocumentIDs), strings.Join(e.DocumentIDs, ", "))
}

// Is allows errors.Is() to match against ErrCascade
func (e *CascadeError) Is(target error) bool {
	return target == ErrCascade
}

// Unwrap exposes the underlying deletion failures to errors.Is/As chains.
func (e *CascadeError) Unwrap() []error {
	return e.Errs
}
