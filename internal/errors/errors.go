// Package errors defines categorized error values for the sync pipeline.
//
// The categories drive fatal-versus-continue decisions: transport errors
// abort the running top-level operation, everything else is logged and the
// batch continues.
package errors

import (
	"errors"
	"fmt"

	"github.com/chess-tracker/internal/types"
)

// Category represents the class of a pipeline error.
type Category string

const (
	// CategoryInput represents missing required fields on a raw record
	CategoryInput Category = "input"
	// CategoryTransport represents a failed remote fetch
	CategoryTransport Category = "transport"
	// CategoryParse represents malformed notation or numeric text
	CategoryParse Category = "parse"
	// CategoryConsistency represents records that contradict the
	// perspective identity
	CategoryConsistency Category = "consistency"
	// CategoryStorage represents persisted-store failures
	CategoryStorage Category = "storage"
)

// CategorizedError carries a category, a stable code and optional context.
type CategorizedError struct {
	Category Category
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError for API responses.
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewInputError reports a raw record missing required fields.
func NewInputError(gameID, reason string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryInput,
		Code:     "INVALID_RECORD",
		Message:  fmt.Sprintf("invalid game record: %s", reason),
		Details:  map[string]interface{}{"gameId": gameID, "reason": reason},
	}
}

// NewTransportError reports a failed remote fetch. Fatal for the running
// sync operation.
func NewTransportError(url string, status int, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryTransport,
		Code:     "FETCH_FAILED",
		Message:  fmt.Sprintf("archive fetch failed with status %d", status),
		Details:  map[string]interface{}{"url": url, "status": status},
		Cause:    cause,
	}
}

// NewParseError reports malformed notation or numeric text.
func NewParseError(gameID, reason string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryParse,
		Code:     "PARSE_FAILED",
		Message:  fmt.Sprintf("parse failed: %s", reason),
		Details:  map[string]interface{}{"gameId": gameID, "reason": reason},
		Cause:    cause,
	}
}

// NewConsistencyError reports a record whose players do not include the
// perspective identity.
func NewConsistencyError(gameID, username string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryConsistency,
		Code:     "PERSPECTIVE_NOT_FOUND",
		Message:  fmt.Sprintf("player %q is on neither side of game %s", username, gameID),
		Details:  map[string]interface{}{"gameId": gameID, "username": username},
	}
}

// NewStorageError reports a persisted-store failure.
func NewStorageError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryStorage,
		Code:     "STORAGE_ERROR",
		Message:  fmt.Sprintf("storage error during %s", operation),
		Details:  map[string]interface{}{"operation": operation},
		Cause:    cause,
	}
}

// IsFatal reports whether an error must abort the running top-level
// operation rather than skip the offending record.
func IsFatal(err error) bool {
	var catErr *CategorizedError
	if !errors.As(err, &catErr) {
		return true
	}
	switch catErr.Category {
	case CategoryTransport, CategoryStorage:
		return true
	default:
		return false
	}
}
