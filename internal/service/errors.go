package service

import (
	"errors"
	"fmt"
)

// Domain Errors
var (
	ErrNotFound          = errors.New("degree not found")
	ErrStoreUnavailable  = errors.New("record store unavailable")
	ErrSearchUnavailable = errors.New("search index unavailable")
	ErrPartialDelete     = errors.New("removed from store, index delete failed")
)

// ValidationError reports the first rule a request violated. No write has
// happened when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
