package domain

import "errors"

// Domain errors
var (
	ErrInvalidInputType = errors.New("file is not a PDF document")
	ErrNoFileSupplied   = errors.New("no file supplied")
	ErrDecodeFailure    = errors.New("document could not be decoded")
	ErrEmptyDocument    = errors.New("document has no pages")
	ErrLoadSuperseded   = errors.New("load superseded by a newer request")
	ErrUnknownControl   = errors.New("unknown control")
	ErrViewerNotFound   = errors.New("viewer not found")
	ErrTooManyViewers   = errors.New("too many open viewers")
	ErrPageOutOfRange   = errors.New("page out of range")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
