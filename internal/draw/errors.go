package draw

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("club not found")
	ErrCapacityExhausted = errors.New("no empty draw position left")
	ErrIllegalTransition = errors.New("illegal draw status transition")
	ErrLocked            = errors.New("tournament is locked in the current draw status")

	// Re-drawing a club is a validation failure, not a state error
	ErrAlreadyDrawn = fmt.Errorf("%w: club has already been drawn", ErrValidation)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
