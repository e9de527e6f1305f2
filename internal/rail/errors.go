package rail

import (
	"errors"
	"fmt"
)

// Storage sentinels. Backends wrap these so callers can use errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("already exists")
	ErrSeatTaken        = errors.New("seat already taken")
	ErrReferenced       = errors.New("still referenced")
	ErrInvalidReference = errors.New("referenced object does not exist")
)

// FieldError is a validation failure scoped to one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// LayoutField names the train field that sold seats reaching (maxCargo,
// maxSeat) would exceed under the given layout, or "" when they all fit.
func LayoutField(cargoNum, placesInCargo, maxCargo, maxSeat int) string {
	switch {
	case maxCargo > cargoNum:
		return "cargo_num"
	case maxSeat > placesInCargo:
		return "places_in_cargo"
	}
	return ""
}

// LayoutError rejects a change that would leave sold tickets outside a train.
func LayoutError(field string) *FieldError {
	return fieldErr(field, "sold tickets would fall outside the train layout")
}
