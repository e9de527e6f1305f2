package booking

import (
	"errors"
	"fmt"

	"rail-booking/internal/rail"
)

var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrEmptyOrder      = errors.New("an order needs at least one ticket")
)

// TicketError reports which submitted ticket failed and on which field.
type TicketError struct {
	Index    int
	Field    string
	Message  string
	Conflict bool // the seat is held by another ticket
}

func (e *TicketError) Error() string {
	return fmt.Sprintf("tickets[%d].%s: %s", e.Index, e.Field, e.Message)
}

func ticketErr(i int, fe *rail.FieldError, conflict bool) *TicketError {
	return &TicketError{Index: i, Field: fe.Field, Message: fe.Message, Conflict: conflict}
}
