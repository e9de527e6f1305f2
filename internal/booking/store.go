package booking

import (
	"context"

	"rail-booking/internal/rail"
)

// Tx is the storage view available inside a booking transaction. Every read
// sees the transaction's own writes. Implementations must enforce uniqueness of
// (journey, cargo, seat) themselves and report a violation as rail.ErrSeatTaken.
type Tx interface {
	// Journey returns the journey with its train; rail.ErrNotFound if missing.
	Journey(ctx context.Context, id int64) (rail.Journey, error)
	CreateOrder(ctx context.Context, userID int64) (rail.Order, error)
	// SeatTaken reports whether another ticket (other than exceptTicketID) holds the seat.
	SeatTaken(ctx context.Context, journeyID int64, seat rail.Seat, exceptTicketID int64) (bool, error)
	InsertTicket(ctx context.Context, t rail.Ticket) (rail.Ticket, error)
	Ticket(ctx context.Context, id int64) (rail.Ticket, error)
	UpdateTicket(ctx context.Context, t rail.Ticket) (rail.Ticket, error)
}

// Store runs fn in a single storage transaction: fn returning an error rolls
// back everything it wrote.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}
