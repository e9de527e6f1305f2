package booking

import (
	"context"
	"errors"
	"fmt"
	"log"

	"rail-booking/internal/rail"
)

// TicketSpec is one requested seat in an order.
type TicketSpec struct {
	JourneyID int64
	Cargo     int
	Seat      int
}

func (s TicketSpec) seat() rail.Seat { return rail.Seat{Cargo: s.Cargo, Seat: s.Seat} }

// Metrics receives booking outcomes. Nil disables reporting.
type Metrics interface {
	OrderCreated(tickets int)
	OrderRejected(reason string)
}

// Events is notified after an order has been committed. Nil disables publishing.
type Events interface {
	PublishOrderCreated(o rail.Order) error
}

// Rejection reasons reported to Metrics.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonEmpty           = "empty"
	ReasonRange           = "range"
	ReasonConflict        = "conflict"
	ReasonJourney         = "journey"
	ReasonError           = "error"
)

type Service struct {
	store   Store
	metrics Metrics
	events  Events
}

func NewService(store Store, m Metrics, ev Events) *Service {
	return &Service{store: store, metrics: m, events: ev}
}

// CreateOrder books all specs for userID as one new order. Either the order and
// every ticket are committed, or nothing is. A userID <= 0 is anonymous and is
// rejected before storage is touched.
func (s *Service) CreateOrder(ctx context.Context, userID int64, specs []TicketSpec) (rail.Order, error) {
	if userID <= 0 {
		s.rejected(ReasonUnauthenticated)
		return rail.Order{}, ErrUnauthenticated
	}
	if len(specs) == 0 {
		s.rejected(ReasonEmpty)
		return rail.Order{}, ErrEmptyOrder
	}

	var order rail.Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.CreateOrder(ctx, userID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for i, spec := range specs {
			t, err := bookTicket(ctx, tx, o.ID, spec)
			if err != nil {
				var te *TicketError
				if errors.As(err, &te) {
					te.Index = i
				}
				return err
			}
			o.Tickets = append(o.Tickets, t)
		}
		order = o
		return nil
	})
	if err != nil {
		s.rejected(rejectReason(err))
		return rail.Order{}, err
	}

	log.Printf("order %d created for user %d with %d tickets", order.ID, userID, len(order.Tickets))
	if s.metrics != nil {
		s.metrics.OrderCreated(len(order.Tickets))
	}
	if s.events != nil {
		if err := s.events.PublishOrderCreated(order); err != nil {
			log.Printf("publish order %d: %v", order.ID, err)
		}
	}
	return order, nil
}

func bookTicket(ctx context.Context, tx Tx, orderID int64, spec TicketSpec) (rail.Ticket, error) {
	j, err := loadJourney(ctx, tx, spec.JourneyID)
	if err != nil {
		return rail.Ticket{}, err
	}
	fe, conflict, err := validate(ctx, tx, j, spec.seat(), 0)
	if err != nil {
		return rail.Ticket{}, err
	}
	if fe != nil {
		return rail.Ticket{}, ticketErr(0, fe, conflict)
	}
	t, err := tx.InsertTicket(ctx, rail.Ticket{JourneyID: j.ID, OrderID: orderID, Cargo: spec.Cargo, Seat: spec.Seat})
	if errors.Is(err, rail.ErrSeatTaken) {
		// lost the race after the pre-check
		return rail.Ticket{}, ticketErr(0, seatTakenError(j.ID, spec.seat()), true)
	}
	if err != nil {
		return rail.Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}
	return t, nil
}

// UpdateTicket moves an existing ticket, re-running every check a new ticket gets.
func (s *Service) UpdateTicket(ctx context.Context, id int64, spec TicketSpec) (rail.Ticket, error) {
	var out rail.Ticket
	err := s.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.Ticket(ctx, id)
		if err != nil {
			return err
		}
		j, err := loadJourney(ctx, tx, spec.JourneyID)
		if err != nil {
			return err
		}
		fe, conflict, err := validate(ctx, tx, j, spec.seat(), cur.ID)
		if err != nil {
			return err
		}
		if fe != nil {
			return ticketErr(0, fe, conflict)
		}
		cur.JourneyID, cur.Cargo, cur.Seat = j.ID, spec.Cargo, spec.Seat
		t, err := tx.UpdateTicket(ctx, cur)
		if errors.Is(err, rail.ErrSeatTaken) {
			return ticketErr(0, seatTakenError(j.ID, spec.seat()), true)
		}
		if err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		out = t
		return nil
	})
	return out, err
}

func loadJourney(ctx context.Context, tx Tx, id int64) (rail.Journey, error) {
	j, err := tx.Journey(ctx, id)
	if errors.Is(err, rail.ErrNotFound) {
		return rail.Journey{}, &TicketError{
			Field:   "journey",
			Message: fmt.Sprintf("invalid pk %q - object does not exist", fmt.Sprint(id)),
		}
	}
	if err != nil {
		return rail.Journey{}, fmt.Errorf("load journey %d: %w", id, err)
	}
	return j, nil
}

func (s *Service) rejected(reason string) {
	if s.metrics != nil {
		s.metrics.OrderRejected(reason)
	}
}

func rejectReason(err error) string {
	var te *TicketError
	if errors.As(err, &te) {
		switch {
		case te.Conflict:
			return ReasonConflict
		case te.Field == "journey":
			return ReasonJourney
		default:
			return ReasonRange
		}
	}
	return ReasonError
}
