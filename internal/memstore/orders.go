package memstore

import (
	"context"
	"sort"

	"rail-booking/internal/rail"
)

func (st *state) presentTicket(t rail.Ticket) rail.Ticket {
	if j, err := st.journey(t.JourneyID, false); err == nil {
		t.Journey = &j
	}
	return t
}

// ticketsWhere returns matching tickets in (journey, cargo, seat) order.
func (st *state) ticketsWhere(keep func(rail.Ticket) bool) []rail.Ticket {
	var out []rail.Ticket
	for _, t := range st.tickets {
		if keep(t) {
			out = append(out, st.presentTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.JourneyID != b.JourneyID {
			return a.JourneyID < b.JourneyID
		}
		if a.Cargo != b.Cargo {
			return a.Cargo < b.Cargo
		}
		return a.Seat < b.Seat
	})
	return out
}

func (s *Store) ListTickets(_ context.Context) ([]rail.Ticket, error) {
	var out []rail.Ticket
	err := s.read(func(st *state) error {
		out = st.ticketsWhere(func(rail.Ticket) bool { return true })
		return nil
	})
	return out, err
}

func (s *Store) GetTicket(_ context.Context, id int64) (rail.Ticket, error) {
	var out rail.Ticket
	err := s.read(func(st *state) error {
		t, ok := st.tickets[id]
		if !ok {
			return notFound("ticket", id)
		}
		out = st.presentTicket(t)
		return nil
	})
	return out, err
}

func (s *Store) DeleteTicket(_ context.Context, id int64) error {
	return s.write(func(st *state) error {
		if _, ok := st.tickets[id]; !ok {
			return notFound("ticket", id)
		}
		st.deleteTicket(id)
		return nil
	})
}

func (st *state) order(o rail.Order) rail.Order {
	o.Tickets = st.ticketsWhere(func(t rail.Ticket) bool { return t.OrderID == o.ID })
	return o
}

// ListOrders returns only userID's orders.
func (s *Store) ListOrders(_ context.Context, userID int64) ([]rail.Order, error) {
	var out []rail.Order
	err := s.read(func(st *state) error {
		for _, id := range sortedIDs(st.orders) {
			if o := st.orders[id]; o.UserID == userID {
				out = append(out, st.order(o))
			}
		}
		return nil
	})
	return out, err
}

// GetOrder hides other users' orders behind ErrNotFound.
func (s *Store) GetOrder(_ context.Context, userID, id int64) (rail.Order, error) {
	var out rail.Order
	err := s.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.UserID != userID {
			return notFound("order", id)
		}
		out = st.order(o)
		return nil
	})
	return out, err
}

func (s *Store) DeleteOrder(_ context.Context, userID, id int64) error {
	return s.write(func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.UserID != userID {
			return notFound("order", id)
		}
		delete(st.orders, id)
		for tid, t := range st.tickets {
			if t.OrderID == id {
				st.deleteTicket(tid)
			}
		}
		return nil
	})
}
