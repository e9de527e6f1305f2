// Package memstore is an in-process storage backend. It enforces the same
// uniqueness and referential rules as the PostgreSQL schema, and its
// transactions are all-or-nothing: a transaction works on a copy of the state
// that replaces the live state only on success. Every write copies the whole
// state, so the store suits tests and local runs rather than large data sets.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rail-booking/internal/booking"
	"rail-booking/internal/rail"
)

type seatKey struct {
	journey int64
	cargo   int
	seat    int
}

type routeRec struct {
	id, source, destination int64
}

type trainRec struct {
	id            int64
	name          string
	cargoNum      int
	placesInCargo int
	typeID        *int64
	image         string
}

type journeyRec struct {
	id, route, train int64
	departure        time.Time
	arrival          time.Time
	crew             []int64 // replaced, never mutated in place
}

type state struct {
	nextID int64

	stations   map[int64]rail.Station
	routes     map[int64]routeRec
	trainTypes map[int64]rail.TrainType
	trains     map[int64]trainRec
	crew       map[int64]rail.Crew
	journeys   map[int64]journeyRec
	orders     map[int64]rail.Order // Tickets left empty
	tickets    map[int64]rail.Ticket
	seats      map[seatKey]int64 // unique (journey, cargo, seat) -> ticket id
}

func newState() *state {
	return &state{
		stations:   map[int64]rail.Station{},
		routes:     map[int64]routeRec{},
		trainTypes: map[int64]rail.TrainType{},
		trains:     map[int64]trainRec{},
		crew:       map[int64]rail.Crew{},
		journeys:   map[int64]journeyRec{},
		orders:     map[int64]rail.Order{},
		tickets:    map[int64]rail.Ticket{},
		seats:      map[seatKey]int64{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		nextID:     s.nextID,
		stations:   cloneMap(s.stations),
		routes:     cloneMap(s.routes),
		trainTypes: cloneMap(s.trainTypes),
		trains:     cloneMap(s.trains),
		crew:       cloneMap(s.crew),
		journeys:   cloneMap(s.journeys),
		orders:     cloneMap(s.orders),
		tickets:    cloneMap(s.tickets),
		seats:      cloneMap(s.seats),
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

type Store struct {
	mu  sync.Mutex
	st  *state
	loc *time.Location
	now func() time.Time
}

// New returns an empty store; loc is the zone journey date filters use.
func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{st: newState(), loc: loc, now: time.Now}
}

// write runs fn on a copy of the state and publishes the copy if fn succeeds.
func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.st.clone()
	if err := fn(next); err != nil {
		return err
	}
	s.st = next
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// InTx serializes transactions; the seat map is the uniqueness constraint.
func (s *Store) InTx(ctx context.Context, fn func(booking.Tx) error) error {
	return s.write(func(st *state) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(&tx{st: st, now: s.now})
	})
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) Journey(_ context.Context, id int64) (rail.Journey, error) {
	return t.st.journey(id, false)
}

func (t *tx) CreateOrder(_ context.Context, userID int64) (rail.Order, error) {
	o := rail.Order{ID: t.st.id(), UserID: userID, CreatedAt: t.now().UTC()}
	t.st.orders[o.ID] = o
	return o, nil
}

func (t *tx) SeatTaken(_ context.Context, journeyID int64, seat rail.Seat, exceptTicketID int64) (bool, error) {
	id, ok := t.st.seats[seatKey{journeyID, seat.Cargo, seat.Seat}]
	return ok && id != exceptTicketID, nil
}

func (t *tx) InsertTicket(_ context.Context, tk rail.Ticket) (rail.Ticket, error) {
	if _, ok := t.st.journeys[tk.JourneyID]; !ok {
		return rail.Ticket{}, fmt.Errorf("%w: journey %d", rail.ErrInvalidReference, tk.JourneyID)
	}
	if _, ok := t.st.orders[tk.OrderID]; !ok {
		return rail.Ticket{}, fmt.Errorf("%w: order %d", rail.ErrInvalidReference, tk.OrderID)
	}
	key := seatKey{tk.JourneyID, tk.Cargo, tk.Seat}
	if _, ok := t.st.seats[key]; ok {
		return rail.Ticket{}, rail.ErrSeatTaken
	}
	tk.ID = t.st.id()
	tk.Journey = nil
	t.st.tickets[tk.ID] = tk
	t.st.seats[key] = tk.ID
	return tk, nil
}

func (t *tx) Ticket(_ context.Context, id int64) (rail.Ticket, error) {
	tk, ok := t.st.tickets[id]
	if !ok {
		return rail.Ticket{}, fmt.Errorf("ticket %d: %w", id, rail.ErrNotFound)
	}
	return tk, nil
}

func (t *tx) UpdateTicket(_ context.Context, tk rail.Ticket) (rail.Ticket, error) {
	cur, ok := t.st.tickets[tk.ID]
	if !ok {
		return rail.Ticket{}, fmt.Errorf("ticket %d: %w", tk.ID, rail.ErrNotFound)
	}
	if _, ok := t.st.journeys[tk.JourneyID]; !ok {
		return rail.Ticket{}, fmt.Errorf("%w: journey %d", rail.ErrInvalidReference, tk.JourneyID)
	}
	key := seatKey{tk.JourneyID, tk.Cargo, tk.Seat}
	if holder, ok := t.st.seats[key]; ok && holder != tk.ID {
		return rail.Ticket{}, rail.ErrSeatTaken
	}
	delete(t.st.seats, seatKey{cur.JourneyID, cur.Cargo, cur.Seat})
	tk.OrderID = cur.OrderID
	tk.Journey = nil
	t.st.tickets[tk.ID] = tk
	t.st.seats[key] = tk.ID
	return tk, nil
}
