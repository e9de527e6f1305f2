package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rail-booking/internal/booking"
	"rail-booking/internal/memstore"
	"rail-booking/internal/rail"
)

type fixture struct {
	store   *memstore.Store
	journey rail.Journey
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := memstore.New(time.UTC)
	src, err := s.CreateStation(ctx, rail.StationInput{Name: "ST1", Latitude: 1.1, Longitude: 6.8})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := s.CreateStation(ctx, rail.StationInput{Name: "ST2", Latitude: 9.1, Longitude: 56.8})
	if err != nil {
		t.Fatal(err)
	}
	route, err := s.CreateRoute(ctx, rail.RouteInput{SourceID: src.ID, DestinationID: dst.ID})
	if err != nil {
		t.Fatal(err)
	}
	train, err := s.CreateTrain(ctx, rail.TrainInput{Name: "Sample train", CargoNum: 5, PlacesInCargo: 100})
	if err != nil {
		t.Fatal(err)
	}
	dep := time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC)
	j, err := s.CreateJourney(ctx, rail.JourneyInput{RouteID: route.ID, TrainID: train.ID, DepartureTime: dep, ArrivalTime: dep.Add(16 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	return fixture{store: s, journey: j}
}

func (f fixture) ticketCount(t *testing.T) int {
	t.Helper()
	j, err := f.store.GetJourney(context.Background(), f.journey.ID)
	if err != nil {
		t.Fatal(err)
	}
	return j.TicketCount
}

func (f fixture) orders(t *testing.T, user int64) []rail.Order {
	t.Helper()
	os, err := f.store.ListOrders(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	return os
}

type recorder struct {
	mu       sync.Mutex
	created  int
	tickets  int
	rejected map[string]int
	orders   []rail.Order
	pubErr   error
}

func (r *recorder) OrderCreated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	r.tickets += n
}

func (r *recorder) OrderRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejected == nil {
		r.rejected = map[string]int{}
	}
	r.rejected[reason]++
}

func (r *recorder) PublishOrderCreated(o rail.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o)
	return r.pubErr
}

func TestTicketsAvailable(t *testing.T) {
	j := rail.Journey{Train: rail.Train{CargoNum: 5, PlacesInCargo: 100}, TicketCount: 3}
	if got := booking.TicketsAvailable(j); got != 497 {
		t.Fatalf("got %d, want 497", got)
	}
	j.TicketCount = 600
	if got := booking.TicketsAvailable(j); got != 0 {
		t.Fatalf("availability must not go negative, got %d", got)
	}
}

func TestCheckRange(t *testing.T) {
	train := rail.Train{CargoNum: 5, PlacesInCargo: 100}
	tests := []struct {
		seat  rail.Seat
		field string
	}{
		{rail.Seat{Cargo: 1, Seat: 1}, ""},
		{rail.Seat{Cargo: 5, Seat: 100}, ""},
		{rail.Seat{Cargo: 6, Seat: 1}, "cargo"},
		{rail.Seat{Cargo: 0, Seat: 1}, "cargo"},
		{rail.Seat{Cargo: 1, Seat: 101}, "seat"},
		{rail.Seat{Cargo: 1, Seat: 0}, "seat"},
		{rail.Seat{Cargo: 9, Seat: 900}, "cargo"},
	}
	for _, tt := range tests {
		fe := booking.CheckRange(train, tt.seat)
		got := ""
		if fe != nil {
			got = fe.Field
		}
		if got != tt.field {
			t.Errorf("%+v: got field %q, want %q", tt.seat, got, tt.field)
		}
	}

	fe := booking.CheckRange(train, rail.Seat{Cargo: 6, Seat: 1})
	want := "cargo number must be in available range: (1, cargo_num): (1, 5)"
	if fe.Message != want {
		t.Fatalf("message: got %q, want %q", fe.Message, want)
	}
}

func TestCreateOrderBooksAllTickets(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	svc := booking.NewService(f.store, rec, rec)

	o, err := svc.CreateOrder(context.Background(), 7, []booking.TicketSpec{
		{JourneyID: f.journey.ID, Cargo: 1, Seat: 1},
		{JourneyID: f.journey.ID, Cargo: 1, Seat: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.ID == 0 || o.UserID != 7 || len(o.Tickets) != 2 || o.CreatedAt.IsZero() {
		t.Fatalf("unexpected order %+v", o)
	}
	if n := f.ticketCount(t); n != 2 {
		t.Fatalf("ticket count: %d", n)
	}
	j, _ := f.store.GetJourney(context.Background(), f.journey.ID)
	if got := booking.TicketsAvailable(j); got != 498 {
		t.Fatalf("available: %d", got)
	}
	if rec.created != 1 || rec.tickets != 2 || len(rec.orders) != 1 {
		t.Fatalf("recorder: %+v", rec)
	}
}

func TestCreateOrderSameSeatTwice(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	svc := booking.NewService(f.store, rec, nil)
	seats := []booking.TicketSpec{{JourneyID: f.journey.ID, Cargo: 1, Seat: 1}}

	if _, err := svc.CreateOrder(context.Background(), 1, seats); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateOrder(context.Background(), 2, seats)
	var te *booking.TicketError
	if !errors.As(err, &te) || !te.Conflict || te.Field != "seat" || te.Index != 0 {
		t.Fatalf("expected seat conflict, got %v", err)
	}
	if os := f.orders(t, 2); len(os) != 0 {
		t.Fatalf("second call left %d orders", len(os))
	}
	if n := f.ticketCount(t); n != 1 {
		t.Fatalf("ticket count: %d", n)
	}
	if rec.rejected[booking.ReasonConflict] != 1 {
		t.Fatalf("rejections: %v", rec.rejected)
	}
}

func TestCreateOrderOutOfRangeRollsBackWholeOrder(t *testing.T) {
	f := newFixture(t)
	svc := booking.NewService(f.store, nil, nil)

	_, err := svc.CreateOrder(context.Background(), 1, []booking.TicketSpec{
		{JourneyID: f.journey.ID, Cargo: 1, Seat: 1},
		{JourneyID: f.journey.ID, Cargo: 6, Seat: 1},
	})
	var te *booking.TicketError
	if !errors.As(err, &te) || te.Index != 1 || te.Field != "cargo" || te.Conflict {
		t.Fatalf("expected cargo error on ticket 1, got %v", err)
	}
	if os := f.orders(t, 1); len(os) != 0 {
		t.Fatalf("orders persisted: %d", len(os))
	}
	if n := f.ticketCount(t); n != 0 {
		t.Fatalf("tickets persisted: %d", n)
	}
}

func TestCreateOrderDuplicateWithinOneCall(t *testing.T) {
	f := newFixture(t)
	svc := booking.NewService(f.store, nil, nil)
	_, err := svc.CreateOrder(context.Background(), 1, []booking.TicketSpec{
		{JourneyID: f.journey.ID, Cargo: 2, Seat: 3},
		{JourneyID: f.journey.ID, Cargo: 2, Seat: 3},
	})
	var te *booking.TicketError
	if !errors.As(err, &te) || te.Index != 1 || !te.Conflict {
		t.Fatalf("expected conflict on ticket 1, got %v", err)
	}
	if n := f.ticketCount(t); n != 0 {
		t.Fatalf("tickets persisted: %d", n)
	}
}

// blindStore hides existing tickets from the pre-check so only the storage
// constraint can catch a double booking.
type blindStore struct{ *memstore.Store }

func (b blindStore) InTx(ctx context.Context, fn func(booking.Tx) error) error {
	return b.Store.InTx(ctx, func(tx booking.Tx) error { return fn(blindTx{tx}) })
}

type blindTx struct{ booking.Tx }

func (blindTx) SeatTaken(context.Context, int64, rail.Seat, int64) (bool, error) { return false, nil }

func TestRaceLostLooksLikePreCheck(t *testing.T) {
	f := newFixture(t)
	seats := []booking.TicketSpec{{JourneyID: f.journey.ID, Cargo: 3, Seat: 4}}
	if _, err := booking.NewService(f.store, nil, nil).CreateOrder(context.Background(), 1, seats); err != nil {
		t.Fatal(err)
	}

	_, pre := booking.NewService(f.store, nil, nil).CreateOrder(context.Background(), 2, seats)
	_, race := booking.NewService(blindStore{f.store}, nil, nil).CreateOrder(context.Background(), 2, seats)

	var a, b *booking.TicketError
	if !errors.As(pre, &a) || !errors.As(race, &b) {
		t.Fatalf("expected ticket errors, got %v and %v", pre, race)
	}
	if *a != *b {
		t.Fatalf("pre-check %+v differs from storage rejection %+v", *a, *b)
	}
	if os := f.orders(t, 2); len(os) != 0 {
		t.Fatalf("orders persisted: %d", len(os))
	}
}

type untouchable struct{ t *testing.T }

func (u untouchable) InTx(context.Context, func(booking.Tx) error) error {
	u.t.Fatal("storage reached")
	return nil
}

func TestCreateOrderRejectsBeforeStorage(t *testing.T) {
	rec := &recorder{}
	svc := booking.NewService(untouchable{t}, rec, nil)
	if _, err := svc.CreateOrder(context.Background(), 0, []booking.TicketSpec{{JourneyID: 1, Cargo: 1, Seat: 1}}); !errors.Is(err, booking.ErrUnauthenticated) {
		t.Fatalf("anonymous: %v", err)
	}
	if _, err := svc.CreateOrder(context.Background(), 1, nil); !errors.Is(err, booking.ErrEmptyOrder) {
		t.Fatalf("empty: %v", err)
	}
	if rec.rejected[booking.ReasonUnauthenticated] != 1 || rec.rejected[booking.ReasonEmpty] != 1 {
		t.Fatalf("rejections: %v", rec.rejected)
	}
}

func TestCreateOrderUnknownJourney(t *testing.T) {
	f := newFixture(t)
	_, err := booking.NewService(f.store, nil, nil).CreateOrder(context.Background(), 1, []booking.TicketSpec{{JourneyID: 999, Cargo: 1, Seat: 1}})
	var te *booking.TicketError
	if !errors.As(err, &te) || te.Field != "journey" {
		t.Fatalf("expected journey error, got %v", err)
	}
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{pubErr: errors.New("nats down")}
	_, err := booking.NewService(f.store, nil, rec).CreateOrder(context.Background(), 1, []booking.TicketSpec{{JourneyID: f.journey.ID, Cargo: 1, Seat: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.orders) != 1 {
		t.Fatal("event not attempted")
	}
}

func TestConcurrentBookingOfOneSeat(t *testing.T) {
	f := newFixture(t)
	svc := booking.NewService(f.store, nil, nil)

	const callers = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, conflicts := 0, 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), user, []booking.TicketSpec{{JourneyID: f.journey.ID, Cargo: 5, Seat: 100}})
			mu.Lock()
			defer mu.Unlock()
			var te *booking.TicketError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &te) && te.Conflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()
	if ok != 1 || conflicts != callers-1 {
		t.Fatalf("ok=%d conflicts=%d", ok, conflicts)
	}
	j, _ := f.store.GetJourney(context.Background(), f.journey.ID)
	if got := booking.TicketsAvailable(j); got != 499 {
		t.Fatalf("available: %d", got)
	}
}

func TestUpdateTicketRevalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := booking.NewService(f.store, nil, nil)
	o, err := svc.CreateOrder(ctx, 1, []booking.TicketSpec{
		{JourneyID: f.journey.ID, Cargo: 1, Seat: 1},
		{JourneyID: f.journey.ID, Cargo: 1, Seat: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	first := o.Tickets[0]

	_, err = svc.UpdateTicket(ctx, first.ID, booking.TicketSpec{JourneyID: f.journey.ID, Cargo: 1, Seat: 101})
	var te *booking.TicketError
	if !errors.As(err, &te) || te.Field != "seat" || te.Conflict {
		t.Fatalf("expected seat range error, got %v", err)
	}

	_, err = svc.UpdateTicket(ctx, first.ID, booking.TicketSpec{JourneyID: f.journey.ID, Cargo: 1, Seat: 2})
	if !errors.As(err, &te) || !te.Conflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	// re-saving a ticket onto its own seat is not a conflict
	if _, err := svc.UpdateTicket(ctx, first.ID, booking.TicketSpec{JourneyID: f.journey.ID, Cargo: 1, Seat: 1}); err != nil {
		t.Fatalf("self update: %v", err)
	}

	moved, err := svc.UpdateTicket(ctx, first.ID, booking.TicketSpec{JourneyID: f.journey.ID, Cargo: 4, Seat: 40})
	if err != nil {
		t.Fatal(err)
	}
	if moved.Cargo != 4 || moved.Seat != 40 || moved.OrderID != o.ID {
		t.Fatalf("moved ticket: %+v", moved)
	}
	// the old seat is free again
	if _, err := svc.CreateOrder(ctx, 2, []booking.TicketSpec{{JourneyID: f.journey.ID, Cargo: 1, Seat: 1}}); err != nil {
		t.Fatalf("rebook freed seat: %v", err)
	}

	if _, err := svc.UpdateTicket(ctx, 12345, booking.TicketSpec{JourneyID: f.journey.ID, Cargo: 1, Seat: 1}); !errors.Is(err, rail.ErrNotFound) {
		t.Fatalf("missing ticket: %v", err)
	}
}

func TestGroupTickets(t *testing.T) {
	j := &rail.Journey{ID: 1, Train: rail.Train{Name: "Express"}, DepartureTime: time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC)}
	got := booking.GroupTickets([]rail.Ticket{
		{JourneyID: 1, Cargo: 1, Seat: 1, Journey: j},
		{JourneyID: 1, Cargo: 1, Seat: 2, Journey: j},
		{JourneyID: 1, Cargo: 2, Seat: 7, Journey: j},
		{JourneyID: 2, Cargo: 1, Seat: 1},
	})
	label := "Express (2024-01-11 14:00)"
	if s := fmt.Sprint(got[label]["cargo: 1"]); s != "[seat: 1 seat: 2]" {
		t.Fatalf("cargo 1: %s", s)
	}
	if s := fmt.Sprint(got[label]["cargo: 2"]); s != "[seat: 7]" {
		t.Fatalf("cargo 2: %s", s)
	}
	if _, ok := got["journey 2"]; !ok {
		t.Fatalf("unlabelled journey missing: %v", got)
	}
}
