package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"rail-booking/internal/booking"
	"rail-booking/internal/rail"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"seat", &pgconn.PgError{Code: "23505", ConstraintName: ticketSeatConstraint}, rail.ErrSeatTaken},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "stations_name_key"}, rail.ErrDuplicate},
		{"restrict", &pgconn.PgError{Code: "23503", Message: `update or delete on table "train_types" violates foreign key constraint`}, rail.ErrReferenced},
		{"dangling", &pgconn.PgError{Code: "23503", Message: `insert or update on table "routes" violates foreign key constraint`}, rail.ErrInvalidReference},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate(fmt.Errorf("wrapped: %w", tc.err))
			if !errors.Is(got, tc.want) {
				t.Fatalf("translate = %v, want %v", got, tc.want)
			}
		})
	}

	other := errors.New("boom")
	if got := translate(other); got != other {
		t.Fatalf("non-pg error changed: %v", got)
	}
	check := &pgconn.PgError{Code: "23514"}
	if got := translate(check); got != error(check) {
		t.Fatalf("unmapped code changed: %v", got)
	}
}

// openTest connects to TEST_DATABASE_URL, applying the schema on a clean slate.
func openTest(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Open(dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pool.Close() })
	if err := Ping(ctx, pool); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.ExecContext(ctx, `DROP TABLE IF EXISTS tickets, orders, journey_crew, journeys, crew, trains, train_types, routes, stations CASCADE`); err != nil {
		t.Fatal(err)
	}
	if err := Migrate(ctx, pool); err != nil {
		t.Fatal(err)
	}
	return NewStore(pool, time.UTC)
}

func TestStoreBooking(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	src, err := s.CreateStation(ctx, rail.StationInput{Name: "ST1", Latitude: 1.1, Longitude: 6.8})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := s.CreateStation(ctx, rail.StationInput{Name: "ST2", Latitude: 9.1, Longitude: 56.8})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateStation(ctx, rail.StationInput{Name: "ST1"}); !errors.Is(err, rail.ErrDuplicate) {
		t.Fatalf("duplicate station: %v", err)
	}
	route, err := s.CreateRoute(ctx, rail.RouteInput{SourceID: src.ID, DestinationID: dst.ID})
	if err != nil {
		t.Fatal(err)
	}
	tt, err := s.CreateTrainType(ctx, rail.TrainTypeInput{Name: "Express"})
	if err != nil {
		t.Fatal(err)
	}
	train, err := s.CreateTrain(ctx, rail.TrainInput{Name: "Sample train", CargoNum: 5, PlacesInCargo: 100, TrainTypeID: &tt.ID})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTrainType(ctx, tt.ID); !errors.Is(err, rail.ErrReferenced) {
		t.Fatalf("delete used train type: %v", err)
	}
	dep := time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC)
	j, err := s.CreateJourney(ctx, rail.JourneyInput{RouteID: route.ID, TrainID: train.ID, DepartureTime: dep, ArrivalTime: dep.Add(16 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}

	svc := booking.NewService(s, nil, nil)
	if _, err := svc.CreateOrder(ctx, 1, []booking.TicketSpec{{JourneyID: j.ID, Cargo: 1, Seat: 1}}); err != nil {
		t.Fatal(err)
	}

	// Only the unique constraint stands between these callers.
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(ctx, 2, []booking.TicketSpec{{JourneyID: j.ID, Cargo: 2, Seat: 7}})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}

	got, err := s.ListJourneys(ctx, rail.JourneyFilter{Date: time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].TicketCount != 2 {
		t.Fatalf("journeys on date = %+v", got)
	}
	none, err := s.ListJourneys(ctx, rail.JourneyFilter{Date: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("journeys on next day = %d", len(none))
	}

	orders, err := s.ListOrders(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 || len(orders[0].Tickets) != 1 || orders[0].Tickets[0].Journey == nil {
		t.Fatalf("orders = %+v", orders)
	}
	if _, err := s.GetOrder(ctx, 2, orders[0].ID); !errors.Is(err, rail.ErrNotFound) {
		t.Fatalf("foreign order visible: %v", err)
	}
}

func TestStoreLayoutAndFilters(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	a, _ := s.CreateStation(ctx, rail.StationInput{Name: "A"})
	b, _ := s.CreateStation(ctx, rail.StationInput{Name: "B", Latitude: 1})
	route, err := s.CreateRoute(ctx, rail.RouteInput{SourceID: a.ID, DestinationID: b.ID})
	if err != nil {
		t.Fatal(err)
	}
	tt, _ := s.CreateTrainType(ctx, rail.TrainTypeInput{Name: "Night"})
	train, err := s.CreateTrain(ctx, rail.TrainInput{Name: "Sleeper", CargoNum: 5, PlacesInCargo: 100, TrainTypeID: &tt.ID})
	if err != nil {
		t.Fatal(err)
	}
	dep := time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC)
	j, err := s.CreateJourney(ctx, rail.JourneyInput{RouteID: route.ID, TrainID: train.ID, DepartureTime: dep, ArrivalTime: dep.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := booking.NewService(s, nil, nil).CreateOrder(ctx, 1, []booking.TicketSpec{{JourneyID: j.ID, Cargo: 5, Seat: 100}}); err != nil {
		t.Fatal(err)
	}

	var fe *rail.FieldError
	_, err = s.UpdateTrain(ctx, train.ID, rail.TrainInput{Name: "Sleeper", CargoNum: 1, PlacesInCargo: 1, TrainTypeID: &tt.ID})
	if !errors.As(err, &fe) || fe.Field != "cargo_num" {
		t.Fatalf("shrink train: %v", err)
	}
	got, err := s.GetTrain(ctx, train.ID)
	if err != nil || got.CargoNum != 5 {
		t.Fatalf("train after refused update = %+v, %v", got, err)
	}

	for q, want := range map[string]int{"NIGHT": 1, "_": 0, "%": 0} {
		trains, err := s.ListTrains(ctx, rail.TrainFilter{TrainType: q})
		if err != nil {
			t.Fatal(err)
		}
		if len(trains) != want {
			t.Errorf("train_type=%q: got %d trains, want %d", q, len(trains), want)
		}
	}
}
