package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"rail-booking/internal/booking"
	"rail-booking/internal/rail"
)

type seeded struct {
	s       *Store
	src     rail.Station
	route   rail.Route
	train   rail.Train
	crew    rail.Crew
	journey rail.Journey
}

func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	s := New(time.UTC)
	var d seeded
	d.s = s
	var err error
	if d.src, err = s.CreateStation(ctx, rail.StationInput{Name: "A", Latitude: 50.45, Longitude: 30.52}); err != nil {
		t.Fatal(err)
	}
	dst, err := s.CreateStation(ctx, rail.StationInput{Name: "B", Latitude: 49.84, Longitude: 24.03})
	if err != nil {
		t.Fatal(err)
	}
	if d.route, err = s.CreateRoute(ctx, rail.RouteInput{SourceID: d.src.ID, DestinationID: dst.ID}); err != nil {
		t.Fatal(err)
	}
	if d.train, err = s.CreateTrain(ctx, rail.TrainInput{Name: "Intercity", CargoNum: 2, PlacesInCargo: 3}); err != nil {
		t.Fatal(err)
	}
	if d.crew, err = s.CreateCrew(ctx, rail.CrewInput{FirstName: "Ada", LastName: "Byron"}); err != nil {
		t.Fatal(err)
	}
	dep := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	d.journey, err = s.CreateJourney(ctx, rail.JourneyInput{
		RouteID: d.route.ID, TrainID: d.train.ID, DepartureTime: dep, ArrivalTime: dep.Add(6 * time.Hour),
		CrewIDs: []int64{d.crew.ID, d.crew.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func book(t *testing.T, s *Store, user, journey int64, cargo, seat int) rail.Order {
	t.Helper()
	o, err := booking.NewService(s, nil, nil).CreateOrder(context.Background(), user,
		[]booking.TicketSpec{{JourneyID: journey, Cargo: cargo, Seat: seat}})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestUniqueness(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	if _, err := d.s.CreateStation(ctx, rail.StationInput{Name: "A"}); !errors.Is(err, rail.ErrDuplicate) {
		t.Fatalf("station name: %v", err)
	}
	if _, err := d.s.CreateRoute(ctx, rail.RouteInput{SourceID: d.route.Source.ID, DestinationID: d.route.Destination.ID}); !errors.Is(err, rail.ErrDuplicate) {
		t.Fatalf("route pair: %v", err)
	}
	// the reverse direction is a different route
	if _, err := d.s.CreateRoute(ctx, rail.RouteInput{SourceID: d.route.Destination.ID, DestinationID: d.route.Source.ID}); err != nil {
		t.Fatalf("reverse route: %v", err)
	}
	if _, err := d.s.CreateTrain(ctx, rail.TrainInput{Name: "Intercity", CargoNum: 1, PlacesInCargo: 1}); !errors.Is(err, rail.ErrDuplicate) {
		t.Fatalf("train name: %v", err)
	}
	if _, err := d.s.CreateRoute(ctx, rail.RouteInput{SourceID: 999, DestinationID: d.src.ID}); !errors.Is(err, rail.ErrInvalidReference) {
		t.Fatalf("dangling station: %v", err)
	}
}

func TestJourneyCrewDeduplicated(t *testing.T) {
	d := seed(t)
	j, err := d.s.GetJourney(context.Background(), d.journey.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(j.Crew) != 1 || j.Crew[0].FullName() != "Ada Byron" {
		t.Fatalf("crew = %+v", j.Crew)
	}
}

func TestDeleteCascades(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	o := book(t, d.s, 5, d.journey.ID, 1, 1)

	if err := d.s.DeleteStation(ctx, d.src.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := d.s.GetRoute(ctx, d.route.ID); !errors.Is(err, rail.ErrNotFound) {
		t.Fatalf("route survived: %v", err)
	}
	if _, err := d.s.GetJourney(ctx, d.journey.ID); !errors.Is(err, rail.ErrNotFound) {
		t.Fatalf("journey survived: %v", err)
	}
	if _, err := d.s.GetTicket(ctx, o.Tickets[0].ID); !errors.Is(err, rail.ErrNotFound) {
		t.Fatalf("ticket survived: %v", err)
	}
	// the order itself stays, now empty
	got, err := d.s.GetOrder(ctx, 5, o.ID)
	if err != nil || len(got.Tickets) != 0 {
		t.Fatalf("order = %+v, %v", got, err)
	}
}

func TestDeleteCrewLeavesJourney(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	if err := d.s.DeleteCrew(ctx, d.crew.ID); err != nil {
		t.Fatal(err)
	}
	j, err := d.s.GetJourney(ctx, d.journey.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(j.Crew) != 0 {
		t.Fatalf("crew = %+v", j.Crew)
	}
}

func TestTrainTypeProtected(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	tt, _ := d.s.CreateTrainType(ctx, rail.TrainTypeInput{Name: "Night"})
	in := rail.TrainInput{Name: "Intercity", CargoNum: 2, PlacesInCargo: 3, TrainTypeID: &tt.ID}
	if _, err := d.s.UpdateTrain(ctx, d.train.ID, in); err != nil {
		t.Fatal(err)
	}
	if err := d.s.DeleteTrainType(ctx, tt.ID); !errors.Is(err, rail.ErrReferenced) {
		t.Fatalf("delete used type: %v", err)
	}
	in.TrainTypeID = nil
	if _, err := d.s.UpdateTrain(ctx, d.train.ID, in); err != nil {
		t.Fatal(err)
	}
	if err := d.s.DeleteTrainType(ctx, tt.ID); err != nil {
		t.Fatalf("delete free type: %v", err)
	}
}

func TestInTxRollback(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := d.s.InTx(ctx, func(tx booking.Tx) error {
		o, err := tx.CreateOrder(ctx, 9)
		if err != nil {
			return err
		}
		if _, err := tx.InsertTicket(ctx, rail.Ticket{JourneyID: d.journey.ID, OrderID: o.ID, Cargo: 1, Seat: 1}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx = %v", err)
	}
	if orders, _ := d.s.ListOrders(ctx, 9); len(orders) != 0 {
		t.Fatalf("orders after rollback: %+v", orders)
	}
	j, _ := d.s.GetJourney(ctx, d.journey.ID)
	if j.TicketCount != 0 {
		t.Fatalf("ticket count after rollback = %d", j.TicketCount)
	}

	// the seat is free again
	book(t, d.s, 9, d.journey.ID, 1, 1)
}

func TestInsertTicketConstraint(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	book(t, d.s, 1, d.journey.ID, 2, 3)
	err := d.s.InTx(ctx, func(tx booking.Tx) error {
		o, _ := tx.CreateOrder(ctx, 2)
		_, err := tx.InsertTicket(ctx, rail.Ticket{JourneyID: d.journey.ID, OrderID: o.ID, Cargo: 2, Seat: 3})
		return err
	})
	if !errors.Is(err, rail.ErrSeatTaken) {
		t.Fatalf("InsertTicket = %v", err)
	}
}

func TestJourneyDateInZone(t *testing.T) {
	kyiv, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		t.Skip(err)
	}
	d := seed(t)
	d.s.loc = kyiv
	ctx := context.Background()
	late := time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC) // 2024-03-02 00:30 in Kyiv
	if _, err := d.s.CreateJourney(ctx, rail.JourneyInput{RouteID: d.route.ID, TrainID: d.train.ID, DepartureTime: late, ArrivalTime: late.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	got, err := d.s.ListJourneys(ctx, rail.JourneyFilter{Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].DepartureTime.Equal(late) {
		t.Fatalf("journeys on 2024-03-02 = %+v", got)
	}
}

func TestLayoutChangeKeepsSoldSeats(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	book(t, d.s, 1, d.journey.ID, 2, 3)

	shrink := rail.TrainInput{Name: "Intercity", CargoNum: 1, PlacesInCargo: 3}
	var fe *rail.FieldError
	if _, err := d.s.UpdateTrain(ctx, d.train.ID, shrink); !errors.As(err, &fe) || fe.Field != "cargo_num" {
		t.Fatalf("shrink cargo_num: %v", err)
	}
	shrink = rail.TrainInput{Name: "Intercity", CargoNum: 2, PlacesInCargo: 2}
	if _, err := d.s.UpdateTrain(ctx, d.train.ID, shrink); !errors.As(err, &fe) || fe.Field != "places_in_cargo" {
		t.Fatalf("shrink places_in_cargo: %v", err)
	}
	tr, _ := d.s.GetTrain(ctx, d.train.ID)
	if tr.CargoNum != 2 || tr.PlacesInCargo != 3 {
		t.Fatalf("train changed after refused update: %+v", tr)
	}
	if _, err := d.s.UpdateTrain(ctx, d.train.ID, rail.TrainInput{Name: "Intercity", CargoNum: 4, PlacesInCargo: 3}); err != nil {
		t.Fatalf("grow: %v", err)
	}

	small, err := d.s.CreateTrain(ctx, rail.TrainInput{Name: "Railbus", CargoNum: 1, PlacesInCargo: 10})
	if err != nil {
		t.Fatal(err)
	}
	in := rail.JourneyInput{
		RouteID: d.route.ID, TrainID: small.ID,
		DepartureTime: d.journey.DepartureTime, ArrivalTime: d.journey.ArrivalTime,
	}
	if _, err := d.s.UpdateJourney(ctx, d.journey.ID, in); !errors.As(err, &fe) || fe.Field != "train" {
		t.Fatalf("move to smaller train: %v", err)
	}
	j, _ := d.s.GetJourney(ctx, d.journey.ID)
	if j.Train.ID != d.train.ID || booking.TicketsAvailable(j) != 4*3-1 {
		t.Fatalf("journey after refused update: train=%d available=%d", j.Train.ID, booking.TicketsAvailable(j))
	}
}

func TestTrainTypeFilterIsLiteral(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	tt, _ := d.s.CreateTrainType(ctx, rail.TrainTypeInput{Name: "Night"})
	if _, err := d.s.CreateTrain(ctx, rail.TrainInput{Name: "Sleeper", CargoNum: 1, PlacesInCargo: 1, TrainTypeID: &tt.ID}); err != nil {
		t.Fatal(err)
	}
	for q, want := range map[string]int{"nIG": 1, "_": 0, "%": 0, "": 2} {
		got, err := d.s.ListTrains(ctx, rail.TrainFilter{TrainType: q})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != want {
			t.Errorf("train_type=%q: got %d trains, want %d", q, len(got), want)
		}
	}
}
