package memstore

import (
	"context"
	"fmt"
	"sort"

	"rail-booking/internal/rail"
)

func (st *state) journey(id int64, withPlaces bool) (rail.Journey, error) {
	r, ok := st.journeys[id]
	if !ok {
		return rail.Journey{}, notFound("journey", id)
	}
	route, _ := st.route(r.route)
	train, _ := st.train(r.train)
	j := rail.Journey{
		ID:            r.id,
		Route:         route,
		Train:         train,
		DepartureTime: r.departure,
		ArrivalTime:   r.arrival,
	}
	for _, cid := range r.crew {
		j.Crew = append(j.Crew, st.crew[cid])
	}
	for key := range st.seats {
		if key.journey != id {
			continue
		}
		j.TicketCount++
		if withPlaces {
			j.TakenPlaces = append(j.TakenPlaces, rail.Seat{Cargo: key.cargo, Seat: key.seat})
		}
	}
	sort.Slice(j.TakenPlaces, func(a, b int) bool {
		pa, pb := j.TakenPlaces[a], j.TakenPlaces[b]
		if pa.Cargo != pb.Cargo {
			return pa.Cargo < pb.Cargo
		}
		return pa.Seat < pb.Seat
	})
	return j, nil
}

func (st *state) checkJourney(in rail.JourneyInput) error {
	if _, ok := st.routes[in.RouteID]; !ok {
		return fmt.Errorf("%w: route %d", rail.ErrInvalidReference, in.RouteID)
	}
	if _, ok := st.trains[in.TrainID]; !ok {
		return fmt.Errorf("%w: train %d", rail.ErrInvalidReference, in.TrainID)
	}
	for _, cid := range in.CrewIDs {
		if _, ok := st.crew[cid]; !ok {
			return fmt.Errorf("%w: crew %d", rail.ErrInvalidReference, cid)
		}
	}
	return nil
}

// soldMax returns the highest cargo and seat sold on journeys matching keep.
func (st *state) soldMax(keep func(journeyRec) bool) (maxCargo, maxSeat int) {
	for key := range st.seats {
		if !keep(st.journeys[key.journey]) {
			continue
		}
		maxCargo = max(maxCargo, key.cargo)
		maxSeat = max(maxSeat, key.seat)
	}
	return maxCargo, maxSeat
}

func (st *state) deleteJourney(id int64) {
	delete(st.journeys, id)
	for tid, t := range st.tickets {
		if t.JourneyID == id {
			st.deleteTicket(tid)
		}
	}
}

func (st *state) deleteTicket(id int64) {
	t, ok := st.tickets[id]
	if !ok {
		return
	}
	delete(st.tickets, id)
	delete(st.seats, seatKey{t.JourneyID, t.Cargo, t.Seat})
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// journeyLess orders by departure descending, then train name.
func journeyLess(a, b rail.Journey) bool {
	if !a.DepartureTime.Equal(b.DepartureTime) {
		return a.DepartureTime.After(b.DepartureTime)
	}
	if a.Train.Name != b.Train.Name {
		return a.Train.Name < b.Train.Name
	}
	return a.ID < b.ID
}

func (s *Store) ListJourneys(_ context.Context, f rail.JourneyFilter) ([]rail.Journey, error) {
	var out []rail.Journey
	err := s.read(func(st *state) error {
		for id := range st.journeys {
			j, _ := st.journey(id, false)
			if f.Matches(j, s.loc) {
				out = append(out, j)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, k int) bool { return journeyLess(out[i], out[k]) })
	return out, err
}

func (s *Store) GetJourney(_ context.Context, id int64) (rail.Journey, error) {
	var out rail.Journey
	err := s.read(func(st *state) (err error) {
		out, err = st.journey(id, true)
		return err
	})
	return out, err
}

func (s *Store) CreateJourney(_ context.Context, in rail.JourneyInput) (rail.Journey, error) {
	var out rail.Journey
	err := s.write(func(st *state) error {
		if err := st.checkJourney(in); err != nil {
			return err
		}
		id := st.id()
		st.journeys[id] = journeyRec{
			id: id, route: in.RouteID, train: in.TrainID,
			departure: in.DepartureTime, arrival: in.ArrivalTime,
			crew: uniqueIDs(in.CrewIDs),
		}
		out, _ = st.journey(id, true)
		return nil
	})
	return out, err
}

func (s *Store) UpdateJourney(_ context.Context, id int64, in rail.JourneyInput) (rail.Journey, error) {
	var out rail.Journey
	err := s.write(func(st *state) error {
		if _, ok := st.journeys[id]; !ok {
			return notFound("journey", id)
		}
		if err := st.checkJourney(in); err != nil {
			return err
		}
		t := st.trains[in.TrainID]
		maxCargo, maxSeat := st.soldMax(func(j journeyRec) bool { return j.id == id })
		if rail.LayoutField(t.cargoNum, t.placesInCargo, maxCargo, maxSeat) != "" {
			return rail.LayoutError("train")
		}
		st.journeys[id] = journeyRec{
			id: id, route: in.RouteID, train: in.TrainID,
			departure: in.DepartureTime, arrival: in.ArrivalTime,
			crew: uniqueIDs(in.CrewIDs),
		}
		out, _ = st.journey(id, true)
		return nil
	})
	return out, err
}

func (s *Store) DeleteJourney(_ context.Context, id int64) error {
	return s.write(func(st *state) error {
		if _, ok := st.journeys[id]; !ok {
			return notFound("journey", id)
		}
		st.deleteJourney(id)
		return nil
	})
}
