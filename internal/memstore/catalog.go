package memstore

import (
	"context"
	"fmt"
	"sort"

	"rail-booking/internal/rail"
)

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, rail.ErrNotFound)
}

// Stations

func (st *state) station(id int64) (rail.Station, error) {
	s, ok := st.stations[id]
	if !ok {
		return rail.Station{}, notFound("station", id)
	}
	return s, nil
}

func (st *state) stationNameTaken(name string, except int64) bool {
	for id, s := range st.stations {
		if id != except && s.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) ListStations(_ context.Context) ([]rail.Station, error) {
	var out []rail.Station
	err := s.read(func(st *state) error {
		for _, id := range sortedIDs(st.stations) {
			out = append(out, st.stations[id])
		}
		return nil
	})
	return out, err
}

func (s *Store) GetStation(_ context.Context, id int64) (rail.Station, error) {
	var out rail.Station
	err := s.read(func(st *state) (err error) {
		out, err = st.station(id)
		return err
	})
	return out, err
}

func (s *Store) CreateStation(_ context.Context, in rail.StationInput) (rail.Station, error) {
	var out rail.Station
	err := s.write(func(st *state) error {
		if st.stationNameTaken(in.Name, 0) {
			return fmt.Errorf("station %q: %w", in.Name, rail.ErrDuplicate)
		}
		out = rail.Station{ID: st.id(), Name: in.Name, Latitude: in.Latitude, Longitude: in.Longitude}
		st.stations[out.ID] = out
		return nil
	})
	return out, err
}

func (s *Store) UpdateStation(_ context.Context, id int64, in rail.StationInput) (rail.Station, error) {
	var out rail.Station
	err := s.write(func(st *state) error {
		if _, err := st.station(id); err != nil {
			return err
		}
		if st.stationNameTaken(in.Name, id) {
			return fmt.Errorf("station %q: %w", in.Name, rail.ErrDuplicate)
		}
		out = rail.Station{ID: id, Name: in.Name, Latitude: in.Latitude, Longitude: in.Longitude}
		st.stations[id] = out
		return nil
	})
	return out, err
}

func (s *Store) DeleteStation(_ context.Context, id int64) error {
	return s.write(func(st *state) error {
		if _, err := st.station(id); err != nil {
			return err
		}
		delete(st.stations, id)
		for rid, r := range st.routes {
			if r.source == id || r.destination == id {
				st.deleteRoute(rid)
			}
		}
		return nil
	})
}

// Routes

func (st *state) route(id int64) (rail.Route, error) {
	r, ok := st.routes[id]
	if !ok {
		return rail.Route{}, notFound("route", id)
	}
	return rail.Route{ID: r.id, Source: st.stations[r.source], Destination: st.stations[r.destination]}, nil
}

func (st *state) checkRoute(id int64, in rail.RouteInput) error {
	for _, sid := range []int64{in.SourceID, in.DestinationID} {
		if _, ok := st.stations[sid]; !ok {
			return fmt.Errorf("%w: station %d", rail.ErrInvalidReference, sid)
		}
	}
	for rid, r := range st.routes {
		if rid != id && r.source == in.SourceID && r.destination == in.DestinationID {
			return fmt.Errorf("route %d->%d: %w", in.SourceID, in.DestinationID, rail.ErrDuplicate)
		}
	}
	return nil
}

func (st *state) deleteRoute(id int64) {
	delete(st.routes, id)
	for jid, j := range st.journeys {
		if j.route == id {
			st.deleteJourney(jid)
		}
	}
}

func (s *Store) ListRoutes(_ context.Context) ([]rail.Route, error) {
	var out []rail.Route
	err := s.read(func(st *state) error {
		for _, id := range sortedIDs(st.routes) {
			r, _ := st.route(id)
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (s *Store) GetRoute(_ context.Context, id int64) (rail.Route, error) {
	var out rail.Route
	err := s.read(func(st *state) (err error) {
		out, err = st.route(id)
		return err
	})
	return out, err
}

func (s *Store) CreateRoute(_ context.Context, in rail.RouteInput) (rail.Route, error) {
	var out rail.Route
	err := s.write(func(st *state) error {
		if err := st.checkRoute(0, in); err != nil {
			return err
		}
		id := st.id()
		st.routes[id] = routeRec{id: id, source: in.SourceID, destination: in.DestinationID}
		out, _ = st.route(id)
		return nil
	})
	return out, err
}

func (s *Store) UpdateRoute(_ context.Context, id int64, in rail.RouteInput) (rail.Route, error) {
	var out rail.Route
	err := s.write(func(st *state) error {
		if _, ok := st.routes[id]; !ok {
			return notFound("route", id)
		}
		if err := st.checkRoute(id, in); err != nil {
			return err
		}
		st.routes[id] = routeRec{id: id, source: in.SourceID, destination: in.DestinationID}
		out, _ = st.route(id)
		return nil
	})
	return out, err
}

func (s *Store) DeleteRoute(_ context.Context, id int64) error {
	return s.write(func(st *state) error {
		if _, ok := st.routes[id]; !ok {
			return notFound("route", id)
		}
		st.deleteRoute(id)
		return nil
	})
}

// Train types

func (st *state) trainTypeNameTaken(name string, except int64) bool {
	for id, tt := range st.trainTypes {
		if id != except && tt.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) ListTrainTypes(_ context.Context) ([]rail.TrainType, error) {
	var out []rail.TrainType
	err := s.read(func(st *state) error {
		for _, id := range sortedIDs(st.trainTypes) {
			out = append(out, st.trainTypes[id])
		}
		return nil
	})
	return out, err
}

func (s *Store) GetTrainType(_ context.Context, id int64) (rail.TrainType, error) {
	var out rail.TrainType
	err := s.read(func(st *state) error {
		tt, ok := st.trainTypes[id]
		if !ok {
			return notFound("train type", id)
		}
		out = tt
		return nil
	})
	return out, err
}

func (s *Store) CreateTrainType(_ context.Context, in rail.TrainTypeInput) (rail.TrainType, error) {
	var out rail.TrainType
	err := s.write(func(st *state) error {
		if st.trainTypeNameTaken(in.Name, 0) {
			return fmt.Errorf("train type %q: %w", in.Name, rail.ErrDuplicate)
		}
		out = rail.TrainType{ID: st.id(), Name: in.Name}
		st.trainTypes[out.ID] = out
		return nil
	})
	return out, err
}

func (s *Store) UpdateTrainType(_ context.Context, id int64, in rail.TrainTypeInput) (rail.TrainType, error) {
	var out rail.TrainType
	err := s.write(func(st *state) error {
		if _, ok := st.trainTypes[id]; !ok {
			return notFound("train type", id)
		}
		if st.trainTypeNameTaken(in.Name, id) {
			return fmt.Errorf("train type %q: %w", in.Name, rail.ErrDuplicate)
		}
		out = rail.TrainType{ID: id, Name: in.Name}
		st.trainTypes[id] = out
		return nil
	})
	return out, err
}

// DeleteTrainType refuses while any train still has the type.
func (s *Store) DeleteTrainType(_ context.Context, id int64) error {
	return s.write(func(st *state) error {
		if _, ok := st.trainTypes[id]; !ok {
			return notFound("train type", id)
		}
		for _, t := range st.trains {
			if t.typeID != nil && *t.typeID == id {
				return fmt.Errorf("train type %d used by train %q: %w", id, t.name, rail.ErrReferenced)
			}
		}
		delete(st.trainTypes, id)
		return nil
	})
}

// Trains

func (st *state) train(id int64) (rail.Train, error) {
	r, ok := st.trains[id]
	if !ok {
		return rail.Train{}, notFound("train", id)
	}
	t := rail.Train{ID: r.id, Name: r.name, CargoNum: r.cargoNum, PlacesInCargo: r.placesInCargo, Image: r.image}
	if r.typeID != nil {
		tt := st.trainTypes[*r.typeID]
		t.TrainType = &tt
	}
	return t, nil
}

func (st *state) checkTrain(id int64, in rail.TrainInput) error {
	for tid, t := range st.trains {
		if tid != id && t.name == in.Name {
			return fmt.Errorf("train %q: %w", in.Name, rail.ErrDuplicate)
		}
	}
	if in.TrainTypeID != nil {
		if _, ok := st.trainTypes[*in.TrainTypeID]; !ok {
			return fmt.Errorf("%w: train type %d", rail.ErrInvalidReference, *in.TrainTypeID)
		}
	}
	return nil
}

func (s *Store) ListTrains(_ context.Context, f rail.TrainFilter) ([]rail.Train, error) {
	var out []rail.Train
	err := s.read(func(st *state) error {
		for _, id := range sortedIDs(st.trains) {
			t, _ := st.train(id)
			if f.Matches(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (s *Store) GetTrain(_ context.Context, id int64) (rail.Train, error) {
	var out rail.Train
	err := s.read(func(st *state) (err error) {
		out, err = st.train(id)
		return err
	})
	return out, err
}

func (s *Store) CreateTrain(_ context.Context, in rail.TrainInput) (rail.Train, error) {
	var out rail.Train
	err := s.write(func(st *state) error {
		if err := st.checkTrain(0, in); err != nil {
			return err
		}
		id := st.id()
		st.trains[id] = trainRec{id: id, name: in.Name, cargoNum: in.CargoNum, placesInCargo: in.PlacesInCargo, typeID: copyID(in.TrainTypeID)}
		out, _ = st.train(id)
		return nil
	})
	return out, err
}

func (s *Store) UpdateTrain(_ context.Context, id int64, in rail.TrainInput) (rail.Train, error) {
	var out rail.Train
	err := s.write(func(st *state) error {
		cur, ok := st.trains[id]
		if !ok {
			return notFound("train", id)
		}
		if err := st.checkTrain(id, in); err != nil {
			return err
		}
		maxCargo, maxSeat := st.soldMax(func(j journeyRec) bool { return j.train == id })
		if f := rail.LayoutField(in.CargoNum, in.PlacesInCargo, maxCargo, maxSeat); f != "" {
			return rail.LayoutError(f)
		}
		st.trains[id] = trainRec{id: id, name: in.Name, cargoNum: in.CargoNum, placesInCargo: in.PlacesInCargo, typeID: copyID(in.TrainTypeID), image: cur.image}
		out, _ = st.train(id)
		return nil
	})
	return out, err
}

func (s *Store) SetTrainImage(_ context.Context, id int64, image string) (rail.Train, error) {
	var out rail.Train
	err := s.write(func(st *state) error {
		cur, ok := st.trains[id]
		if !ok {
			return notFound("train", id)
		}
		cur.image = image
		st.trains[id] = cur
		out, _ = st.train(id)
		return nil
	})
	return out, err
}

func (s *Store) DeleteTrain(_ context.Context, id int64) error {
	return s.write(func(st *state) error {
		if _, ok := st.trains[id]; !ok {
			return notFound("train", id)
		}
		delete(st.trains, id)
		for jid, j := range st.journeys {
			if j.train == id {
				st.deleteJourney(jid)
			}
		}
		return nil
	})
}

func copyID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Crew

func (s *Store) ListCrew(_ context.Context) ([]rail.Crew, error) {
	var out []rail.Crew
	err := s.read(func(st *state) error {
		for _, id := range sortedIDs(st.crew) {
			out = append(out, st.crew[id])
		}
		return nil
	})
	return out, err
}

func (s *Store) GetCrew(_ context.Context, id int64) (rail.Crew, error) {
	var out rail.Crew
	err := s.read(func(st *state) error {
		c, ok := st.crew[id]
		if !ok {
			return notFound("crew", id)
		}
		out = c
		return nil
	})
	return out, err
}

func (s *Store) CreateCrew(_ context.Context, in rail.CrewInput) (rail.Crew, error) {
	var out rail.Crew
	err := s.write(func(st *state) error {
		out = rail.Crew{ID: st.id(), FirstName: in.FirstName, LastName: in.LastName}
		st.crew[out.ID] = out
		return nil
	})
	return out, err
}

func (s *Store) UpdateCrew(_ context.Context, id int64, in rail.CrewInput) (rail.Crew, error) {
	var out rail.Crew
	err := s.write(func(st *state) error {
		if _, ok := st.crew[id]; !ok {
			return notFound("crew", id)
		}
		out = rail.Crew{ID: id, FirstName: in.FirstName, LastName: in.LastName}
		st.crew[id] = out
		return nil
	})
	return out, err
}

// DeleteCrew drops the member from every journey's crew set.
func (s *Store) DeleteCrew(_ context.Context, id int64) error {
	return s.write(func(st *state) error {
		if _, ok := st.crew[id]; !ok {
			return notFound("crew", id)
		}
		delete(st.crew, id)
		for jid, j := range st.journeys {
			kept := make([]int64, 0, len(j.crew))
			for _, cid := range j.crew {
				if cid != id {
					kept = append(kept, cid)
				}
			}
			if len(kept) != len(j.crew) {
				j.crew = kept
				st.journeys[jid] = j
			}
		}
		return nil
	})
}
