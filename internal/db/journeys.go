package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rail-booking/internal/rail"
)

// journeySelect carries the ticket count so availability is computed from the
// same read as the journey.
const journeySelect = `
SELECT j.id, j.departure_time, j.arrival_time,
       r.id, s.id, s.name, s.latitude, s.longitude, d.id, d.name, d.latitude, d.longitude,
       t.id, t.name, t.cargo_num, t.places_in_cargo, t.image, tt.id, tt.name,
       (SELECT COUNT(*) FROM tickets k WHERE k.journey_id = j.id)
FROM journeys j
JOIN routes r ON r.id = j.route_id
JOIN stations s ON s.id = r.source_id
JOIN stations d ON d.id = r.destination_id
JOIN trains t ON t.id = j.train_id
LEFT JOIN train_types tt ON tt.id = t.train_type_id`

const journeyOrder = ` ORDER BY j.departure_time DESC, t.name, j.id`

func scanJourney(sc scanner) (rail.Journey, error) {
	var j rail.Journey
	var typeID sql.NullInt64
	var typeName sql.NullString
	r := &j.Route
	t := &j.Train
	err := sc.Scan(&j.ID, &j.DepartureTime, &j.ArrivalTime,
		&r.ID, &r.Source.ID, &r.Source.Name, &r.Source.Latitude, &r.Source.Longitude,
		&r.Destination.ID, &r.Destination.Name, &r.Destination.Latitude, &r.Destination.Longitude,
		&t.ID, &t.Name, &t.CargoNum, &t.PlacesInCargo, &t.Image, &typeID, &typeName,
		&j.TicketCount)
	if err != nil {
		return rail.Journey{}, err
	}
	if typeID.Valid {
		t.TrainType = &rail.TrainType{ID: typeID.Int64, Name: typeName.String}
	}
	return j, nil
}

func queryJourneys(ctx context.Context, q querier, where string, args ...any) ([]rail.Journey, error) {
	rows, err := q.QueryContext(ctx, journeySelect+where+journeyOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("query journeys: %w", err)
	}
	defer rows.Close()
	var out []rail.Journey
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func getJourney(ctx context.Context, q querier, id int64) (rail.Journey, error) {
	j, err := scanJourney(q.QueryRowContext(ctx, journeySelect+` WHERE j.id = $1`, id))
	if err != nil {
		return rail.Journey{}, scanErr(err, "journey", id)
	}
	return j, nil
}

// journeysByID loads the journeys for a set of ids, keyed by id.
func journeysByID(ctx context.Context, q querier, ids []int64) (map[int64]rail.Journey, error) {
	out := make(map[int64]rail.Journey, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	js, err := queryJourneys(ctx, q, ` WHERE j.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, j := range js {
		out[j.ID] = j
	}
	return out, nil
}

// ListJourneys filters by calendar date of departure in the store's zone and by train.
func (s *Store) ListJourneys(ctx context.Context, f rail.JourneyFilter) ([]rail.Journey, error) {
	where := ` WHERE TRUE`
	var args []any
	if f.HasDate() {
		y, m, d := f.Date.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
		args = append(args, start, start.AddDate(0, 0, 1))
		where += fmt.Sprintf(` AND j.departure_time >= $%d AND j.departure_time < $%d`, len(args)-1, len(args))
	}
	if f.TrainID != 0 {
		args = append(args, f.TrainID)
		where += fmt.Sprintf(` AND j.train_id = $%d`, len(args))
	}
	return queryJourneys(ctx, s.db, where, args...)
}

// GetJourney includes crew and taken places.
func (s *Store) GetJourney(ctx context.Context, id int64) (rail.Journey, error) {
	j, err := getJourney(ctx, s.db, id)
	if err != nil {
		return rail.Journey{}, err
	}
	crewRows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.first_name, c.last_name FROM journey_crew jc JOIN crew c ON c.id = jc.crew_id
		 WHERE jc.journey_id = $1 ORDER BY c.id`, id)
	if err != nil {
		return rail.Journey{}, fmt.Errorf("query journey crew: %w", err)
	}
	defer crewRows.Close()
	for crewRows.Next() {
		var c rail.Crew
		if err := crewRows.Scan(&c.ID, &c.FirstName, &c.LastName); err != nil {
			return rail.Journey{}, err
		}
		j.Crew = append(j.Crew, c)
	}
	if err := crewRows.Err(); err != nil {
		return rail.Journey{}, err
	}

	seatRows, err := s.db.QueryContext(ctx, `SELECT cargo, seat FROM tickets WHERE journey_id = $1 ORDER BY cargo, seat`, id)
	if err != nil {
		return rail.Journey{}, fmt.Errorf("query taken places: %w", err)
	}
	defer seatRows.Close()
	for seatRows.Next() {
		var p rail.Seat
		if err := seatRows.Scan(&p.Cargo, &p.Seat); err != nil {
			return rail.Journey{}, err
		}
		j.TakenPlaces = append(j.TakenPlaces, p)
	}
	return j, seatRows.Err()
}

func (s *Store) CreateJourney(ctx context.Context, in rail.JourneyInput) (rail.Journey, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO journeys (route_id, train_id, departure_time, arrival_time) VALUES ($1, $2, $3, $4) RETURNING id`,
			in.RouteID, in.TrainID, in.DepartureTime, in.ArrivalTime).Scan(&id)
		if err != nil {
			return translate(fmt.Errorf("insert journey: %w", err))
		}
		return setCrew(ctx, tx, id, in.CrewIDs)
	})
	if err != nil {
		return rail.Journey{}, err
	}
	return s.GetJourney(ctx, id)
}

func (s *Store) UpdateJourney(ctx context.Context, id int64, in rail.JourneyInput) (rail.Journey, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE journeys SET route_id = $2, train_id = $3, departure_time = $4, arrival_time = $5 WHERE id = $1`,
			id, in.RouteID, in.TrainID, in.DepartureTime, in.ArrivalTime)
		if err != nil {
			return translate(fmt.Errorf("update journey: %w", err))
		}
		if err := mustAffect(res, "journey", id); err != nil {
			return err
		}
		var cargoNum, places int
		err = tx.QueryRowContext(ctx, `SELECT cargo_num, places_in_cargo FROM trains WHERE id = $1`, in.TrainID).
			Scan(&cargoNum, &places)
		if err != nil {
			return scanErr(err, "train", in.TrainID)
		}
		maxCargo, maxSeat, err := soldMax(ctx, tx, `j.id = $1`, id)
		if err != nil {
			return err
		}
		if rail.LayoutField(cargoNum, places, maxCargo, maxSeat) != "" {
			return rail.LayoutError("train")
		}
		return setCrew(ctx, tx, id, in.CrewIDs)
	})
	if err != nil {
		return rail.Journey{}, err
	}
	return s.GetJourney(ctx, id)
}

func setCrew(ctx context.Context, tx *sql.Tx, journeyID int64, crewIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM journey_crew WHERE journey_id = $1`, journeyID); err != nil {
		return fmt.Errorf("clear journey crew: %w", err)
	}
	for _, cid := range crewIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO journey_crew (journey_id, crew_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, journeyID, cid)
		if err != nil {
			return translate(fmt.Errorf("add crew %d: %w", cid, err))
		}
	}
	return nil
}

func (s *Store) DeleteJourney(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journeys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete journey: %w", err)
	}
	return mustAffect(res, "journey", id)
}
