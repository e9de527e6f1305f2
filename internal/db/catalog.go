package db

import (
	"context"
	"database/sql"
	"fmt"

	"rail-booking/internal/rail"
)

// Stations

func (s *Store) ListStations(ctx context.Context) ([]rail.Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, latitude, longitude FROM stations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()
	var out []rail.Station
	for rows.Next() {
		var st rail.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Latitude, &st.Longitude); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) GetStation(ctx context.Context, id int64) (rail.Station, error) {
	st := rail.Station{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT name, latitude, longitude FROM stations WHERE id = $1`, id).
		Scan(&st.Name, &st.Latitude, &st.Longitude)
	if err != nil {
		return rail.Station{}, scanErr(err, "station", id)
	}
	return st, nil
}

func (s *Store) CreateStation(ctx context.Context, in rail.StationInput) (rail.Station, error) {
	st := rail.Station{Name: in.Name, Latitude: in.Latitude, Longitude: in.Longitude}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO stations (name, latitude, longitude) VALUES ($1, $2, $3) RETURNING id`,
		in.Name, in.Latitude, in.Longitude).Scan(&st.ID)
	if err != nil {
		return rail.Station{}, translate(fmt.Errorf("insert station: %w", err))
	}
	return st, nil
}

func (s *Store) UpdateStation(ctx context.Context, id int64, in rail.StationInput) (rail.Station, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE stations SET name = $2, latitude = $3, longitude = $4 WHERE id = $1`,
		id, in.Name, in.Latitude, in.Longitude)
	if err != nil {
		return rail.Station{}, translate(fmt.Errorf("update station: %w", err))
	}
	if err := mustAffect(res, "station", id); err != nil {
		return rail.Station{}, err
	}
	return rail.Station{ID: id, Name: in.Name, Latitude: in.Latitude, Longitude: in.Longitude}, nil
}

func (s *Store) DeleteStation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stations WHERE id = $1`, id)
	if err != nil {
		return translate(fmt.Errorf("delete station: %w", err))
	}
	return mustAffect(res, "station", id)
}

// Routes

const routeSelect = `
SELECT r.id, s.id, s.name, s.latitude, s.longitude, d.id, d.name, d.latitude, d.longitude
FROM routes r
JOIN stations s ON s.id = r.source_id
JOIN stations d ON d.id = r.destination_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanRoute(sc scanner) (rail.Route, error) {
	var r rail.Route
	err := sc.Scan(&r.ID,
		&r.Source.ID, &r.Source.Name, &r.Source.Latitude, &r.Source.Longitude,
		&r.Destination.ID, &r.Destination.Name, &r.Destination.Latitude, &r.Destination.Longitude)
	return r, err
}

func (s *Store) ListRoutes(ctx context.Context) ([]rail.Route, error) {
	rows, err := s.db.QueryContext(ctx, routeSelect+` ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()
	var out []rail.Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRoute(ctx context.Context, id int64) (rail.Route, error) {
	r, err := scanRoute(s.db.QueryRowContext(ctx, routeSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return rail.Route{}, scanErr(err, "route", id)
	}
	return r, nil
}

func (s *Store) CreateRoute(ctx context.Context, in rail.RouteInput) (rail.Route, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO routes (source_id, destination_id) VALUES ($1, $2) RETURNING id`,
		in.SourceID, in.DestinationID).Scan(&id)
	if err != nil {
		return rail.Route{}, translate(fmt.Errorf("insert route: %w", err))
	}
	return s.GetRoute(ctx, id)
}

func (s *Store) UpdateRoute(ctx context.Context, id int64, in rail.RouteInput) (rail.Route, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE routes SET source_id = $2, destination_id = $3 WHERE id = $1`,
		id, in.SourceID, in.DestinationID)
	if err != nil {
		return rail.Route{}, translate(fmt.Errorf("update route: %w", err))
	}
	if err := mustAffect(res, "route", id); err != nil {
		return rail.Route{}, err
	}
	return s.GetRoute(ctx, id)
}

func (s *Store) DeleteRoute(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return translate(fmt.Errorf("delete route: %w", err))
	}
	return mustAffect(res, "route", id)
}

// Train types

func (s *Store) ListTrainTypes(ctx context.Context) ([]rail.TrainType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM train_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query train types: %w", err)
	}
	defer rows.Close()
	var out []rail.TrainType
	for rows.Next() {
		var tt rail.TrainType
		if err := rows.Scan(&tt.ID, &tt.Name); err != nil {
			return nil, err
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

func (s *Store) GetTrainType(ctx context.Context, id int64) (rail.TrainType, error) {
	tt := rail.TrainType{ID: id}
	if err := s.db.QueryRowContext(ctx, `SELECT name FROM train_types WHERE id = $1`, id).Scan(&tt.Name); err != nil {
		return rail.TrainType{}, scanErr(err, "train type", id)
	}
	return tt, nil
}

func (s *Store) CreateTrainType(ctx context.Context, in rail.TrainTypeInput) (rail.TrainType, error) {
	tt := rail.TrainType{Name: in.Name}
	err := s.db.QueryRowContext(ctx, `INSERT INTO train_types (name) VALUES ($1) RETURNING id`, in.Name).Scan(&tt.ID)
	if err != nil {
		return rail.TrainType{}, translate(fmt.Errorf("insert train type: %w", err))
	}
	return tt, nil
}

func (s *Store) UpdateTrainType(ctx context.Context, id int64, in rail.TrainTypeInput) (rail.TrainType, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE train_types SET name = $2 WHERE id = $1`, id, in.Name)
	if err != nil {
		return rail.TrainType{}, translate(fmt.Errorf("update train type: %w", err))
	}
	if err := mustAffect(res, "train type", id); err != nil {
		return rail.TrainType{}, err
	}
	return rail.TrainType{ID: id, Name: in.Name}, nil
}

// DeleteTrainType relies on ON DELETE RESTRICT to refuse types still in use.
func (s *Store) DeleteTrainType(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM train_types WHERE id = $1`, id)
	if err != nil {
		return translate(fmt.Errorf("delete train type: %w", err))
	}
	return mustAffect(res, "train type", id)
}

// Trains

const trainSelect = `
SELECT t.id, t.name, t.cargo_num, t.places_in_cargo, t.image, tt.id, tt.name
FROM trains t
LEFT JOIN train_types tt ON tt.id = t.train_type_id`

func scanTrain(sc scanner) (rail.Train, error) {
	var t rail.Train
	var typeID sql.NullInt64
	var typeName sql.NullString
	if err := sc.Scan(&t.ID, &t.Name, &t.CargoNum, &t.PlacesInCargo, &t.Image, &typeID, &typeName); err != nil {
		return rail.Train{}, err
	}
	if typeID.Valid {
		t.TrainType = &rail.TrainType{ID: typeID.Int64, Name: typeName.String}
	}
	return t, nil
}

func (s *Store) ListTrains(ctx context.Context, f rail.TrainFilter) ([]rail.Train, error) {
	q := trainSelect
	var args []any
	if f.TrainType != "" {
		q += ` WHERE strpos(lower(tt.name), lower($1)) > 0`
		args = append(args, f.TrainType)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY t.name, t.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query trains: %w", err)
	}
	defer rows.Close()
	var out []rail.Train
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTrain(ctx context.Context, id int64) (rail.Train, error) {
	t, err := scanTrain(s.db.QueryRowContext(ctx, trainSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return rail.Train{}, scanErr(err, "train", id)
	}
	return t, nil
}

func (s *Store) CreateTrain(ctx context.Context, in rail.TrainInput) (rail.Train, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO trains (name, cargo_num, places_in_cargo, train_type_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.Name, in.CargoNum, in.PlacesInCargo, nullID(in.TrainTypeID)).Scan(&id)
	if err != nil {
		return rail.Train{}, translate(fmt.Errorf("insert train: %w", err))
	}
	return s.GetTrain(ctx, id)
}

func (s *Store) UpdateTrain(ctx context.Context, id int64, in rail.TrainInput) (rail.Train, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE trains SET name = $2, cargo_num = $3, places_in_cargo = $4, train_type_id = $5 WHERE id = $1`,
			id, in.Name, in.CargoNum, in.PlacesInCargo, nullID(in.TrainTypeID))
		if err != nil {
			return translate(fmt.Errorf("update train: %w", err))
		}
		if err := mustAffect(res, "train", id); err != nil {
			return err
		}
		maxCargo, maxSeat, err := soldMax(ctx, tx, `j.train_id = $1`, id)
		if err != nil {
			return err
		}
		if f := rail.LayoutField(in.CargoNum, in.PlacesInCargo, maxCargo, maxSeat); f != "" {
			return rail.LayoutError(f)
		}
		return nil
	})
	if err != nil {
		return rail.Train{}, err
	}
	return s.GetTrain(ctx, id)
}

// soldMax returns the highest cargo and seat sold on journeys matching where.
func soldMax(ctx context.Context, tx *sql.Tx, where string, args ...any) (maxCargo, maxSeat int, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(k.cargo), 0), COALESCE(MAX(k.seat), 0)
		 FROM tickets k JOIN journeys j ON j.id = k.journey_id WHERE `+where, args...).
		Scan(&maxCargo, &maxSeat)
	if err != nil {
		return 0, 0, fmt.Errorf("sold seats: %w", err)
	}
	return maxCargo, maxSeat, nil
}

func (s *Store) SetTrainImage(ctx context.Context, id int64, image string) (rail.Train, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE trains SET image = $2 WHERE id = $1`, id, image)
	if err != nil {
		return rail.Train{}, fmt.Errorf("update train image: %w", err)
	}
	if err := mustAffect(res, "train", id); err != nil {
		return rail.Train{}, err
	}
	return s.GetTrain(ctx, id)
}

func (s *Store) DeleteTrain(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trains WHERE id = $1`, id)
	if err != nil {
		return translate(fmt.Errorf("delete train: %w", err))
	}
	return mustAffect(res, "train", id)
}

func nullID(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// Crew

func (s *Store) ListCrew(ctx context.Context) ([]rail.Crew, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, first_name, last_name FROM crew ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query crew: %w", err)
	}
	defer rows.Close()
	var out []rail.Crew
	for rows.Next() {
		var c rail.Crew
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCrew(ctx context.Context, id int64) (rail.Crew, error) {
	c := rail.Crew{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT first_name, last_name FROM crew WHERE id = $1`, id).Scan(&c.FirstName, &c.LastName)
	if err != nil {
		return rail.Crew{}, scanErr(err, "crew", id)
	}
	return c, nil
}

func (s *Store) CreateCrew(ctx context.Context, in rail.CrewInput) (rail.Crew, error) {
	c := rail.Crew{FirstName: in.FirstName, LastName: in.LastName}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO crew (first_name, last_name) VALUES ($1, $2) RETURNING id`, in.FirstName, in.LastName).Scan(&c.ID)
	if err != nil {
		return rail.Crew{}, fmt.Errorf("insert crew: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateCrew(ctx context.Context, id int64, in rail.CrewInput) (rail.Crew, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE crew SET first_name = $2, last_name = $3 WHERE id = $1`, id, in.FirstName, in.LastName)
	if err != nil {
		return rail.Crew{}, fmt.Errorf("update crew: %w", err)
	}
	if err := mustAffect(res, "crew", id); err != nil {
		return rail.Crew{}, err
	}
	return rail.Crew{ID: id, FirstName: in.FirstName, LastName: in.LastName}, nil
}

func (s *Store) DeleteCrew(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM crew WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete crew: %w", err)
	}
	return mustAffect(res, "crew", id)
}
