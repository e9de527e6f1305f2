package db

import (
	"context"
	"database/sql"
	"fmt"

	"rail-booking/internal/rail"
)

const ticketSelect = `SELECT id, journey_id, order_id, cargo, seat FROM tickets`

func queryTickets(ctx context.Context, q querier, where string, args ...any) ([]rail.Ticket, error) {
	rows, err := q.QueryContext(ctx, ticketSelect+where+` ORDER BY journey_id, cargo, seat`, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()
	var out []rail.Ticket
	for rows.Next() {
		var t rail.Ticket
		if err := rows.Scan(&t.ID, &t.JourneyID, &t.OrderID, &t.Cargo, &t.Seat); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// attachJourneys fills Ticket.Journey for presentation.
func attachJourneys(ctx context.Context, q querier, ts []rail.Ticket) error {
	seen := map[int64]bool{}
	var ids []int64
	for _, t := range ts {
		if !seen[t.JourneyID] {
			seen[t.JourneyID] = true
			ids = append(ids, t.JourneyID)
		}
	}
	byID, err := journeysByID(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range ts {
		if j, ok := byID[ts[i].JourneyID]; ok {
			ts[i].Journey = &j
		}
	}
	return nil
}

func (s *Store) ListTickets(ctx context.Context) ([]rail.Ticket, error) {
	ts, err := queryTickets(ctx, s.db, "")
	if err != nil {
		return nil, err
	}
	return ts, attachJourneys(ctx, s.db, ts)
}

func (s *Store) GetTicket(ctx context.Context, id int64) (rail.Ticket, error) {
	t, err := getTicket(ctx, s.db, id)
	if err != nil {
		return rail.Ticket{}, err
	}
	j, err := getJourney(ctx, s.db, t.JourneyID)
	if err != nil {
		return rail.Ticket{}, err
	}
	t.Journey = &j
	return t, nil
}

func getTicket(ctx context.Context, q querier, id int64) (rail.Ticket, error) {
	var t rail.Ticket
	err := q.QueryRowContext(ctx, ticketSelect+` WHERE id = $1`, id).
		Scan(&t.ID, &t.JourneyID, &t.OrderID, &t.Cargo, &t.Seat)
	if err != nil {
		return rail.Ticket{}, scanErr(err, "ticket", id)
	}
	return t, nil
}

func (s *Store) DeleteTicket(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return mustAffect(res, "ticket", id)
}

// ListOrders returns only userID's orders, oldest first.
func (s *Store) ListOrders(ctx context.Context, userID int64) ([]rail.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, created_at FROM orders WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()
	var out []rail.Order
	for rows.Next() {
		var o rail.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ts, err := queryTickets(ctx, s.db, ` WHERE order_id IN (SELECT id FROM orders WHERE user_id = $1)`, userID)
	if err != nil {
		return nil, err
	}
	if err := attachJourneys(ctx, s.db, ts); err != nil {
		return nil, err
	}
	idx := make(map[int64]int, len(out))
	for i, o := range out {
		idx[o.ID] = i
	}
	for _, t := range ts {
		if i, ok := idx[t.OrderID]; ok {
			out[i].Tickets = append(out[i].Tickets, t)
		}
	}
	return out, nil
}

// GetOrder hides other users' orders behind rail.ErrNotFound.
func (s *Store) GetOrder(ctx context.Context, userID, id int64) (rail.Order, error) {
	var o rail.Order
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM orders WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&o.ID, &o.UserID, &o.CreatedAt)
	if err != nil {
		return rail.Order{}, scanErr(err, "order", id)
	}
	ts, err := queryTickets(ctx, s.db, ` WHERE order_id = $1`, id)
	if err != nil {
		return rail.Order{}, err
	}
	if err := attachJourneys(ctx, s.db, ts); err != nil {
		return rail.Order{}, err
	}
	o.Tickets = ts
	return o, nil
}

func (s *Store) DeleteOrder(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return mustAffect(res, "order", id)
}

// pgTx is the booking view of one database transaction. The seat pre-check in
// SeatTaken is advisory; tickets_journey_cargo_seat_key is what decides.
type pgTx struct {
	q *sql.Tx
}

// Journey share-locks the journey and its train so their layout cannot
// change before the transaction's tickets are written.
func (t *pgTx) Journey(ctx context.Context, id int64) (rail.Journey, error) {
	var trainID int64
	err := t.q.QueryRowContext(ctx, `SELECT train_id FROM journeys WHERE id = $1 FOR SHARE`, id).Scan(&trainID)
	if err != nil {
		return rail.Journey{}, scanErr(err, "journey", id)
	}
	if _, err := t.q.ExecContext(ctx, `SELECT 1 FROM trains WHERE id = $1 FOR SHARE`, trainID); err != nil {
		return rail.Journey{}, fmt.Errorf("lock train %d: %w", trainID, err)
	}
	return getJourney(ctx, t.q, id)
}

func (t *pgTx) CreateOrder(ctx context.Context, userID int64) (rail.Order, error) {
	o := rail.Order{UserID: userID}
	err := t.q.QueryRowContext(ctx,
		`INSERT INTO orders (user_id) VALUES ($1) RETURNING id, created_at`, userID).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return rail.Order{}, translate(fmt.Errorf("insert order: %w", err))
	}
	return o, nil
}

func (t *pgTx) SeatTaken(ctx context.Context, journeyID int64, seat rail.Seat, exceptTicketID int64) (bool, error) {
	var taken bool
	err := t.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE journey_id = $1 AND cargo = $2 AND seat = $3 AND id <> $4)`,
		journeyID, seat.Cargo, seat.Seat, exceptTicketID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check seat: %w", err)
	}
	return taken, nil
}

func (t *pgTx) InsertTicket(ctx context.Context, tk rail.Ticket) (rail.Ticket, error) {
	err := t.q.QueryRowContext(ctx,
		`INSERT INTO tickets (journey_id, order_id, cargo, seat) VALUES ($1, $2, $3, $4) RETURNING id`,
		tk.JourneyID, tk.OrderID, tk.Cargo, tk.Seat).Scan(&tk.ID)
	if err != nil {
		return rail.Ticket{}, translate(fmt.Errorf("insert ticket: %w", err))
	}
	tk.Journey = nil
	return tk, nil
}

func (t *pgTx) Ticket(ctx context.Context, id int64) (rail.Ticket, error) {
	return getTicket(ctx, t.q, id)
}

func (t *pgTx) UpdateTicket(ctx context.Context, tk rail.Ticket) (rail.Ticket, error) {
	err := t.q.QueryRowContext(ctx,
		`UPDATE tickets SET journey_id = $2, cargo = $3, seat = $4 WHERE id = $1 RETURNING order_id`,
		tk.ID, tk.JourneyID, tk.Cargo, tk.Seat).Scan(&tk.OrderID)
	if err != nil {
		return rail.Ticket{}, scanErr(fmt.Errorf("update ticket: %w", err), "ticket", tk.ID)
	}
	tk.Journey = nil
	return tk, nil
}
