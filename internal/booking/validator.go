package booking

import (
	"context"
	"fmt"

	"rail-booking/internal/rail"
)

// CheckRange validates cargo and seat against the train layout, cargo first.
func CheckRange(t rail.Train, seat rail.Seat) *rail.FieldError {
	checks := []struct {
		value int
		field string
		limit string
		max   int
	}{
		{seat.Cargo, "cargo", "cargo_num", t.CargoNum},
		{seat.Seat, "seat", "places_in_cargo", t.PlacesInCargo},
	}
	for _, c := range checks {
		if c.value < 1 || c.value > c.max {
			return &rail.FieldError{
				Field:   c.field,
				Message: fmt.Sprintf("%s number must be in available range: (1, %s): (1, %d)", c.field, c.limit, c.max),
			}
		}
	}
	return nil
}

// seatTakenError is the single shape for a lost seat, whether the pre-check or
// the storage constraint caught it.
func seatTakenError(journeyID int64, seat rail.Seat) *rail.FieldError {
	return &rail.FieldError{
		Field:   "seat",
		Message: fmt.Sprintf("cargo %d seat %d is already taken on journey %d", seat.Cargo, seat.Seat, journeyID),
	}
}

// validate runs the range checks and the uniqueness pre-check without writing.
// A nil FieldError with a nil error means the ticket may be persisted.
func validate(ctx context.Context, tx Tx, j rail.Journey, seat rail.Seat, exceptTicketID int64) (*rail.FieldError, bool, error) {
	if fe := CheckRange(j.Train, seat); fe != nil {
		return fe, false, nil
	}
	taken, err := tx.SeatTaken(ctx, j.ID, seat, exceptTicketID)
	if err != nil {
		return nil, false, fmt.Errorf("check seat: %w", err)
	}
	if taken {
		return seatTakenError(j.ID, seat), true, nil
	}
	return nil, false, nil
}
