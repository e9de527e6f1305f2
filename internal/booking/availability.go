package booking

import "rail-booking/internal/rail"

// TicketsAvailable is the journey's remaining sellable seats, computed from the
// train layout and the ticket count read with the journey. It is never negative.
func TicketsAvailable(j rail.Journey) int {
	n := j.Train.Capacity() - j.TicketCount
	if n < 0 {
		return 0
	}
	return n
}
