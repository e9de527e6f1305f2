package booking

import (
	"fmt"

	"rail-booking/internal/rail"
)

// GroupTickets builds the administrative seat map: journey label -> "cargo: N" -> ["seat: M", ...].
// Tickets are expected with Journey populated and in (journey, cargo, seat) order;
// seat order within a cargo follows the input.
func GroupTickets(tickets []rail.Ticket) map[string]map[string][]string {
	out := make(map[string]map[string][]string)
	for _, t := range tickets {
		label := fmt.Sprintf("journey %d", t.JourneyID)
		if t.Journey != nil {
			label = t.Journey.String()
		}
		cargos, ok := out[label]
		if !ok {
			cargos = make(map[string][]string)
			out[label] = cargos
		}
		key := fmt.Sprintf("cargo: %d", t.Cargo)
		cargos[key] = append(cargos[key], fmt.Sprintf("seat: %d", t.Seat))
	}
	return out
}
