package api

import (
	"errors"
	"log"
	"net/http"

	"rail-booking/internal/auth"
	"rail-booking/internal/booking"
	"rail-booking/internal/rail"
	"rail-booking/internal/ratelimit"
)

type ticketReq struct {
	Cargo   int   `json:"cargo"`
	Seat    int   `json:"seat"`
	Journey int64 `json:"journey"`
}

func (q ticketReq) spec() booking.TicketSpec {
	return booking.TicketSpec{JourneyID: q.Journey, Cargo: q.Cargo, Seat: q.Seat}
}

type orderReq struct {
	Tickets []ticketReq `json:"tickets"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if s.limiter != nil {
		if err := s.limiter.Allow(r.Context(), id.UserID); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				if s.metrics != nil {
					s.metrics.RateLimitedInc()
				}
				writeDetail(w, http.StatusTooManyRequests, "request was throttled")
				return
			}
			log.Printf("rate limiter unavailable, allowing order: %v", err)
		}
	}

	var req orderReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	specs := make([]booking.TicketSpec, 0, len(req.Tickets))
	for _, t := range req.Tickets {
		specs = append(specs, t.spec())
	}

	o, err := s.booking.CreateOrder(r.Context(), id.UserID, specs)
	if err != nil {
		writeOrderError(w, r, err, len(specs))
		return
	}
	// reload so tickets carry their journeys
	if full, err := s.store.GetOrder(r.Context(), id.UserID, o.ID); err == nil {
		o = full
	} else {
		log.Printf("reload order %d: %v", o.ID, err)
	}
	writeJSON(w, http.StatusCreated, s.orderOut(o))
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListOrders(r.Context(), auth.FromContext(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, each(out, s.orderOut))
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.store.GetOrder(r.Context(), auth.FromContext(r.Context()).UserID, pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.orderOut(o))
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.store.DeleteOrder(r.Context(), auth.FromContext(r.Context()).UserID, pathID(r)))
}

// listTickets is the administrative seat map grouped by journey and cargo.
func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	ts, err := s.store.ListTickets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	for i := range ts {
		if ts[i].Journey != nil {
			j := *ts[i].Journey
			j.DepartureTime = j.DepartureTime.In(s.loc)
			ts[i].Journey = &j
		}
	}
	writeJSON(w, http.StatusOK, booking.GroupTickets(ts))
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTicket(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ticketListOut(t))
}

func (s *Server) updateTicket(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var req ticketReq
	if isPatch(r) {
		cur, err := s.store.GetTicket(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req = ticketReq{Cargo: cur.Cargo, Seat: cur.Seat, Journey: cur.JourneyID}
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Journey <= 0 {
		writeError(w, r, &rail.FieldError{Field: "journey", Message: "this field is required"})
		return
	}
	t, err := s.booking.UpdateTicket(r.Context(), id, req.spec())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticketOut(t))
}

func (s *Server) deleteTicket(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.store.DeleteTicket(r.Context(), pathID(r)))
}
