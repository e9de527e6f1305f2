package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"rail-booking/internal/rail"
)

var inputLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02"}

// parseTime accepts RFC 3339, or a zoneless layout read in loc.
func parseTime(field, v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &rail.FieldError{
		Field:   field,
		Message: fmt.Sprintf("datetime has wrong format, use one of: YYYY-MM-DD HH:MM, YYYY-MM-DD, RFC 3339 (got %q)", v),
	}
}

type journeyReq struct {
	Route         int64   `json:"route"`
	Train         int64   `json:"train"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time"`
	Crew          []int64 `json:"crew"`
}

func (s *Server) journeyInput(q journeyReq) (rail.JourneyInput, error) {
	dep, err := parseTime("departure_time", q.DepartureTime, s.loc)
	if err != nil {
		return rail.JourneyInput{}, err
	}
	arr, err := parseTime("arrival_time", q.ArrivalTime, s.loc)
	if err != nil {
		return rail.JourneyInput{}, err
	}
	in := rail.JourneyInput{RouteID: q.Route, TrainID: q.Train, DepartureTime: dep, ArrivalTime: arr, CrewIDs: q.Crew}
	return in, in.Validate()
}

func (s *Server) listJourneys(w http.ResponseWriter, r *http.Request) {
	f, err := rail.ParseJourneyFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.store.ListJourneys(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, each(out, s.journeyListOut))
}

func (s *Server) getJourney(w http.ResponseWriter, r *http.Request) {
	j, err := s.store.GetJourney(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.journeyDetailOut(j))
}

func (s *Server) createJourney(w http.ResponseWriter, r *http.Request) {
	var req journeyReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := s.journeyInput(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	j, err := s.store.CreateJourney(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.journeyOut(j))
}

func (s *Server) updateJourney(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var req journeyReq
	if isPatch(r) {
		cur, err := s.store.GetJourney(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		v := s.journeyOut(cur)
		req = journeyReq{
			Route: v.Route, Train: v.Train, Crew: v.Crew,
			DepartureTime: cur.DepartureTime.Format(time.RFC3339),
			ArrivalTime:   cur.ArrivalTime.Format(time.RFC3339),
		}
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := s.journeyInput(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	j, err := s.store.UpdateJourney(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.journeyOut(j))
}

func (s *Server) deleteJourney(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.store.DeleteJourney(r.Context(), pathID(r)))
}
