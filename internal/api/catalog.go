package api

import (
	"net/http"

	"rail-booking/internal/rail"
)

// Request bodies. A PATCH decodes over the current values, so omitted fields
// keep them; PUT and POST start from zero.

type stationReq struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (q stationReq) input() rail.StationInput {
	return rail.StationInput{Name: q.Name, Latitude: q.Latitude, Longitude: q.Longitude}
}

type routeReq struct {
	Source      int64 `json:"source"`
	Destination int64 `json:"destination"`
}

func (q routeReq) input() rail.RouteInput {
	return rail.RouteInput{SourceID: q.Source, DestinationID: q.Destination}
}

type trainTypeReq struct {
	Name string `json:"name"`
}

type trainReq struct {
	Name          string `json:"name"`
	CargoNum      int    `json:"cargo_num"`
	PlacesInCargo int    `json:"places_in_cargo"`
	TrainType     *int64 `json:"train_type"`
}

func (q trainReq) input() rail.TrainInput {
	return rail.TrainInput{Name: q.Name, CargoNum: q.CargoNum, PlacesInCargo: q.PlacesInCargo, TrainTypeID: q.TrainType}
}

type crewReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func isPatch(r *http.Request) bool { return r.Method == http.MethodPatch }

// Stations

func (s *Server) listStations(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListStations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, each(out, stationOut))
}

func (s *Server) getStation(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetStation(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stationOut(st))
}

func (s *Server) createStation(w http.ResponseWriter, r *http.Request) {
	var req stationReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.store.CreateStation(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stationOut(st))
}

func (s *Server) updateStation(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var req stationReq
	if isPatch(r) {
		cur, err := s.store.GetStation(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req = stationReq{Name: cur.Name, Latitude: cur.Latitude, Longitude: cur.Longitude}
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.store.UpdateStation(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stationOut(st))
}

func (s *Server) deleteStation(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.store.DeleteStation(r.Context(), pathID(r)))
}

// deleted answers 204 or maps err.
func (s *Server) deleted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Routes

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListRoutes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, each(out, routeListOut))
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request) {
	rt, err := s.store.GetRoute(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routeDetailOut(rt))
}

func (s *Server) createRoute(w http.ResponseWriter, r *http.Request) {
	var req routeReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := s.store.CreateRoute(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, routeOut(rt))
}

func (s *Server) updateRoute(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var req routeReq
	if isPatch(r) {
		cur, err := s.store.GetRoute(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req = routeReq{Source: cur.Source.ID, Destination: cur.Destination.ID}
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := s.store.UpdateRoute(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routeOut(rt))
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.store.DeleteRoute(r.Context(), pathID(r)))
}

// Train types

func (s *Server) listTrainTypes(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListTrainTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, each(out, trainTypeOut))
}

func (s *Server) getTrainType(w http.ResponseWriter, r *http.Request) {
	tt, err := s.store.GetTrainType(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trainTypeOut(tt))
}

func (s *Server) createTrainType(w http.ResponseWriter, r *http.Request) {
	var req trainTypeReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := rail.TrainTypeInput{Name: req.Name}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	tt, err := s.store.CreateTrainType(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trainTypeOut(tt))
}

func (s *Server) updateTrainType(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var req trainTypeReq
	if isPatch(r) {
		cur, err := s.store.GetTrainType(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.Name = cur.Name
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := rail.TrainTypeInput{Name: req.Name}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	tt, err := s.store.UpdateTrainType(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trainTypeOut(tt))
}

// deleteTrainType is refused with 409 while trains still use the type.
func (s *Server) deleteTrainType(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.store.DeleteTrainType(r.Context(), pathID(r)))
}

// Trains

func (s *Server) listTrains(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListTrains(r.Context(), rail.ParseTrainFilter(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, each(out, trainListOut))
}

func (s *Server) getTrain(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTrain(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trainDetailOut(t))
}

func (s *Server) createTrain(w http.ResponseWriter, r *http.Request) {
	var req trainReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.store.CreateTrain(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trainOut(t))
}

func (s *Server) updateTrain(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var req trainReq
	if isPatch(r) {
		cur, err := s.store.GetTrain(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		v := trainOut(cur)
		req = trainReq{Name: v.Name, CargoNum: v.CargoNum, PlacesInCargo: v.PlacesInCargo, TrainType: v.TrainType}
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.store.UpdateTrain(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trainOut(t))
}

func (s *Server) deleteTrain(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.store.DeleteTrain(r.Context(), pathID(r)))
}

// Crew

func (s *Server) listCrew(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListCrew(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, each(out, func(c rail.Crew) crewListView {
		return crewListView{ID: c.ID, FullName: c.FullName()}
	}))
}

func (s *Server) getCrew(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCrew(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, crewOut(c))
}

func (s *Server) createCrew(w http.ResponseWriter, r *http.Request) {
	var req crewReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := rail.CrewInput{FirstName: req.FirstName, LastName: req.LastName}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.store.CreateCrew(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, crewOut(c))
}

func (s *Server) updateCrew(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var req crewReq
	if isPatch(r) {
		cur, err := s.store.GetCrew(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req = crewReq{FirstName: cur.FirstName, LastName: cur.LastName}
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := rail.CrewInput{FirstName: req.FirstName, LastName: req.LastName}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.store.UpdateCrew(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, crewOut(c))
}

func (s *Server) deleteCrew(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.store.DeleteCrew(r.Context(), pathID(r)))
}
