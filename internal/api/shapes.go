package api

import (
	"path"

	"rail-booking/internal/booking"
	"rail-booking/internal/rail"
)

// Response shapes differ per operation: list views are flat, detail views
// expand relations, write views echo ids.

const timeLayout = "2006-01-02 15:04"

type stationView struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func stationOut(st rail.Station) stationView {
	return stationView{ID: st.ID, Name: st.Name, Latitude: st.Latitude, Longitude: st.Longitude}
}

type routeView struct {
	ID          int64   `json:"id"`
	Source      int64   `json:"source"`
	Destination int64   `json:"destination"`
	Distance    float64 `json:"distance"`
}

type routeListView struct {
	ID          int64  `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type routeDetailView struct {
	ID          int64   `json:"id"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	DistanceKm  float64 `json:"distance_km"`
}

func routeOut(r rail.Route) routeView {
	return routeView{ID: r.ID, Source: r.Source.ID, Destination: r.Destination.ID, Distance: r.Distance()}
}

func routeListOut(r rail.Route) routeListView {
	return routeListView{ID: r.ID, Source: r.Source.Name, Destination: r.Destination.Name}
}

func routeDetailOut(r rail.Route) routeDetailView {
	return routeDetailView{ID: r.ID, Source: r.Source.Name, Destination: r.Destination.Name, DistanceKm: r.Distance()}
}

type trainTypeView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func trainTypeOut(tt rail.TrainType) trainTypeView {
	return trainTypeView{ID: tt.ID, Name: tt.Name}
}

type trainView struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CargoNum      int    `json:"cargo_num"`
	PlacesInCargo int    `json:"places_in_cargo"`
	TrainType     *int64 `json:"train_type"`
}

type trainListView struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	TrainType *string `json:"train_type"`
	Image     *string `json:"image"`
}

type trainDetailView struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	TrainType     *string `json:"train_type"`
	CargoNum      int     `json:"cargo_num"`
	PlacesInCargo int     `json:"places_in_cargo"`
	Image         *string `json:"image"`
}

type trainImageView struct {
	ID    int64   `json:"id"`
	Image *string `json:"image"`
}

// mediaURL is nil for trains without an image.
func mediaURL(p string) *string {
	if p == "" {
		return nil
	}
	u := path.Join("/media", p)
	return &u
}

func typeName(t rail.Train) *string {
	if t.TrainType == nil {
		return nil
	}
	n := t.TrainType.Name
	return &n
}

func trainOut(t rail.Train) trainView {
	v := trainView{ID: t.ID, Name: t.Name, CargoNum: t.CargoNum, PlacesInCargo: t.PlacesInCargo}
	if t.TrainType != nil {
		id := t.TrainType.ID
		v.TrainType = &id
	}
	return v
}

func trainListOut(t rail.Train) trainListView {
	return trainListView{ID: t.ID, Name: t.Name, TrainType: typeName(t), Image: mediaURL(t.Image)}
}

func trainDetailOut(t rail.Train) trainDetailView {
	return trainDetailView{
		ID: t.ID, Name: t.Name, TrainType: typeName(t),
		CargoNum: t.CargoNum, PlacesInCargo: t.PlacesInCargo, Image: mediaURL(t.Image),
	}
}

type crewView struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

type crewListView struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

func crewOut(c rail.Crew) crewView {
	return crewView{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName, FullName: c.FullName()}
}

type journeyView struct {
	ID            int64   `json:"id"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time"`
	Route         int64   `json:"route"`
	Train         int64   `json:"train"`
	Crew          []int64 `json:"crew"`
}

type journeyListView struct {
	ID               int64   `json:"id"`
	TrainName        string  `json:"train_name"`
	TrainImage       *string `json:"train_image"`
	Route            string  `json:"route"`
	DepartureTime    string  `json:"departure_time"`
	ArrivalTime      string  `json:"arrival_time"`
	TicketsAvailable int     `json:"tickets_available"`
}

type seatView struct {
	Cargo int `json:"cargo"`
	Seat  int `json:"seat"`
}

type journeyDetailView struct {
	ID               int64          `json:"id"`
	DepartureTime    string         `json:"departure_time"`
	ArrivalTime      string         `json:"arrival_time"`
	Route            string         `json:"route"`
	Train            trainListView  `json:"train"`
	TrainImage       trainImageView `json:"train_image"`
	Crew             []string       `json:"crew"`
	TakenPlaces      []seatView     `json:"taken_places"`
	TicketsAvailable int            `json:"tickets_available"`
}

func (s *Server) journeyOut(j rail.Journey) journeyView {
	v := journeyView{
		ID:            j.ID,
		DepartureTime: j.DepartureTime.In(s.loc).Format(timeLayout),
		ArrivalTime:   j.ArrivalTime.In(s.loc).Format(timeLayout),
		Route:         j.Route.ID,
		Train:         j.Train.ID,
		Crew:          make([]int64, 0, len(j.Crew)),
	}
	for _, c := range j.Crew {
		v.Crew = append(v.Crew, c.ID)
	}
	return v
}

func (s *Server) journeyListOut(j rail.Journey) journeyListView {
	return journeyListView{
		ID:               j.ID,
		TrainName:        j.Train.Name,
		TrainImage:       mediaURL(j.Train.Image),
		Route:            j.Route.Display(),
		DepartureTime:    j.DepartureTime.In(s.loc).Format(timeLayout),
		ArrivalTime:      j.ArrivalTime.In(s.loc).Format(timeLayout),
		TicketsAvailable: booking.TicketsAvailable(j),
	}
}

func (s *Server) journeyDetailOut(j rail.Journey) journeyDetailView {
	v := journeyDetailView{
		ID:               j.ID,
		DepartureTime:    j.DepartureTime.In(s.loc).Format(timeLayout),
		ArrivalTime:      j.ArrivalTime.In(s.loc).Format(timeLayout),
		Route:            j.Route.Display(),
		Train:            trainListOut(j.Train),
		TrainImage:       trainImageView{ID: j.Train.ID, Image: mediaURL(j.Train.Image)},
		Crew:             make([]string, 0, len(j.Crew)),
		TakenPlaces:      make([]seatView, 0, len(j.TakenPlaces)),
		TicketsAvailable: booking.TicketsAvailable(j),
	}
	for _, c := range j.Crew {
		v.Crew = append(v.Crew, c.FullName())
	}
	for _, p := range j.TakenPlaces {
		v.TakenPlaces = append(v.TakenPlaces, seatView{Cargo: p.Cargo, Seat: p.Seat})
	}
	return v
}

type ticketView struct {
	ID      int64 `json:"id"`
	Cargo   int   `json:"cargo"`
	Seat    int   `json:"seat"`
	Journey int64 `json:"journey"`
}

type ticketListView struct {
	ID      int64            `json:"id"`
	Cargo   int              `json:"cargo"`
	Seat    int              `json:"seat"`
	Journey *journeyListView `json:"journey"`
}

func ticketOut(t rail.Ticket) ticketView {
	return ticketView{ID: t.ID, Cargo: t.Cargo, Seat: t.Seat, Journey: t.JourneyID}
}

func (s *Server) ticketListOut(t rail.Ticket) ticketListView {
	v := ticketListView{ID: t.ID, Cargo: t.Cargo, Seat: t.Seat}
	if t.Journey != nil {
		j := s.journeyListOut(*t.Journey)
		v.Journey = &j
	}
	return v
}

type orderView struct {
	ID        int64            `json:"id"`
	Tickets   []ticketListView `json:"tickets"`
	CreatedAt string           `json:"created_at"`
}

func (s *Server) orderOut(o rail.Order) orderView {
	v := orderView{
		ID:        o.ID,
		Tickets:   make([]ticketListView, 0, len(o.Tickets)),
		CreatedAt: o.CreatedAt.In(s.loc).Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, t := range o.Tickets {
		v.Tickets = append(v.Tickets, s.ticketListOut(t))
	}
	return v
}

// each maps a slice to its view, never producing a JSON null.
func each[T, V any](in []T, f func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
