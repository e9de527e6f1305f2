package rail

import (
	"fmt"
	"time"

	"rail-booking/internal/geo"
)

type Station struct {
	ID        int64
	Name      string
	Latitude  float64
	Longitude float64
}

// Route is an ordered (source, destination) pair of stations.
type Route struct {
	ID          int64
	Source      Station
	Destination Station
}

// Distance is the great-circle distance in kilometers between the current
// coordinates of the route's stations.
func (r Route) Distance() float64 {
	return geo.DistanceKm(r.Source.Latitude, r.Source.Longitude, r.Destination.Latitude, r.Destination.Longitude)
}

func (r Route) Display() string {
	return fmt.Sprintf("From %s to %s", r.Source.Name, r.Destination.Name)
}

type TrainType struct {
	ID   int64
	Name string
}

type Train struct {
	ID            int64
	Name          string
	CargoNum      int
	PlacesInCargo int
	TrainType     *TrainType // nil when untyped
	Image         string     // path relative to the media root, empty if none
}

// Capacity is the number of physical seats: cargo_num * places_in_cargo.
func (t Train) Capacity() int {
	return t.CargoNum * t.PlacesInCargo
}

type Crew struct {
	ID        int64
	FirstName string
	LastName  string
}

func (c Crew) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Seat is a (cargo, seat) position on a train, both 1-indexed.
type Seat struct {
	Cargo int
	Seat  int
}

type Journey struct {
	ID            int64
	Route         Route
	Train         Train
	DepartureTime time.Time
	ArrivalTime   time.Time
	Crew          []Crew

	// TicketCount is the number of tickets sold at read time.
	TicketCount int
	// TakenPlaces is only populated by single-journey reads.
	TakenPlaces []Seat
}

func (j Journey) String() string {
	return fmt.Sprintf("%s (%s)", j.Train.Name, j.DepartureTime.Format("2006-01-02 15:04"))
}

type Order struct {
	ID        int64
	UserID    int64
	CreatedAt time.Time
	Tickets   []Ticket
}

type Ticket struct {
	ID        int64
	JourneyID int64
	OrderID   int64
	Cargo     int
	Seat      int

	// Journey is filled by reads that present the ticket; writes ignore it.
	Journey *Journey
}
