package rail

import (
	"strings"
	"time"
)

// Write shapes. Derived fields (distance, capacity, availability) never appear here.

type StationInput struct {
	Name      string
	Latitude  float64
	Longitude float64
}

func (in StationInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fieldErr("name", "this field may not be blank")
	}
	if in.Latitude < -90 || in.Latitude > 90 {
		return fieldErr("latitude", "must be in range [-90, 90]")
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return fieldErr("longitude", "must be in range [-180, 180]")
	}
	return nil
}

type RouteInput struct {
	SourceID      int64
	DestinationID int64
}

func (in RouteInput) Validate() error {
	if in.SourceID <= 0 {
		return fieldErr("source", "this field is required")
	}
	if in.DestinationID <= 0 {
		return fieldErr("destination", "this field is required")
	}
	return nil
}

type TrainTypeInput struct {
	Name string
}

func (in TrainTypeInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fieldErr("name", "this field may not be blank")
	}
	return nil
}

type TrainInput struct {
	Name          string
	CargoNum      int
	PlacesInCargo int
	TrainTypeID   *int64
}

func (in TrainInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fieldErr("name", "this field may not be blank")
	}
	if in.CargoNum < 1 {
		return fieldErr("cargo_num", "ensure this value is greater than or equal to 1")
	}
	if in.PlacesInCargo < 1 {
		return fieldErr("places_in_cargo", "ensure this value is greater than or equal to 1")
	}
	return nil
}

type CrewInput struct {
	FirstName string
	LastName  string
}

func (in CrewInput) Validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return fieldErr("first_name", "this field may not be blank")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return fieldErr("last_name", "this field may not be blank")
	}
	return nil
}

type JourneyInput struct {
	RouteID       int64
	TrainID       int64
	DepartureTime time.Time
	ArrivalTime   time.Time
	CrewIDs       []int64
}

func (in JourneyInput) Validate() error {
	if in.RouteID <= 0 {
		return fieldErr("route", "this field is required")
	}
	if in.TrainID <= 0 {
		return fieldErr("train", "this field is required")
	}
	if in.DepartureTime.IsZero() {
		return fieldErr("departure_time", "this field is required")
	}
	if in.ArrivalTime.IsZero() {
		return fieldErr("arrival_time", "this field is required")
	}
	if !in.ArrivalTime.After(in.DepartureTime) {
		return fieldErr("arrival_time", "arrival time must be after departure time")
	}
	return nil
}
