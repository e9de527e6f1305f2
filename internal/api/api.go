// Package api is the REST surface of the booking service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rail-booking/internal/auth"
	"rail-booking/internal/booking"
	"rail-booking/internal/rail"
)

// Store is everything the handlers read and write. Both db.Store and
// memstore.Store satisfy it.
type Store interface {
	booking.Store

	ListStations(ctx context.Context) ([]rail.Station, error)
	GetStation(ctx context.Context, id int64) (rail.Station, error)
	CreateStation(ctx context.Context, in rail.StationInput) (rail.Station, error)
	UpdateStation(ctx context.Context, id int64, in rail.StationInput) (rail.Station, error)
	DeleteStation(ctx context.Context, id int64) error

	ListRoutes(ctx context.Context) ([]rail.Route, error)
	GetRoute(ctx context.Context, id int64) (rail.Route, error)
	CreateRoute(ctx context.Context, in rail.RouteInput) (rail.Route, error)
	UpdateRoute(ctx context.Context, id int64, in rail.RouteInput) (rail.Route, error)
	DeleteRoute(ctx context.Context, id int64) error

	ListTrainTypes(ctx context.Context) ([]rail.TrainType, error)
	GetTrainType(ctx context.Context, id int64) (rail.TrainType, error)
	CreateTrainType(ctx context.Context, in rail.TrainTypeInput) (rail.TrainType, error)
	UpdateTrainType(ctx context.Context, id int64, in rail.TrainTypeInput) (rail.TrainType, error)
	DeleteTrainType(ctx context.Context, id int64) error

	ListTrains(ctx context.Context, f rail.TrainFilter) ([]rail.Train, error)
	GetTrain(ctx context.Context, id int64) (rail.Train, error)
	CreateTrain(ctx context.Context, in rail.TrainInput) (rail.Train, error)
	UpdateTrain(ctx context.Context, id int64, in rail.TrainInput) (rail.Train, error)
	SetTrainImage(ctx context.Context, id int64, image string) (rail.Train, error)
	DeleteTrain(ctx context.Context, id int64) error

	ListCrew(ctx context.Context) ([]rail.Crew, error)
	GetCrew(ctx context.Context, id int64) (rail.Crew, error)
	CreateCrew(ctx context.Context, in rail.CrewInput) (rail.Crew, error)
	UpdateCrew(ctx context.Context, id int64, in rail.CrewInput) (rail.Crew, error)
	DeleteCrew(ctx context.Context, id int64) error

	ListJourneys(ctx context.Context, f rail.JourneyFilter) ([]rail.Journey, error)
	GetJourney(ctx context.Context, id int64) (rail.Journey, error)
	CreateJourney(ctx context.Context, in rail.JourneyInput) (rail.Journey, error)
	UpdateJourney(ctx context.Context, id int64, in rail.JourneyInput) (rail.Journey, error)
	DeleteJourney(ctx context.Context, id int64) error

	ListTickets(ctx context.Context) ([]rail.Ticket, error)
	GetTicket(ctx context.Context, id int64) (rail.Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error

	ListOrders(ctx context.Context, userID int64) ([]rail.Order, error)
	GetOrder(ctx context.Context, userID, id int64) (rail.Order, error)
	DeleteOrder(ctx context.Context, userID, id int64) error
}

// Limiter throttles order creation per user. Nil disables it.
type Limiter interface {
	Allow(ctx context.Context, userID int64) error
}

// Metrics observes requests. Nil disables it.
type Metrics interface {
	ObserveRequest(route, method string, code int, d time.Duration)
	RateLimitedInc()
}

type Options struct {
	Store          Store
	Booking        *booking.Service
	Authenticator  *auth.Authenticator
	Authorizer     *auth.Authorizer
	Limiter        Limiter
	Metrics        Metrics
	Location       *time.Location
	MediaRoot      string
	MaxUploadBytes int64
}

type Server struct {
	store     Store
	booking   *booking.Service
	authn     *auth.Authenticator
	authz     *auth.Authorizer
	limiter   Limiter
	metrics   Metrics
	loc       *time.Location
	mediaRoot string
	maxUpload int64
}

func NewServer(o Options) *Server {
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	maxUpload := o.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &Server{
		store:     o.Store,
		booking:   o.Booking,
		authn:     o.Authenticator,
		authz:     o.Authorizer,
		limiter:   o.Limiter,
		metrics:   o.Metrics,
		loc:       loc,
		mediaRoot: o.MediaRoot,
		maxUpload: maxUpload,
	}
}

const idPath = "/{id:[0-9]+}"

// Handler builds the router. Everything under /api/station passes through
// authentication and the access policy; /media is public.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.observe)
	if s.mediaRoot != "" {
		r.PathPrefix("/media/").Handler(http.StripPrefix("/media/", http.FileServer(http.Dir(s.mediaRoot))))
	}

	api := r.PathPrefix("/api/station").Subrouter()
	api.Use(s.authenticate)

	s.resource(api, "stations", crud{
		list: s.listStations, create: s.createStation,
		get: s.getStation, update: s.updateStation, del: s.deleteStation,
	})
	s.resource(api, "routes", crud{
		list: s.listRoutes, create: s.createRoute,
		get: s.getRoute, update: s.updateRoute, del: s.deleteRoute,
	})
	s.resource(api, "train_types", crud{
		list: s.listTrainTypes, create: s.createTrainType,
		get: s.getTrainType, update: s.updateTrainType, del: s.deleteTrainType,
	})
	s.resource(api, "trains", crud{
		list: s.listTrains, create: s.createTrain,
		get: s.getTrain, update: s.updateTrain, del: s.deleteTrain,
	})
	api.Handle("/trains"+idPath+"/upload-image", s.allow("train_image", s.uploadTrainImage)).Methods(http.MethodPost)
	s.resource(api, "crew", crud{
		list: s.listCrew, create: s.createCrew,
		get: s.getCrew, update: s.updateCrew, del: s.deleteCrew,
	})
	s.resource(api, "journeys", crud{
		list: s.listJourneys, create: s.createJourney,
		get: s.getJourney, update: s.updateJourney, del: s.deleteJourney,
	})
	s.resource(api, "tickets", crud{
		list: s.listTickets, get: s.getTicket, update: s.updateTicket, del: s.deleteTicket,
	})
	s.resource(api, "orders", crud{
		list: s.listOrders, create: s.createOrder, get: s.getOrder, del: s.deleteOrder,
	})
	return r
}

type crud struct {
	list, create, get, update, del http.HandlerFunc
}

// resource mounts collection and detail routes; nil handlers are not routed.
func (s *Server) resource(r *mux.Router, name string, h crud) {
	base := "/" + name
	if h.list != nil {
		r.Handle(base, s.allow(name, h.list)).Methods(http.MethodGet)
	}
	if h.create != nil {
		r.Handle(base, s.allow(name, h.create)).Methods(http.MethodPost)
	}
	if h.get != nil {
		r.Handle(base+idPath, s.allow(name, h.get)).Methods(http.MethodGet)
	}
	if h.update != nil {
		r.Handle(base+idPath, s.allow(name, h.update)).Methods(http.MethodPut, http.MethodPatch)
	}
	if h.del != nil {
		r.Handle(base+idPath, s.allow(name, h.del)).Methods(http.MethodDelete)
	}
}
