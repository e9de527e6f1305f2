package metrics

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	OrdersCreated  prometheus.Counter
	OrdersRejected *prometheus.CounterVec // reason label: see booking.Reason*
	TicketsBooked  prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	RateLimited prometheus.Counter

	RequestDuration *prometheus.HistogramVec // route, method, code
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rail_orders_created_total",
			Help: "Total orders committed.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rail_orders_rejected_total",
			Help: "Total order attempts rejected, by reason.",
		}, []string{"reason"}),
		TicketsBooked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rail_tickets_booked_total",
			Help: "Total tickets committed as part of an order.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rail_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rail_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rail_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rail_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rail_orders_rate_limited_total",
			Help: "Order requests refused by the rate limiter.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rail_http_request_duration_seconds",
			Help:    "Duration of API requests.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"route", "method", "code"}),
	}

	reg.MustRegister(
		c.OrdersCreated, c.OrdersRejected, c.TicketsBooked,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.RateLimited, c.RequestDuration,
	)
	return c
}

// OrderCreated and OrderRejected satisfy booking.Metrics.
func (c *Collector) OrderCreated(tickets int) {
	c.OrdersCreated.Inc()
	c.TicketsBooked.Add(float64(tickets))
}

func (c *Collector) OrderRejected(reason string) { c.OrdersRejected.WithLabelValues(reason).Inc() }

func (c *Collector) ObserveRequest(route, method string, code int, d time.Duration) {
	c.RequestDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(d.Seconds())
}

func (c *Collector) RateLimitedInc() { c.RateLimited.Inc() }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
