package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"rail-booking/internal/api"
	"rail-booking/internal/auth"
	"rail-booking/internal/booking"
	"rail-booking/internal/config"
	"rail-booking/internal/db"
	"rail-booking/internal/memstore"
	"rail-booking/internal/metrics"
	"rail-booking/internal/publisher"
	"rail-booking/internal/ratelimit"
	"rail-booking/internal/tlsconf"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Storage
	var store api.Store
	switch cfg.Store {
	case "memory":
		store = memstore.New(cfg.Location)
		log.Printf("using in-memory store")
	default:
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer sqlDB.Close()
		if err := db.Ping(ctx, sqlDB); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(ctx, sqlDB); err != nil {
				log.Fatalf("db migrate error: %v", err)
			}
		}
		store = db.NewStore(sqlDB, cfg.Location)
	}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector()
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Order events are optional
	var events booking.Events
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		events = pub
	}

	// Order rate limiting is optional
	var limiter api.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis ping failed, limiter will allow requests until it recovers: %v", err)
		}
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.OrderRateLimit, cfg.OrderRateWindow)
	}

	authz, err := auth.NewAuthorizer(ctx)
	if err != nil {
		log.Fatalf("policy error: %v", err)
	}

	opts := api.Options{
		Store:          store,
		Booking:        booking.NewService(store, bookingMetrics(mcol), events),
		Authenticator:  auth.NewAuthenticator(cfg.JWTSecret),
		Authorizer:     authz,
		Limiter:        limiter,
		Location:       cfg.Location,
		MediaRoot:      cfg.MediaRoot,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if mcol != nil {
		opts.Metrics = mcol
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(opts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.TLSEnabled() {
		tlsCfg, err := tlsconf.ServerConfig(cfg.SpiffeCert, cfg.SpiffeKey, cfg.SpiffeBundle, cfg.SpiffeTrustDomain)
		if err != nil {
			log.Fatalf("tls error: %v", err)
		}
		server.TLSConfig = tlsCfg
	}

	go func() {
		var err error
		if server.TLSConfig != nil {
			log.Printf("api listening on %s (mTLS, trust domain %s)", cfg.HTTPAddr, cfg.SpiffeTrustDomain)
			err = server.ListenAndServeTLS("", "")
		} else {
			log.Printf("api listening on %s", cfg.HTTPAddr)
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api server error: %v", err)
			cancel()
		}
	}()

	// Block until context cancelled
	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown: %v", err)
	}
	log.Println("shutdown complete")
}

// bookingMetrics keeps a nil Collector from becoming a non-nil interface.
func bookingMetrics(c *metrics.Collector) booking.Metrics {
	if c == nil {
		return nil
	}
	return c
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
