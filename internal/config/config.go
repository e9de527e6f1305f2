package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Store       string // "postgres" or "memory"
	DatabaseURL string
	AutoMigrate bool

	HTTPAddr    string
	MetricsAddr string
	Location    *time.Location

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	RedisAddr       string
	RedisPassword   string
	OrderRateLimit  int
	OrderRateWindow time.Duration

	JWTSecret string

	MediaRoot      string
	MaxUploadBytes int64

	SpiffeCert        string
	SpiffeKey         string
	SpiffeBundle      string
	SpiffeTrustDomain string
}

// TLSEnabled reports whether all SPIFFE material is configured.
func (c *Config) TLSEnabled() bool {
	return c.SpiffeCert != "" && c.SpiffeKey != "" && c.SpiffeBundle != "" && c.SpiffeTrustDomain != ""
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Store = strings.ToLower(getenvDefault("STORE", "postgres"))
	switch cfg.Store {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("invalid STORE: %q", cfg.Store)
	}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" && cfg.Store == "postgres" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		if db == "" {
			return nil, errors.New("PGDATABASE or DATABASE_URL must be set (or use STORE=memory)")
		}
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	} else {
		cfg.DatabaseURL = dsn
	}
	cfg.AutoMigrate = parseBool(getenvDefault("AUTO_MIGRATE", "true"))

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8000")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// Empty NATS_URL disables order events.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "rail")
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Empty REDIS_ADDR disables order rate limiting.
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	n, err := positiveInt("ORDER_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	cfg.OrderRateLimit = n
	sec, err := positiveInt("ORDER_RATE_WINDOW_SEC", 60)
	if err != nil {
		return nil, err
	}
	cfg.OrderRateWindow = time.Duration(sec) * time.Second

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	cfg.MediaRoot = getenvDefault("MEDIA_ROOT", "./media")
	mb, err := positiveInt("MAX_UPLOAD_MB", 5)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(mb) << 20

	cfg.SpiffeCert = os.Getenv("SPIFFE_CERT")
	cfg.SpiffeKey = os.Getenv("SPIFFE_KEY")
	cfg.SpiffeBundle = os.Getenv("SPIFFE_BUNDLE")
	cfg.SpiffeTrustDomain = os.Getenv("SPIFFE_TRUST_DOMAIN")

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func positiveInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
