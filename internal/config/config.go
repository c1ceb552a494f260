package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// HTTP holds HTTP server configuration.
type HTTP struct {
	Host string
	Port int
}

// GRPC holds gRPC server configuration.
type GRPC struct {
	Enabled bool
	Host    string
	Port    int
}

// Cache configures the session store backend.
type Cache struct {
	Enabled    bool
	Driver     string
	DefaultTTL time.Duration
	Redis      Redis
	Memory     Memory
}

// Redis contains redis-specific connection settings.
type Redis struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Memory sizes the in-process store.
type Memory struct {
	MaxCost     int64
	NumCounters int64
}

// Messaging configures the message bus used for audit dispatch.
type Messaging struct {
	Driver        string
	Enabled       bool
	Kafka         Kafka
	ConsumerGroup string
	Workers       Worker
}

// Kafka holds Kafka connection details.
type Kafka struct {
	Brokers        []string
	ClientID       string
	Topic          string
	CommitInterval time.Duration
	MinBytes       int
	MaxBytes       int
	ConnectTimeout time.Duration
}

// Worker configures background worker concurrency. A message is retried up to
// MaxAttempts times, RetryDelay apart, before it is skipped.
type Worker struct {
	Enabled     bool
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Database holds primary and read replica connection settings. Statements slower
// than SlowQuery are logged; zero disables that.
type Database struct {
	Driver          string
	WriterDSN       string
	ReaderDSN       string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SlowQuery       time.Duration
}

// Observability contains logging, tracing, and metrics configuration.
type Observability struct {
	ServiceName      string
	ServiceVersion   string
	Environment      string
	LogLevel         string
	LogEncoding      string
	EnableTracing    bool
	TraceExporter    string
	TraceEndpoint    string
	TraceInsecure    bool
	TraceSampleRatio float64
	EnableMetrics    bool
	MetricsExporter  string
	PrometheusPath   string
}

// Auth configures credentials, sessions and remember-me cookies.
type Auth struct {
	SessionSecret  string
	SessionTTL     time.Duration
	SessionCookie  string
	RememberCookie string
	RememberTTL    time.Duration
	BcryptCost     int
	SecureCookies  bool
}

// Listing holds pagination and type-ahead defaults.
type Listing struct {
	PageSize    int
	SearchLimit int
}

// Dashboard configures the dashboard aggregates.
type Dashboard struct {
	ChartYears       []int
	LogDays          int
	LatestBackorders int
}

// Config wraps all application configuration knobs.
type Config struct {
	HTTP          HTTP
	GRPC          GRPC
	Cache         Cache
	Messaging     Messaging
	Database      Database
	Observability Observability
	Auth          Auth
	Listing       Listing
	Dashboard     Dashboard
}

// Module wires the configuration loader into the Fx graph.
var Module = fx.Provide(New)

var loadEnvOnce sync.Once

// New builds a Config from environment variables or defaults.
func New() (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	thisYear := time.Now().UTC().Year()

	cfg := Config{
		HTTP: HTTP{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnvAsInt("HTTP_PORT", 3000),
		},
		GRPC: GRPC{
			Enabled: getEnvAsBool("GRPC_ENABLED", false),
			Host:    getEnv("GRPC_HOST", "0.0.0.0"),
			Port:    getEnvAsInt("GRPC_PORT", 9090),
		},
		Cache: Cache{
			Enabled:    getEnvAsBool("CACHE_ENABLED", true),
			Driver:     getEnv("CACHE_DRIVER", "memory"),
			DefaultTTL: getEnvAsDuration("CACHE_DEFAULT_TTL", 24*time.Hour),
			Redis: Redis{
				Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
				Password:  getEnv("REDIS_PASSWORD", ""),
				DB:        getEnvAsInt("REDIS_DB", 0),
				KeyPrefix: getEnv("REDIS_KEY_PREFIX", "backorder:"),
			},
			Memory: Memory{
				MaxCost:     int64(getEnvAsInt("CACHE_MEMORY_MAX_COST", 64<<20)),
				NumCounters: int64(getEnvAsInt("CACHE_MEMORY_COUNTERS", 100_000)),
			},
		},
		Messaging: Messaging{
			Driver:  getEnv("MESSAGING_DRIVER", "kafka"),
			Enabled: getEnvAsBool("MESSAGING_ENABLED", false),
			Kafka: Kafka{
				Brokers:        getEnvAsStringSlice("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
				ClientID:       getEnv("KAFKA_CLIENT_ID", "backorder-service"),
				Topic:          getEnv("KAFKA_TOPIC", "backorder.audit"),
				CommitInterval: getEnvAsDuration("KAFKA_COMMIT_INTERVAL", time.Second),
				MinBytes:       getEnvAsInt("KAFKA_MIN_BYTES", 10e3),
				MaxBytes:       getEnvAsInt("KAFKA_MAX_BYTES", 10e6),
				ConnectTimeout: getEnvAsDuration("KAFKA_CONNECT_TIMEOUT", 5*time.Second),
			},
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "backorder-audit"),
			Workers: Worker{
				Enabled:     getEnvAsBool("WORKER_ENABLED", true),
				Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),
				MaxAttempts: getEnvAsInt("WORKER_MAX_ATTEMPTS", 5),
				RetryDelay:  getEnvAsDuration("WORKER_RETRY_DELAY", time.Second),
			},
		},
		Database: Database{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			WriterDSN:       getEnv("DB_WRITER_DSN", "backorder:backorder@tcp(localhost:3306)/backorder?parseTime=true"),
			ReaderDSN:       getEnv("DB_READER_DSN", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Minute*5),
			SlowQuery:       getEnvAsDuration("DB_SLOW_QUERY", 500*time.Millisecond),
		},
		Observability: Observability{
			ServiceName:      getEnv("OBS_SERVICE_NAME", "backorder"),
			ServiceVersion:   getEnv("OBS_SERVICE_VERSION", "0.1.0"),
			Environment:      getEnv("OBS_ENVIRONMENT", "local"),
			LogLevel:         getEnv("OBS_LOG_LEVEL", "info"),
			LogEncoding:      getEnv("OBS_LOG_ENCODING", "json"),
			EnableTracing:    getEnvAsBool("OBS_ENABLE_TRACING", false),
			TraceExporter:    getEnv("OBS_TRACE_EXPORTER", "stdout"),
			TraceEndpoint:    getEnv("OBS_OTLP_ENDPOINT", "localhost:4317"),
			TraceInsecure:    getEnvAsBool("OBS_OTLP_INSECURE", true),
			TraceSampleRatio: getEnvAsFloat("OBS_TRACE_SAMPLE_RATIO", 1),
			EnableMetrics:    getEnvAsBool("OBS_ENABLE_METRICS", true),
			MetricsExporter:  getEnv("OBS_METRICS_EXPORTER", "prometheus"),
			PrometheusPath:   getEnv("OBS_PROMETHEUS_PATH", "/metrics"),
		},
		Auth: Auth{
			SessionSecret:  getEnv("SESSION_SECRET", ""),
			SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			SessionCookie:  getEnv("SESSION_COOKIE_NAME", "backorder_session"),
			RememberCookie: getEnv("COOKIE_NAME", "backorder_remember"),
			RememberTTL:    getEnvAsDuration("COOKIE_EXPIRY", 360*24*time.Hour),
			BcryptCost:     getEnvAsInt("BCRYPT_COST", 10),
			SecureCookies:  getEnvAsBool("COOKIE_SECURE", false),
		},
		Listing: Listing{
			PageSize:    getEnvAsInt("LIST_PAGE_SIZE", 20),
			SearchLimit: getEnvAsInt("SEARCH_LIMIT", 10),
		},
		Dashboard: Dashboard{
			ChartYears:       getEnvAsIntSlice("DASHBOARD_CHART_YEARS", []int{thisYear - 2, thisYear - 1, thisYear}),
			LogDays:          getEnvAsInt("DASHBOARD_LOG_DAYS", 5),
			LatestBackorders: getEnvAsInt("DASHBOARD_LATEST_BACKORDERS", 12),
		},
	}

	if cfg.HTTP.Port <= 0 {
		return Config{}, fmt.Errorf("invalid HTTP port: %d", cfg.HTTP.Port)
	}

	if cfg.GRPC.Enabled && cfg.GRPC.Port <= 0 {
		return Config{}, fmt.Errorf("invalid gRPC port: %d", cfg.GRPC.Port)
	}

	// Sessions always need a store; a disabled cache falls back to process memory.
	if !cfg.Cache.Enabled {
		cfg.Cache.Driver = "memory"
	}

	switch cfg.Cache.Driver {
	case "redis", "memory":
		// supported
	default:
		return Config{}, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}

	if cfg.Cache.Driver == "redis" && cfg.Cache.Redis.Addr == "" {
		return Config{}, fmt.Errorf("missing REDIS_ADDR for redis cache")
	}

	if cfg.Cache.DefaultTTL <= 0 {
		cfg.Cache.DefaultTTL = 24 * time.Hour
	}
	if cfg.Cache.Memory.MaxCost <= 0 {
		cfg.Cache.Memory.MaxCost = 64 << 20
	}
	if cfg.Cache.Memory.NumCounters <= 0 {
		cfg.Cache.Memory.NumCounters = 100_000
	}

	cfg.Observability.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Observability.LogLevel))
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	cfg.Observability.LogEncoding = strings.ToLower(strings.TrimSpace(cfg.Observability.LogEncoding))
	if cfg.Observability.LogEncoding == "" {
		cfg.Observability.LogEncoding = "json"
	}
	cfg.Observability.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.Observability.TraceExporter))
	if cfg.Observability.TraceExporter == "" {
		cfg.Observability.TraceExporter = "stdout"
	}
	cfg.Observability.MetricsExporter = strings.ToLower(strings.TrimSpace(cfg.Observability.MetricsExporter))
	if cfg.Observability.MetricsExporter == "" {
		cfg.Observability.MetricsExporter = "prometheus"
	}

	if r := cfg.Observability.TraceSampleRatio; r < 0 || r > 1 {
		return Config{}, fmt.Errorf("invalid OBS_TRACE_SAMPLE_RATIO: %v", r)
	}

	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	} else if !strings.HasPrefix(cfg.Observability.PrometheusPath, "/") {
		cfg.Observability.PrometheusPath = "/" + cfg.Observability.PrometheusPath
	}

	if !cfg.Messaging.Enabled {
		cfg.Messaging.Driver = "noop"
	}

	switch cfg.Messaging.Driver {
	case "kafka", "noop":
		// supported
	default:
		return Config{}, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}

	if cfg.Messaging.Driver == "kafka" {
		if len(cfg.Messaging.Kafka.Brokers) == 0 {
			return Config{}, fmt.Errorf("KAFKA_BROKERS must be provided")
		}
		if cfg.Messaging.Kafka.Topic == "" {
			return Config{}, fmt.Errorf("KAFKA_TOPIC must be provided")
		}
		if cfg.Messaging.ConsumerGroup == "" {
			return Config{}, fmt.Errorf("KAFKA_CONSUMER_GROUP must be provided")
		}
	}

	if cfg.Messaging.Workers.Concurrency <= 0 {
		cfg.Messaging.Workers.Concurrency = 1
	}
	if cfg.Messaging.Workers.MaxAttempts <= 0 {
		cfg.Messaging.Workers.MaxAttempts = 1
	}
	if cfg.Messaging.Workers.RetryDelay <= 0 {
		cfg.Messaging.Workers.RetryDelay = time.Second
	}

	if cfg.Database.WriterDSN == "" {
		return Config{}, fmt.Errorf("missing DB_WRITER_DSN")
	}

	if cfg.Database.ReaderDSN == "" {
		cfg.Database.ReaderDSN = cfg.Database.WriterDSN
	}

	if err := normaliseAuth(&cfg.Auth, cfg.Observability.Environment); err != nil {
		return Config{}, err
	}

	if cfg.Listing.PageSize <= 0 {
		cfg.Listing.PageSize = 20
	}
	if cfg.Listing.SearchLimit <= 0 {
		cfg.Listing.SearchLimit = 10
	}
	if cfg.Dashboard.LogDays <= 0 {
		cfg.Dashboard.LogDays = 5
	}
	if cfg.Dashboard.LatestBackorders <= 0 {
		cfg.Dashboard.LatestBackorders = 12
	}

	return cfg, nil
}

// devSessionSecret signs sessions in local environments when SESSION_SECRET is unset.
const devSessionSecret = "backorder-local-session-secret"

func normaliseAuth(auth *Auth, environment string) error {
	if auth.SessionSecret == "" {
		if environment != "local" && environment != "test" {
			return fmt.Errorf("SESSION_SECRET must be provided outside local environments")
		}
		auth.SessionSecret = devSessionSecret
	}
	if auth.SessionTTL <= 0 {
		auth.SessionTTL = 24 * time.Hour
	}
	if auth.RememberTTL <= 0 {
		auth.RememberTTL = 360 * 24 * time.Hour
	}
	if auth.SessionCookie == "" {
		auth.SessionCookie = "backorder_session"
	}
	if auth.RememberCookie == "" {
		auth.RememberCookie = "backorder_remember"
	}
	if auth.SessionCookie == auth.RememberCookie {
		return fmt.Errorf("SESSION_COOKIE_NAME and COOKIE_NAME must differ")
	}
	if auth.BcryptCost < 4 || auth.BcryptCost > 31 {
		return fmt.Errorf("invalid BCRYPT_COST: %d", auth.BcryptCost)
	}
	return nil
}
