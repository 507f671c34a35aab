package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Storage  StorageConfig
	Events   EventsConfig
	Metrics  MetricsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
	CORSAllowOrigins      string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	ApplicationName string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Output string
}

// Storage backends.
const (
	StorageBackendNone  = "none"
	StorageBackendMinio = "minio"
	StorageBackendGCS   = "gcs"
)

// StorageConfig selects and configures the attachment store.
type StorageConfig struct {
	Backend        string
	Bucket         string
	PublicBaseURL  string
	MaxUploadBytes int64
	Minio          MinioConfig
	GCS            GCSConfig
}

// MinioConfig holds MinIO / S3 compatible credentials.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	ProjectID       string
	CredentialsFile string
}

// Event broker backends.
const (
	EventsBackendNone     = "none"
	EventsBackendRedis    = "redis"
	EventsBackendRabbitMQ = "rabbitmq"
)

// EventsConfig selects where user lifecycle events are forwarded.
type EventsConfig struct {
	Backend     string
	Channel     string
	RabbitMQURL string
}

// MetricsConfig toggles prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool
	Prefix  string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "user-directory"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "5001"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 8<<20),
			CORSAllowOrigins:      getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			ApplicationName: getEnv("APP_NAME", "user-directory"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendNone)),
			Bucket:         getEnv("STORAGE_BUCKET", "user-profiles"),
			PublicBaseURL:  os.Getenv("STORAGE_PUBLIC_BASE_URL"),
			MaxUploadBytes: int64(getEnvAsInt("STORAGE_MAX_UPLOAD_BYTES", 5<<20)),
			Minio: MinioConfig{
				Endpoint:  os.Getenv("MINIO_ENDPOINT"),
				AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				ProjectID:       os.Getenv("GCS_PROJECT_ID"),
				CredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
			},
		},
		Events: EventsConfig{
			Backend:     strings.ToLower(getEnv("EVENTS_BACKEND", EventsBackendNone)),
			Channel:     getEnv("EVENTS_CHANNEL", "user-directory.events"),
			RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Prefix:  getEnv("METRICS_PREFIX", "userdir"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageBackendNone, StorageBackendMinio, StorageBackendGCS:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.Events.Backend {
	case EventsBackendNone, EventsBackendRedis, EventsBackendRabbitMQ:
	default:
		return fmt.Errorf("invalid EVENTS_BACKEND %q", c.Events.Backend)
	}
	if c.Events.Backend == EventsBackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("EVENTS_BACKEND=redis requires REDIS_ADDR")
	}
	return nil
}

// DefaultBackendURL is where the client looks for the API when USERDIR_BACKEND_URL is unset.
const DefaultBackendURL = "http://localhost:5001"

// ClientConfig configures the REST client.
type ClientConfig struct {
	BackendURL     string
	TimeoutSeconds int
}

// LoadClient reads the client side settings. It never fails: the server keys are not consulted.
func LoadClient() ClientConfig {
	_ = godotenv.Load()

	return ClientConfig{
		BackendURL:     strings.TrimRight(getEnv("USERDIR_BACKEND_URL", DefaultBackendURL), "/"),
		TimeoutSeconds: getEnvAsInt("USERDIR_CLIENT_TIMEOUT_SECONDS", 30),
	}
}

// Timeout returns the client request timeout; zero disables it.
func (c ClientConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
