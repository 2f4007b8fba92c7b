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
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Ticketing  TicketingConfig
	SLA        SLAConfig
	Score      ScoreConfig
	Escalation EscalationConfig
	Sync       SyncConfig
	Directory  DirectoryConfig
	Geo        GeoConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TicketingConfig holds the external ticketing system endpoint.
type TicketingConfig struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
	PageSize       int
}

// SLAConfig is the product-policy deadline table. Windows are hours per
// priority; band thresholds classify elapsed hours since the ticket
// opened.
type SLAConfig struct {
	WindowHours  map[int]int
	AtRiskHours  int
	OverdueHours int
}

// ScoreConfig holds the dispatch scoring weights.
type ScoreConfig struct {
	PriorityWeight    map[int]int
	OnTimeMultiplier  int
	AtRiskMultiplier  int
	OverdueMultiplier int
	RecurrenceWeight  int
	RecurrenceDays    int
}

// EscalationConfig controls default escalation targets and the sweep.
type EscalationConfig struct {
	// DefaultPoolOwner receives level-1 work items when the external
	// ticket carries no resolvable assignee.
	DefaultPoolOwner string
	// DefaultByLevel maps escalation level to the participant the
	// timeout sweep escalates to.
	DefaultByLevel       map[int]string
	SweepIntervalSeconds int
	PushMaxAttempts      int
}

// SyncConfig bounds the shallow and deep reconciliation windows.
type SyncConfig struct {
	ShallowLookbackDays int
	// DeepLookbackDays of 0 means unbounded.
	DeepLookbackDays int
}

// DirectoryConfig seeds the static participant directory. Entries use
// the form id:displayName:email:type.
type DirectoryConfig struct {
	Participants []string
}

// GeoConfig seeds the neighborhood coordinate lookup. Entries use the
// form name:lat:lng. Deployments with a geocoding provider inject a
// live lookup instead.
type GeoConfig struct {
	StaticCoords []string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "escalation-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Ticketing: TicketingConfig{
			BaseURL:        getEnv("TICKETING_BASE_URL", "http://127.0.0.1:9090"),
			Token:          os.Getenv("TICKETING_TOKEN"),
			TimeoutSeconds: getEnvAsInt("TICKETING_TIMEOUT_SECONDS", 15),
			PageSize:       getEnvAsInt("TICKETING_PAGE_SIZE", 50),
		},
		SLA: SLAConfig{
			WindowHours: map[int]int{
				1: getEnvAsInt("SLA_WINDOW_P1_HOURS", 4),
				2: getEnvAsInt("SLA_WINDOW_P2_HOURS", 8),
				3: getEnvAsInt("SLA_WINDOW_P3_HOURS", 24),
				4: getEnvAsInt("SLA_WINDOW_P4_HOURS", 48),
				5: getEnvAsInt("SLA_WINDOW_P5_HOURS", 72),
			},
			AtRiskHours:  getEnvAsInt("SLA_AT_RISK_HOURS", 24),
			OverdueHours: getEnvAsInt("SLA_OVERDUE_HOURS", 48),
		},
		Score: ScoreConfig{
			PriorityWeight: map[int]int{
				1: getEnvAsInt("SCORE_PRIORITY_P1", 500),
				2: getEnvAsInt("SCORE_PRIORITY_P2", 400),
				3: getEnvAsInt("SCORE_PRIORITY_P3", 300),
				4: getEnvAsInt("SCORE_PRIORITY_P4", 200),
				5: getEnvAsInt("SCORE_PRIORITY_P5", 100),
			},
			OnTimeMultiplier:  getEnvAsInt("SCORE_ON_TIME_MULTIPLIER", 1),
			AtRiskMultiplier:  getEnvAsInt("SCORE_AT_RISK_MULTIPLIER", 3),
			OverdueMultiplier: getEnvAsInt("SCORE_OVERDUE_MULTIPLIER", 6),
			RecurrenceWeight:  getEnvAsInt("SCORE_RECURRENCE_WEIGHT", 50),
			RecurrenceDays:    getEnvAsInt("SCORE_RECURRENCE_DAYS", 30),
		},
		Escalation: EscalationConfig{
			DefaultPoolOwner: getEnv("ESCALATION_DEFAULT_POOL_OWNER", "pool"),
			DefaultByLevel: map[int]string{
				2: getEnv("ESCALATION_DEFAULT_L2", "supervisor"),
				3: getEnv("ESCALATION_DEFAULT_L3", "manager"),
			},
			SweepIntervalSeconds: getEnvAsInt("SWEEP_INTERVAL_SECONDS", 300),
			PushMaxAttempts:      getEnvAsInt("PUSH_MAX_ATTEMPTS", 5),
		},
		Sync: SyncConfig{
			ShallowLookbackDays: getEnvAsInt("SYNC_SHALLOW_LOOKBACK_DAYS", 10),
			DeepLookbackDays:    getEnvAsInt("SYNC_DEEP_LOOKBACK_DAYS", 60),
		},
		Directory: DirectoryConfig{
			Participants: splitNonEmpty(getEnv("DIRECTORY_PARTICIPANTS",
				"pool:Dispatch Pool:pool@example.com:USER,"+
					"supervisor:Duty Supervisor:supervisor@example.com:SUPERVISOR,"+
					"manager:Operations Manager:manager@example.com:MANAGER_PLUS")),
		},
		Geo: GeoConfig{
			StaticCoords: splitNonEmpty(os.Getenv("GEO_STATIC_COORDS")),
		},
	}

	return cfg, nil
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

// Timeout returns the ticketing client timeout.
func (t TicketingConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// SweepInterval returns the sweep cadence.
func (e EscalationConfig) SweepInterval() time.Duration {
	return time.Duration(e.SweepIntervalSeconds) * time.Second
}

func splitNonEmpty(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
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
