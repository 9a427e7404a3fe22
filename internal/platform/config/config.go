package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	AdminJWTSecret  string
	JWTIssuer       string
}

// DatabaseConfig selects the Postgres-backed stores. Empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig selects the Redis-backed usage store. Empty URL keeps usage in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the external event stream. No brokers disables it.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ClientID      string
	FlushInterval time.Duration
}

// Custody holds the ledger and orchestration parameters.
type Custody struct {
	BitcoinNetwork   string
	MinConfirmations int64
	MinReserveRatio  decimal.Decimal
	RouterPrincipal  string
	Tokens           []string
	ProofInterval    time.Duration
	ProofKey         string
}

// Router holds retry, breaker and watchdog settings for cross-module calls.
type Router struct {
	CallAttempts     int
	CallTimeout      time.Duration
	CallDelay        time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	WatchdogInterval time.Duration
	StaleAfter       time.Duration
}

// Config is the full process configuration.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Custody  Custody
	Router   Router
	LogLevel string
}

// FromEnv builds a Config from environment variables, first loading a .env file
// when one is present. Every field has a development default.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	ratio, err := decimal.NewFromString(getEnv("CUSTODY_MIN_RESERVE_RATIO", "0.95"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CUSTODY_MIN_RESERVE_RATIO: %w", err)
	}

	cfg := Config{
		Server: Server{
			Addr:            getEnv("CUSTODY_ADDR", ":8080"),
			ShutdownTimeout: getDuration("CUSTODY_SHUTDOWN_TIMEOUT", 10*time.Second),
			AdminJWTSecret:  getEnv("CUSTODY_ADMIN_JWT_SECRET", "dev-secret-key-change-in-production"),
			JWTIssuer:       getEnv("CUSTODY_JWT_ISSUER", "custody"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       getList("KAFKA_BROKERS", ""),
			Topic:         getEnv("KAFKA_EVENTS_TOPIC", "custody.compliance-events"),
			ClientID:      getEnv("KAFKA_CLIENT_ID", "custody"),
			FlushInterval: getDuration("KAFKA_FLUSH_INTERVAL", time.Second),
		},
		Custody: Custody{
			BitcoinNetwork:   getEnv("CUSTODY_BITCOIN_NETWORK", "mainnet"),
			MinConfirmations: int64(getInt("CUSTODY_MIN_CONFIRMATIONS", 6)),
			MinReserveRatio:  ratio,
			RouterPrincipal:  getEnv("CUSTODY_ROUTER_PRINCIPAL", "integration-router"),
			Tokens:           getList("CUSTODY_TOKENS", "CBTC,WBTC"),
			ProofInterval:    getDuration("CUSTODY_PROOF_INTERVAL", time.Hour),
			ProofKey:         getEnv("CUSTODY_PROOF_KEY", "custody-proof-of-reserves-v1"),
		},
		Router: Router{
			CallAttempts:     getInt("ROUTER_CALL_ATTEMPTS", 3),
			CallTimeout:      getDuration("ROUTER_CALL_TIMEOUT", 2*time.Second),
			CallDelay:        getDuration("ROUTER_CALL_DELAY", 50*time.Millisecond),
			BreakerThreshold: getInt("ROUTER_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  getDuration("ROUTER_BREAKER_COOLDOWN", 30*time.Second),
			WatchdogInterval: getDuration("ROUTER_WATCHDOG_INTERVAL", time.Minute),
			StaleAfter:       getDuration("ROUTER_STALE_AFTER", 10*time.Minute),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if len(c.Server.AdminJWTSecret) < 16 {
		errs = append(errs, errors.New("admin JWT secret must be at least 16 bytes"))
	}
	if c.Custody.MinConfirmations < 1 {
		errs = append(errs, errors.New("min confirmations must be at least 1"))
	}
	if !c.Custody.MinReserveRatio.IsPositive() {
		errs = append(errs, errors.New("min reserve ratio must be positive"))
	}
	if c.Custody.RouterPrincipal == "" {
		errs = append(errs, errors.New("router principal is required"))
	}
	if len(c.Custody.Tokens) == 0 {
		errs = append(errs, errors.New("at least one token is required"))
	}
	if c.Custody.ProofKey == "" {
		errs = append(errs, errors.New("proof key is required"))
	}
	if c.Router.CallAttempts < 1 {
		errs = append(errs, errors.New("router call attempts must be at least 1"))
	}
	if c.Router.StaleAfter <= 0 {
		errs = append(errs, errors.New("router stale-after must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
