package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/valueobject"
	pgpkg "github.com/bibbank/fund/pkg/postgres"
)

type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	InboundTopic string
}

type RedisConfig struct {
	// Addr selects the Redis locker; empty means the in-process locker.
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

type TLSConfig struct {
	CertFile     string
	KeyFile      string
	ClientCAFile string
}

// Enabled reports whether the gRPC server should serve TLS.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

type TelemetryConfig struct {
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64
	LogLevel     string
	LogFormat    string
}

type SchedulerConfig struct {
	SweepInterval    time.Duration
	OutboxInterval   time.Duration
	OutboxBatch      int
	ContractInterval time.Duration
	ContractBatch    int
}

type Config struct {
	GRPCPort    int
	HTTPPort    int
	DB          pgpkg.Config
	Kafka       KafkaConfig
	Redis       RedisConfig
	Auth        AuthConfig
	TLS         TLSConfig
	Telemetry   TelemetryConfig
	Scheduler   SchedulerConfig
	Policy      valueobject.FundPolicy
	ServiceName string
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is required"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS must name at least one broker"))
	}
	if c.Scheduler.SweepInterval <= 0 || c.Scheduler.OutboxInterval <= 0 || c.Scheduler.ContractInterval <= 0 {
		errs = append(errs, errors.New("scheduler intervals must be positive"))
	}
	for name, v := range map[string]decimal.Decimal{
		"FUND_SAVINGS_PER_SHARE":     c.Policy.SavingsPerShare,
		"FUND_ADMIN_FEE_PER_SHARE":   c.Policy.AdminFeePerShare,
		"FUND_PENALTY_PER_SHARE_DAY": c.Policy.PenaltyPerShareDay,
		"FUND_STANDARD_MONTHLY_RATE": c.Policy.StandardRatePct,
		"FUND_EXPRESS_MONTHLY_RATE":  c.Policy.ExpressRatePct,
	} {
		if !v.IsPositive() {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, v))
		}
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	defaults := valueobject.DefaultFundPolicy()
	closingMonth := getEnvInt("FUND_CLOSING_MONTH", int(defaults.ClosingMonth))
	if closingMonth < 1 || closingMonth > 12 {
		return Config{}, fmt.Errorf("FUND_CLOSING_MONTH must be within 1..12, got %d", closingMonth)
	}

	cfg := Config{
		GRPCPort: getEnvInt("GRPC_PORT", 9090),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		DB: pgpkg.Config{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "fund"),
			Password:       getEnv("DB_PASSWORD", ""),
			Database:       getEnv("DB_NAME", "fund"),
			SSLMode:        getEnv("DB_SSLMODE", "require"),
			MaxConns:       int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns:       int32(getEnvInt("DB_MIN_CONNS", 2)),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			GroupID:      getEnv("KAFKA_GROUP_ID", "fund-ledger"),
			InboundTopic: getEnv("KAFKA_INBOUND_TOPIC", "fund.commands"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getEnvDuration("REDIS_LOCK_TTL", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTIssuer: getEnv("JWT_ISSUER", "fund-ledger"),
		},
		TLS: TLSConfig{
			CertFile:     getEnv("TLS_CERT_FILE", ""),
			KeyFile:      getEnv("TLS_KEY_FILE", ""),
			ClientCAFile: getEnv("TLS_CLIENT_CA_FILE", ""),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure: getEnv("OTEL_EXPORTER_OTLP_INSECURE", "true") == "true",
			SampleRatio:  getEnvDecimal("OTEL_SAMPLE_RATIO", decimal.NewFromInt(1)).InexactFloat64(),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			LogFormat:    getEnv("LOG_FORMAT", "json"),
		},
		Scheduler: SchedulerConfig{
			SweepInterval:    getEnvDuration("SWEEP_INTERVAL", time.Minute),
			OutboxInterval:   getEnvDuration("OUTBOX_INTERVAL", 2*time.Second),
			OutboxBatch:      getEnvInt("OUTBOX_BATCH_SIZE", 100),
			ContractInterval: getEnvDuration("CONTRACT_RETRY_INTERVAL", 5*time.Minute),
			ContractBatch:    getEnvInt("CONTRACT_RETRY_BATCH_SIZE", 20),
		},
		Policy: valueobject.FundPolicy{
			SavingsPerShare:       getEnvDecimal("FUND_SAVINGS_PER_SHARE", defaults.SavingsPerShare),
			AdminFeePerShare:      getEnvDecimal("FUND_ADMIN_FEE_PER_SHARE", defaults.AdminFeePerShare),
			PenaltyPerShareDay:    getEnvDecimal("FUND_PENALTY_PER_SHARE_DAY", defaults.PenaltyPerShareDay),
			PaymentTolerance:      getEnvDecimal("FUND_PAYMENT_TOLERANCE", defaults.PaymentTolerance),
			StandardRatePct:       getEnvDecimal("FUND_STANDARD_MONTHLY_RATE", defaults.StandardRatePct),
			ExpressRatePct:        getEnvDecimal("FUND_EXPRESS_MONTHLY_RATE", defaults.ExpressRatePct),
			MaxStandardTermMonths: getEnvInt("FUND_MAX_TERM_MONTHS", defaults.MaxStandardTermMonths),
			RefinanceThreshold:    getEnvDecimal("FUND_REFINANCE_THRESHOLD", defaults.RefinanceThreshold),
			ClosingMonth:          time.Month(closingMonth),
		},
		ServiceName: getEnv("SERVICE_NAME", "fund-ledger"),
	}
	return cfg, nil
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
