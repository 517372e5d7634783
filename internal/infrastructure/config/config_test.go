package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.GRPCAddr())
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr, "in-process locker by default")
	assert.Equal(t, time.Minute, cfg.Scheduler.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.ContractInterval)
	assert.Equal(t, 20, cfg.Scheduler.ContractBatch)
	assert.Equal(t, time.December, cfg.Policy.ClosingMonth)
	assert.True(t, cfg.Policy.StandardRatePct.Equal(decimal.NewFromInt(2)))
	assert.False(t, cfg.TLS.Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GRPC_PORT", "7000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("FUND_EXPRESS_MONTHLY_RATE", "1.25")
	t.Setenv("FUND_REFINANCE_THRESHOLD", "0.5")
	t.Setenv("FUND_CLOSING_MONTH", "6")
	t.Setenv("FUND_MAX_TERM_MONTHS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.GRPCPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.SweepInterval)
	assert.Equal(t, "1.25", cfg.Policy.ExpressRatePct.String())
	assert.Equal(t, "0.5", cfg.Policy.RefinanceThreshold.String())
	assert.Equal(t, time.June, cfg.Policy.ClosingMonth)
	assert.Equal(t, 36, cfg.Policy.MaxStandardTermMonths, "unparsable values fall back")
}

func TestLoad_ClosingMonthOutOfRange(t *testing.T) {
	t.Setenv("FUND_CLOSING_MONTH", "13")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FUND_CLOSING_MONTH")
}

func validConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "signing-key")
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "missing db password", mutate: func(c *Config) { c.DB.Password = "" }, wantErr: "DB_PASSWORD"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "zero standard rate", mutate: func(c *Config) { c.Policy.StandardRatePct = decimal.Zero }, wantErr: "FUND_STANDARD_MONTHLY_RATE"},
		{name: "negative penalty", mutate: func(c *Config) { c.Policy.PenaltyPerShareDay = decimal.NewFromInt(-1) }, wantErr: "FUND_PENALTY_PER_SHARE_DAY"},
		{name: "threshold above one", mutate: func(c *Config) { c.Policy.RefinanceThreshold = decimal.RequireFromString("1.1") }, wantErr: "refinance threshold"},
		{name: "zero threshold", mutate: func(c *Config) { c.Policy.RefinanceThreshold = decimal.Zero }, wantErr: "refinance threshold"},
		{name: "closing month", mutate: func(c *Config) { c.Policy.ClosingMonth = 0 }, wantErr: "closing month"},
		{name: "no brokers", mutate: func(c *Config) { c.Kafka.Brokers = nil }, wantErr: "KAFKA_BROKERS"},
		{name: "zero outbox interval", mutate: func(c *Config) { c.Scheduler.OutboxInterval = 0 }, wantErr: "intervals"},
		{name: "zero contract interval", mutate: func(c *Config) { c.Scheduler.ContractInterval = 0 }, wantErr: "intervals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
