package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, OTPStorePostgres, cfg.OTPStore)
	assert.Equal(t, "5-M", cfg.OTPRateLimit)
	assert.Equal(t, 1, cfg.DisbursementConcurrency)
	assert.Equal(t, 30*time.Second, cfg.DisbursementTimeout)
	assert.Equal(t, "https://api.paystack.co", cfg.Paystack.BaseURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "one-time-codes", cfg.KafkaCodeTopic)
}

func TestLoadConfig_Production(t *testing.T) {
	t.Setenv("IS_PRODUCTION", "true")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092")
	t.Setenv("KAFKA_CODE_TOPIC", "otp-delivery")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction)
	assert.Equal(t, "otp-delivery", cfg.KafkaCodeTopic)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OTP_TTL", "2m")
	t.Setenv("OTP_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("DISBURSEMENT_CONCURRENCY", "4")
	t.Setenv("PAYSTACK_TEST_SECRET_KEY", "sk_test_abc")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.OTPTTL)
	assert.Equal(t, OTPStoreRedis, cfg.OTPStore)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 4, cfg.DisbursementConcurrency)
	assert.Equal(t, "sk_test_abc", cfg.Paystack.TestSecretKey)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero ttl", map[string]string{"OTP_TTL": "0s"}},
		{"bad timeout", map[string]string{"DISBURSEMENT_TIMEOUT": "soon"}},
		{"no concurrency", map[string]string{"DISBURSEMENT_CONCURRENCY": "0"}},
		{"unknown store", map[string]string{"OTP_STORE": "memcached"}},
		{"redis without url", map[string]string{"OTP_STORE": "redis"}},
		{"half bootstrap", map[string]string{"BOOTSTRAP_ADMIN_ID": "admin"}},
		{"default secret in production", map[string]string{"IS_PRODUCTION": "true", "KAFKA_BROKERS": "kafka:9092"}},
		{"no code delivery in production", map[string]string{"IS_PRODUCTION": "true", "JWT_SECRET": "prod-secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
