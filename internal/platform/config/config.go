package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const insecureJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// OTP code stores.
const (
	OTPStorePostgres = "postgres"
	OTPStoreRedis    = "redis"
	OTPStoreMemory   = "memory"
)

// ProviderConfig holds the settings of one payment rail. Live and test keys
// are kept apart so test books never move real money.
type ProviderConfig struct {
	BaseURL       string
	SecretKey     string
	TestSecretKey string
}

// Config holds application configuration.
type Config struct {
	DatabaseURL     string
	TestDatabaseURL string
	Port            string
	IsProduction    bool
	EnableDBCheck   bool
	JWTSecret       string
	MigrationsPath  string

	// Principal ensured at startup with every permission, so the first users can be provisioned.
	BootstrapAdminID    string
	BootstrapAdminEmail string

	OTPTTL       time.Duration
	OTPStore     string
	RedisURL     string
	OTPRateLimit string

	KafkaBrokers []string
	KafkaTopic   string
	// KafkaCodeTopic carries issued one-time codes to the notification service.
	KafkaCodeTopic string

	DisbursementConcurrency int
	DisbursementTimeout     time.Duration
	DisbursementStaleAfter  time.Duration
	DefaultExpenseAccountID string
	ProviderTimeout         time.Duration
	ProviderMaxRetries      int
	Paystack                ProviderConfig
	Flutterwave             ProviderConfig
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PGSQL_TEST_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("JWT_SECRET", insecureJWTSecret)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("BOOTSTRAP_ADMIN_ID", "")
	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_STORE", OTPStorePostgres)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("OTP_RATE_LIMIT", "5-M")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "disbursement-events")
	v.SetDefault("KAFKA_CODE_TOPIC", "one-time-codes")
	v.SetDefault("DISBURSEMENT_CONCURRENCY", 1)
	v.SetDefault("DISBURSEMENT_TIMEOUT", "30s")
	v.SetDefault("DISBURSEMENT_STALE_AFTER", "15m")
	v.SetDefault("DEFAULT_EXPENSE_ACCOUNT_ID", "")
	v.SetDefault("PROVIDER_TIMEOUT", "15s")
	v.SetDefault("PROVIDER_MAX_RETRIES", 3)
	v.SetDefault("PAYSTACK_BASE_URL", "https://api.paystack.co")
	v.SetDefault("FLUTTERWAVE_BASE_URL", "https://api.flutterwave.com/v3")
	for _, key := range []string{
		"PAYSTACK_SECRET_KEY", "PAYSTACK_TEST_SECRET_KEY",
		"FLUTTERWAVE_SECRET_KEY", "FLUTTERWAVE_TEST_SECRET_KEY",
	} {
		v.SetDefault(key, "")
	}
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:             v.GetString("PGSQL_URL"),
		TestDatabaseURL:         v.GetString("PGSQL_TEST_URL"),
		Port:                    v.GetString("PORT"),
		IsProduction:            v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:           v.GetBool("ENABLE_DB_CHECK"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		MigrationsPath:          v.GetString("MIGRATIONS_PATH"),
		BootstrapAdminID:        v.GetString("BOOTSTRAP_ADMIN_ID"),
		BootstrapAdminEmail:     v.GetString("BOOTSTRAP_ADMIN_EMAIL"),
		OTPStore:                strings.ToLower(v.GetString("OTP_STORE")),
		RedisURL:                v.GetString("REDIS_URL"),
		OTPRateLimit:            v.GetString("OTP_RATE_LIMIT"),
		KafkaTopic:              v.GetString("KAFKA_TOPIC"),
		KafkaCodeTopic:          v.GetString("KAFKA_CODE_TOPIC"),
		DisbursementConcurrency: v.GetInt("DISBURSEMENT_CONCURRENCY"),
		DefaultExpenseAccountID: v.GetString("DEFAULT_EXPENSE_ACCOUNT_ID"),
		ProviderMaxRetries:      v.GetInt("PROVIDER_MAX_RETRIES"),
		Paystack: ProviderConfig{
			BaseURL:       v.GetString("PAYSTACK_BASE_URL"),
			SecretKey:     v.GetString("PAYSTACK_SECRET_KEY"),
			TestSecretKey: v.GetString("PAYSTACK_TEST_SECRET_KEY"),
		},
		Flutterwave: ProviderConfig{
			BaseURL:       v.GetString("FLUTTERWAVE_BASE_URL"),
			SecretKey:     v.GetString("FLUTTERWAVE_SECRET_KEY"),
			TestSecretKey: v.GetString("FLUTTERWAVE_TEST_SECRET_KEY"),
		},
	}

	if brokers := strings.TrimSpace(v.GetString("KAFKA_BROKERS")); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"OTP_TTL", &cfg.OTPTTL},
		{"DISBURSEMENT_TIMEOUT", &cfg.DisbursementTimeout},
		{"DISBURSEMENT_STALE_AFTER", &cfg.DisbursementStaleAfter},
		{"PROVIDER_TIMEOUT", &cfg.ProviderTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(v.GetString(d.key)); err != nil || *d.dst <= 0 {
			return nil, fmt.Errorf("invalid value for %s (%q): must be a positive duration", d.key, v.GetString(d.key))
		}
	}

	if cfg.DisbursementConcurrency < 1 {
		return nil, fmt.Errorf("invalid value for DISBURSEMENT_CONCURRENCY (%d): must be at least 1", cfg.DisbursementConcurrency)
	}
	if cfg.ProviderMaxRetries < 0 {
		return nil, fmt.Errorf("invalid value for PROVIDER_MAX_RETRIES (%d)", cfg.ProviderMaxRetries)
	}

	switch cfg.OTPStore {
	case OTPStorePostgres, OTPStoreMemory:
	case OTPStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("OTP_STORE=redis requires REDIS_URL")
		}
	default:
		return nil, fmt.Errorf("invalid value for OTP_STORE (%q): want postgres, redis or memory", cfg.OTPStore)
	}

	if (cfg.BootstrapAdminID == "") != (cfg.BootstrapAdminEmail == "") {
		return nil, fmt.Errorf("BOOTSTRAP_ADMIN_ID and BOOTSTRAP_ADMIN_EMAIL must be set together")
	}

	// Production never returns codes in responses, so they must leave through Kafka.
	if cfg.IsProduction && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must be set in production to deliver one-time codes")
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.JWTSecret == insecureJWTSecret {
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.Paystack.SecretKey == "" && cfg.Flutterwave.SecretKey == "" {
		log.Println("Warning: no live provider secret key set. Only SIMULATED accounts can pay out in live mode.")
	}

	return cfg, nil
}
