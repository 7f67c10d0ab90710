package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	Telemetry TelemetryConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Paystack  PaystackConfig
	Maps      MapsConfig
	Firebase  FirebaseConfig
	Dispatch  DispatchConfig
	Pricing   PricingConfig
	Fees      FeesConfig
	LogLevel  string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// TelemetryConfig holds OpenTelemetry configuration.
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
}

// KafkaConfig holds the notification topic configuration.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
}

// PaystackConfig holds payment gateway settings.
type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// MapsConfig holds geocoding/directions settings.
type MapsConfig struct {
	APIKey string
}

// FirebaseConfig holds push delivery settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// DispatchConfig holds the re-assignment sweep and candidate search settings.
type DispatchConfig struct {
	SweepInterval  time.Duration
	StaleAfter     time.Duration
	SearchRadius   float64
	OrderTimeout   time.Duration
	Workers        int
	LeaderLockTTL  time.Duration
	PaymentLockTTL time.Duration
}

// PricingConfig holds price and time estimation settings.
type PricingConfig struct {
	Currency            string
	Granularity         int64
	PriceBoundPercent   float64
	DeliveryTimePercent float64
	ArrivalTimePercent  float64
}

// FeeConfig describes a fee as a flat amount or a percentage.
type FeeConfig struct {
	Type  string
	Value float64
}

// FeesConfig holds administrator-configured fees.
type FeesConfig struct {
	Cancellation FeeConfig
	Transaction  FeeConfig
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "delivery"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "delivery-dispatch"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:        getBoolEnv("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "delivery-dispatch"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
		Kafka: KafkaConfig{
			Brokers: getListEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_NOTIFICATION_TOPIC", "notifications.push"),
			GroupID: getEnv("KAFKA_NOTIFICATION_GROUP", "notifier"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Paystack: PaystackConfig{
			BaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
			Timeout:   getDurationEnv("PAYSTACK_TIMEOUT", 15*time.Second),
		},
		Maps: MapsConfig{
			APIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Dispatch: DispatchConfig{
			SweepInterval:  getDurationEnv("DISPATCH_SWEEP_INTERVAL", 20*time.Second),
			StaleAfter:     getDurationEnv("DISPATCH_STALE_AFTER", 20*time.Second),
			SearchRadius:   getFloatEnv("DISPATCH_SEARCH_RADIUS", 2),
			OrderTimeout:   getDurationEnv("DISPATCH_ORDER_TIMEOUT", 10*time.Second),
			Workers:        getIntEnv("DISPATCH_WORKERS", 8),
			LeaderLockTTL:  getDurationEnv("DISPATCH_LEADER_LOCK_TTL", 60*time.Second),
			PaymentLockTTL: getDurationEnv("PAYMENT_LOCK_TTL", 30*time.Second),
		},
		Pricing: PricingConfig{
			Currency:            getEnv("CURRENCY", "NGN"),
			Granularity:         getInt64Env("PRICE_GRANULARITY", 1000),
			PriceBoundPercent:   getFloatEnv("DELIVERY_PRICE_BOUND_PERCENT", 10),
			DeliveryTimePercent: getFloatEnv("DELIVERY_TIME_BOUND_PERCENT", 15),
			ArrivalTimePercent:  getFloatEnv("ARRIVAL_TIME_BOUND_PERCENT", 10),
		},
		Fees: FeesConfig{
			Cancellation: FeeConfig{
				Type:  getEnv("CANCELLATION_FEE_TYPE", "percentage"),
				Value: getFloatEnv("CANCELLATION_FEE_VALUE", 5),
			},
			Transaction: FeeConfig{
				Type:  getEnv("TRANSACTION_FEE_TYPE", "percentage"),
				Value: getFloatEnv("TRANSACTION_FEE_VALUE", 5),
			},
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	var errs []error
	if c.Dispatch.SweepInterval <= 0 {
		errs = append(errs, errors.New("DISPATCH_SWEEP_INTERVAL must be positive"))
	}
	if c.Dispatch.StaleAfter < 0 {
		errs = append(errs, errors.New("DISPATCH_STALE_AFTER must not be negative"))
	}
	if c.Dispatch.SearchRadius <= 0 {
		errs = append(errs, errors.New("DISPATCH_SEARCH_RADIUS must be positive"))
	}
	if c.Dispatch.Workers <= 0 {
		errs = append(errs, errors.New("DISPATCH_WORKERS must be positive"))
	}
	if c.Pricing.Granularity <= 0 {
		errs = append(errs, errors.New("PRICE_GRANULARITY must be positive"))
	}
	for name, fee := range map[string]FeeConfig{
		"CANCELLATION_FEE": c.Fees.Cancellation,
		"TRANSACTION_FEE":  c.Fees.Transaction,
	} {
		if fee.Type != "amount" && fee.Type != "percentage" {
			errs = append(errs, fmt.Errorf("%s_TYPE must be amount or percentage, got %q", name, fee.Type))
		}
		if fee.Value < 0 {
			errs = append(errs, fmt.Errorf("%s_VALUE must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
