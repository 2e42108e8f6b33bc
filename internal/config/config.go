package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env         string
	Port        string
	LogLevel    string
	CORSOrigins []string

	// Database
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	MigrationsPath string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration
	RefreshTokenDur  time.Duration

	// Pipeline endpoints are called by external schedulers with a static key
	PipelineAPIKey string

	// WebAuthn relying party for passkeys
	WebAuthnRPID      string
	WebAuthnRPName    string
	WebAuthnRPOrigins []string

	// Events
	AMQPURL      string
	AMQPExchange string
	EventBuffer  int

	// Payroll scheduler
	PayrollSchedulerEnabled bool
	PayrollWarmup           time.Duration
	PayrollRetryInterval    time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get values from environment variables with defaults
	config := &Config{
		// Server
		Env:         getEnv("ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getList("CORS_ORIGINS", []string{"http://localhost:5173"}),

		// Database
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "budgetbook"),
		DBPassword:     getEnv("DB_PASSWORD", "budgetbook"),
		DBName:         getEnv("DB_NAME", "budgetbook"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),

		WebAuthnRPID:      getEnv("WEBAUTHN_RP_ID", "localhost"),
		WebAuthnRPName:    getEnv("WEBAUTHN_RP_NAME", "Budgetbook"),
		WebAuthnRPOrigins: getList("WEBAUTHN_RP_ORIGINS", []string{"http://localhost:5173"}),

		// Events; an empty URL disables publishing
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetbook.events"),
		EventBuffer:  getInt("EVENT_BUFFER", 256),

		PayrollSchedulerEnabled: getBool("PAYROLL_SCHEDULER_ENABLED", true),
	}

	config.JWTExpirationDur = getDuration("JWT_EXPIRES_IN", 15*time.Minute)
	config.RefreshTokenDur = getDuration("REFRESH_TOKEN_EXPIRES_IN", 7*24*time.Hour)
	config.PayrollWarmup = getDuration("PAYROLL_WARMUP", 2*time.Second)
	config.PayrollRetryInterval = getDuration("PAYROLL_RETRY_INTERVAL", 15*time.Second)

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %t\n", key, raw, defaultValue)
		return defaultValue
	}
	return b
}

func getInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
