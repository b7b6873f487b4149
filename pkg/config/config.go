package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	App          AppConfig
	Auth         AuthConfig
	Booking      BookingConfig
	Workers      WorkersConfig
	Notification NotificationConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	FlowTTL  time.Duration
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string
	Format string // json or text
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string
	Version     string
	Name        string
}

// AuthConfig holds JWT authentication configuration
type AuthConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	RefreshTTL     time.Duration
	AdminRoles     []string
	BCryptCost     int
	RateLimitRPS   float64
	RateLimitBurst int
}

// BookingConfig holds scheduling engine tunables
type BookingConfig struct {
	RetryAttempts  int
	RetryBackoff   time.Duration
	MaxBatchSize   int
	DefaultFlowTTL time.Duration
}

// WorkersConfig holds background worker intervals
type WorkersConfig struct {
	ApprovalSweepInterval    time.Duration
	ApprovalSweepBatchSize   int
	LifecycleInterval        time.Duration
	IndexReconcileInterval   time.Duration
	NotificationRetryBackoff time.Duration
}

// NotificationConfig holds notification service configuration
type NotificationConfig struct {
	BaseURL string
	Email   EmailConfig
	Slack   SlackConfig
}

// EmailConfig holds email notification configuration
type EmailConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
}

// SlackConfig holds Slack notification configuration
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "scheduling"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			FlowTTL:  getEnvAsDuration("REDIS_FLOW_TTL", 10*time.Minute),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Name:        getEnv("APP_NAME", "scheduling-engine"),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			TokenTTL:       getEnvAsDuration("JWT_TOKEN_TTL", 15*time.Minute),
			RefreshTTL:     getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			AdminRoles:     []string{getEnv("AUTH_ADMIN_ROLE", "admin")},
			BCryptCost:     getEnvAsInt("AUTH_BCRYPT_COST", 12),
			RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Booking: BookingConfig{
			RetryAttempts: getEnvAsInt("BOOKING_RETRY_ATTEMPTS", 3),
			RetryBackoff:  getEnvAsDuration("BOOKING_RETRY_BACKOFF", 100*time.Millisecond),
			MaxBatchSize:  getEnvAsInt("BOOKING_MAX_BATCH_SIZE", 366),
		},
		Workers: WorkersConfig{
			ApprovalSweepInterval:  getEnvAsDuration("WORKER_APPROVAL_SWEEP_INTERVAL", time.Minute),
			ApprovalSweepBatchSize: getEnvAsInt("WORKER_APPROVAL_SWEEP_BATCH", 200),
			LifecycleInterval:      getEnvAsDuration("WORKER_LIFECYCLE_INTERVAL", time.Minute),
			IndexReconcileInterval: getEnvAsDuration("WORKER_INDEX_RECONCILE_INTERVAL", 15*time.Minute),
		},
		Notification: NotificationConfig{
			BaseURL: getEnv("NOTIFICATION_BASE_URL", "http://localhost:8080"),
			Email: EmailConfig{
				Enabled:      getEnvAsBool("NOTIFICATION_EMAIL_ENABLED", false),
				SMTPHost:     getEnv("NOTIFICATION_SMTP_HOST", "smtp.gmail.com"),
				SMTPPort:     getEnvAsInt("NOTIFICATION_SMTP_PORT", 587),
				SMTPUser:     getEnv("NOTIFICATION_SMTP_USER", ""),
				SMTPPassword: getEnv("NOTIFICATION_SMTP_PASSWORD", ""),
				FromAddress:  getEnv("NOTIFICATION_FROM_ADDRESS", "noreply@example.com"),
			},
			Slack: SlackConfig{
				Enabled:    getEnvAsBool("NOTIFICATION_SLACK_ENABLED", false),
				WebhookURL: getEnv("NOTIFICATION_SLACK_WEBHOOK_URL", ""),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if c.App.Environment == "production" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.Booking.RetryAttempts < 1 {
		return fmt.Errorf("booking retry attempts must be at least 1")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
