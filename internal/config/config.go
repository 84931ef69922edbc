package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	SMTP       SMTPConfig
	Assets     AssetsConfig
	Push       PushConfig
	Notify     NotifyConfig
	Admin      AdminConfig
	RateLimit  RateLimitConfig
	Tracing    TracingConfig
	CORSOrigin []string
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// IsDevelopment reports whether the server runs outside production
func (s ServerConfig) IsDevelopment() bool {
	return s.Env != "production"
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string
}

// DSN builds the pgx connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode, c.Schema,
	)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port for the redis client
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type JWTConfig struct {
	Secret      string
	TokenExpiry int // in hours
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// Enabled reports whether outbound email is configured
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type AssetsConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	MaxUpload int64 // in bytes
}

type PushConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type NotifyConfig struct {
	OperatorEmail string
	PollInterval  time.Duration
	BatchSize     int
	MaxAttempts   int
}

type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_TOKEN_EXPIRY", 24)
	viper.SetDefault("SMTP_PORT", "587")
	viper.SetDefault("SMTP_FROM", "tienda@vinyl-store.ec")
	viper.SetDefault("ASSETS_MAX_UPLOAD", 5<<20)
	viper.SetDefault("PUSH_ENDPOINT", "https://exp.host/--/api/v2/push/send")
	viper.SetDefault("PUSH_TIMEOUT", "5s")
	viper.SetDefault("NOTIFY_POLL_INTERVAL", "2s")
	viper.SetDefault("NOTIFY_BATCH_SIZE", 20)
	viper.SetDefault("NOTIFY_MAX_ATTEMPTS", 5)
	viper.SetDefault("ADMIN_NAME", "Administrador")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("OTEL_SERVICE_NAME", "vinyl-store")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:     viper.GetString("SERVER_PORT"),
			Env:      viper.GetString("SERVER_ENV"),
			LogLevel: viper.GetString("SERVER_LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			TokenExpiry: viper.GetInt("JWT_TOKEN_EXPIRY"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetString("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
		},
		Assets: AssetsConfig{
			CloudName: viper.GetString("CLOUDINARY_NAME"),
			APIKey:    viper.GetString("CLOUDINARY_API_KEY"),
			APISecret: viper.GetString("CLOUDINARY_API_SECRET"),
			MaxUpload: viper.GetInt64("ASSETS_MAX_UPLOAD"),
		},
		Push: PushConfig{
			Endpoint: viper.GetString("PUSH_ENDPOINT"),
			Timeout:  viper.GetDuration("PUSH_TIMEOUT"),
		},
		Notify: NotifyConfig{
			OperatorEmail: viper.GetString("NOTIFY_OPERATOR_EMAIL"),
			PollInterval:  viper.GetDuration("NOTIFY_POLL_INTERVAL"),
			BatchSize:     viper.GetInt("NOTIFY_BATCH_SIZE"),
			MaxAttempts:   viper.GetInt("NOTIFY_MAX_ATTEMPTS"),
		},
		Admin: AdminConfig{
			Name:     viper.GetString("ADMIN_NAME"),
			Email:    viper.GetString("ADMIN_EMAIL"),
			Password: viper.GetString("ADMIN_PASSWORD"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Tracing: TracingConfig{
			Endpoint:    viper.GetString("OTEL_EXPORTER_ENDPOINT"),
			ServiceName: viper.GetString("OTEL_SERVICE_NAME"),
		},
		CORSOrigin: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
