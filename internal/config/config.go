package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Identity IdentityConfig
	Session  SessionConfig
	SMTP     SMTPConfig
	Otel     OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	InstanceID         string
}

type BackendConfig struct {
	URL           string
	Timeout       time.Duration
	UploadTimeout time.Duration
}

type IdentityConfig struct {
	URL       string
	AnonKey   string
	JWTSecret string
}

type SessionConfig struct {
	TTL         time.Duration
	SettleDelay time.Duration
}

// SMTPConfig drives feedback forwarding; it is off while Host or
// FeedbackRecipient is empty.
type SMTPConfig struct {
	Host              string
	Port              int
	Email             string
	Password          string
	SenderName        string
	FeedbackRecipient string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.FeedbackRecipient != ""
}

type OtelConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "gateway"
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/gateway.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			InstanceID:         getEnv("INSTANCE_ID", hostname),
		},
		Backend: BackendConfig{
			URL:           getEnv("BACKEND_URL", "http://localhost:5000"),
			Timeout:       getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),
			UploadTimeout: getEnvAsDuration("UPLOAD_TIMEOUT", 5*time.Minute),
		},
		Identity: IdentityConfig{
			URL:       getEnv("IDENTITY_URL", "http://localhost:54321"),
			AnonKey:   getEnv("IDENTITY_ANON_KEY", ""),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Session: SessionConfig{
			TTL:         getEnvAsDuration("SESSION_TTL", time.Hour),
			SettleDelay: getEnvAsDuration("SWITCH_SETTLE_DELAY", 100*time.Millisecond),
		},
		SMTP: SMTPConfig{
			Host:              getEnv("SMTP_HOST", ""),
			Port:              getEnvAsInt("SMTP_PORT", 587),
			Email:             getEnv("SMTP_EMAIL", ""),
			Password:          getEnv("SMTP_PASSWORD", ""),
			SenderName:        getEnv("SMTP_SENDER_NAME", "LinguaBridge"),
			FeedbackRecipient: getEnv("FEEDBACK_NOTIFY_EMAIL", ""),
		},
		Otel: OtelConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "linguabridge-gateway"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "1h") or a bare number of
// seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: invalid duration for %s=%q, using %s", key, strValue, fallback)
	return fallback
}
