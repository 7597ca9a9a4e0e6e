package config

import (
	"errors"
	"fmt"
	"log"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit storage backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Mail providers
const (
	MailProviderResend = "resend"
	MailProviderSMTP   = "smtp"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration sourced from environment variables.
type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	Admin     AdminConfig
	CORS      CORSConfig
	Proxy     ProxyConfig
	Log       LogConfig
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// GRPCConfig contains gRPC server settings
type GRPCConfig struct {
	Enabled bool
	Port    int
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// RateLimitConfig contains the contact endpoint limit and its storage
type RateLimitConfig struct {
	Backend       string // memory, redis
	MaxRequests   int64
	WindowSeconds int64
	SweepInterval time.Duration
	Shards        int
	KeyPrefix     string
}

// MailConfig contains email delivery settings
type MailConfig struct {
	Provider      string // resend, smtp
	ResendAPIKey  string
	ResendBaseURL string
	ToEmail       string
	FromEmail     string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
}

// AdminConfig contains admin route settings
type AdminConfig struct {
	Token string
}

// CORSConfig contains cross-origin settings
type CORSConfig struct {
	AllowedOrigins []string
}

// ProxyConfig lists the reverse proxies whose forwarding headers are honoured
type ProxyConfig struct {
	TrustedProxies []string // addresses or CIDR ranges
}

// Load reads environment variables into Config. It expects godotenv to have been
// executed by the caller when needed (e.g. in development).
func Load() Config {
	server := ServerConfig{
		Host:            getEnv("APP_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("APP_PORT", 3000),
		ReadTimeout:     getEnvAsDuration("APP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getEnvAsDuration("APP_WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:     getEnvAsDuration("APP_IDLE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvAsDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	grpc := GRPCConfig{
		Enabled: getEnvAsBool("GRPC_ENABLED", false),
		Port:    getEnvAsInt("GRPC_PORT", 50051),
	}

	redis := RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnvAsInt("REDIS_PORT", 6379),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
		PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
	}

	rateLimit := RateLimitConfig{
		Backend:       strings.ToLower(getEnv("RATE_LIMIT_BACKEND", BackendMemory)),
		MaxRequests:   int64(getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 5)),
		WindowSeconds: int64(getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 3600)),
		SweepInterval: getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		Shards:        getEnvAsInt("RATE_LIMIT_SHARDS", 32),
		KeyPrefix:     getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:contact:"),
	}

	mail := MailConfig{
		Provider:      strings.ToLower(getEnv("MAIL_PROVIDER", MailProviderResend)),
		ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
		ResendBaseURL: getEnv("RESEND_BASE_URL", "https://api.resend.com"),
		ToEmail:       getEnv("CONTACT_TO_EMAIL", ""),
		FromEmail:     getEnv("CONTACT_FROM_EMAIL", ""),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
	}

	log := LogConfig{
		Level:  getEnv("LOG_LEVEL", "debug"),
		Format: getEnv("LOG_FORMAT", "console"),
	}

	cfg := Config{
		Server:    server,
		GRPC:      grpc,
		Redis:     redis,
		RateLimit: rateLimit,
		Mail:      mail,
		Admin:     AdminConfig{Token: getEnv("ADMIN_TOKEN", "")},
		CORS:      CORSConfig{AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS")},
		Proxy:     ProxyConfig{TrustedProxies: getEnvAsList("TRUSTED_PROXIES")},
		Log:       log,
	}

	return cfg
}

// Validate rejects settings the service cannot run with. Missing mail
// credentials are not an error: the contact endpoint then answers with a
// configuration error instead.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: APP_PORT must be between 1 and 65535, got %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.GRPC.Enabled && (c.GRPC.Port <= 0 || c.GRPC.Port > 65535) {
		return fmt.Errorf("%w: GRPC_PORT must be between 1 and 65535, got %d", ErrInvalidConfig, c.GRPC.Port)
	}

	switch c.RateLimit.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown RATE_LIMIT_BACKEND %q", ErrInvalidConfig, c.RateLimit.Backend)
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("%w: RATE_LIMIT_MAX_REQUESTS must be greater than 0", ErrInvalidConfig)
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("%w: RATE_LIMIT_WINDOW_SECONDS must be greater than 0", ErrInvalidConfig)
	}
	if c.RateLimit.Shards <= 0 {
		return fmt.Errorf("%w: RATE_LIMIT_SHARDS must be greater than 0", ErrInvalidConfig)
	}

	switch c.Mail.Provider {
	case MailProviderResend, MailProviderSMTP:
	default:
		return fmt.Errorf("%w: unknown MAIL_PROVIDER %q", ErrInvalidConfig, c.Mail.Provider)
	}

	for _, proxy := range c.Proxy.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("%w: TRUSTED_PROXIES entry %q is not an address or CIDR range", ErrInvalidConfig, proxy)
		}
	}

	return nil
}

// MailConfigured reports whether the selected provider has what it needs to
// send.
func (c *Config) MailConfigured() bool {
	if c.Mail.ToEmail == "" || c.Mail.FromEmail == "" {
		return false
	}
	switch c.Mail.Provider {
	case MailProviderResend:
		return c.Mail.ResendAPIKey != ""
	case MailProviderSMTP:
		return c.Mail.SMTPHost != ""
	}
	return false
}

func validProxy(entry string) bool {
	if strings.Contains(entry, "/") {
		_, err := netip.ParsePrefix(entry)
		return err == nil
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	dur, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return dur
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func LoadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("warning: could not load .env: %v", err)
		}
	}
}

// RedisAddr returns the Redis address in host:port format
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ServerAddr returns the server address in host:port format
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GRPCAddr returns the gRPC server address in host:port format
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.GRPC.Port)
}
