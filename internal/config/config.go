package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MinSecretBytes is the minimum length of the HS256 signing secret.
const MinSecretBytes = 32

var ErrWeakSecret = errors.New("JWT_SECRET must be set and at least 32 bytes long")

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Cookie    CookieConfig
	Events    EventsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

type CookieConfig struct {
	Secure bool
}

type EventsConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level string
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "snapstock")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	// lifetimes are configured in milliseconds
	viper.SetDefault("JWT_ACCESS_TOKEN_EXPIRATION_MS", 1800000)
	viper.SetDefault("JWT_REFRESH_TOKEN_EXPIRATION_MS", 1209600000)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOW_CREDENTIALS", true)
	viper.SetDefault("COOKIE_SECURE", true)
	viper.SetDefault("EVENTS_ENABLED", false)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(viper.GetInt64("JWT_ACCESS_TOKEN_EXPIRATION_MS")) * time.Millisecond,
			RefreshTokenTTL: time.Duration(viper.GetInt64("JWT_REFRESH_TOKEN_EXPIRATION_MS")) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			AllowCredentials: viper.GetBool("CORS_ALLOW_CREDENTIALS"),
		},
		Cookie: CookieConfig{Secure: viper.GetBool("COOKIE_SECURE")},
		Events: EventsConfig{Enabled: viper.GetBool("EVENTS_ENABLED")},
		Log:    LogConfig{Level: viper.GetString("LOG_LEVEL")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if len(strings.TrimSpace(c.JWT.Secret)) == 0 || len([]byte(c.JWT.Secret)) < MinSecretBytes {
		return ErrWeakSecret
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive (access=%s refresh=%s)", c.JWT.AccessTokenTTL, c.JWT.RefreshTokenTTL)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
