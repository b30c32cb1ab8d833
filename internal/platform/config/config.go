package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"production"`
	Address string `env:"ADDRESS" envDefault:"0.0.0.0"`
	APIPort string `env:"API_PORT" envDefault:"8080"`

	JWTSecret         string `env:"JWT_SECRET"`
	JWTExpHours       int    `env:"JWT_EXPIRATION_HOURS" envDefault:"24"`
	CookieTTLHours    int    `env:"COOKIE_TTL_HOURS" envDefault:"24"`
	CookieSecure      bool   `env:"COOKIE_SECURE" envDefault:"false"`
	AuthRequireCookie bool   `env:"AUTH_REQUIRE_COOKIE" envDefault:"true"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"10"`
	OTPIssuer         string `env:"OTP_ISSUER" envDefault:"NoteKeeperAPI"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER" envDefault:"user"`
	DBPassword  string `env:"DB_PASSWORD" envDefault:"password"`
	DBName      string `env:"DB_NAME" envDefault:"notekeeper"`
	DBSslMode   string `env:"DB_SSLMODE" envDefault:"disable"`
	DBWorkers   int    `env:"DB_WORKERS" envDefault:"5"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimitLogin         int `env:"RATE_LIMIT_LOGIN" envDefault:"10"`
	RateLimitWindowSeconds int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`

	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	MediaProvider          string `env:"MEDIA_PROVIDER" envDefault:"cloudinary"`
	MaxUploadBytes         int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	CloudinaryCloudName    string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryUploadPreset string `env:"CLOUDINARY_UPLOAD_PRESET"`
	S3Region               string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint             string `env:"S3_ENDPOINT"`
	S3Bucket               string `env:"S3_BUCKET"`
	S3AccessKey            string `env:"S3_ACCESS_KEY"`
	S3SecretKey            string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL        string `env:"S3_PUBLIC_BASE_URL"`

	MoonPayBaseURL string `env:"MOONPAY_BASE_URL" envDefault:"https://api.moonpay.com"`
	MoonPayAPIKey  string `env:"MOONPAY_API_KEY"`

	// DBConnStr is derived; DATABASE_URL wins when set.
	DBConnStr string
}

var ErrMissingSecret = errors.New("JWT_SECRET must be set")

// Load reads .env (if any) and the process environment into a Config.
// The result is meant to be built once in main and passed down.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.DBWorkers <= 0 {
		cfg.DBWorkers = 5
	}

	cfg.DBConnStr = cfg.DatabaseURL
	if cfg.DBConnStr == "" {
		cfg.DBConnStr = "host=" + cfg.DBHost +
			" port=" + cfg.DBPort +
			" user=" + cfg.DBUser +
			" password=" + cfg.DBPassword +
			" dbname=" + cfg.DBName +
			" sslmode=" + cfg.DBSslMode
	}
	return cfg, nil
}

func (c *Config) JWTExp() time.Duration {
	return time.Duration(c.JWTExpHours) * time.Hour
}

func (c *Config) CookieTTL() time.Duration {
	return time.Duration(c.CookieTTLHours) * time.Hour
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c *Config) ListenAddr() string {
	return c.Address + ":" + c.APIPort
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
