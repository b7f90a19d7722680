// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers accepted by DB_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Image stores accepted by IMAGE_STORE.
const (
	ImageStoreImageKit = "imagekit"
	ImageStoreLocal    = "local"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBDriver      string `mapstructure:"DB_DRIVER"`
	MongoURL      string `mapstructure:"MONGODB_URL"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        string `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME"`
	DBSSLMode     string `mapstructure:"DB_SSLMODE"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`
	RedisURL      string `mapstructure:"REDIS_URL"`

	DBMaxOpenConns           int  `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int  `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int  `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBAutoMigrate            bool `mapstructure:"DB_AUTO_MIGRATE"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	JWTExpiration string `mapstructure:"JWT_EXPIRATION"`

	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`

	ImageStore          string `mapstructure:"IMAGE_STORE"`
	ImageKitPublicKey   string `mapstructure:"IMAGEKIT_PUBLIC_KEY"`
	ImageKitPrivateKey  string `mapstructure:"IMAGEKIT_PRIVATE_KEY"`
	ImageKitURLEndpoint string `mapstructure:"IMAGEKIT_URL_ENDPOINT"`
	ImageUploadDir      string `mapstructure:"IMAGE_UPLOAD_DIR"`
	MediaBaseURL        string `mapstructure:"MEDIA_BASE_URL"`
	MaxUploadSizeMB     int    `mapstructure:"MAX_UPLOAD_SIZE_MB"`

	DefaultAvatarURL    string `mapstructure:"DEFAULT_AVATAR_URL"`
	DefaultBlogCoverURL string `mapstructure:"DEFAULT_BLOG_COVER_URL"`
	AllowAdminSignup    bool   `mapstructure:"ALLOW_ADMIN_SIGNUP"`

	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional; environment variables are enough.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("Loaded profile-specific configuration", slog.String("file", "config."+env+".yml"))
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "5000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_DRIVER", DriverMongo)
	viper.SetDefault("MONGODB_URL", "mongodb://localhost:27017")
	viper.SetDefault("MONGODB_DATABASE", "bolify")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "bolify")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", "bolify.db")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_AUTO_MIGRATE", false)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_EXPIRATION", "1h")
	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("IMAGE_STORE", ImageStoreImageKit)
	viper.SetDefault("IMAGEKIT_PUBLIC_KEY", "")
	viper.SetDefault("IMAGEKIT_PRIVATE_KEY", "")
	viper.SetDefault("IMAGEKIT_URL_ENDPOINT", "")
	viper.SetDefault("IMAGE_UPLOAD_DIR", "/tmp/bolify/uploads")
	viper.SetDefault("MEDIA_BASE_URL", "/media")
	viper.SetDefault("MAX_UPLOAD_SIZE_MB", 5)
	viper.SetDefault("DEFAULT_AVATAR_URL", "https://ik.imagekit.io/bolify/defaults/avatar.png")
	viper.SetDefault("DEFAULT_BLOG_COVER_URL", "https://ik.imagekit.io/bolify/defaults/default-blog-cover.png")
	viper.SetDefault("ALLOW_ADMIN_SIGNUP", false)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.ImageStore = strings.ToLower(strings.TrimSpace(c.ImageStore))
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// TokenTTL parses JWT_EXPIRATION. Besides Go durations it accepts a day
// suffix ("7d").
func (c *Config) TokenTTL() (time.Duration, error) {
	return ParseTTL(c.JWTExpiration)
}

// ParseTTL parses a Go duration or a whole number of days such as "7d".
func ParseTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Hour, nil
	}
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid JWT_EXPIRATION %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid JWT_EXPIRATION %q", raw)
	}
	return d, nil
}

// MaxUploadBytes is the per-file upload limit.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.MaxUploadSizeMB
	if mb <= 0 {
		mb = 5
	}
	return int64(mb) * 1024 * 1024
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}

	switch c.DBDriver {
	case DriverMongo:
		if c.MongoURL == "" {
			return errors.New("MONGODB_URL is required when DB_DRIVER is mongo")
		}
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.ImageStore {
	case ImageStoreImageKit:
		if c.ImageKitPublicKey == "" || c.ImageKitPrivateKey == "" || c.ImageKitURLEndpoint == "" {
			return errors.New("IMAGEKIT_PUBLIC_KEY, IMAGEKIT_PRIVATE_KEY and IMAGEKIT_URL_ENDPOINT are required when IMAGE_STORE is imagekit")
		}
	case ImageStoreLocal:
		if c.ImageUploadDir == "" {
			return errors.New("IMAGE_UPLOAD_DIR is required when IMAGE_STORE is local")
		}
	default:
		return fmt.Errorf("unsupported IMAGE_STORE %q", c.ImageStore)
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver == DriverPostgres {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
				return errors.New("DB_SSLMODE must not be 'disable' in production")
			}
		}
		if c.DBDriver == DriverSQLite {
			return errors.New("DB_DRIVER sqlite is not supported in production")
		}
		if c.ImageStore == ImageStoreLocal {
			slog.Warn("IMAGE_STORE is 'local' in production. Uploaded images live on this host only.")
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		slog.Warn("JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
