// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Backends for the document store.
const (
	DocumentBackendMongo  = "mongo"
	DocumentBackendMemory = "memory"
)

// Backends for the file store.
const (
	FileBackendCloudinary = "cloudinary"
	FileBackendDisk       = "disk"
	FileBackendMemory     = "memory"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"APP_ENV"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	AllowedOrigins string        `mapstructure:"ALLOWED_ORIGINS"`

	DocumentBackend string `mapstructure:"DOCUMENT_BACKEND"`
	MongoURI        string `mapstructure:"MONGO_URI"`
	MongoDatabase   string `mapstructure:"MONGO_DATABASE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	FileBackend      string `mapstructure:"FILE_BACKEND"`
	CloudinaryURL    string `mapstructure:"CLOUDINARY_URL"`
	CloudinaryFolder string `mapstructure:"CLOUDINARY_FOLDER"`
	UploadDir        string `mapstructure:"UPLOAD_DIR"`
	PublicBaseURL    string `mapstructure:"PUBLIC_BASE_URL"`
	MaxUploadSizeMB  int    `mapstructure:"MAX_UPLOAD_SIZE_MB"`
	AvatarBaseURL    string `mapstructure:"AVATAR_BASE_URL"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
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
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("SESSION_TTL", "720h")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("DOCUMENT_BACKEND", DocumentBackendMongo)
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "snapgram")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("FILE_BACKEND", FileBackendDisk)
	viper.SetDefault("CLOUDINARY_URL", "")
	viper.SetDefault("CLOUDINARY_FOLDER", "snapgram")
	viper.SetDefault("UPLOAD_DIR", "/tmp/snapgram/uploads")
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:8375")
	viper.SetDefault("MAX_UPLOAD_SIZE_MB", 10)
	viper.SetDefault("AVATAR_BASE_URL", "https://ui-avatars.com/api/")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DocumentBackend = strings.ToLower(strings.TrimSpace(config.DocumentBackend))
	config.FileBackend = strings.ToLower(strings.TrimSpace(config.FileBackend))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}

	switch c.DocumentBackend {
	case DocumentBackendMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo document backend")
		}
		if c.MongoDatabase == "" {
			return errors.New("MONGO_DATABASE is required for the mongo document backend")
		}
	case DocumentBackendMemory:
	default:
		return fmt.Errorf("unknown DOCUMENT_BACKEND %q", c.DocumentBackend)
	}

	switch c.FileBackend {
	case FileBackendCloudinary:
		if c.CloudinaryURL == "" {
			return errors.New("CLOUDINARY_URL is required for the cloudinary file backend")
		}
	case FileBackendDisk:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for the disk file backend")
		}
	case FileBackendMemory:
	default:
		return fmt.Errorf("unknown FILE_BACKEND %q", c.FileBackend)
	}

	if c.MaxUploadSizeMB <= 0 {
		return errors.New("MAX_UPLOAD_SIZE_MB must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DocumentBackend == DocumentBackendMemory {
			log.Println("WARNING: DOCUMENT_BACKEND is 'memory' in production. Data will not survive a restart.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
