package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// SecurityConfig selects the hashing stack. The default algorithm applies
// to new passwords only; stored records keep verifying under their own tag.
type SecurityConfig struct {
	DefaultAlgorithm string `mapstructure:"default_algorithm"`
	BcryptCost       int    `mapstructure:"bcrypt_cost"`
	PBKDF2Iterations int    `mapstructure:"pbkdf2_iterations"`
}

type PasswordPolicyConfig struct {
	MinLength    int      `mapstructure:"min_length"`
	MinClasses   int      `mapstructure:"min_classes"`
	MaxRepeatRun int      `mapstructure:"max_repeat_run"`
	Blocklist    []string `mapstructure:"blocklist"`
}

// ValidationConfig controls contact verification and the TTL-based expiry
// of accounts that never validate.
type ValidationConfig struct {
	EmailEnabled    bool          `mapstructure:"email_enabled"`
	EmailTTLSeconds int64         `mapstructure:"email_ttl_seconds"`
	PhoneEnabled    bool          `mapstructure:"phone_enabled"`
	RequiredFields  []string      `mapstructure:"required_fields"`
	MaxTries        int           `mapstructure:"max_tries"`
	MaxResends      int           `mapstructure:"max_resends"`
	ResendWindow    time.Duration `mapstructure:"resend_window"`
}

type DefaultsConfig struct {
	Roles []string `mapstructure:"roles"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// SMTPConfig is read from the environment; credentials never live in the
// config file. An empty host means the email channel is unconfigured and
// every send reports failure.
type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM"`
}

// SMSConfig mirrors SMTPConfig for the SMS gateway.
type SMSConfig struct {
	APIURL string `envconfig:"SMS_API_URL"`
	APIKey string `envconfig:"SMS_API_KEY"`
	Sender string `envconfig:"SMS_SENDER"`
}

type Config struct {
	Server     ServerConfig         `mapstructure:"server"`
	Database   DatabaseConfig       `mapstructure:"database"`
	Redis      RedisConfig          `mapstructure:"redis"`
	Security   SecurityConfig       `mapstructure:"security"`
	Policy     PasswordPolicyConfig `mapstructure:"password_policy"`
	Validation ValidationConfig     `mapstructure:"validation"`
	Defaults   DefaultsConfig       `mapstructure:"defaults"`
	RateLimit  RateLimitConfig      `mapstructure:"rate_limit"`
	SMTP       SMTPConfig           `mapstructure:"-"`
	SMS        SMSConfig            `mapstructure:"-"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Provider credentials come from the environment only
	if err := envconfig.Process("", &config.SMTP); err != nil {
		return nil, fmt.Errorf("failed to read smtp config: %w", err)
	}
	if err := envconfig.Process("", &config.SMS); err != nil {
		return nil, fmt.Errorf("failed to read sms config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("DB_PORT"); port != "" {
		config.Database.Port, _ = strconv.Atoi(port)
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		config.Redis.URL = url
	}

	return &config, nil
}
