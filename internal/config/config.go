package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	AI        AI        `mapstructure:"ai"`
	Images    Images    `mapstructure:"images"`
	Email     Email     `mapstructure:"email"`
	Webhook   Webhook   `mapstructure:"webhook"`
	RateLimit RateLimit `mapstructure:"ratelimit"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Admin     Admin     `mapstructure:"admin"`
	Analytics Analytics `mapstructure:"analytics"`
	Logging   Logging   `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin settings for the public form endpoints
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Database holds persistence configuration.
// Driver is "postgres" or "sqlite3".
type Database struct {
	Driver           string `mapstructure:"driver"`
	ConnectionString string `mapstructure:"connection_string"`
	AutoMigrate      bool   `mapstructure:"auto_migrate"`
}

// AI holds completion API configuration
type AI struct {
	Provider string       `mapstructure:"provider"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

// OpenAIConfig holds configuration for any OpenAI-compatible chat completion endpoint
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Images holds image search configuration (Pixabay)
type Images struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	MinWidth int           `mapstructure:"min_width"`
	PerPage  int           `mapstructure:"per_page"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Email holds email delivery API configuration
type Email struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	FromAddress string        `mapstructure:"from_address"`
	FromName    string        `mapstructure:"from_name"`
	NotifyTo    []string      `mapstructure:"notify_to"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Webhook holds lead webhook delivery configuration
type Webhook struct {
	URL            string        `mapstructure:"url"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// RateLimit holds the public lead endpoint limiter settings
type RateLimit struct {
	Enabled bool          `mapstructure:"enabled"`
	Window  time.Duration `mapstructure:"window"`
	Max     int           `mapstructure:"max"`
}

// Scheduler holds the scheduled-post executor settings
type Scheduler struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Lease    time.Duration `mapstructure:"lease"`
	Batch    int           `mapstructure:"batch"`
}

// Admin holds the bearer token guarding admin endpoints
type Admin struct {
	APIKey string `mapstructure:"api_key"`
}

// Analytics holds PostHog configuration
type Analytics struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Host    string `mapstructure:"host"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".contentops")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.auto_migrate", false)

	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.openai.model", "gpt-4o-mini")
	viper.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("ai.openai.timeout", "60s")
	viper.SetDefault("ai.openai.temperature", 0.7)
	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "60s")

	viper.SetDefault("images.base_url", "https://pixabay.com/api/")
	viper.SetDefault("images.min_width", 1200)
	viper.SetDefault("images.per_page", 10)
	viper.SetDefault("images.timeout", "10s")

	viper.SetDefault("email.base_url", "https://api.resend.com")
	viper.SetDefault("email.from_name", "Structure AI")
	viper.SetDefault("email.from_address", "noreply@structure.ai")
	viper.SetDefault("email.timeout", "10s")

	viper.SetDefault("webhook.max_retries", 3)
	viper.SetDefault("webhook.retry_delay", "1s")
	viper.SetDefault("webhook.attempt_timeout", "10s")

	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.window", "60s")
	viper.SetDefault("ratelimit.max", 5)

	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.interval", "1m")
	viper.SetDefault("scheduler.lease", "15m")
	viper.SetDefault("scheduler.batch", 5)

	viper.SetDefault("analytics.enabled", false)
	viper.SetDefault("analytics.host", "https://app.posthog.com")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("database.connection_string", []string{
		"DATABASE_URL",
		"POSTGRES_URL",
	})

	bindEnvKeys("ai.openai.api_key", []string{
		"OPENAI_API_KEY",
	})

	bindEnvKeys("ai.openai.base_url", []string{
		"OPENAI_BASE_URL",
	})

	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.provider", []string{
		"AI_PROVIDER",
	})

	bindEnvKeys("images.api_key", []string{
		"PIXABAY_API_KEY",
		"PIXABAY_KEY",
	})

	bindEnvKeys("email.api_key", []string{
		"RESEND_API_KEY",
		"EMAIL_API_KEY",
	})

	bindEnvKeys("webhook.url", []string{
		"LEAD_WEBHOOK_URL",
		"WEBHOOK_URL",
	})

	bindEnvKeys("admin.api_key", []string{
		"ADMIN_API_KEY",
	})

	bindEnvKeys("analytics.api_key", []string{
		"POSTHOG_API_KEY",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"CONTENTOPS_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// validateConfig rejects values that would make the service misbehave silently.
// Missing API keys are not errors here: the affected endpoints report them at request time.
func validateConfig(config *Config) error {
	var errors []string

	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: postgres, sqlite3", config.Database.Driver))
	}

	switch config.AI.Provider {
	case "openai", "gemini":
	default:
		errors = append(errors, fmt.Sprintf("Unknown AI provider: %s. Supported: openai, gemini", config.AI.Provider))
	}

	if config.Webhook.MaxRetries < 1 {
		errors = append(errors, "webhook.max_retries must be at least 1")
	}
	if config.RateLimit.Enabled && (config.RateLimit.Max < 1 || config.RateLimit.Window <= 0) {
		errors = append(errors, "ratelimit.max and ratelimit.window must be positive when the limiter is enabled")
	}
	if config.Scheduler.Enabled && config.Scheduler.Interval <= 0 {
		errors = append(errors, "scheduler.interval must be positive when the scheduler is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HasWebhook returns true if a lead webhook is configured
func (c *Config) HasWebhook() bool {
	return isValidAPIKey(c.Webhook.URL)
}

// isValidAPIKey checks if a secret is set and not a placeholder
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-openai-key", "your-pixabay-key", "your-webhook-url",
		"YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
