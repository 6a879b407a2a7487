package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings, populated from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"3000"`

	// Database selection: memory (default for local dev), sqlite or postgres.
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"memory"`
	PostgresDSN    string `env:"POSTGRES_DSN"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./data/timelinehub.db"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`

	// Accounts whose email is listed here are bootstrapped as super admins on
	// first authentication. Afterwards roles are managed through the admin
	// API by existing super admins.
	BootstrapAdminEmails []string `env:"BOOTSTRAP_ADMIN_EMAILS" envSeparator:","`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	Debug bool `env:"DEBUG"`
}

// LoadConfig loads the environment-appropriate .env file and parses the
// process environment into a Config.
func LoadConfig() *Config {
	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	switch environment {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		panic(fmt.Sprintf("Failed to parse environment: %v", err))
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources.
	config.PostgresDSN = strings.TrimSpace(config.PostgresDSN)
	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	for i, email := range config.BootstrapAdminEmails {
		config.BootstrapAdminEmails[i] = strings.TrimSpace(email)
	}

	if config.IsProduction() {
		// Production never runs on the throwaway in-memory store.
		if config.DatabaseDriver == "memory" {
			fmt.Println("⚠️  WARNING: production environment with DATABASE_DRIVER=memory; data will not survive restarts")
		}
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config. On serverless platforms
// it initializes once per cold start and reuses it across warm invocations.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate checks settings that would otherwise fail at an awkward moment.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == "your-secret-key-change-in-production" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		fmt.Println("⚠️  Using default JWT secret (not recommended for production)")
	}

	switch c.DatabaseDriver {
	case "memory":
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required with DATABASE_DRIVER=sqlite")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required with DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	return nil
}

// IsBootstrapAdmin reports whether the email is on the bootstrap list.
func (c *Config) IsBootstrapAdmin(email string) bool {
	for _, candidate := range c.BootstrapAdminEmails {
		if candidate != "" && strings.EqualFold(candidate, email) {
			return true
		}
	}
	return false
}

// IsProduction checks for the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment checks for the development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// loadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment, without overriding variables that are already set.
func loadEnvFile(filename string) {
	file, err := os.Open(filename)
	if err != nil {
		return // missing file is fine
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
				(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
				value = value[1 : len(value)-1]
			}
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
