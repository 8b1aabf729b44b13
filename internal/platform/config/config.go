package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string `env:"API_PORT" envDefault:"8080"`

	DataDir     string `env:"DATA_DIR" envDefault:"."`
	RecipesFile string `env:"RECIPES_FILE" envDefault:"recipes.json"`
	UsersFile   string `env:"USERS_FILE" envDefault:"users.json"`

	JWTSecret   string `env:"JWT_SECRET" envDefault:"defaultsecret"`
	JWTExpHours int    `env:"JWT_EXPIRATION_HOURS" envDefault:"72"`

	// Empty RedisAddr keeps view state in process memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads an optional .env file and then the process environment.
// The returned bool reports whether a .env file was found.
func Load(envFiles ...string) (*Config, bool, error) {
	dotenvFound := godotenv.Load(envFiles...) == nil

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, dotenvFound, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.JWTExpHours <= 0 {
		return nil, dotenvFound, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", cfg.JWTExpHours)
	}
	return cfg, dotenvFound, nil
}

func (c *Config) JWTExp() time.Duration {
	return time.Duration(c.JWTExpHours) * time.Hour
}

// RecipesPath resolves RecipesFile against DataDir unless it is absolute.
func (c *Config) RecipesPath() string {
	return c.resolve(c.RecipesFile)
}

func (c *Config) UsersPath() string {
	return c.resolve(c.UsersFile)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}
