package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Log      LogConfig      `mapstructure:"log" validate:"required"`
}

type ServerConfig struct {
	Port               int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// AuthConfig carries the token signing settings. The secret is never
// compiled into the binary; it must come from the environment.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	JWTIssuer  string        `mapstructure:"jwt_issuer" validate:"required"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	BcryptCost int           `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	Path   string `mapstructure:"path" validate:"required_if=Driver sqlite"`

	Host     string `mapstructure:"host" validate:"required_if=Driver postgres"`
	Port     string `mapstructure:"port" validate:"required_if=Driver postgres"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required_if=Driver postgres"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=trace debug info warn error fatal"`
	Format string `mapstructure:"format" validate:"required,oneof=json console"`
}

// Addr is the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// envBindings maps config keys to the environment variables that set them.
// The BLUEPRINT_DB_* names are kept so existing deployments keep working.
var envBindings = []struct {
	key    string
	envVar string
}{
	{"server.port", "PORT"},
	{"server.cors_allowed_origins", "CORS_ALLOWED_ORIGINS"},
	{"auth.jwt_secret", "JWT_SECRET"},
	{"auth.jwt_issuer", "JWT_ISSUER"},
	{"auth.token_ttl", "TOKEN_TTL"},
	{"auth.bcrypt_cost", "BCRYPT_COST"},
	{"database.driver", "DB_DRIVER"},
	{"database.path", "DB_PATH"},
	{"database.host", "BLUEPRINT_DB_HOST"},
	{"database.port", "BLUEPRINT_DB_PORT"},
	{"database.username", "BLUEPRINT_DB_USERNAME"},
	{"database.password", "BLUEPRINT_DB_PASSWORD"},
	{"database.name", "BLUEPRINT_DB_DATABASE"},
	{"log.level", "LOG_LEVEL"},
	{"log.format", "LOG_FORMAT"},
}

// Load reads configuration from environment variables, applies defaults and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_allowed_origins", []string{"https://*", "http://*"})
	v.SetDefault("auth.jwt_issuer", "qa-todo-api")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "qa_todo.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	for _, env := range envBindings {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
