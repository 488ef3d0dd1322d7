package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr              string
	Environment       string
	DatabaseURL       string
	MaxConns          int
	LockTimeout       time.Duration
	JWTSecret         string
	AdminPasswordHash string
	RunMigrations     bool
	RunSeed           bool
	MetricsEnabled    bool
}

// Load reads an optional YAML file named by CONFIG_PATH, then applies
// environment-variable overrides. Missing file is fine; env alone is a
// complete configuration.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("env", "development")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("lock_timeout", 3*time.Second)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("admin_password_hash", "")
	v.SetDefault("run_migrations", true)
	v.SetDefault("run_seed", true)
	v.SetDefault("metrics_enabled", true)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("HR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Addr:              v.GetString("addr"),
		Environment:       v.GetString("env"),
		DatabaseURL:       v.GetString("database.url"),
		MaxConns:          v.GetInt("database.max_conns"),
		LockTimeout:       v.GetDuration("lock_timeout"),
		JWTSecret:         v.GetString("jwt_secret"),
		AdminPasswordHash: v.GetString("admin_password_hash"),
		RunMigrations:     v.GetBool("run_migrations"),
		RunSeed:           v.GetBool("run_seed"),
		MetricsEnabled:    v.GetBool("metrics_enabled"),
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("database URL is required (HR_DATABASE_URL)")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("jwt secret is required in production")
	}
	return nil
}
