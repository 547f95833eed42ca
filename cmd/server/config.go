package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment first; command-line flags override it.
type Config struct {
	Port            int           `env:"COURSEWORK_PORT"             envDefault:"8080"`
	DBPath          string        `env:"COURSEWORK_DB"               envDefault:"coursework.db"`
	StaticDir       string        `env:"COURSEWORK_STATIC_DIR"       envDefault:"./web/dist"`
	CORSOrigins     []string      `env:"COURSEWORK_CORS_ORIGINS"     envSeparator:","`
	ShutdownTimeout time.Duration `env:"COURSEWORK_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// LoadConfig parses environment variables, then the given arguments.
func LoadConfig(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (\":memory:\" for in-memory)")
	fs.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Directory of the built front-end")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}
