package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Logs   LogConfig
	Engine EngineConfig
	Http   HTTPConfig
}

type LogConfig struct {
	Style string // "console" or "json"
	Level string
}

type EngineConfig struct {
	Backend        string
	Depth          int
	MaxDepth       int // upper bound on depths requested over HTTP
	TimeLimit      time.Duration
	ThinkDelay     time.Duration
	TerminalScores bool
}

type HTTPConfig struct {
	Addr string
}

func Default() *Config {
	return &Config{
		Logs: LogConfig{Style: "console", Level: "info"},
		Engine: EngineConfig{
			Backend:        "notnil",
			Depth:          3,
			MaxDepth:       5,
			ThinkDelay:     300 * time.Millisecond,
			TerminalScores: true,
		},
		Http: HTTPConfig{Addr: "0.0.0.0:8080"},
	}
}

// LoadConfig reads the environment on top of Default. Unset keys keep their
// default; a malformed value is an error naming the key.
func LoadConfig() (*Config, error) {
	cfg := Default()

	stringVar(&cfg.Logs.Style, "LOG_STYLE")
	stringVar(&cfg.Logs.Level, "LOG_LEVEL")
	stringVar(&cfg.Engine.Backend, "CHESS_BACKEND")
	stringVar(&cfg.Http.Addr, "HTTP_ADDR")

	if err := intVar(&cfg.Engine.Depth, "CHESS_DEPTH"); err != nil {
		return nil, err
	}
	if err := intVar(&cfg.Engine.MaxDepth, "CHESS_MAX_DEPTH"); err != nil {
		return nil, err
	}
	if err := millisVar(&cfg.Engine.TimeLimit, "CHESS_TIME_LIMIT_MS"); err != nil {
		return nil, err
	}
	if err := millisVar(&cfg.Engine.ThinkDelay, "CHESS_THINK_DELAY_MS"); err != nil {
		return nil, err
	}
	if v := os.Getenv("CHESS_TERMINAL_SCORES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("error parsing CHESS_TERMINAL_SCORES: %w", err)
		}
		cfg.Engine.TerminalScores = b
	}

	if cfg.Engine.Depth < 1 {
		return nil, fmt.Errorf("CHESS_DEPTH must be at least 1, got %d", cfg.Engine.Depth)
	}
	if cfg.Engine.MaxDepth < cfg.Engine.Depth {
		return nil, fmt.Errorf("CHESS_MAX_DEPTH (%d) is below CHESS_DEPTH (%d)", cfg.Engine.MaxDepth, cfg.Engine.Depth)
	}
	return cfg, nil
}

func stringVar(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intVar(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("error converting string to int: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func millisVar(dst *time.Duration, key string) error {
	var ms int
	if err := intVar(&ms, key); err != nil {
		return err
	}
	if os.Getenv(key) != "" {
		if ms < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
		*dst = time.Duration(ms) * time.Millisecond
	}
	return nil
}
