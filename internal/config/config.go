package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Timer  TimerConfig  `yaml:"timer"`
	Loop   LoopConfig   `yaml:"loop"`
}

type ServerConfig struct {
	Mode string `yaml:"mode"` // "stdio" or "http"
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// TimerConfig carries the pomodoro cycle lengths in seconds and the
// single-active timer policy.
type TimerConfig struct {
	WorkSeconds      int  `yaml:"work_seconds"`
	ShortRestSeconds int  `yaml:"short_rest_seconds"`
	LongRestSeconds  int  `yaml:"long_rest_seconds"`
	LongRestInterval int  `yaml:"long_rest_interval"`
	SingleActive     bool `yaml:"single_active"`
}

type LoopConfig struct {
	TickMillis    int `yaml:"tick_ms"`
	AutosaveTicks int `yaml:"autosave_ticks"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Mode: "stdio",
			Host: "127.0.0.1",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "task-timer.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Timer: TimerConfig{
			WorkSeconds:      1500,
			ShortRestSeconds: 600,
			LongRestSeconds:  1800,
			LongRestInterval: 4,
			SingleActive:     true,
		},
		Loop: LoopConfig{
			TickMillis:    250,
			AutosaveTicks: 40,
		},
	}

	if path := os.Getenv("TASK_TIMER_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if mode := os.Getenv("TASK_TIMER_SERVER_MODE"); mode != "" {
		cfg.Server.Mode = mode
	}
	if host := os.Getenv("TASK_TIMER_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TASK_TIMER_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASK_TIMER_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("TASK_TIMER_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("TASK_TIMER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if singleStr := os.Getenv("TASK_TIMER_SINGLE_ACTIVE"); singleStr != "" {
		single, err := strconv.ParseBool(singleStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASK_TIMER_SINGLE_ACTIVE: %w", err)
		}
		cfg.Timer.SingleActive = single
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
