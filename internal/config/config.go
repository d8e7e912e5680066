package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the process configuration, populated from the environment.
type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RabbitURL   string `env:"RABBITMQ_URL"` // optional: no broker, no events

	ArbitrationTimeout time.Duration `env:"ARBITRATION_TIMEOUT" envDefault:"2s"`
	DBLockTimeout      time.Duration `env:"DB_LOCK_TIMEOUT" envDefault:"3s"`

	WriteBehindWorkers    int           `env:"WRITE_BEHIND_WORKERS" envDefault:"4"`
	WriteBehindQueueSize  int           `env:"WRITE_BEHIND_QUEUE_SIZE" envDefault:"1024"`
	WriteBehindJobTimeout time.Duration `env:"WRITE_BEHIND_JOB_TIMEOUT" envDefault:"5s"`
}

// Load parses the configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
