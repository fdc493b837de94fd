package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
	Postgres  PostgresConfig  `yaml:"postgres" envPrefix:"POSTGRES_"`
	Bank      BankConfig      `yaml:"bank" envPrefix:"BANK_"`
	Quiz      QuizConfig      `yaml:"quiz" envPrefix:"QUIZ_"`
	WebSocket WebSocketConfig `yaml:"websocket" envPrefix:"WS_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	TTL      string `yaml:"ttl" env:"TTL"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"URL"`
}

// BankConfig controls where question banks come from.
type BankConfig struct {
	DefaultID string `yaml:"defaultId" env:"DEFAULT_ID"`
	File      string `yaml:"file" env:"FILE"`
	TTL       string `yaml:"ttl" env:"TTL"`
}

// QuizConfig holds session timing.
type QuizConfig struct {
	AnswerWindow string `yaml:"answerWindow" env:"ANSWER_WINDOW"`
	SettlePause  string `yaml:"settlePause" env:"SETTLE_PAUSE"`
}

type WebSocketConfig struct {
	ReadBufferSize  int    `yaml:"readBufferSize" env:"READ_BUFFER_SIZE"`
	WriteBufferSize int    `yaml:"writeBufferSize" env:"WRITE_BUFFER_SIZE"`
	MaxMessageSize  int64  `yaml:"maxMessageSize" env:"MAX_MESSAGE_SIZE"`
	PingInterval    string `yaml:"pingInterval" env:"PING_INTERVAL"`
	ReadTimeout     string `yaml:"readTimeout" env:"READ_TIMEOUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Pretty bool   `yaml:"pretty" env:"PRETTY"`
}

// Load reads YAML config from path and applies TRIVIA_* environment overrides.
// A missing file is not an error; defaults and the environment still apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TRIVIA_"}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
