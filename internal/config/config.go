package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Matching  MatchingConfig  `yaml:"matching"`
	Signaling SignalingConfig `yaml:"signaling"`
	Session   SessionConfig   `yaml:"session"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
}

type HTTPConfig struct {
	Address string `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
}

type EmbeddingConfig struct {
	BaseURL string        `yaml:"base_url" env:"EMBEDDING_BASE_URL" env-default:"https://generativelanguage.googleapis.com"`
	APIKey  string        `yaml:"api_key" env:"EMBEDDING_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"EMBEDDING_TIMEOUT" env-default:"30s"`
}

type IndexConfig struct {
	URL     string        `yaml:"url" env:"INDEX_URL" env-default:"http://localhost:6333"`
	APIKey  string        `yaml:"api_key" env:"INDEX_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"INDEX_TIMEOUT" env-default:"30s"`
}

type MatchingConfig struct {
	Threshold float64 `yaml:"threshold" env:"MATCHING_THRESHOLD" env-default:"0.70"`
}

type SignalingConfig struct {
	MailboxCapacity int           `yaml:"mailbox_capacity" env:"SIGNALING_MAILBOX_CAPACITY" env-default:"50"`
	MaxAge          time.Duration `yaml:"max_age" env:"SIGNALING_MAX_AGE" env-default:"15m"`
	SweepInterval   time.Duration `yaml:"sweep_interval" env:"SIGNALING_SWEEP_INTERVAL" env-default:"1m"`
}

type SessionConfig struct {
	MaxIdle       time.Duration `yaml:"max_idle" env:"SESSION_MAX_IDLE" env-default:"24h"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" env-default:"10m"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

type AuthConfig struct {
	Secret string        `yaml:"secret" env:"AUTH_SECRET" env-default:"dev-secret"`
	TTL    time.Duration `yaml:"ttl" env:"AUTH_TTL" env-default:"24h"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Matching.Threshold <= 0 {
		c.Matching.Threshold = 0.70
	}
	if c.Signaling.MailboxCapacity <= 0 {
		c.Signaling.MailboxCapacity = 50
	}
}
