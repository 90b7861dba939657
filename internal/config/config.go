package config

import (
	"os"
	"strconv"
	"time"

	"contentboard/pkg/config"
)

// NotifyConfig tunes the schedule.created consumer.
type NotifyConfig struct {
	Queue      string        `yaml:"queue"`
	MaxRetries int           `yaml:"max_retries"`
	DedupeTTL  time.Duration `yaml:"dedupe_ttl"`
	RetryTTL   time.Duration `yaml:"retry_ttl"`
}

// OutboxConfig tunes the outbox dispatcher.
type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

// RunnerConfig holds the cron specs of the runner jobs.
type RunnerConfig struct {
	WeeklySpec  string `yaml:"weekly_spec"`
	MonthlySpec string `yaml:"monthly_spec"`
}

type Config struct {
	DB       config.DBConfig       `yaml:"db"`
	Mongo    config.MongoConfig    `yaml:"mongo"`
	MQ       config.MQConfig       `yaml:"mq"`
	Redis    config.RedisConfig    `yaml:"redis"`
	JWT      config.JWTConfig      `yaml:"jwt"`
	Server   config.ServerConfig   `yaml:"server"`
	Log      config.LogConfig      `yaml:"log"`
	Mail     config.MailConfig     `yaml:"mail"`
	Schedule config.ScheduleConfig `yaml:"schedule"`
	Notify   NotifyConfig          `yaml:"notify"`
	Outbox   OutboxConfig          `yaml:"outbox"`
	Runner   RunnerConfig          `yaml:"runner"`
}

// Load reads config/base.yaml, the CONFIG_ENV overlay and secrets.env from
// dir (CONFIG_DIR, "config" by default), then applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

func LoadFrom(env, dir string) (*Config, error) {
	var cfg Config
	if _, err := config.Decode(env, dir, &cfg); err != nil {
		return nil, err
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMongoFromEnv(&cfg.Mongo)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideScheduleFromEnv(&cfg.Schedule)
	config.OverrideMailFromEnv(&cfg.Mail)

	if v := os.Getenv("NOTIFY_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Notify.MaxRetries = n
		}
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "America/Sao_Paulo"
	}
	if cfg.Notify.Queue == "" {
		cfg.Notify.Queue = "schedule.created.q"
	}
	if cfg.Notify.MaxRetries <= 0 {
		cfg.Notify.MaxRetries = 3
	}
	if cfg.Notify.DedupeTTL <= 0 {
		cfg.Notify.DedupeTTL = 24 * time.Hour
	}
	if cfg.Notify.RetryTTL <= 0 {
		cfg.Notify.RetryTTL = time.Hour
	}
	if cfg.Outbox.Interval <= 0 {
		cfg.Outbox.Interval = 2 * time.Second
	}
	if cfg.Outbox.BatchSize <= 0 {
		cfg.Outbox.BatchSize = 100
	}
	if cfg.Outbox.MaxRetries <= 0 {
		cfg.Outbox.MaxRetries = 5
	}
	if cfg.Runner.WeeklySpec == "" {
		cfg.Runner.WeeklySpec = "0 0 8 * * 1"
	}
	if cfg.Runner.MonthlySpec == "" {
		cfg.Runner.MonthlySpec = "0 0 0 1 * *"
	}
}
