package config

import (
	"os"
	"strconv"
	"time"
)

// DBConfig Postgres connection settings
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// MongoConfig document store settings
type MongoConfig struct {
	URI                string        `yaml:"uri"`
	Database           string        `yaml:"database"`
	TasksCollection    string        `yaml:"tasks_collection"`
	UsersCollection    string        `yaml:"users_collection"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	DisableChangeWatch bool          `yaml:"disable_change_watch"`
}

// MQConfig message queue settings
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig token verification settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// ServerConfig HTTP listener settings
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LogConfig optional rotating file sink
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MailConfig outbound email settings. Driver is "smtp" or "log".
type MailConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	From            string        `yaml:"from"`
	Domain          string        `yaml:"domain"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
}

// ScheduleConfig cycle and calendar settings
type ScheduleConfig struct {
	Timezone string `yaml:"timezone"`
}

// Location resolves the configured timezone, falling back to local time.
func (c ScheduleConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// OverrideDBFromEnv overrides Postgres settings from the environment
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMongoFromEnv overrides document store settings from the environment
func OverrideMongoFromEnv(cfg *MongoConfig) {
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		cfg.URI = uri
	}
	if name := os.Getenv("MONGO_DB_NAME"); name != "" {
		cfg.Database = name
	}
	if cfg.TasksCollection == "" {
		cfg.TasksCollection = "content_schedule"
	}
	if cfg.UsersCollection == "" {
		cfg.UsersCollection = "users"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
}

// OverrideMQFromEnv overrides MQ settings from the environment
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv overrides Redis settings from the environment
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv overrides JWT settings from the environment
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv overrides HTTP settings from the environment
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideScheduleFromEnv overrides the schedule timezone from the environment
func OverrideScheduleFromEnv(cfg *ScheduleConfig) {
	if tz := os.Getenv("SCHEDULE_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
}

// OverrideMailFromEnv overrides outbound email settings from the environment
func OverrideMailFromEnv(cfg *MailConfig) {
	if driver := os.Getenv("MAIL_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		cfg.Username = user
	}
	if password := os.Getenv("EMAIL_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if from := os.Getenv("MAIL_FROM"); from != "" {
		cfg.From = from
	}
	if cfg.Driver == "" {
		cfg.Driver = "log"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
}
