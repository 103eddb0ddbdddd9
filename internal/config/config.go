package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env    string       `yaml:"env"`
	DB     DBConfig     `yaml:"db"`
	HTTP   HTTPConfig   `yaml:"http"`
	GRPC   GRPCConfig   `yaml:"grpc"`
	JWT    JWTConfig    `yaml:"jwt"`
	MQ     MQConfig     `yaml:"mq"`
	Redis  RedisConfig  `yaml:"redis"`
	Log    LogConfig    `yaml:"log"`
	Worker WorkerConfig `yaml:"worker"`
}

type DBConfig struct {
	// postgres | sqlite
	Driver          string `yaml:"driver"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	SSLMode         string `yaml:"sslmode"`
	TimeZone        string `yaml:"timezone"`
	SQLitePath      string `yaml:"sqlite_path"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeTime int    `yaml:"conn_max_lifetime_min"` // минут
	// Сколько раз повторять транзакцию записи при serialization failure.
	TxRetries int `yaml:"tx_retries"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	RateLimit       int64         `yaml:"rate_limit"`
	RateLimitPeriod time.Duration `yaml:"rate_limit_period"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// MQConfig: пустой URL — задачи исполняются в процессе, без RabbitMQ.
type MQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
	Prefetch int    `yaml:"prefetch"`
}

// RedisConfig: пустой адрес отключает дедупликацию и кеш статистики.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
	StatsTTL time.Duration `yaml:"stats_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Файл с ротацией; пусто — только stdout.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type WorkerConfig struct {
	PollInterval         time.Duration `yaml:"poll_interval"`
	BatchSize            int           `yaml:"batch_size"`
	MaxAttempts          int           `yaml:"max_attempts"`
	ReminderInterval     time.Duration `yaml:"reminder_interval"`
	CleanupInterval      time.Duration `yaml:"cleanup_interval"`
	ReportInterval       time.Duration `yaml:"report_interval"`
	StaleProjectAfter    time.Duration `yaml:"stale_project_after"`
	PendingPaymentTTL    time.Duration `yaml:"pending_payment_ttl"`
	BookingReminderAhead time.Duration `yaml:"booking_reminder_ahead"`
}

// Default возвращает конфиг для локального запуска.
func Default() Config {
	return Config{
		Env: "development",
		DB: DBConfig{
			Driver:          "postgres",
			Host:            "postgres",
			Port:            5432,
			User:            "consulting",
			Password:        "consulting",
			Name:            "consulting_db",
			SSLMode:         "disable",
			TimeZone:        "UTC",
			SQLitePath:      "consulting.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifeTime: 30,
			TxRetries:       3,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			RateLimit:       120,
			RateLimitPeriod: time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		GRPC: GRPCConfig{Addr: ":50051"},
		JWT:  JWTConfig{TTL: 24 * time.Hour},
		MQ: MQConfig{
			Exchange: "consulting.events",
			Queue:    "consulting.tasks",
			Prefetch: 16,
		},
		Redis: RedisConfig{
			DedupTTL: 24 * time.Hour,
			StatsTTL: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Worker: WorkerConfig{
			PollInterval:         time.Second,
			BatchSize:            100,
			MaxAttempts:          5,
			ReminderInterval:     time.Hour,
			CleanupInterval:      time.Hour,
			ReportInterval:       time.Hour,
			StaleProjectAfter:    7 * 24 * time.Hour,
			PendingPaymentTTL:    24 * time.Hour,
			BookingReminderAhead: 24 * time.Hour,
		},
	}
}

// Load собирает конфиг: дефолты -> YAML-файл (если задан) -> переменные окружения.
// .env в рабочей директории подхватывается, если он есть.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnv("APP_ENV", cfg.Env)

	cfg.DB.Driver = getEnv("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Host = getEnv("DB_HOST", cfg.DB.Host)
	cfg.DB.User = getEnv("DB_USER", cfg.DB.User)
	cfg.DB.Password = getEnv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = getEnv("DB_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.TimeZone = getEnv("DB_TIMEZONE", cfg.DB.TimeZone)
	cfg.DB.SQLitePath = getEnv("DB_SQLITE_PATH", cfg.DB.SQLitePath)
	cfg.DB.Port = getEnvInt("DB_PORT", cfg.DB.Port)
	cfg.DB.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns)
	cfg.DB.ConnMaxLifeTime = getEnvInt("DB_CONN_MAX_LIFETIME_MIN", cfg.DB.ConnMaxLifeTime)
	cfg.DB.TxRetries = getEnvInt("DB_TX_RETRIES", cfg.DB.TxRetries)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.RateLimit = int64(getEnvInt("HTTP_RATE_LIMIT", int(cfg.HTTP.RateLimit)))
	cfg.HTTP.RateLimitPeriod = getEnvDuration("HTTP_RATE_LIMIT_PERIOD", cfg.HTTP.RateLimitPeriod)

	cfg.GRPC.Addr = getEnv("GRPC_ADDR", cfg.GRPC.Addr)

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.TTL = getEnvDuration("JWT_TTL", cfg.JWT.TTL)

	cfg.MQ.URL = getEnv("RABBITMQ_URL", cfg.MQ.URL)
	cfg.MQ.Exchange = getEnv("RABBITMQ_EXCHANGE", cfg.MQ.Exchange)
	cfg.MQ.Queue = getEnv("RABBITMQ_QUEUE", cfg.MQ.Queue)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	cfg.Worker.PollInterval = getEnvDuration("WORKER_POLL_INTERVAL", cfg.Worker.PollInterval)
	cfg.Worker.MaxAttempts = getEnvInt("WORKER_MAX_ATTEMPTS", cfg.Worker.MaxAttempts)
}

// Validate — минимальная проверка обязательных полей.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
			return fmt.Errorf("invalid DB config: host/user/name must not be empty")
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			return fmt.Errorf("invalid DB config: sqlite_path must not be empty")
		}
	default:
		return fmt.Errorf("invalid DB config: unknown driver %q", c.DB.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("invalid JWT config: JWT_SECRET must be set")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
