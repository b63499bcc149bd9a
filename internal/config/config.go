package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
	Database   DatabaseConfig   `json:"database"`
	Redis      RedisConfig      `json:"redis"`
	Telegram   TelegramConfig   `json:"telegram"`
	Kafka      KafkaConfig      `json:"kafka"`
	Webhooks   []WebhookConfig  `json:"webhooks"`
	Prometheus PrometheusConfig `json:"prometheus"`
	Monitor    MonitorConfig    `json:"monitor"`
}

type ServerConfig struct {
	BindAddr  string `json:"bindAddr"`
	AuthToken string `json:"authToken"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// DSN builds a connection string for the history archive database.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type TelegramConfig struct {
	BotToken string `json:"botToken"`
	ChatID   string `json:"chatID"`
}

type KafkaConfig struct {
	Brokers string `json:"brokers"` // comma-separated
	Topic   string `json:"topic"`
}

type WebhookConfig struct {
	Name string `json:"name"`
	Type string `json:"type"` // "slack" | "http"
	URL  string `json:"url"`
}

type PrometheusConfig struct {
	URL          string `json:"url"`
	QueryTimeout string `json:"queryTimeout"`
}

type MonitorConfig struct {
	Interval      string `json:"interval"` // e.g. "30s"
	RulesFile     string `json:"rulesFile"`
	DefaultRules  bool   `json:"defaultRules"`
	HistoryLimit  int    `json:"historyLimit"`
	NotifyTimeout string `json:"notifyTimeout"` // per-sink delivery bound
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()

	cfg := &Config{
		Server: ServerConfig{
			BindAddr:  getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
			AuthToken: getEnv("SERVER_AUTH_TOKEN", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "telemon"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "telemon"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnv("KAFKA_BROKERS", ""),
			Topic:   getEnv("KAFKA_ALERT_TOPIC", "telemon.alerts"),
		},
		Prometheus: PrometheusConfig{
			URL:          getEnv("PROMETHEUS_URL", "http://localhost:9090"),
			QueryTimeout: getEnv("PROMETHEUS_QUERY_TIMEOUT", "30s"),
		},
		Monitor: MonitorConfig{
			Interval:      getEnv("MONITOR_INTERVAL", "30s"),
			RulesFile:     getEnv("ALERT_RULES_FILE", ""),
			DefaultRules:  getEnvBool("ALERT_DEFAULT_RULES", true),
			HistoryLimit:  getEnvInt("ALERT_HISTORY_LIMIT", 1000),
			NotifyTimeout: getEnv("NOTIFY_TIMEOUT", "10s"),
		},
	}

	if *configFile != "" {
		if err := loadFromFile(cfg, *configFile); err != nil {
			log.Err(err)
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	if cfg.Prometheus.URL == "" {
		cfg.Prometheus.URL = "http://localhost:9090"
	}
	if cfg.Prometheus.QueryTimeout == "" {
		cfg.Prometheus.QueryTimeout = "30s"
	}
	if cfg.Monitor.Interval == "" {
		cfg.Monitor.Interval = "30s"
	}
	if cfg.Monitor.NotifyTimeout == "" {
		cfg.Monitor.NotifyTimeout = "10s"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "telemon.alerts"
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
