package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	MaxDBConns         int32
	KafkaConsumerGroup string

	TopicLike        string
	TopicBookmark    string
	TopicComment     string
	TopicStatsUpdate string
	TopicRetry       string
	TopicDeadLetter  string

	ConsumerPollInterval time.Duration
	RetryPollInterval    time.Duration

	BaseRetryDelay    time.Duration
	MaxRetryDelay     time.Duration
	MaxAttempts       int
	DeadLetterCeiling int
	ProcessTimeout    time.Duration

	CounterTTL       time.Duration
	EventDedupTTL    time.Duration
	FailureRetention time.Duration
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL        string   `yaml:"postgres_url"`
		RedisURL           string   `yaml:"redis_url"`
		KafkaBrokers       []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup string   `yaml:"kafka_consumer_group"`
	} `yaml:"dependencies"`
	Topics struct {
		Like        string `yaml:"like"`
		Bookmark    string `yaml:"bookmark"`
		Comment     string `yaml:"comment"`
		StatsUpdate string `yaml:"stats_update"`
		Retry       string `yaml:"retry"`
		DeadLetter  string `yaml:"dead_letter"`
	} `yaml:"topics"`
	Pipeline struct {
		BaseRetryDelaySeconds int `yaml:"base_retry_delay_seconds"`
		MaxRetryDelaySeconds  int `yaml:"max_retry_delay_seconds"`
		MaxAttempts           int `yaml:"max_attempts"`
		DeadLetterCeiling     int `yaml:"dead_letter_ceiling"`
		ProcessTimeoutSeconds int `yaml:"process_timeout_seconds"`
	} `yaml:"pipeline"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:            "M47-Interaction-Service",
		HTTPPort:             8080,
		GRPCPort:             9090,
		MaxDBConns:           20,
		KafkaConsumerGroup:   "m47-interaction-service",
		TopicLike:            "interaction.like",
		TopicBookmark:        "interaction.bookmark",
		TopicComment:         "interaction.comment",
		TopicStatsUpdate:     "interaction.stats",
		TopicRetry:           "interaction.retry",
		TopicDeadLetter:      "interaction.dlq",
		ConsumerPollInterval: time.Second,
		RetryPollInterval:    time.Second,
		BaseRetryDelay:       time.Second,
		MaxRetryDelay:        time.Minute,
		MaxAttempts:          3,
		DeadLetterCeiling:    5,
		ProcessTimeout:       10 * time.Second,
		CounterTTL:           time.Hour,
		EventDedupTTL:        7 * 24 * time.Hour,
		FailureRetention:     30 * 24 * time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
		}
		if f.Topics.Like != "" {
			cfg.TopicLike = f.Topics.Like
		}
		if f.Topics.Bookmark != "" {
			cfg.TopicBookmark = f.Topics.Bookmark
		}
		if f.Topics.Comment != "" {
			cfg.TopicComment = f.Topics.Comment
		}
		if f.Topics.StatsUpdate != "" {
			cfg.TopicStatsUpdate = f.Topics.StatsUpdate
		}
		if f.Topics.Retry != "" {
			cfg.TopicRetry = f.Topics.Retry
		}
		if f.Topics.DeadLetter != "" {
			cfg.TopicDeadLetter = f.Topics.DeadLetter
		}
		if f.Pipeline.BaseRetryDelaySeconds > 0 {
			cfg.BaseRetryDelay = time.Duration(f.Pipeline.BaseRetryDelaySeconds) * time.Second
		}
		if f.Pipeline.MaxRetryDelaySeconds > 0 {
			cfg.MaxRetryDelay = time.Duration(f.Pipeline.MaxRetryDelaySeconds) * time.Second
		}
		if f.Pipeline.MaxAttempts > 0 {
			cfg.MaxAttempts = f.Pipeline.MaxAttempts
		}
		if f.Pipeline.DeadLetterCeiling > 0 {
			cfg.DeadLetterCeiling = f.Pipeline.DeadLetterCeiling
		}
		if f.Pipeline.ProcessTimeoutSeconds > 0 {
			cfg.ProcessTimeout = time.Duration(f.Pipeline.ProcessTimeoutSeconds) * time.Second
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.TopicLike = envOrDefault("KAFKA_TOPIC_LIKE", cfg.TopicLike)
	cfg.TopicBookmark = envOrDefault("KAFKA_TOPIC_BOOKMARK", cfg.TopicBookmark)
	cfg.TopicComment = envOrDefault("KAFKA_TOPIC_COMMENT", cfg.TopicComment)
	cfg.TopicStatsUpdate = envOrDefault("KAFKA_TOPIC_STATS_UPDATE", cfg.TopicStatsUpdate)
	cfg.TopicRetry = envOrDefault("KAFKA_TOPIC_RETRY", cfg.TopicRetry)
	cfg.TopicDeadLetter = envOrDefault("KAFKA_TOPIC_DLQ", cfg.TopicDeadLetter)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.RetryPollInterval = time.Duration(envInt("RETRY_POLL_SECONDS", int(cfg.RetryPollInterval.Seconds()))) * time.Second
	cfg.BaseRetryDelay = time.Duration(envInt("BASE_RETRY_DELAY_SECONDS", int(cfg.BaseRetryDelay.Seconds()))) * time.Second
	cfg.MaxRetryDelay = time.Duration(envInt("MAX_RETRY_DELAY_SECONDS", int(cfg.MaxRetryDelay.Seconds()))) * time.Second
	cfg.MaxAttempts = envInt("MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.DeadLetterCeiling = envInt("DEAD_LETTER_CEILING", cfg.DeadLetterCeiling)
	cfg.ProcessTimeout = time.Duration(envInt("PROCESS_TIMEOUT_SECONDS", int(cfg.ProcessTimeout.Seconds()))) * time.Second
	cfg.CounterTTL = time.Duration(envInt("COUNTER_TTL_SECONDS", int(cfg.CounterTTL.Seconds()))) * time.Second
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.FailureRetention = time.Duration(envInt("FAILURE_RETENTION_DAYS", int(cfg.FailureRetention.Hours()/24))) * 24 * time.Hour

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
