package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/circuitbreaker"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const EnvPrefix = "ORDERDESK"

const (
	BackendHTTP     = "http"
	BackendPostgres = "postgres"

	TransportNone      = "none"
	TransportPoll      = "poll"
	TransportWebSocket = "websocket"
	TransportKafka     = "kafka"
	TransportRedis     = "redis"
	TransportPostgres  = "postgres"
)

type Config struct {
	Log       LogConfig
	Data      DataConfig
	Breaker   BreakerConfig
	Realtime  RealtimeConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	MockServe MockConfig
}

type LogConfig struct {
	Level  string `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	Format string `envconfig:"ORDERDESK_LOG_FORMAT" default:"json"`
}

type DataConfig struct {
	Backend string        `envconfig:"ORDERDESK_DATA_BACKEND" default:"http"`
	BaseURL string        `envconfig:"ORDERDESK_DATA_URL" default:"http://localhost:8090"`
	DSN     string        `envconfig:"ORDERDESK_DB_DSN"`
	Timeout time.Duration `envconfig:"ORDERDESK_DATA_TIMEOUT" default:"10s"`
	DBWait  time.Duration `envconfig:"ORDERDESK_DB_WAIT" default:"60s"`
}

type BreakerConfig struct {
	MaxFailures int           `envconfig:"ORDERDESK_BREAKER_MAX_FAILURES" default:"5"`
	Timeout     time.Duration `envconfig:"ORDERDESK_BREAKER_TIMEOUT" default:"30s"`
	MaxRequests int           `envconfig:"ORDERDESK_BREAKER_HALF_OPEN_REQUESTS" default:"1"`
}

type RealtimeConfig struct {
	Transport    string        `envconfig:"ORDERDESK_REALTIME_TRANSPORT" default:"websocket"`
	WebSocketURL string        `envconfig:"ORDERDESK_REALTIME_WS_URL" default:"ws://localhost:8090/ws"`
	PollInterval time.Duration `envconfig:"ORDERDESK_REALTIME_POLL_INTERVAL" default:"15s"`
	Throttle     time.Duration `envconfig:"ORDERDESK_REALTIME_THROTTLE" default:"2s"`
	Resources    []string      `envconfig:"ORDERDESK_REALTIME_RESOURCES"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"ORDERDESK_KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"ORDERDESK_KAFKA_TOPIC" default:"order-changes"`
	GroupID string   `envconfig:"ORDERDESK_KAFKA_GROUP" default:"order-watch"`
}

type RedisConfig struct {
	Address  string `envconfig:"ORDERDESK_REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB       int    `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	Prefix   string `envconfig:"ORDERDESK_REDIS_PREFIX" default:"orderdesk"`
}

// MockConfig is only read by the mock data service.
type MockConfig struct {
	Port         string `envconfig:"ORDERDESK_MOCK_PORT" default:"8090"`
	PublishKafka bool   `envconfig:"ORDERDESK_MOCK_PUBLISH_KAFKA" default:"false"`
	SeedOrders   int    `envconfig:"ORDERDESK_MOCK_SEED_ORDERS" default:"3"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Data.Backend = strings.ToLower(c.Data.Backend)
	c.Realtime.Transport = strings.ToLower(c.Realtime.Transport)

	switch c.Data.Backend {
	case BackendHTTP:
		if c.Data.BaseURL == "" {
			return fmt.Errorf("ORDERDESK_DATA_URL is required for the http backend")
		}
	case BackendPostgres:
		if c.Data.DSN == "" {
			return fmt.Errorf("ORDERDESK_DB_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown data backend %q", c.Data.Backend)
	}

	switch c.Realtime.Transport {
	case TransportNone, TransportWebSocket, TransportKafka, TransportRedis:
	case TransportPoll:
		if c.Realtime.PollInterval <= 0 {
			return fmt.Errorf("ORDERDESK_REALTIME_POLL_INTERVAL must be positive")
		}
	case TransportPostgres:
		if c.Data.DSN == "" {
			return fmt.Errorf("ORDERDESK_DB_DSN is required for the postgres transport")
		}
	default:
		return fmt.Errorf("unknown realtime transport %q", c.Realtime.Transport)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// Logger builds the process logger.
func (c LogConfig) Logger() *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(c.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func (b BreakerConfig) Template() circuitbreaker.Config {
	return circuitbreaker.Config{
		MaxFailures: b.MaxFailures,
		Timeout:     b.Timeout,
		MaxRequests: b.MaxRequests,
	}
}
