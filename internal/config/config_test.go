package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendHTTP, cfg.Data.Backend)
	assert.Equal(t, TransportWebSocket, cfg.Realtime.Transport)
	assert.Equal(t, 2*time.Second, cfg.Realtime.Throttle)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Breaker.MaxFailures)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ORDERDESK_DATA_BACKEND", "Postgres")
	t.Setenv("ORDERDESK_DB_DSN", "postgres://localhost/orders?sslmode=disable")
	t.Setenv("ORDERDESK_REALTIME_TRANSPORT", "redis")
	t.Setenv("ORDERDESK_REALTIME_RESOURCES", "order_payments,order_quotes")
	t.Setenv("ORDERDESK_REALTIME_THROTTLE", "500ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Data.Backend)
	assert.Equal(t, TransportRedis, cfg.Realtime.Transport)
	assert.Equal(t, []string{"order_payments", "order_quotes"}, cfg.Realtime.Resources)
	assert.Equal(t, 500*time.Millisecond, cfg.Realtime.Throttle)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"ORDERDESK_DATA_BACKEND": "grpc"}},
		{"postgres without dsn", map[string]string{"ORDERDESK_DATA_BACKEND": "postgres"}},
		{"unknown transport", map[string]string{"ORDERDESK_REALTIME_TRANSPORT": "mqtt"}},
		{"postgres transport without dsn", map[string]string{"ORDERDESK_REALTIME_TRANSPORT": "postgres"}},
		{"zero poll interval", map[string]string{"ORDERDESK_REALTIME_TRANSPORT": "poll", "ORDERDESK_REALTIME_POLL_INTERVAL": "0s"}},
		{"bad log level", map[string]string{"ORDERDESK_LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLogger(t *testing.T) {
	logger := LogConfig{Level: "debug", Format: "text"}.Logger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)

	logger = LogConfig{Level: "nonsense"}.Logger()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestBreakerTemplate(t *testing.T) {
	tpl := BreakerConfig{MaxFailures: 3, Timeout: time.Second, MaxRequests: 2}.Template()
	assert.Equal(t, 3, tpl.MaxFailures)
	assert.Equal(t, time.Second, tpl.Timeout)
	assert.Equal(t, 2, tpl.MaxRequests)
}
