package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.False(t, cfg.GRPC.Enabled)
	assert.Equal(t, "noop", cfg.Messaging.Driver, "messaging is off unless enabled")
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
	assert.Equal(t, devSessionSecret, cfg.Auth.SessionSecret)
	assert.Equal(t, 360*24*time.Hour, cfg.Auth.RememberTTL)
	assert.Len(t, cfg.Dashboard.ChartYears, 3)
	assert.Equal(t, time.Now().UTC().Year(), cfg.Dashboard.ChartYears[2])
	assert.Equal(t, 5, cfg.Dashboard.LogDays)
}

func TestOverrides(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_DRIVER", "redis")
	t.Setenv("OBS_PROMETHEUS_PATH", "metrics")
	t.Setenv("DASHBOARD_CHART_YEARS", "2021, nope, 2023")
	t.Setenv("KAFKA_BROKERS", "a:9092, ,b:9092")
	t.Setenv("LIST_PAGE_SIZE", "-3")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Driver, "disabled cache falls back to memory")
	assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
	assert.Equal(t, []int{2021, 2023}, cfg.Dashboard.ChartYears)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Messaging.Kafka.Brokers)
	assert.Equal(t, 20, cfg.Listing.PageSize)
}

func TestRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"http port":           {"HTTP_PORT": "0"},
		"cache driver":        {"CACHE_DRIVER": "memcached"},
		"messaging driver":    {"MESSAGING_ENABLED": "true", "MESSAGING_DRIVER": "nats"},
		"production secret":   {"OBS_ENVIRONMENT": "production"},
		"same cookie names":   {"SESSION_COOKIE_NAME": "sid", "COOKIE_NAME": "sid"},
		"bcrypt cost":         {"BCRYPT_COST": "2"},
		"grpc port":           {"GRPC_ENABLED": "true", "GRPC_PORT": "-1"},
		"empty writer dsn":    {"DB_WRITER_DSN": ""},
		"kafka without topic": {"MESSAGING_ENABLED": "true", "KAFKA_TOPIC": ""},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}
