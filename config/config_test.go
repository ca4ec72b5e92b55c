package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_DRIVER", "CHECKOUT_ON_BACKEND_FAILURE", "KAFKA_ENABLED", "SYNC_POLL_INTERVAL", "UPSTREAM_TIMEOUT_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "ccb", cfg.Storage.Prefix)
	assert.Equal(t, FailurePolicyProceed, cfg.Checkout.OnBackendFailure)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "0.0635", cfg.Checkout.TaxRate)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("CHECKOUT_ON_BACKEND_FAILURE", "BLOCK")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SYNC_POLL_INTERVAL", "500ms")
	t.Setenv("UPSTREAM_TIMEOUT_SECONDS", "3")

	cfg := Load()

	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, FailurePolicyBlock, cfg.Checkout.OnBackendFailure)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
}

func TestLoadRejectsUnknownPolicyAndBadInterval(t *testing.T) {
	t.Setenv("CHECKOUT_ON_BACKEND_FAILURE", "retry")
	t.Setenv("SYNC_POLL_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, FailurePolicyProceed, cfg.Checkout.OnBackendFailure)
	assert.Equal(t, 2*time.Second, cfg.Sync.PollInterval)
}
