package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, time.Second, cfg.RetryInitialDelay)
	assert.Equal(t, 5*time.Second, cfg.CooldownDefault)
	assert.Equal(t, "OS_DEVICE_ID", cfg.DeviceIDKey)
	assert.Equal(t, 5, cfg.SampleCount)
	assert.Equal(t, 300*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, 30*time.Second, cfg.ConsistencyCheckInterval)
	assert.Empty(t, cfg.Endpoint, "a missing endpoint is reported per call")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ATTENDANCE_ENDPOINT", "https://example.com/exec")
	t.Setenv("RETRY_COUNT", "5")
	t.Setenv("SAMPLE_INTERVAL", "500ms")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/exec", cfg.Endpoint)
	assert.Equal(t, 5, cfg.RetryCount)
	assert.Equal(t, 500*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"negative retries", "RETRY_COUNT", "-1", "RETRY_COUNT must not be negative"},
		{"zero samples", "SAMPLE_COUNT", "0", "SAMPLE_COUNT must be between 1 and 10"},
		{"unknown driver", "DATABASE_DRIVER", "mysql", "DATABASE_DRIVER must be one of sqlite3, postgres, pgx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_CooldownFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cooldowns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: 4s\ntriggers:\n  btnOn: 2s\n  btnQuery: 10s\n"), 0o600))
	t.Setenv("COOLDOWN_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, cfg.CooldownDefault)
	assert.Equal(t, map[string]time.Duration{"btnOn": 2 * time.Second, "btnQuery": 10 * time.Second}, cfg.Cooldowns)
}
