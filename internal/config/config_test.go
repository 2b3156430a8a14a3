// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validConfigJSON = `{
    "rpc_url": "https://rpc.example.com",
    "native_fee_estimate": true,
    "commitment": "finalized",
    "skip_preflight": true,
    "max_retries": 3,
    "retry_delay": "250ms",
    "confirm_timeout": "30s",
    "poll_interval": "1s",
    "debug_logging": true,
    "log_file": "custom.log"
}`

var invalidConfigJSON = `{
    "rpc_url": "ftp://rpc.example.com",
    "max_retries": -1
}`

func setupTestConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid config", content: validConfigJSON},
		{name: "invalid config", content: invalidConfigJSON, wantErr: true},
		{name: "bad commitment", content: `{"commitment": "rooted"}`, wantErr: true},
		{name: "malformed json", content: `{"rpc_url":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(setupTestConfig(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://rpc.example.com", cfg.RPCURL)
			assert.True(t, cfg.NativeFeeEstimate)
			assert.Equal(t, 3, cfg.MaxRetries)
			assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
			assert.Equal(t, 30*time.Second, cfg.ConfirmTimeout)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultCommitment, cfg.Commitment)
	assert.Equal(t, DefaultConfirmTimeout, cfg.ConfirmTimeout)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Zero(t, cfg.MaxRetries)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SOLANA_TXPIPE_RPC_URL", "http://localhost:8899")
	t.Setenv("SOLANA_TXPIPE_MAX_RETRIES", "5")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", cfg.RPCURL)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestSubmitOptions(t *testing.T) {
	cfg, err := LoadConfig(setupTestConfig(t, validConfigJSON))
	require.NoError(t, err)

	opts := cfg.SubmitOptions()
	assert.Equal(t, rpc.CommitmentFinalized, opts.Commitment)
	assert.True(t, opts.SkipPreflight)
	assert.Equal(t, uint(3), opts.MaxClientSideRetries)
	assert.Equal(t, 30*time.Second, opts.Timeout)

	pc := cfg.PipelineConfig()
	assert.True(t, pc.SupportsNativeFeeEstimate)
	assert.Equal(t, 250*time.Millisecond, pc.Manager.RetryDelay)
	assert.Equal(t, time.Second, pc.Manager.PollInterval)

	lc := cfg.LoggerConfig()
	assert.Equal(t, "custom.log", lc.LogFile)
	assert.True(t, lc.Development)
}

func TestParseCommitment(t *testing.T) {
	for name, want := range map[string]rpc.CommitmentType{
		"processed": rpc.CommitmentProcessed,
		"Confirmed": rpc.CommitmentConfirmed,
		"":          rpc.CommitmentConfirmed,
		"finalized": rpc.CommitmentFinalized,
	} {
		got, err := ParseCommitment(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseCommitment("max")
	assert.Error(t, err)
}
