// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-txpipe/internal/transaction"
	"github.com/rovshanmuradov/solana-txpipe/internal/utils/logger"
)

type Config struct {
	RPCURL            string        `mapstructure:"rpc_url"`
	NativeFeeEstimate bool          `mapstructure:"native_fee_estimate"`
	Commitment        string        `mapstructure:"commitment"`
	SkipPreflight     bool          `mapstructure:"skip_preflight"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	ConfirmTimeout    time.Duration `mapstructure:"confirm_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	DebugLogging      bool          `mapstructure:"debug_logging"`
	LogFile           string        `mapstructure:"log_file"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`
}

const (
	DefaultRPCURL         = "https://api.mainnet-beta.solana.com"
	DefaultCommitment     = "confirmed"
	DefaultMaxRetries     = 0
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultLogFile        = "txpipe.log"

	envPrefix = "SOLANA_TXPIPE"
)

// LoadConfig reads path (optional) and SOLANA_TXPIPE_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_url":             DefaultRPCURL,
		"native_fee_estimate": false,
		"commitment":          DefaultCommitment,
		"skip_preflight":      false,
		"max_retries":         DefaultMaxRetries,
		"retry_delay":         DefaultRetryDelay,
		"confirm_timeout":     DefaultConfirmTimeout,
		"poll_interval":       DefaultPollInterval,
		"debug_logging":       false,
		"log_file":            DefaultLogFile,
		"metrics_addr":        "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is empty")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if _, err := ParseCommitment(cfg.Commitment); err != nil {
		return err
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.MaxRetries < 0 {
		return errors.New("invalid max_retries")
	}
	if cfg.RetryDelay <= 0 {
		return errors.New("invalid retry_delay")
	}
	if cfg.ConfirmTimeout <= 0 {
		return errors.New("invalid confirm_timeout")
	}
	if cfg.PollInterval <= 0 {
		return errors.New("invalid poll_interval")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

// ParseCommitment maps a commitment name onto the RPC type.
func ParseCommitment(name string) (rpc.CommitmentType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", errors.New("invalid commitment: " + name)
	}
}

// SubmitOptions returns the submission options described by the config.
func (c *Config) SubmitOptions() transaction.SubmitOptions {
	commitment, err := ParseCommitment(c.Commitment)
	if err != nil {
		commitment = rpc.CommitmentConfirmed
	}
	return transaction.SubmitOptions{
		Commitment:           commitment,
		SkipPreflight:        c.SkipPreflight,
		MaxClientSideRetries: uint(c.MaxRetries),
		Timeout:              c.ConfirmTimeout,
	}
}

// PipelineConfig returns the pipeline construction parameters.
func (c *Config) PipelineConfig() transaction.PipelineConfig {
	return transaction.PipelineConfig{
		SupportsNativeFeeEstimate: c.NativeFeeEstimate,
		Manager: transaction.Config{
			RetryDelay:   c.RetryDelay,
			PollInterval: c.PollInterval,
		},
	}
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.LogFile = c.LogFile
	cfg.Development = c.DebugLogging
	return cfg
}
