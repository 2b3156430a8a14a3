package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-txpipe/internal/config"
	"github.com/rovshanmuradov/solana-txpipe/internal/transaction"
	"github.com/rovshanmuradov/solana-txpipe/internal/utils/logger"
	"github.com/rovshanmuradov/solana-txpipe/internal/wallet"
)

// runtime bundles everything a command needs.
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	client   *solbc.Client
	pipeline *transaction.Pipeline
	metrics  *http.Server
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if url := c.String("rpc-url"); url != "" {
		cfg.RPCURL = url
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return nil, err
	}

	client := solbc.NewClient(cfg.RPCURL, log.WithComponent("rpc"))
	rt := &runtime{
		cfg:    cfg,
		log:    log,
		client: client,
		pipeline: transaction.NewPipeline(client, cfg.PipelineConfig(), log.Logger,
			transaction.NewMetrics(nil)),
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		rt.metrics = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		metricsLog := log.WithComponent("metrics")
		go func() {
			metricsLog.Info("Starting metrics server", zap.String("addr", cfg.MetricsAddr))
			if err := rt.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsLog.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	return rt, nil
}

func (rt *runtime) wallet(c *cli.Context) (*wallet.Wallet, error) {
	key := c.String("private-key")
	if key == "" {
		return nil, errors.New("private key is required (--private-key or SOLANA_TXPIPE_PRIVATE_KEY)")
	}
	return wallet.NewWallet(key)
}

func (rt *runtime) Close() {
	if rt.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.metrics.Shutdown(ctx)
	}
	_ = rt.log.Sync()
}
