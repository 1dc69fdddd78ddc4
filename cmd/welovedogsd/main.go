package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lober-org/welovedogs/config"
	"github.com/lober-org/welovedogs/core"
	"github.com/lober-org/welovedogs/indexer"
	"github.com/lober-org/welovedogs/native/badge"
	"github.com/lober-org/welovedogs/observability/logging"
	telemetry "github.com/lober-org/welovedogs/observability/otel"
	"github.com/lober-org/welovedogs/rpc"
	"github.com/lober-org/welovedogs/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	allowMigrateFlag := flag.Bool("allow-migrate", false, "Allow starting with a mismatched state schema (manual migrations only)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *allowMigrateFlag {
		cfg.AllowMigrate = true
	}

	logger, closer := logging.Setup(logging.Options{
		Service:    "welovedogsd",
		Env:        cfg.Environment,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("node stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "welovedogsd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	node, err := core.NewNode(db, core.Config{
		ChainID:          cfg.ChainID,
		StrictInitialize: cfg.StrictInitialize,
		AllowMigrate:     cfg.AllowMigrate,
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	node.SetLogger(logger)

	if err := ensureBadge(node, cfg, logger); err != nil {
		return err
	}

	var index *indexer.Indexer
	if cfg.Indexer.Enabled {
		index, err = openIndex(node, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := index.Close(); err != nil {
				logger.Warn("index close failed", slog.Any("error", err))
			}
		}()
	}

	server := rpc.NewServer(node, index, rpcConfig(cfg.RPC), logger)
	logger.Info("node ready",
		slog.String("dataDir", cfg.DataDir),
		slog.Uint64("chainId", node.ChainID()),
		slog.Bool("indexer", index != nil))
	return server.Start(ctx, cfg.RPCAddress)
}

// ensureBadge creates the badge collection on first start when an owner is
// configured.
func ensureBadge(node *core.Node, cfg *config.Config, logger *slog.Logger) error {
	owner, ok := cfg.BadgeOwner()
	if !ok {
		return nil
	}
	if _, err := node.BadgeMetadata(); err == nil {
		return nil
	} else if !errors.Is(err, badge.ErrNotInitialized) {
		return fmt.Errorf("read badge metadata: %w", err)
	}
	if err := node.BadgeInitialize(owner, cfg.Badge.BaseURI, cfg.Badge.Name, cfg.Badge.Symbol); err != nil {
		return fmt.Errorf("initialize badge collection: %w", err)
	}
	logger.Info("badge collection initialized", slog.String("owner", strings.TrimSpace(cfg.Badge.Owner)))
	return nil
}

func openIndex(node *core.Node, cfg *config.Config, logger *slog.Logger) (*indexer.Indexer, error) {
	db, err := indexer.Open(cfg.Indexer.DSN)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	index, err := indexer.New(db, logger)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	index.Attach(node.Events())
	added, err := index.Backfill(node)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("backfill index: %w", err)
	}
	logger.Info("donation index ready", slog.String("dsn", logging.MaskDSN(cfg.Indexer.DSN)), slog.Int("backfilled", added))
	return index, nil
}

func rpcConfig(cfg config.RPC) rpc.Config {
	return rpc.Config{
		AuthToken:          cfg.AuthToken,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		MaxScanLimit:       cfg.MaxScanLimit,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		TrustedProxies:     cfg.TrustedProxies,
		ReadHeaderTimeout:  seconds(cfg.ReadHeaderTimeout),
		ReadTimeout:        seconds(cfg.ReadTimeout),
		WriteTimeout:       seconds(cfg.WriteTimeout),
		IdleTimeout:        seconds(cfg.IdleTimeout),
	}
}

func seconds(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}
