// quoterd serves swap quotes, tick ranges and position sizing over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"

	"github.com/ferranti/dex-swap-engine/internal/chain"
	"github.com/ferranti/dex-swap-engine/internal/engine"
	"github.com/ferranti/dex-swap-engine/internal/handler"
	"github.com/ferranti/dex-swap-engine/internal/money"
	"github.com/ferranti/dex-swap-engine/internal/platform/cache"
	"github.com/ferranti/dex-swap-engine/internal/platform/config"
	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
	"github.com/ferranti/dex-swap-engine/internal/quote"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)

	metrics, err := observability.NewMetrics(cfg.Observability.ServiceName, cfg.Observability.MetricsEnabled)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	clientPool, err := chain.NewClientPool(cfg.Chain.RPCEndpoints, logger)
	if err != nil {
		return err
	}
	defer clientPool.Close()

	provider := chain.NewProvider(clientPool, store, chain.Addresses{
		V2Factory:     common.HexToAddress(cfg.Chain.V2Factory),
		V3Factory:     common.HexToAddress(cfg.Chain.V3Factory),
		V3Quoter:      common.HexToAddress(cfg.Chain.V3Quoter),
		WrappedNative: common.HexToAddress(cfg.Chain.WrappedNative),
	}, cfg.Cache.GasPriceTTL, logger, metrics)

	v3Quoter := quote.NewV3Quoter(provider, cfg.Engine.MaxConcurrentTiers, logger, metrics)

	orchestrator := engine.New(engine.Config{
		DebounceWindow:      cfg.Engine.DebounceWindow,
		DefaultSlippage:     money.BPS(cfg.Engine.DefaultSlippageBPS),
		GasSafetyMultiplier: cfg.Engine.GasSafetyMultiplier,
		Spender:             common.HexToAddress(cfg.Chain.SwapRouter),
	}, provider, v3Quoter, logger, metrics)
	defer orchestrator.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	})
	handler.Register(app, logger, metrics, orchestrator, provider)

	logger.Info("starting quoter service",
		"listen_addr", cfg.HTTP.ListenAddr,
		"chain_id", cfg.Chain.ChainID,
		"rpc_endpoints", len(cfg.Chain.RPCEndpoints),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.HTTP.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// buildCache assembles the memory layer with an optional shared Redis
// layer behind it. A Redis connection failure degrades to memory only.
func buildCache(ctx context.Context, cfg *config.Config, logger *observability.Logger) (cache.Cache, error) {
	local := cache.NewMemory(cfg.Cache.MemoryMaxItems)
	if !cfg.Cache.RedisEnabled {
		return cache.NewLayered(local, nil), nil
	}

	remote, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.RedisPrefix)
	if err != nil {
		logger.LogError(ctx, "redis unavailable, using memory cache only", err, "addr", cfg.Cache.RedisAddr)
		return cache.NewLayered(local, nil), nil
	}
	logger.Info("connected to redis", "addr", cfg.Cache.RedisAddr)
	return cache.NewLayered(local, remote), nil
}
