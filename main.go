package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ethdenver2026/ens-compute-gateway/config"
	"github.com/ethdenver2026/ens-compute-gateway/internal/compute"
	"github.com/ethdenver2026/ens-compute-gateway/internal/envelope"
	"github.com/ethdenver2026/ens-compute-gateway/internal/gateway"
	"github.com/ethdenver2026/ens-compute-gateway/internal/metrics"
	"github.com/ethdenver2026/ens-compute-gateway/internal/outbound"
	"github.com/ethdenver2026/ens-compute-gateway/internal/ratelimit"
	"github.com/ethdenver2026/ens-compute-gateway/internal/registry"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	signer, err := envelope.NewSigner(cfg.EffectiveSigningKey())
	if err != nil {
		slog.Error("failed to create signer", "err", err)
		os.Exit(1)
	}
	slog.Info("signer ready", "address", signer.Address())

	builder := envelope.NewBuilder(signer)

	reg, err := buildRegistry(cfg)
	if err != nil {
		slog.Error("failed to build compute registry", "err", err)
		os.Exit(1)
	}

	pipeline := gateway.New(gateway.Pipeline{
		Signer:   signer,
		Builder:  builder,
		Registry: reg,
		Metrics:  metrics.New(),
		IPLimiter: ratelimit.New(ratelimit.Tier{
			Window: cfg.IPWindow,
			Max:    cfg.IPMax,
		}),
		APIKeyLimiter: ratelimit.New(ratelimit.Tier{
			Window: cfg.APIKeyWindow,
			Max:    cfg.APIKeyMax,
		}),
		Provider: cfg.Provider,
		Version:  cfg.Version,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("gateway starting",
		"addr", addr,
		"provider", cfg.Provider,
		"version", cfg.Version,
		"rate_limit_ip", cfg.IPMax,
		"rate_limit_api_key", cfg.APIKeyMax,
	)

	if err := http.ListenAndServe(addr, pipeline.Router()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// buildRegistry registers the example compute function set (SPEC_FULL.md
// ยง12). Each function is deterministic in its inputs: any live upstream
// quote is taken from an injected source, never read from ambient state
// directly inside the function body — mirroring the teacher's interface
// selected once at startup and never re-selected per request.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	b := registry.NewBuilder()

	var priceSource compute.PriceSource = compute.FixedPriceSource{
		Result: compute.PriceResult{Pair: "ETH/USD", Price: 3120.23, Timestamp: 1700000000},
	}
	if cfg.PriceOracleURL != "" {
		priceSource = compute.NewHTTPPriceSource(outbound.New(), cfg.PriceOracleURL)
		slog.Info("pricefeed wired to live oracle", "url", cfg.PriceOracleURL)
	}
	if err := b.Register("pricefeed", compute.PriceFeed(priceSource)); err != nil {
		return nil, err
	}

	daoSource := compute.DAOVoteSource(compute.FixedDAOVoteSource{
		Result: compute.DAOVoteResult{For: 1200, Against: 340, Abstain: 15},
	})
	if err := b.Register("daoVotes", compute.DAOVotes(daoSource)); err != nil {
		return nil, err
	}

	nftSource := compute.NFTFloorSource(compute.FixedNFTFloorSource{
		Result: compute.NFTFloorResult{FloorWei: "42000000000000000"},
	})
	if err := b.Register("nftFloor", compute.NFTFloor(nftSource)); err != nil {
		return nil, err
	}

	return b.Build(), nil
}
