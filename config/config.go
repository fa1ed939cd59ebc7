// Package config loads gateway configuration from the environment, in the
// teacher's style: a flat struct, a single Load() entry point, and an
// optional .env file for local development.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// zeroPrivateKeyHex is the all-zero 32-byte key GATEWAY_PRIVATE_KEY
// defaults to when unset. Starting up with it is almost certainly a
// misconfiguration, so Load emits a warning (ยง6) rather than failing
// outright — the gateway should still come up for local experimentation.
var zeroPrivateKeyHex = "0x" + strings.Repeat("0", 64)

// Config holds all gateway configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// GatewayPrivateKey is the hex-encoded secp256k1 key used to sign
	// envelope digests and legacy results. Defaults to an all-zero key with
	// a startup warning; production deployments must override this.
	GatewayPrivateKey string

	// Provider and Version are stamped into every envelope's meta field.
	Provider string
	Version  string

	// PriceOracleURL is the external HTTP endpoint the pricefeed compute
	// function queries when no fixture source is configured. Empty means
	// use the fixed-value fallback.
	PriceOracleURL string

	// IPWindow / IPMax and APIKeyWindow / APIKeyMax are the two rate
	// limiter tiers' (window, max) tuples (ยง4.F).
	IPWindow     time.Duration
	IPMax        int
	APIKeyWindow time.Duration
	APIKeyMax    int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present (dev convenience; no-op in
// production where real env vars are set).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnvInt("PORT", 3000),
		GatewayPrivateKey: getEnv("GATEWAY_PRIVATE_KEY", zeroPrivateKeyHex),
		Provider:          getEnv("GATEWAY_PROVIDER", "ens-compute-gateway"),
		Version:           getEnv("GATEWAY_VERSION", "1.0.0"),
		PriceOracleURL:    getEnv("PRICE_ORACLE_URL", ""),
		IPWindow:          60 * time.Second,
		IPMax:             getEnvInt("RATE_LIMIT_IP_MAX", 100),
		APIKeyWindow:      60 * time.Second,
		APIKeyMax:         getEnvInt("RATE_LIMIT_API_KEY_MAX", 1000),
	}

	if isZeroKey(cfg.GatewayPrivateKey) {
		slog.Warn("GATEWAY_PRIVATE_KEY is unset or all-zero — envelopes will be signed with a well-known key; set a real key before production use")
	}

	return cfg, nil
}

// devFallbackPrivateKey is a well-known, non-zero placeholder key used only
// when GATEWAY_PRIVATE_KEY is left at its all-zero default. A literal
// all-zero scalar is not a valid secp256k1 private key, so the gateway
// cannot actually sign with it; this lets the process still start (with the
// warning already emitted) instead of crash-looping on an unconfigured dev
// deployment.
const devFallbackPrivateKey = "0x0000000000000000000000000000000000000000000000000000000000000001"

// EffectiveSigningKey returns the key the signer should actually be built
// from: GatewayPrivateKey as configured, or devFallbackPrivateKey if the
// configured value is the all-zero default.
func (c *Config) EffectiveSigningKey() string {
	if isZeroKey(c.GatewayPrivateKey) {
		return devFallbackPrivateKey
	}
	return c.GatewayPrivateKey
}

func isZeroKey(hexKey string) bool {
	trimmed := strings.TrimPrefix(hexKey, "0x")
	for _, r := range trimmed {
		if r != '0' {
			return false
		}
	}
	return true
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
