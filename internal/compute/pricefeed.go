// Package compute implements the gateway's example deterministic compute
// functions: pricefeed, daoVotes, and nftFloor. The spec treats compute
// functions as opaque deterministic producers of a result value and the
// gateway itself as agnostic to their implementation — these three exist so
// the lookup pipeline (ยง4.H) has something concrete to dispatch to in tests
// and in the end-to-end scenarios ยง8 describes.
package compute

import (
	"context"
	"net/url"

	"github.com/ethdenver2026/ens-compute-gateway/internal/outbound"
)

// PriceResult is the return shape of the pricefeed function.
type PriceResult struct {
	Pair      string  `json:"pair"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// PriceSource supplies a quote for pair. Production wires an HTTPPriceSource
// against a real oracle; tests (and environments with no oracle configured)
// inject FixedPriceSource, matching the teacher's FacilitatorClient
// interface-swap pattern in main.go (production vs. local vs. disabled,
// selected once at startup).
type PriceSource interface {
	Quote(ctx context.Context, pair string) (PriceResult, error)
}

// FixedPriceSource returns a constant price and timestamp regardless of
// pair (the returned Pair is the requested pair), for the
// end-to-end scenario in spec.md ยง8 (#1) and for environments with no
// configured upstream oracle.
type FixedPriceSource struct {
	Result PriceResult
}

// Quote implements PriceSource.
func (f FixedPriceSource) Quote(_ context.Context, pair string) (PriceResult, error) {
	result := f.Result
	result.Pair = pair
	return result, nil
}

// HTTPPriceSource quotes a pair from a live upstream oracle over HTTP,
// wired in when GATEWAY's PRICE_ORACLE_URL is configured (ยง5/ยง12). The
// oracle is expected to answer GET <baseURL>?pair=<pair> with a JSON body
// matching PriceResult.
type HTTPPriceSource struct {
	client  *outbound.Client
	baseURL string
}

// NewHTTPPriceSource builds an HTTPPriceSource against baseURL using client.
func NewHTTPPriceSource(client *outbound.Client, baseURL string) HTTPPriceSource {
	return HTTPPriceSource{client: client, baseURL: baseURL}
}

// Quote implements PriceSource.
func (h HTTPPriceSource) Quote(ctx context.Context, pair string) (PriceResult, error) {
	q := h.baseURL + "?pair=" + url.QueryEscape(pair)

	var result PriceResult
	if err := h.client.GetJSON(ctx, q, &result); err != nil {
		return PriceResult{}, err
	}
	if result.Pair == "" {
		result.Pair = pair
	}
	return result, nil
}

// PriceFeed builds the registry.Func for the "pricefeed" method, bound to
// src.
func PriceFeed(src PriceSource) func(params map[string]any) (any, error) {
	return func(params map[string]any) (any, error) {
		pair, _ := params["pair"].(string)
		if pair == "" {
			pair = "ETH/USD"
		}
		return src.Quote(context.Background(), pair)
	}
}

// ensureString is a small helper shared by the compute functions for
// reading an optional string param with a fallback.
func ensureString(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
