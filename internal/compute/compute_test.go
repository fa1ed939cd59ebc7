package compute

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethdenver2026/ens-compute-gateway/internal/outbound"
)

func TestPriceFeedUsesDefaultPairWhenUnspecified(t *testing.T) {
	fn := PriceFeed(FixedPriceSource{Result: PriceResult{Pair: "ignored", Price: 100, Timestamp: 1}})
	got, err := fn(map[string]any{})
	if err != nil {
		t.Fatalf("PriceFeed: %v", err)
	}
	result := got.(PriceResult)
	if result.Pair != "ETH/USD" {
		t.Fatalf("expected default pair ETH/USD, got %q", result.Pair)
	}
}

func TestPriceFeedHonorsRequestedPair(t *testing.T) {
	fn := PriceFeed(FixedPriceSource{Result: PriceResult{Price: 100, Timestamp: 1}})
	got, err := fn(map[string]any{"pair": "BTC/USD"})
	if err != nil {
		t.Fatalf("PriceFeed: %v", err)
	}
	result := got.(PriceResult)
	if result.Pair != "BTC/USD" {
		t.Fatalf("expected pair BTC/USD, got %q", result.Pair)
	}
}

func TestDAOVotesTalliesByProposal(t *testing.T) {
	fn := DAOVotes(FixedDAOVoteSource{Result: DAOVoteResult{For: 10, Against: 2, Abstain: 1}})
	got, err := fn(map[string]any{"proposalId": "p-1"})
	if err != nil {
		t.Fatalf("DAOVotes: %v", err)
	}
	result := got.(DAOVoteResult)
	if result.ProposalID != "p-1" {
		t.Fatalf("expected proposalId p-1, got %q", result.ProposalID)
	}
	if result.For != 10 || result.Against != 2 || result.Abstain != 1 {
		t.Fatalf("unexpected tally: %+v", result)
	}
}

func TestNFTFloorQuotesByCollection(t *testing.T) {
	fn := NFTFloor(FixedNFTFloorSource{Result: NFTFloorResult{FloorWei: "1000"}})
	got, err := fn(map[string]any{"collection": "cryptopunks"})
	if err != nil {
		t.Fatalf("NFTFloor: %v", err)
	}
	result := got.(NFTFloorResult)
	if result.Collection != "cryptopunks" {
		t.Fatalf("expected collection cryptopunks, got %q", result.Collection)
	}
	if result.FloorWei != "1000" {
		t.Fatalf("expected floorWei 1000 (decimal string), got %q", result.FloorWei)
	}
}

func TestEnsureStringFallsBackWhenMissing(t *testing.T) {
	got := ensureString(map[string]any{}, "k", "fallback")
	if got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestHTTPPriceSourceQuotesFromUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pair"); got != "BTC/USD" {
			t.Errorf("expected pair query param BTC/USD, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price":65000.5,"timestamp":1700000000}`))
	}))
	defer srv.Close()

	src := NewHTTPPriceSource(outbound.New(), srv.URL)
	result, err := src.Quote(context.Background(), "BTC/USD")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if result.Pair != "BTC/USD" {
		t.Fatalf("expected pair to fall back to requested pair, got %q", result.Pair)
	}
	if result.Price != 65000.5 {
		t.Fatalf("expected price 65000.5, got %f", result.Price)
	}
}

func TestHTTPPriceSourcePropagatesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPPriceSource(outbound.New(), srv.URL)
	if _, err := src.Quote(context.Background(), "ETH/USD"); err == nil {
		t.Fatal("expected error when upstream oracle fails")
	}
}
