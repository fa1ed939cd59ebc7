package decode

import "testing"

func TestDecodeEmptyStringFallsBackToDefaults(t *testing.T) {
	method, params := Decode("")
	if method != DefaultMethod {
		t.Fatalf("expected default method %q, got %q", DefaultMethod, method)
	}
	if len(params) != 0 {
		t.Fatalf("expected empty params, got %v", params)
	}
}

func TestDecodeNilFallsBackToDefaults(t *testing.T) {
	method, params := Decode(nil)
	if method != DefaultMethod {
		t.Fatalf("expected default method, got %q", method)
	}
	if len(params) != 0 {
		t.Fatalf("expected empty params, got %v", params)
	}
}

func TestDecodeJSONTextObject(t *testing.T) {
	method, params := Decode(`{"function":"daoVotes","params":{"proposalId":"42"}}`)
	if method != "daoVotes" {
		t.Fatalf("expected method daoVotes, got %q", method)
	}
	if params["proposalId"] != "42" {
		t.Fatalf("expected proposalId 42, got %v", params["proposalId"])
	}
}

func TestDecodeStructuredObject(t *testing.T) {
	data := map[string]any{
		"function": "nftFloor",
		"params":   map[string]any{"collection": "cryptopunks"},
	}
	method, params := Decode(data)
	if method != "nftFloor" {
		t.Fatalf("expected method nftFloor, got %q", method)
	}
	if params["collection"] != "cryptopunks" {
		t.Fatalf("expected collection cryptopunks, got %v", params["collection"])
	}
}

func TestDecodeStructuredObjectMissingFunctionFallsBackToDefaults(t *testing.T) {
	data := map[string]any{"params": map[string]any{"x": 1}}
	method, _ := Decode(data)
	if method != DefaultMethod {
		t.Fatalf("expected default method when function is missing, got %q", method)
	}
}

func TestDecodeMalformedJSONTextFallsBackToDefaults(t *testing.T) {
	method, params := Decode(`not valid json`)
	if method != DefaultMethod {
		t.Fatalf("expected default method for malformed JSON text, got %q", method)
	}
	if len(params) != 0 {
		t.Fatalf("expected empty params for malformed input, got %v", params)
	}
}

func TestEncodeHexDecodeHexRoundTrip(t *testing.T) {
	params := map[string]any{"pair": "ETH/USD"}
	encoded, err := EncodeHex("pricefeed", params)
	if err != nil {
		t.Fatalf("EncodeHex: %v", err)
	}

	method, decodedParams := Decode(encoded)
	if method != "pricefeed" {
		t.Fatalf("expected method pricefeed, got %q", method)
	}
	if decodedParams["pair"] != "ETH/USD" {
		t.Fatalf("expected pair ETH/USD, got %v", decodedParams["pair"])
	}
}

func TestDecodeMalformedHexFallsBackToDefaults(t *testing.T) {
	method, _ := Decode("0xnotvalidhex")
	if method != DefaultMethod {
		t.Fatalf("expected default method for malformed hex, got %q", method)
	}
}
