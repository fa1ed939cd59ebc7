package registry

import (
	"errors"
	"testing"

	"github.com/ethdenver2026/ens-compute-gateway/internal/gatewayerr"
)

func TestRegisterAndDispatch(t *testing.T) {
	b := NewBuilder()
	if err := b.Register("echo", func(params map[string]any) (any, error) {
		return params["x"], nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg := b.Build()

	got, err := reg.Dispatch("echo", map[string]any{"x": 42})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	b := NewBuilder()
	fn := func(map[string]any) (any, error) { return nil, nil }
	if err := b.Register("dup", fn); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := b.Register("dup", fn)
	if !errors.Is(err, gatewayerr.ErrDuplicateMethod) {
		t.Fatalf("expected ErrDuplicateMethod, got %v", err)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	reg := NewBuilder().Build()
	_, err := reg.Dispatch("nonexistent", nil)
	if !errors.Is(err, gatewayerr.ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestNames(t *testing.T) {
	b := NewBuilder()
	_ = b.Register("a", func(map[string]any) (any, error) { return nil, nil })
	_ = b.Register("b", func(map[string]any) (any, error) { return nil, nil })
	reg := b.Build()

	names := reg.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
}

func TestBuildFreezesRegistrations(t *testing.T) {
	b := NewBuilder()
	_ = b.Register("a", func(map[string]any) (any, error) { return "first", nil })
	reg := b.Build()

	// Mutating the builder after Build must not affect the frozen registry.
	_ = b.Register("b", func(map[string]any) (any, error) { return "second", nil })
	if _, err := reg.Dispatch("b", nil); !errors.Is(err, gatewayerr.ErrUnknownMethod) {
		t.Fatalf("expected frozen registry to be unaffected by post-Build registration")
	}
}
