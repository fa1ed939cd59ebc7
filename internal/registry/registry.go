// Package registry implements the compute dispatcher (ยง4.G): a read-only,
// after-construction mapping from method name to a deterministic compute
// function.
package registry

import (
	"fmt"

	"github.com/ethdenver2026/ens-compute-gateway/internal/gatewayerr"
)

// Func is a deterministic compute function: params in, result out. The
// registry does not enforce determinism; it is a contract the registered
// function must uphold (ยง4.G).
type Func func(params map[string]any) (any, error)

// Registry is immutable after Build returns, matching the teacher's pattern
// of selecting a single long-lived implementation at startup (main.go's
// facilitator switch) and never re-selecting it per request.
type Registry struct {
	funcs map[string]Func
}

// Builder accumulates registrations before the immutable Registry is built.
type Builder struct {
	funcs map[string]Func
}

// NewBuilder creates an empty registration builder.
func NewBuilder() *Builder {
	return &Builder{funcs: make(map[string]Func)}
}

// Register adds fn under name. It returns ErrDuplicateMethod if name is
// already registered, enforcing at-most-one implementation per name.
func (b *Builder) Register(name string, fn Func) error {
	if _, exists := b.funcs[name]; exists {
		return fmt.Errorf("%w: %s", gatewayerr.ErrDuplicateMethod, name)
	}
	b.funcs[name] = fn
	return nil
}

// Build freezes the registrations into a Registry.
func (b *Builder) Build() *Registry {
	frozen := make(map[string]Func, len(b.funcs))
	for k, v := range b.funcs {
		frozen[k] = v
	}
	return &Registry{funcs: frozen}
}

// Dispatch invokes the function registered under name with params.
// It returns gatewayerr.ErrUnknownMethod if no function is registered.
func (r *Registry) Dispatch(name string, params map[string]any) (any, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gatewayerr.ErrUnknownMethod, name)
	}
	return fn(params)
}

// Names lists the registered method names, for the /functions route.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}
