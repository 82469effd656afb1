package charset

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
)

// Resolver canonicalizes and compares charset names against a Registry.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	registry Registry
}

// NewResolver returns a Resolver backed by reg. A nil reg selects IANARegistry.
func NewResolver(reg Registry) *Resolver {
	if reg == nil {
		reg = IANARegistry{}
	}
	return &Resolver{registry: reg}
}

// Default returns a Resolver over IANARegistry.
func Default() *Resolver {
	return NewResolver(nil)
}

// Canonicalize returns the registry's authoritative spelling of name.
// Failures wrap ErrUnknownCharset.
func (r *Resolver) Canonicalize(name string) (string, error) {
	canonical, err := r.registry.CanonicalName(name)
	if err != nil {
		if !errors.Is(err, ErrUnknownCharset) {
			err = fmt.Errorf("%w: %v", ErrUnknownCharset, err)
		}
		return "", err
	}
	return canonical, nil
}

// Equivalent reports whether a and b name the same charset. An empty or
// unresolvable name is never equivalent to anything.
func (r *Resolver) Equivalent(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ca, err := r.Canonicalize(a)
	if err != nil {
		return false
	}
	cb, err := r.Canonicalize(b)
	if err != nil {
		return false
	}
	return ca == cb
}

// Lookup returns a decodable encoding for name. Registries that cannot hand
// out encodings are bridged through IANARegistry using the canonical name.
func (r *Resolver) Lookup(name string) (encoding.Encoding, string, error) {
	if l, ok := r.registry.(Lookuper); ok {
		return l.Lookup(name)
	}
	canonical, err := r.Canonicalize(name)
	if err != nil {
		return nil, "", err
	}
	enc, _, err := IANARegistry{}.Lookup(canonical)
	if err != nil {
		return nil, canonical, err
	}
	return enc, canonical, nil
}
