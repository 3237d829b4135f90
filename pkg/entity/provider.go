package entity

import (
	"fmt"
	"strings"
)

// Scope controls whether requests share a store.
type Scope string

// Store scopes.
const (
	// ScopeSingleton shares one store across all requests.
	ScopeSingleton Scope = "singleton"
	// ScopeRequest gives every request a fresh store loaded from the seed.
	ScopeRequest Scope = "request"
)

// ParseScope parses a scope name. The empty string means ScopeSingleton.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeSingleton:
		return ScopeSingleton, nil
	case ScopeRequest:
		return ScopeRequest, nil
	default:
		return "", fmt.Errorf("unknown store scope %q (valid: singleton, request)", s)
	}
}

// Provider hands out the store a request should operate on.
type Provider struct {
	scope  Scope
	shared *Store
}

// NewProvider creates a provider. shared is the process-wide store; in
// ScopeRequest it is only used as the template for per-request stores.
func NewProvider(scope Scope, shared *Store) *Provider {
	if scope == "" {
		scope = ScopeSingleton
	}
	return &Provider{scope: scope, shared: shared}
}

// Acquire returns the store for one request.
func (p *Provider) Acquire() *Store {
	if p.scope == ScopeRequest {
		return p.shared.Fork()
	}
	return p.shared
}

// Scope returns the provider's scope.
func (p *Provider) Scope() Scope {
	return p.scope
}

// Shared returns the process-wide store.
func (p *Provider) Shared() *Store {
	return p.shared
}
