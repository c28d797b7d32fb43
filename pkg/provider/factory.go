package provider

import (
	"context"
	"fmt"
)

// Builder constructs a Provider from its Config. Concrete vendor packages
// register one via RegisterBuilder (in an init or explicitly from cmd/agentsdk-core)
// to keep pkg/provider itself free of vendor imports.
type Builder func(cfg Config) Provider

var registry = map[string]Builder{}

// RegisterBuilder adds (or replaces) the constructor for a named provider
// kind, e.g. "anthropic", "openai", "qwen", "ollama".
func RegisterBuilder(name string, b Builder) {
	registry[name] = b
}

// New constructs a Provider by kind using whichever builder was registered
// for cfg.Name.
func New(cfg Config) (Provider, error) {
	b, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("provider: no builder registered for %q", cfg.Name)
	}
	return b(cfg), nil
}

// AuthProvider is the plug point for out-of-core authentication flows (OAuth
// device code, QR-rendered device pairing, token refresh) that a host
// application can register without this module importing any UI or OAuth
// library itself (see SPEC_FULL.md §3, "QR / device auth placeholder"),
// grounded on original_source/src/plugin/auth_provider.hpp's AuthProvider
// (scheme/get_auth_header/can_handle).
type AuthProvider interface {
	// Scheme identifies the auth flow, e.g. "qwen-oauth".
	Scheme() string
	// CanHandle reports whether this provider recognises apiKey as one of
	// its own placeholders (e.g. a sentinel value meaning "use OAuth"
	// rather than a literal static key).
	CanHandle(apiKey string) bool
	// AuthHeader returns a fresh "Authorization" header value, refreshing
	// or re-running a device flow as needed.
	AuthHeader(ctx context.Context) (string, error)
}

// authProviders is a registration-ordered list, not a map keyed by scheme:
// ResolveAuthHeader must probe CanHandle in registration order exactly like
// AuthProviderRegistry::get_auth_header's for loop.
var authProviders []AuthProvider

// RegisterAuthProvider makes an AuthProvider available to provider adapters.
func RegisterAuthProvider(p AuthProvider) {
	authProviders = append(authProviders, p)
}

// LookupAuthProvider returns a previously registered AuthProvider by scheme,
// if any.
func LookupAuthProvider(scheme string) (AuthProvider, bool) {
	for _, p := range authProviders {
		if p.Scheme() == scheme {
			return p, true
		}
	}
	return nil, false
}

// ResolveAuthHeader implements AuthProviderRegistry::get_auth_header: the
// first registered provider whose CanHandle(apiKey) matches supplies the
// header; a provider that matches but fails to produce one is skipped in
// favor of the next match. With no match (the common case: a plain static
// API key), the default "Bearer <apiKey>" scheme is used, same as every
// vendor adapter did before any AuthProvider existed.
func ResolveAuthHeader(ctx context.Context, apiKey string) string {
	for _, p := range authProviders {
		if !p.CanHandle(apiKey) {
			continue
		}
		if header, err := p.AuthHeader(ctx); err == nil {
			return header
		}
	}
	return "Bearer " + apiKey
}
