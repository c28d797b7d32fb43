package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubAuthProvider struct {
	scheme  string
	matches string
	header  string
	err     error
}

func (s *stubAuthProvider) Scheme() string                 { return s.scheme }
func (s *stubAuthProvider) CanHandle(apiKey string) bool    { return apiKey == s.matches }
func (s *stubAuthProvider) AuthHeader(context.Context) (string, error) {
	return s.header, s.err
}

func TestResolveAuthHeaderFallsBackToBearer(t *testing.T) {
	defer func() { authProviders = nil }()
	require.Equal(t, "Bearer plain-key", ResolveAuthHeader(context.Background(), "plain-key"))
}

func TestResolveAuthHeaderUsesMatchingProvider(t *testing.T) {
	defer func() { authProviders = nil }()
	RegisterAuthProvider(&stubAuthProvider{scheme: "qwen-oauth", matches: "oauth-placeholder", header: "Bearer dynamic-token"})

	require.Equal(t, "Bearer dynamic-token", ResolveAuthHeader(context.Background(), "oauth-placeholder"))
	require.Equal(t, "Bearer static-key", ResolveAuthHeader(context.Background(), "static-key"))
}

func TestResolveAuthHeaderSkipsProviderThatErrors(t *testing.T) {
	defer func() { authProviders = nil }()
	RegisterAuthProvider(&stubAuthProvider{scheme: "broken", matches: "key", err: errors.New("refresh failed")})
	RegisterAuthProvider(&stubAuthProvider{scheme: "fallback", matches: "key", header: "Bearer recovered"})

	require.Equal(t, "Bearer recovered", ResolveAuthHeader(context.Background(), "key"))
}

func TestLookupAuthProvider(t *testing.T) {
	defer func() { authProviders = nil }()
	p := &stubAuthProvider{scheme: "qwen-oauth", matches: "x"}
	RegisterAuthProvider(p)

	got, ok := LookupAuthProvider("qwen-oauth")
	require.True(t, ok)
	require.Same(t, p, got)

	_, ok = LookupAuthProvider("nope")
	require.False(t, ok)
}
