package context

import (
	"context"

	"github.com/randalmurphal/interviewroom/auth"
	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/config"
	"github.com/randalmurphal/interviewroom/prompt"
	"github.com/randalmurphal/interviewroom/store"
)

// =============================================================================
// Context Injection Helpers
// =============================================================================
// These helpers carry client services through context.Context so
// subcommands receive them without threading every dependency by hand.

// serviceContextKey is a private type for context keys to avoid collisions
type serviceContextKey string

// Context keys for client services
const (
	configServiceKey  serviceContextKey = "interviewroom.config"
	backendServiceKey serviceContextKey = "interviewroom.backend"
	storeServiceKey   serviceContextKey = "interviewroom.store"
	promptServiceKey  serviceContextKey = "interviewroom.prompts"
	sessionServiceKey serviceContextKey = "interviewroom.session"
)

// WithConfig adds the resolved client configuration to the context
func WithConfig(ctx context.Context, cfg *config.Client) context.Context {
	return context.WithValue(ctx, configServiceKey, cfg)
}

// Config extracts the client configuration from context
func Config(ctx context.Context) *config.Client {
	if cfg, ok := ctx.Value(configServiceKey).(*config.Client); ok {
		return cfg
	}
	return nil
}

// MustConfig extracts the client configuration or panics
func MustConfig(ctx context.Context) *config.Client {
	cfg := Config(ctx)
	if cfg == nil {
		panic("interviewroom/context: config.Client not found in context")
	}
	return cfg
}

// WithBackend adds a backend client to the context
func WithBackend(ctx context.Context, c *backend.Client) context.Context {
	return context.WithValue(ctx, backendServiceKey, c)
}

// Backend extracts the backend client from context
func Backend(ctx context.Context) *backend.Client {
	if c, ok := ctx.Value(backendServiceKey).(*backend.Client); ok {
		return c
	}
	return nil
}

// MustBackend extracts the backend client or panics
func MustBackend(ctx context.Context) *backend.Client {
	c := Backend(ctx)
	if c == nil {
		panic("interviewroom/context: backend.Client not found in context")
	}
	return c
}

// WithStore adds the local store to the context
func WithStore(ctx context.Context, s *store.Store) context.Context {
	return context.WithValue(ctx, storeServiceKey, s)
}

// Store extracts the local store from context
func Store(ctx context.Context) *store.Store {
	if s, ok := ctx.Value(storeServiceKey).(*store.Store); ok {
		return s
	}
	return nil
}

// MustStore extracts the local store or panics
func MustStore(ctx context.Context) *store.Store {
	s := Store(ctx)
	if s == nil {
		panic("interviewroom/context: store.Store not found in context")
	}
	return s
}

// WithPrompt adds a prompt loader to the context
func WithPrompt(ctx context.Context, loader *prompt.Loader) context.Context {
	return context.WithValue(ctx, promptServiceKey, loader)
}

// Prompt extracts the prompt loader from context
func Prompt(ctx context.Context) *prompt.Loader {
	if loader, ok := ctx.Value(promptServiceKey).(*prompt.Loader); ok {
		return loader
	}
	return nil
}

// MustPrompt extracts the prompt loader or panics
func MustPrompt(ctx context.Context) *prompt.Loader {
	loader := Prompt(ctx)
	if loader == nil {
		panic("interviewroom/context: prompt.Loader not found in context")
	}
	return loader
}

// WithSession adds the signed-in candidate's session to the context
func WithSession(ctx context.Context, s *auth.Session) context.Context {
	return context.WithValue(ctx, sessionServiceKey, s)
}

// Session extracts the auth session from context. It returns nil when
// nobody is logged in or the saved token has expired.
func Session(ctx context.Context) *auth.Session {
	if s, ok := ctx.Value(sessionServiceKey).(*auth.Session); ok && s.Active() {
		return s
	}
	return nil
}
