// Package ratelimit bounds outbound request rates per upstream provider.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Provider identifiers used across the pipeline.
const (
	ProviderVK       = "vk"
	ProviderTelegram = "telegram"
)

// Limiter hands out request slots per provider. Acquire blocks until a
// slot is free or the context is canceled; it never fails on quota.
type Limiter struct {
	mu        sync.Mutex
	providers map[string]*rate.Limiter
}

// New creates an empty limiter. Providers without a configured limit are
// not throttled.
func New() *Limiter {
	return &Limiter{providers: make(map[string]*rate.Limiter)}
}

// SetLimit configures a provider's budget to perSecond requests per
// one-second window. A non-positive value removes the limit.
func (l *Limiter) SetLimit(provider string, perSecond int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if perSecond <= 0 {
		delete(l.providers, provider)
		return
	}
	l.providers[provider] = rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

// Acquire blocks until the provider has a free request slot. The only
// error it returns is the context's.
func (l *Limiter) Acquire(ctx context.Context, provider string) error {
	l.mu.Lock()
	lim := l.providers[provider]
	l.mu.Unlock()

	if lim == nil {
		return nil
	}
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("acquire %s slot: %w", provider, err)
	}
	return nil
}
