// Package dispatch is the platform-delivery boundary. The engine only
// depends on the Dispatcher contract; concrete platform callers live behind
// it and the send path wraps every dispatcher in a per-platform rate limiter
// and circuit breaker.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pressroomhq/social-scheduler/internal/guard"
	"github.com/pressroomhq/social-scheduler/internal/models"
)

// Dispatcher synchronously attempts delivery of a fully formed post and
// returns the platform-assigned post id or an error. Implementations bound
// their own latency; a timeout is an ordinary failure.
type Dispatcher interface {
	Platform() models.Platform
	Send(ctx context.Context, account models.SocialAccount, post models.SocialPost) (platformPostID string, err error)
}

// RateLimitConfig mirrors each network's publish quota policy.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultRateLimits returns conservative per-platform defaults, overridable
// via env (DISPATCH_<PLATFORM>_RPS / DISPATCH_<PLATFORM>_BURST).
func DefaultRateLimits() map[models.Platform]RateLimitConfig {
	return map[models.Platform]RateLimitConfig{
		models.PlatformX:           {RequestsPerSecond: 1, Burst: 1},
		models.PlatformFacebook:    {RequestsPerSecond: 1, Burst: 2},
		models.PlatformTruthSocial: {RequestsPerSecond: 0.5, Burst: 1},
		models.PlatformInstagram:   {RequestsPerSecond: 1, Burst: 2},
	}
}

func rateLimitFromEnv(platform models.Platform, def RateLimitConfig) RateLimitConfig {
	prefix := "DISPATCH_" + upper(string(platform)) + "_"
	if v := os.Getenv(prefix + "RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			def.RequestsPerSecond = f
		}
	}
	if v := os.Getenv(prefix + "BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			def.Burst = n
		}
	}
	return def
}

func upper(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			out = append(out, c-32)
		} else {
			out = append(out, c)
		}
	}
	return string(out)
}

// Guarded wraps a dispatcher with its platform's rate limiter and circuit
// breaker. An open circuit fails fast without touching the network.
type Guarded struct {
	inner   Dispatcher
	limiter *rate.Limiter
	breaker *guard.Breaker
}

func NewGuarded(inner Dispatcher, breakers *guard.Registry) *Guarded {
	cfg := rateLimitFromEnv(inner.Platform(), DefaultRateLimits()[inner.Platform()])
	return &Guarded{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: breakers.For("dispatch:" + string(inner.Platform())),
	}
}

func (g *Guarded) Platform() models.Platform { return g.inner.Platform() }

func (g *Guarded) Send(ctx context.Context, account models.SocialAccount, post models.SocialPost) (string, error) {
	var postID string
	attempted, err := g.breaker.Do(func() error {
		if werr := g.limiter.Wait(ctx); werr != nil {
			return werr
		}
		sendCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
		defer cancel()
		var serr error
		postID, serr = g.inner.Send(sendCtx, account, post)
		return serr
	})
	if !attempted {
		return "", fmt.Errorf("%s dispatch skipped: circuit open", g.inner.Platform())
	}
	if err != nil {
		return "", err
	}
	return postID, nil
}

// Registry maps each platform to its (guarded) dispatcher.
type Registry struct {
	dispatchers map[models.Platform]Dispatcher
}

func NewRegistry(breakers *guard.Registry, dispatchers ...Dispatcher) *Registry {
	r := &Registry{dispatchers: make(map[models.Platform]Dispatcher)}
	for _, d := range dispatchers {
		r.dispatchers[d.Platform()] = NewGuarded(d, breakers)
	}
	return r
}

// For returns the dispatcher for a platform, or an error when none is wired.
func (r *Registry) For(platform models.Platform) (Dispatcher, error) {
	d, ok := r.dispatchers[platform]
	if !ok {
		return nil, fmt.Errorf("no dispatcher configured for platform %q", platform)
	}
	return d, nil
}
