package model

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/hupe1980/meshflow/core"
)

// RateLimited wraps a gateway so that every Complete and Stream call first
// waits for a token from a shared limiter. A limit <= 0 disables limiting and
// returns inner unchanged.
func RateLimited(inner Gateway, perSecond float64, burst int) Gateway {
	if perSecond <= 0 {
		return inner
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

type rateLimited struct {
	inner   Gateway
	limiter *rate.Limiter
}

func (r *rateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return core.FromContext(ctx)
		}
		// Wait would exceed the context deadline.
		return core.ErrTimeout
	}
	return nil
}

func (r *rateLimited) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Complete(ctx, req)
}

func (r *rateLimited) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Stream(ctx, req)
}

func (r *rateLimited) Info() Info { return r.inner.Info() }
