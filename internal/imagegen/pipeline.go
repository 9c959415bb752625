// Package imagegen turns completed sentences into rendered images through
// an external vendor, without ever blocking the game loop. Requests queue
// FIFO behind a small concurrency cap that doubles as client-side rate
// limiting; a request that permanently fails resolves to a placeholder so
// the round can always reach judging.
package imagegen

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/promptparty/promptparty-backend/internal/engine"
)

const DefaultConcurrency = 2

// PlaceholderRef is the fallback image served when generation fails for a
// player's submission.
const PlaceholderRef = "/assets/placeholder.png"

type Request struct {
	ID       string
	PlayerID string
	Round    int
	Prompt   string
	Style    string
}

type Pipeline struct {
	client Client
	sem    *semaphore.Weighted
	policy RetryPolicy
	log    *zap.Logger
}

func NewPipeline(client Client, concurrency int, policy RetryPolicy, log *zap.Logger) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{
		client: client,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		policy: policy,
		log:    log,
	}
}

// Enqueue runs one batch. It returns immediately; done is called exactly
// once, from a pipeline goroutine, after every request has settled to
// either a real image or a placeholder. Individual failures never abort
// the batch.
func (p *Pipeline) Enqueue(ctx context.Context, reqs []Request, done func([]engine.GeneratedImage)) {
	go func() {
		results := make([]engine.GeneratedImage, len(reqs))
		var wg sync.WaitGroup

		// Acquiring in loop order keeps admission FIFO.
		for i := range reqs {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				results[i] = p.placeholder(reqs[i], err)
				continue
			}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer p.sem.Release(1)
				results[i] = p.generate(ctx, reqs[i])
			}(i)
		}

		wg.Wait()
		done(results)
	}()
}

func (p *Pipeline) generate(ctx context.Context, req Request) engine.GeneratedImage {
	var lastErr error
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		ref, err := p.client.Generate(ctx, req.Prompt, req.Style)
		if err == nil {
			p.log.Info("image generated",
				zap.String("request", req.ID),
				zap.String("player", req.PlayerID),
				zap.Int("attempt", attempt))
			return engine.GeneratedImage{PlayerID: req.PlayerID, ImageRef: ref}
		}
		lastErr = err

		if !p.policy.Retryable(err) {
			p.log.Warn("image generation rejected, not retrying",
				zap.String("request", req.ID),
				zap.String("player", req.PlayerID),
				zap.Error(err))
			return p.placeholder(req, err)
		}

		p.log.Warn("image generation attempt failed",
			zap.String("request", req.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < p.policy.MaxAttempts {
			if err := sleep(ctx, p.policy.Delay(attempt)); err != nil {
				return p.placeholder(req, lastErr)
			}
		}
	}
	return p.placeholder(req, lastErr)
}

func (p *Pipeline) placeholder(req Request, cause error) engine.GeneratedImage {
	reason := "generation unavailable"
	if cause != nil {
		reason = cause.Error()
	}
	return engine.GeneratedImage{
		PlayerID:    req.PlayerID,
		ImageRef:    PlaceholderRef,
		Placeholder: true,
		Reason:      reason,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
