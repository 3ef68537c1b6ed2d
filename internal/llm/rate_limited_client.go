package llm

import (
	"context"
	"sync"
	"time"
)

const (
	defaultResponseTokenEstimate = 512
	minTokenEstimate             = 8
)

// rateLimitedClient wraps another Client and enforces request and token-based throttling.
type rateLimitedClient struct {
	delegate     Client
	interval     time.Duration
	mu           sync.Mutex
	nextAllowed  time.Time
	tokenMu      sync.Mutex
	nextToken    time.Time
	tokensPerMin int
}

// NewRateLimitedClient returns a Client that waits at least interval between
// calls and spreads the estimated token cost over a tokens-per-minute budget.
// With both limits disabled base is returned unchanged.
func NewRateLimitedClient(base Client, interval time.Duration, tokensPerMinute int) Client {
	if base == nil {
		return base
	}
	if interval <= 0 && tokensPerMinute <= 0 {
		return base
	}
	client := &rateLimitedClient{
		delegate: base,
		interval: interval,
	}
	if tokensPerMinute > 0 {
		client.tokensPerMin = tokensPerMinute
	}
	return client
}

// IntervalForRequestsPerMinute converts a requests-per-minute limit into the
// minimum spacing between calls.
func IntervalForRequestsPerMinute(rpm int) time.Duration {
	if rpm <= 0 {
		return 0
	}
	return time.Minute / time.Duration(rpm)
}

func (c *rateLimitedClient) wait(ctx context.Context, tokens int) error {
	if err := c.waitInterval(ctx); err != nil {
		return err
	}
	return c.waitTokens(ctx, tokens)
}

func (c *rateLimitedClient) waitInterval(ctx context.Context) error {
	if c.interval <= 0 {
		return nil
	}

	for {
		c.mu.Lock()
		now := time.Now()
		if c.nextAllowed.IsZero() || !now.Before(c.nextAllowed) {
			c.nextAllowed = now.Add(c.interval)
			c.mu.Unlock()
			return nil
		}

		wait := time.Until(c.nextAllowed)
		c.mu.Unlock()

		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *rateLimitedClient) waitTokens(ctx context.Context, tokens int) error {
	if c.tokensPerMin <= 0 || tokens <= 0 {
		return nil
	}

	delay := tokensToDuration(tokens, c.tokensPerMin)

	c.tokenMu.Lock()
	start := time.Now()
	if c.nextToken.Before(start) {
		c.nextToken = start
	}
	waitUntil := c.nextToken
	c.nextToken = c.nextToken.Add(delay)
	c.tokenMu.Unlock()

	if !waitUntil.After(start) {
		return nil
	}

	timer := time.NewTimer(waitUntil.Sub(start))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		// Give the reserved budget back.
		c.tokenMu.Lock()
		c.nextToken = c.nextToken.Add(-delay)
		c.tokenMu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *rateLimitedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return completePrompt(ctx, c, prompt)
}

func (c *rateLimitedClient) CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if err := c.wait(ctx, c.estimateTokens(req)); err != nil {
		return nil, err
	}
	return c.delegate.CompleteWithRequest(ctx, req)
}

func (c *rateLimitedClient) GetModelName() string {
	return c.delegate.GetModelName()
}

func (c *rateLimitedClient) estimateTokens(req *CompletionRequest) int {
	tokens := EstimateRequestTokens(c.delegate.GetModelName(), req)
	if tokens < minTokenEstimate {
		tokens = minTokenEstimate
	}
	if req != nil && req.MaxTokens > 0 {
		return tokens + req.MaxTokens
	}
	return tokens + defaultResponseTokenEstimate
}

func tokensToDuration(tokens, tokensPerMinute int) time.Duration {
	if tokensPerMinute <= 0 || tokens <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) * float64(tokens) / float64(tokensPerMinute))
}
