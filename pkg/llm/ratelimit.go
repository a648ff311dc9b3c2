package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient 在调用前等待令牌，限制每分钟请求数
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient 包装 inner；requestsPerMinute <= 0 时直接返回 inner
func NewRateLimitedClient(inner Client, requestsPerMinute int) Client {
	if requestsPerMinute <= 0 {
		return inner
	}
	perSecond := rate.Limit(float64(requestsPerMinute) / 60.0)
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(perSecond, 1),
	}
}

func (c *RateLimitedClient) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return c.inner.Chat(ctx, messages)
}
