package explain

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"product_recommend/internal/logger"
	"product_recommend/internal/metrics"
	"product_recommend/internal/model"
)

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // 连续失败多少次后熔断
	Timeout          time.Duration // open 状态持续时间
	MaxRequests      uint32        // half-open 状态允许的探测请求数
}

// BreakerGenerator 用熔断器包装 Generator。
// 熔断打开期间直接返回 KindCallFailure，不再访问外部服务。
type BreakerGenerator struct {
	inner Generator
	cb    *gobreaker.CircuitBreaker[Result]
}

// NewBreakerGenerator 创建带熔断的生成器
func NewBreakerGenerator(inner Generator, cfg BreakerConfig) *BreakerGenerator {
	if cfg.Name == "" {
		cfg.Name = "explanation"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
			metrics.ExplanationBreakerState.Set(float64(to))
		},
	}

	return &BreakerGenerator{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[Result](settings),
	}
}

// State 返回熔断器当前状态
func (b *BreakerGenerator) State() string {
	return b.cb.State().String()
}

func (b *BreakerGenerator) Generate(ctx context.Context, source, candidate model.Item) Result {
	res, err := b.cb.Execute(func() (Result, error) {
		r := b.inner.Generate(ctx, source, candidate)
		// 调用方取消或超时不代表下游故障，不计入熔断统计
		if r.Kind == KindCallFailure && ctx.Err() == nil {
			return r, r.Err
		}
		return r, nil
	})
	if err != nil {
		if res.Kind == KindCallFailure {
			return res
		}
		// 熔断打开或 half-open 请求过多
		return Result{Kind: KindCallFailure, Err: fmt.Errorf("explanation breaker: %w", err)}
	}
	return res
}
