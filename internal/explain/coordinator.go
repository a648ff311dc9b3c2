package explain

import (
	"context"
	"strings"

	"product_recommend/internal/logger"
	"product_recommend/internal/metrics"
	"product_recommend/internal/model"
)

// 兜底文案，分别对应 空响应 / 调用失败 / 未配置
const (
	FallbackEmptyResponse = "A great alternative choice."
	FallbackCallFailure   = "Similar in features and category."
	FallbackNotConfigured = "Similar in features and category. (API not configured)"
)

// Coordinator 持有兜底策略，是 Generator 的唯一调用方
type Coordinator struct {
	gen Generator
}

// NewCoordinator 创建 Coordinator；gen 为 nil 时所有调用走未配置兜底
func NewCoordinator(gen Generator) *Coordinator {
	return &Coordinator{gen: gen}
}

// Explain 返回 candidate 相对 source 的推荐理由，永远返回非空字符串
func (c *Coordinator) Explain(ctx context.Context, source, candidate model.Item) string {
	res := Result{Kind: KindNotConfigured}
	if c.gen != nil {
		res = c.gen.Generate(ctx, source, candidate)
	}

	// Generator 可能返回 OK 但内容为空白
	text := strings.TrimSpace(res.Text)
	if res.Kind == KindOK && text == "" {
		res.Kind = KindEmptyResponse
	}
	metrics.ExplanationResults.WithLabelValues(res.Kind.String()).Inc()

	log := logger.Ctx(ctx)
	switch res.Kind {
	case KindOK:
		log.Debug().Int64("source", source.ID).Int64("candidate", candidate.ID).Str("explanation", text).Msg("explanation generated")
		return text
	case KindEmptyResponse:
		log.Warn().Int64("source", source.ID).Int64("candidate", candidate.ID).Err(res.Err).Msg("explanation generator returned an empty or blocked response")
		return FallbackEmptyResponse
	case KindNotConfigured:
		log.Debug().Int64("candidate", candidate.ID).Msg("explanation generator not configured")
		return FallbackNotConfigured
	default:
		log.Error().Int64("source", source.ID).Int64("candidate", candidate.ID).Err(res.Err).Msg("explanation generator call failed")
		return FallbackCallFailure
	}
}
