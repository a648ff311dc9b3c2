// Package recommend 将目录快照、推荐 pipeline 和结果组装串联起来
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product_recommend/internal/catalog"
	"product_recommend/internal/logger"
	"product_recommend/internal/metrics"
	"product_recommend/internal/model"
	"product_recommend/internal/similarity"
	"product_recommend/internal/workflow"
)

// DefaultTopK 未指定 top_k 时返回的推荐数量
const DefaultTopK = 3

// Service 推荐服务，每次请求重新读取目录快照
type Service struct {
	catalog catalog.Lister
	engine  *workflow.Engine
}

// NewService 创建推荐服务
func NewService(lister catalog.Lister, engine *workflow.Engine) *Service {
	return &Service{
		catalog: lister,
		engine:  engine,
	}
}

// Recommend 对 productID 执行 scene 对应的 pipeline。
// 未知商品返回 similarity.ErrNotFound；解释生成失败不会导致错误。
func (s *Service) Recommend(ctx context.Context, scene string, productID int64, topK int) (recs []model.Recommendation, err error) {
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
		metrics.RecommendRequests.WithLabelValues(statusLabel(err)).Inc()
	}()

	if scene == "" {
		scene = workflow.DefaultScene
	}
	if !s.engine.HasScene(scene) {
		return nil, fmt.Errorf("%w for scene: %s", workflow.ErrPipelineNotFound, scene)
	}
	if topK < 0 {
		topK = 0
	}

	snapshot, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	metrics.CatalogSize.Set(float64(len(snapshot)))

	source, ok := findItem(snapshot, productID)
	if !ok {
		return nil, fmt.Errorf("%w: product id %d", similarity.ErrNotFound, productID)
	}

	if timeout := s.engine.Timeout(scene); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	wfCtx := workflow.NewContext(ctx, source, snapshot, topK)
	if err := s.engine.Run(wfCtx, scene); err != nil {
		return nil, err
	}

	candidates := wfCtx.GetCandidates()
	recs = make([]model.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		recs = append(recs, model.Recommendation{
			ID:          c.Item.ID,
			Title:       c.Item.Title,
			Score:       similarity.RoundScore(c.Score),
			Explanation: c.Explanation,
		})
	}

	for _, line := range wfCtx.Logs() {
		logger.Ctx(ctx).Debug().Str("scene", scene).Msg(line)
	}
	return recs, nil
}

func findItem(items []model.Item, id int64) (model.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return model.Item{}, false
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, similarity.ErrNotFound):
		return "not_found"
	case errors.Is(err, similarity.ErrMalformedCatalog):
		return "malformed"
	default:
		return "error"
	}
}
