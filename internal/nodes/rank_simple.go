package nodes

import (
	"fmt"
	"sort"

	"product_recommend/internal/workflow"
)

// SimpleRankNode 对已有候选集重新排序并截断
type SimpleRankNode struct {
	name  string
	limit int
	order string // "desc", "asc", "keep"
}

func NewSimpleRankNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	limit, _ := cfg.Config["limit"].(float64)
	order, _ := cfg.Config["order"].(string)

	if order == "" {
		order = "desc"
	}
	switch order {
	case "desc", "asc", "keep":
	default:
		return nil, fmt.Errorf("rank_simple '%s': unknown order %q", cfg.Name, order)
	}

	return &SimpleRankNode{
		name:  cfg.Name,
		limit: int(limit),
		order: order,
	}, nil
}

func (n *SimpleRankNode) Name() string { return n.name }
func (n *SimpleRankNode) Type() string { return "rank" }

func (n *SimpleRankNode) Execute(ctx *workflow.Context) error {
	candidates := ctx.GetCandidates()
	if len(candidates) == 0 {
		return nil
	}

	// 稳定排序，分数相同的保持原有顺序
	switch n.order {
	case "desc":
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
	case "asc":
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score < candidates[j].Score
		})
	}

	// 截断：未配置 limit 时使用请求的 top_k
	limit := n.limit
	if limit <= 0 {
		limit = ctx.TopK
	}
	if limit >= 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ctx.UpdateCandidates(candidates)
	ctx.AddLog(fmt.Sprintf("Rank (%s) completed. Strategy: %s, Result count: %d", n.name, n.order, len(candidates)))

	return nil
}
