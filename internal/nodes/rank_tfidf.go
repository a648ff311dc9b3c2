package nodes

import (
	"fmt"

	"product_recommend/internal/similarity"
	"product_recommend/internal/workflow"
)

// TFIDFRankNode 基于描述的 TF-IDF 余弦相似度生成候选集
type TFIDFRankNode struct {
	name  string
	limit int
}

// NewTFIDFRankNode 工厂函数；limit 未配置时使用请求的 top_k
func NewTFIDFRankNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	limit, _ := cfg.Config["limit"].(float64)
	if limit < 0 {
		return nil, fmt.Errorf("rank_tfidf '%s': limit must not be negative", cfg.Name)
	}
	return &TFIDFRankNode{
		name:  cfg.Name,
		limit: int(limit),
	}, nil
}

func (n *TFIDFRankNode) Name() string { return n.name }
func (n *TFIDFRankNode) Type() string { return "rank" }

func (n *TFIDFRankNode) Execute(ctx *workflow.Context) error {
	limit := n.limit
	if limit == 0 {
		limit = ctx.TopK
	}

	ranked, err := similarity.Rank(ctx.Catalog, ctx.Source.ID, limit)
	if err != nil {
		return err
	}

	ctx.UpdateCandidates(ranked)
	ctx.AddLog(fmt.Sprintf("TF-IDF rank (%s) scored %d products, kept %d", n.name, len(ctx.Catalog), len(ranked)))
	return nil
}
