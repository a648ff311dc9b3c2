package nodes

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"product_recommend/internal/model"
	"product_recommend/internal/workflow"
)

// Explainer 为候选生成推荐理由，实现方负责兜底，永远返回非空文本
type Explainer interface {
	Explain(ctx context.Context, source, candidate model.Item) string
}

// ExplainNode 为每个候选生成一句话解释
// concurrency > 1 时并发调用，结果仍按候选顺序写回
type ExplainNode struct {
	name        string
	explainer   Explainer
	concurrency int
}

// NewExplainNode 创建解释节点，explainer 由外部注入
func NewExplainNode(cfg workflow.NodeConfig, explainer Explainer) (workflow.Node, error) {
	if explainer == nil {
		return nil, fmt.Errorf("explain node '%s' requires an explainer", cfg.Name)
	}
	concurrency, _ := cfg.Config["concurrency"].(float64)
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExplainNode{
		name:        cfg.Name,
		explainer:   explainer,
		concurrency: int(concurrency),
	}, nil
}

func (n *ExplainNode) Name() string { return n.name }
func (n *ExplainNode) Type() string { return "explain" }

func (n *ExplainNode) Execute(ctx *workflow.Context) error {
	candidates := ctx.GetCandidates()
	if len(candidates) == 0 {
		return nil
	}

	if n.concurrency == 1 {
		for i, c := range candidates {
			ctx.SetExplanation(i, n.explainer.Explain(ctx.Ctx, ctx.Source, c.Item))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(n.concurrency)
		for i, c := range candidates {
			g.Go(func() error {
				ctx.SetExplanation(i, n.explainer.Explain(ctx.Ctx, ctx.Source, c.Item))
				return nil
			})
		}
		_ = g.Wait()
	}

	ctx.AddLog(fmt.Sprintf("Explain (%s) generated %d explanations (concurrency %d)", n.name, len(candidates), n.concurrency))
	return nil
}
