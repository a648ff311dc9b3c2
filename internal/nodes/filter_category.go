package nodes

import (
	"fmt"
	"strings"

	"product_recommend/internal/model"
	"product_recommend/internal/workflow"
)

// CategoryFilterNode 只保留与源商品同类目的候选
type CategoryFilterNode struct {
	name string
}

func NewCategoryFilterNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	return &CategoryFilterNode{
		name: cfg.Name,
	}, nil
}

func (n *CategoryFilterNode) Name() string { return n.name }
func (n *CategoryFilterNode) Type() string { return "filter" }

func (n *CategoryFilterNode) Execute(ctx *workflow.Context) error {
	candidates := ctx.GetCandidates()
	if len(candidates) == 0 {
		return nil
	}

	// 源商品没有类目时不过滤
	category := strings.TrimSpace(ctx.Source.Category)
	if category == "" {
		ctx.AddLog(fmt.Sprintf("Category filter (%s) skipped: source has no category", n.name))
		return nil
	}

	kept := make([]model.ScoredItem, 0, len(candidates))
	filteredCount := 0

	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.Item.Category), category) {
			kept = append(kept, c)
		} else {
			filteredCount++
		}
	}

	ctx.UpdateCandidates(kept)
	ctx.AddLog(fmt.Sprintf("Category filter (%s) removed %d items, kept %d", n.name, filteredCount, len(kept)))
	return nil
}
