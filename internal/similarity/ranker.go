// Package similarity 实现基于商品描述 TF-IDF 向量的相似商品排序。
// 每次调用都会从完整的目录快照重新构建向量空间，不保留跨请求状态。
package similarity

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"product_recommend/internal/model"
)

var (
	// ErrNotFound 查询的商品 ID 不在目录快照中
	ErrNotFound = errors.New("product not found")
	// ErrMalformedCatalog 目录快照中存在重复 ID
	ErrMalformedCatalog = errors.New("malformed catalog data")
)

// Rank 返回与 queryID 对应商品最相似的 topK 个商品 (不含自身)。
// 分数相同时保持目录中的原始顺序；topK <= 0 时返回空列表。
func Rank(catalog []model.Item, queryID int64, topK int) ([]model.ScoredItem, error) {
	idx, err := locate(catalog, queryID)
	if err != nil {
		return nil, err
	}

	docs := make([]string, len(catalog))
	for i, item := range catalog {
		docs[i] = item.Description
	}
	vectors := Vectorize(docs)

	order := make([]int, 0, len(catalog))
	scores := make([]float64, len(catalog))
	for i := range catalog {
		scores[i] = Cosine(vectors[idx], vectors[i])
		order = append(order, i)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK < 0 {
		topK = 0
	}
	result := make([]model.ScoredItem, 0, min(topK, len(catalog)))
	for _, i := range order {
		if len(result) >= topK {
			break
		}
		if i == idx {
			continue
		}
		result = append(result, model.ScoredItem{
			Item:  catalog[i],
			Score: scores[i],
		})
	}

	return result, nil
}

// locate 找到查询商品的位置，同时校验 ID 唯一性
func locate(catalog []model.Item, queryID int64) (int, error) {
	idx := -1
	seen := make(map[int64]struct{}, len(catalog))
	for i, item := range catalog {
		if _, dup := seen[item.ID]; dup {
			return -1, fmt.Errorf("%w: duplicate product id %d", ErrMalformedCatalog, item.ID)
		}
		seen[item.ID] = struct{}{}
		if item.ID == queryID {
			idx = i
		}
	}
	if idx < 0 {
		return -1, fmt.Errorf("%w: product id %d", ErrNotFound, queryID)
	}
	return idx, nil
}

// RoundScore 将相似度四舍五入到 4 位小数，用于展示
func RoundScore(score float64) float64 {
	return math.Round(score*1e4) / 1e4
}
