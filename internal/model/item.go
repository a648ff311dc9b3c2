package model

// Item 代表商品目录中的一个条目
type Item struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price,omitempty" binding:"omitempty,gte=0"` // 可选价格
}

// ScoredItem 是排序阶段的候选项，Explanation 由解释节点填充
type ScoredItem struct {
	Item        Item
	Score       float64
	Explanation string
}

// Recommendation 是返回给调用方的推荐结果，不做持久化
type Recommendation struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}
