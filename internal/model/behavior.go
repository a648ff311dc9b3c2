package model

// Behavior 记录一次用户对商品的行为 (view / click / purchase)
type Behavior struct {
	UserID    int64  `json:"user_id" binding:"required"`
	ProductID int64  `json:"product_id" binding:"required"`
	Action    string `json:"action" binding:"required,oneof=view click purchase recommend"`
	Timestamp int64  `json:"timestamp"`
}
