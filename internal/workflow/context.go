package workflow

import (
	"context"
	"sync"

	"product_recommend/internal/model"
)

// Context 承载一次推荐请求的所有状态
// Catalog 是请求开始时的目录快照，整个流程中只读
type Context struct {
	Ctx     context.Context
	Source  model.Item
	Catalog []model.Item
	TopK    int

	// 数据流转区 (需要锁保护)
	mu         sync.RWMutex
	Candidates []model.ScoredItem // 当前候选集，按排序顺序
	TraceLog   []string           // 执行日志
}

// NewContext 创建一个新的工作流上下文
func NewContext(ctx context.Context, source model.Item, catalog []model.Item, topK int) *Context {
	return &Context{
		Ctx:        ctx,
		Source:     source,
		Catalog:    catalog,
		TopK:       topK,
		Candidates: make([]model.ScoredItem, 0),
		TraceLog:   make([]string, 0),
	}
}

// GetCandidates 获取当前候选集的副本 (线程安全)
func (c *Context) GetCandidates() []model.ScoredItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]model.ScoredItem, len(c.Candidates))
	copy(result, c.Candidates)
	return result
}

// UpdateCandidates 更新整个候选集 (线程安全)
func (c *Context) UpdateCandidates(items []model.ScoredItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Candidates = items
}

// SetExplanation 设置第 i 个候选的解释 (线程安全)
func (c *Context) SetExplanation(i int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= 0 && i < len(c.Candidates) {
		c.Candidates[i].Explanation = text
	}
}

// AddLog 添加追踪日志
func (c *Context) AddLog(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TraceLog = append(c.TraceLog, msg)
}

// Logs 返回追踪日志副本
func (c *Context) Logs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]string, len(c.TraceLog))
	copy(result, c.TraceLog)
	return result
}

// Node 定义工作流中的执行节点
type Node interface {
	Name() string
	Type() string // e.g., "rank", "filter", "explain"
	Execute(ctx *Context) error
}
