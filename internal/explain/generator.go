// Package explain 负责为推荐结果生成一句话解释。
// 外部生成服务是尽力而为的：任何失败都在本包内通过兜底文案吸收，不会向调用方传播。
package explain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product_recommend/internal/model"
	"product_recommend/pkg/llm"
)

// Kind 是一次生成调用的结果类别
type Kind int

const (
	KindOK Kind = iota
	KindEmptyResponse
	KindCallFailure
	KindNotConfigured
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindEmptyResponse:
		return "empty_response"
	case KindCallFailure:
		return "call_failure"
	case KindNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// Result 生成结果；仅 Kind == KindOK 时 Text 有效
type Result struct {
	Kind Kind
	Text string
	Err  error
}

// Generator 外部解释生成服务
type Generator interface {
	Generate(ctx context.Context, source, candidate model.Item) Result
}

// LLMGenerator 通过 LLM 客户端生成解释。client 为 nil 表示未配置。
type LLMGenerator struct {
	client  llm.Client
	timeout time.Duration
}

// NewLLMGenerator 创建生成器；timeout <= 0 时使用 llm.DefaultTimeout
func NewLLMGenerator(client llm.Client, timeout time.Duration) *LLMGenerator {
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}
	return &LLMGenerator{client: client, timeout: timeout}
}

// Configured 返回是否有可用的客户端
func (g *LLMGenerator) Configured() bool {
	return g.client != nil
}

func (g *LLMGenerator) Generate(ctx context.Context, source, candidate model.Item) Result {
	if g.client == nil {
		return Result{Kind: KindNotConfigured, Err: llm.ErrNotConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.client.Chat(ctx, BuildPrompt(source, candidate))
	switch {
	case errors.Is(err, llm.ErrEmptyResponse):
		return Result{Kind: KindEmptyResponse, Err: err}
	case errors.Is(err, llm.ErrNotConfigured):
		return Result{Kind: KindNotConfigured, Err: err}
	case err != nil:
		return Result{Kind: KindCallFailure, Err: err}
	case text == "":
		return Result{Kind: KindEmptyResponse, Err: llm.ErrEmptyResponse}
	}
	return Result{Kind: KindOK, Text: text}
}

// BuildPrompt 构造解释请求的消息
func BuildPrompt(source, candidate model.Item) []llm.Message {
	prompt := fmt.Sprintf(
		"User viewed: %s - %s\nRecommended: %s - %s\n"+
			"Explain briefly, in one concise sentence, why this recommendation is relevant for the user.",
		source.Title, source.Description,
		candidate.Title, candidate.Description,
	)
	return []llm.Message{
		{Role: "system", Content: "You are a helpful e-commerce shopping assistant."},
		{Role: "user", Content: prompt},
	}
}
