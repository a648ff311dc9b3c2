package llm

import (
	"fmt"
	"time"
)

// Config 单个 LLM 凭证的配置，对应 configs/llm.yaml 中的一项
type Config struct {
	Provider          string `yaml:"provider" validate:"omitempty,oneof=openai gemini"`
	ChatEndpoint      string `yaml:"chat_endpoint"` // 完整的 API 地址 (gemini 为 base url)
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	TimeoutMs         int    `yaml:"timeout_ms" validate:"gte=0"`
	RequestsPerMinute int    `yaml:"requests_per_minute" validate:"gte=0"`
}

// New 根据配置构造客户端。缺少 api_key 时返回 ErrNotConfigured。
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	opts := []Option{WithTimeout(time.Duration(cfg.TimeoutMs) * time.Millisecond)}

	var client Client
	switch cfg.Provider {
	case "gemini":
		client = NewGeminiClient(cfg.ChatEndpoint, cfg.APIKey, cfg.Model, opts...)
	case "openai", "":
		if cfg.ChatEndpoint == "" {
			return nil, fmt.Errorf("openai provider requires chat_endpoint")
		}
		client = NewOpenAIClient(cfg.ChatEndpoint, cfg.APIKey, cfg.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}

	return NewRateLimitedClient(client, cfg.RequestsPerMinute), nil
}
