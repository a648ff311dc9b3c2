package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrEmptyResponse 模型返回了空内容 (或被安全策略拦截)
	ErrEmptyResponse = errors.New("llm returned empty response")
	// ErrNotConfigured 缺少凭证，客户端未初始化
	ErrNotConfigured = errors.New("llm client not configured")
)

// DefaultTimeout 单次调用的默认超时
const DefaultTimeout = 30 * time.Second

// Client 定义 LLM 客户端接口
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	model      string
}

type Option func(*http.Client)

// WithTimeout 覆盖 HTTP 超时
func WithTimeout(d time.Duration) Option {
	return func(c *http.Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

func newHTTPClient(options []Option) *http.Client {
	c := &http.Client{Timeout: DefaultTimeout}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func NewOpenAIClient(endpoint, apiKey string, model string, options ...Option) *OpenAIClient {
	return &OpenAIClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: newHTTPClient(options),
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, err := doRequest(c.httpClient, req)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse llm response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from llm: %w", ErrEmptyResponse)
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// doRequest 发送请求并读取 body，非 200 状态码视为错误
func doRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read llm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm api error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
