package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	// GeminiDefaultModel 未指定模型时使用
	GeminiDefaultModel = "gemini-flash-latest"
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta/models"
)

// GeminiClient 调用 Gemini generateContent 接口
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiClient 创建 Gemini 客户端，baseURL 为空时使用官方地址
func NewGeminiClient(baseURL, apiKey, model string, options ...Option) *GeminiClient {
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	if model == "" {
		model = GeminiDefaultModel
	}
	return &GeminiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: newHTTPClient(options),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func (c *GeminiClient) Chat(ctx context.Context, messages []Message) (string, error) {
	var reqBody geminiRequest
	for _, m := range messages {
		switch m.Role {
		case "system":
			reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case "assistant":
			reqBody.Contents = append(reqBody.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			reqBody.Contents = append(reqBody.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	body, err := doRequest(c.httpClient, req)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}

	// 被安全策略拦截时 candidates 为空或 parts 为空
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from gemini: %w", ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", fmt.Errorf("gemini finish reason %q: %w", resp.Candidates[0].FinishReason, ErrEmptyResponse)
	}
	return content, nil
}
