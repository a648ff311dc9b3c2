package explain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"product_recommend/internal/model"
	"product_recommend/pkg/llm"
)

type stubClient struct {
	reply string
	err   error
	delay time.Duration
	calls int
	last  []llm.Message
}

func (s *stubClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	s.calls++
	s.last = messages
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

var (
	keyboard = model.Item{ID: 1, Title: "Ergonomic Keyboard", Description: "split ergonomic keyboard"}
	mouse    = model.Item{ID: 2, Title: "Vertical Mouse", Description: "vertical mouse for wrist comfort"}
)

func TestCoordinatorFallbackLadder(t *testing.T) {
	tests := []struct {
		name   string
		client *stubClient
		want   string
	}{
		{"success", &stubClient{reply: "  Both reduce wrist strain.  "}, "Both reduce wrist strain."},
		{"empty response", &stubClient{err: llm.ErrEmptyResponse}, FallbackEmptyResponse},
		{"blank text", &stubClient{reply: "   "}, FallbackEmptyResponse},
		{"call failure", &stubClient{err: errors.New("connection refused")}, FallbackCallFailure},
		{"timeout", &stubClient{reply: "late", delay: time.Second}, FallbackCallFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoordinator(NewLLMGenerator(tt.client, 20*time.Millisecond))
			got := c.Explain(context.Background(), keyboard, mouse)
			if got != tt.want {
				t.Errorf("Explain() = %q, want %q", got, tt.want)
			}
			if tt.client.calls != 1 {
				t.Errorf("expected one generator call, got %d", tt.client.calls)
			}
		})
	}
}

func TestCoordinatorNotConfigured(t *testing.T) {
	gen := NewLLMGenerator(nil, 0)
	if gen.Configured() {
		t.Fatal("generator without client should not be configured")
	}

	for _, c := range []*Coordinator{NewCoordinator(gen), NewCoordinator(nil)} {
		if got := c.Explain(context.Background(), keyboard, mouse); got != FallbackNotConfigured {
			t.Errorf("Explain() = %q, want %q", got, FallbackNotConfigured)
		}
	}
}

func TestFallbacksAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range []string{FallbackEmptyResponse, FallbackCallFailure, FallbackNotConfigured} {
		if s == "" {
			t.Fatal("fallback must not be empty")
		}
		if seen[s] {
			t.Fatalf("duplicate fallback %q", s)
		}
		seen[s] = true
	}
}

func TestBuildPrompt(t *testing.T) {
	msgs := BuildPrompt(keyboard, mouse)
	user := msgs[len(msgs)-1].Content
	for _, want := range []string{keyboard.Title, keyboard.Description, mouse.Title, mouse.Description, "one concise sentence"} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q: %s", want, user)
		}
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	client := &stubClient{err: errors.New("unavailable")}
	gen := NewBreakerGenerator(NewLLMGenerator(client, time.Second), BreakerConfig{
		Name:             "test-open",
		FailureThreshold: 2,
		Timeout:          time.Minute,
	})

	for i := 0; i < 5; i++ {
		res := gen.Generate(context.Background(), keyboard, mouse)
		if res.Kind != KindCallFailure {
			t.Fatalf("call %d: expected call failure, got %s", i, res.Kind)
		}
	}
	if client.calls != 2 {
		t.Errorf("expected breaker to stop calls after 2 failures, got %d calls", client.calls)
	}
	if gen.State() != "open" {
		t.Errorf("expected open breaker, got %s", gen.State())
	}

	c := NewCoordinator(gen)
	if got := c.Explain(context.Background(), keyboard, mouse); got != FallbackCallFailure {
		t.Errorf("Explain() = %q, want %q", got, FallbackCallFailure)
	}
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	client := &stubClient{reply: "Both reduce wrist strain.", delay: time.Second}
	gen := NewBreakerGenerator(NewLLMGenerator(client, time.Second), BreakerConfig{
		Name:             "test-cancel",
		FailureThreshold: 2,
		Timeout:          time.Minute,
	})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		if res := gen.Generate(cancelled, keyboard, mouse); res.Kind != KindCallFailure {
			t.Fatalf("call %d: expected call failure for cancelled caller, got %s", i, res.Kind)
		}
	}
	if gen.State() != "closed" {
		t.Fatalf("caller cancellation must not open the breaker, got %s", gen.State())
	}

	client.delay = 0
	res := gen.Generate(context.Background(), keyboard, mouse)
	if res.Kind != KindOK || res.Text != "Both reduce wrist strain." {
		t.Errorf("expected healthy call to succeed, got %s (%v)", res.Kind, res.Err)
	}
}

func TestBreakerIgnoresEmptyResponses(t *testing.T) {
	client := &stubClient{err: llm.ErrEmptyResponse}
	gen := NewBreakerGenerator(NewLLMGenerator(client, time.Second), BreakerConfig{
		Name:             "test-empty",
		FailureThreshold: 1,
	})

	for i := 0; i < 3; i++ {
		if res := gen.Generate(context.Background(), keyboard, mouse); res.Kind != KindEmptyResponse {
			t.Fatalf("expected empty response, got %s", res.Kind)
		}
	}
	if client.calls != 3 {
		t.Errorf("expected 3 calls, got %d", client.calls)
	}
	if gen.State() != "closed" {
		t.Errorf("expected closed breaker, got %s", gen.State())
	}
}
