package recommend

import (
	"context"
	"errors"
	"testing"

	"product_recommend/internal/catalog"
	"product_recommend/internal/explain"
	"product_recommend/internal/model"
	"product_recommend/internal/nodes"
	"product_recommend/internal/similarity"
	"product_recommend/internal/workflow"
	"product_recommend/pkg/llm"
)

type failingClient struct{ calls int }

func (f *failingClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.calls++
	return "", errors.New("service unavailable")
}

type staticLister []model.Item

func (s staticLister) List(ctx context.Context) ([]model.Item, error) { return s, nil }

func newService(t *testing.T, lister catalog.Lister, client llm.Client) *Service {
	t.Helper()

	coordinator := explain.NewCoordinator(explain.NewLLMGenerator(client, 0))
	registry := workflow.NewRegistry()
	registry.Register("rank_tfidf", nodes.NewTFIDFRankNode)
	registry.Register("explain", func(cfg workflow.NodeConfig) (workflow.Node, error) {
		return nodes.NewExplainNode(cfg, coordinator)
	})

	engine, err := workflow.NewEngine(workflow.DefaultConfig(), registry)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return NewService(lister, engine)
}

func seededStore(t *testing.T) *catalog.SQLiteStore {
	t.Helper()
	store, err := catalog.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	for _, it := range []model.Item{
		{ID: 1, Title: "Ergonomic Keyboard", Description: "split ergonomic keyboard", Category: "Electronics"},
		{ID: 2, Title: "Vertical Mouse", Description: "vertical mouse for wrist comfort", Category: "Electronics"},
		{ID: 3, Title: "Gaming Chair", Description: "gaming chair", Category: "Furniture"},
	} {
		if err := store.Create(context.Background(), &it); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	return store
}

func TestRecommendScenarioWithFailingGenerator(t *testing.T) {
	client := &failingClient{}
	svc := newService(t, seededStore(t), client)

	recs, err := svc.Recommend(context.Background(), "", 1, 2)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != 2 || recs[1].ID != 3 {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}
	for _, r := range recs {
		if r.Score >= 1.0 {
			t.Errorf("expected score < 1, got %f", r.Score)
		}
		if r.Explanation != explain.FallbackCallFailure {
			t.Errorf("expected call-failure fallback, got %q", r.Explanation)
		}
	}
	if client.calls != 2 {
		t.Errorf("expected one generator call per candidate, got %d", client.calls)
	}
}

func TestRecommendNotConfigured(t *testing.T) {
	svc := newService(t, seededStore(t), nil)

	recs, err := svc.Recommend(context.Background(), workflow.DefaultScene, 2, DefaultTopK)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Explanation != explain.FallbackNotConfigured {
			t.Errorf("expected not-configured fallback, got %q", r.Explanation)
		}
	}
}

func TestRecommendErrors(t *testing.T) {
	svc := newService(t, seededStore(t), nil)

	if _, err := svc.Recommend(context.Background(), "", 99, 3); !errors.Is(err, similarity.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Recommend(context.Background(), "nope", 1, 3); !errors.Is(err, workflow.ErrPipelineNotFound) {
		t.Errorf("expected ErrPipelineNotFound, got %v", err)
	}

	dup := staticLister{
		{ID: 1, Description: "lamp"},
		{ID: 1, Description: "desk lamp"},
	}
	if _, err := newService(t, dup, nil).Recommend(context.Background(), "", 1, 3); !errors.Is(err, similarity.ErrMalformedCatalog) {
		t.Errorf("expected ErrMalformedCatalog, got %v", err)
	}
}

func TestRecommendSingleItemAndRounding(t *testing.T) {
	single := staticLister{{ID: 5, Title: "Lamp", Description: "desk lamp"}}
	recs, err := newService(t, single, nil).Recommend(context.Background(), "", 5, 3)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no recommendations, got %+v", recs)
	}

	pair := staticLister{
		{ID: 1, Description: "red cotton shirt"},
		{ID: 2, Description: "red wool shirt"},
	}
	recs, err = newService(t, pair, nil).Recommend(context.Background(), "", 1, 3)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].Score != similarity.RoundScore(recs[0].Score) || recs[0].Score <= 0 || recs[0].Score >= 1 {
		t.Errorf("unexpected score %v", recs[0].Score)
	}
}
