package similarity

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"product_recommend/internal/model"
)

func sampleCatalog() []model.Item {
	return []model.Item{
		{ID: 1, Title: "Ergonomic Keyboard", Description: "split ergonomic keyboard"},
		{ID: 2, Title: "Vertical Mouse", Description: "vertical mouse for wrist comfort"},
		{ID: 3, Title: "Gaming Chair", Description: "gaming chair"},
	}
}

func ids(items []model.ScoredItem) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.Item.ID)
	}
	return out
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Split, ergonomic-Keyboard! a 4K usb_c")
	want := []string{"split", "ergonomic", "keyboard", "4k", "usb_c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}

	if toks := Tokenize(""); len(toks) != 0 {
		t.Errorf("expected no tokens for empty text, got %v", toks)
	}
}

func TestRankScenario(t *testing.T) {
	recs, err := Rank(sampleCatalog(), 1, 2)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	if got := ids(recs); !reflect.DeepEqual(got, []int64{2, 3}) {
		t.Fatalf("expected [2 3], got %v", got)
	}
	for _, r := range recs {
		if r.Score >= 1.0 {
			t.Errorf("item %d: expected score < 1.0, got %f", r.Item.ID, r.Score)
		}
	}
}

func TestRankPrefersLexicalOverlap(t *testing.T) {
	catalog := []model.Item{
		{ID: 10, Description: "wireless ergonomic keyboard"},
		{ID: 11, Description: "gaming chair with lumbar support"},
		{ID: 12, Description: "wireless keyboard and mouse combo"},
		{ID: 13, Description: "ergonomic keyboard tray"},
	}

	recs, err := Rank(catalog, 10, 3)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if recs[len(recs)-1].Item.ID != 11 {
		t.Errorf("expected unrelated item last, got order %v", ids(recs))
	}
	if recs[0].Score <= 0 {
		t.Errorf("expected positive score for overlapping item, got %f", recs[0].Score)
	}
}

func TestRankProperties(t *testing.T) {
	catalog := []model.Item{
		{ID: 1, Description: "stainless steel water bottle"},
		{ID: 2, Description: "insulated steel bottle"},
		{ID: 3, Description: "water filter pitcher"},
		{ID: 4, Description: "bottle brush"},
		{ID: 5, Description: ""},
		{ID: 6, Description: "camping water bottle with filter"},
	}

	tests := []struct {
		name string
		topK int
		want int
	}{
		{"fewer than catalog", 3, 3},
		{"exact remaining", 5, 5},
		{"more than available", 10, 5},
		{"zero", 0, 0},
		{"negative", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Rank(catalog, 1, tt.topK)
			if err != nil {
				t.Fatalf("Rank failed: %v", err)
			}
			if len(recs) != tt.want {
				t.Fatalf("expected %d results, got %d", tt.want, len(recs))
			}
			for i, r := range recs {
				if r.Item.ID == 1 {
					t.Errorf("query item returned in its own recommendations")
				}
				if r.Score < 0 || r.Score > 1 {
					t.Errorf("score out of range: %f", r.Score)
				}
				if i > 0 && recs[i-1].Score < r.Score {
					t.Errorf("scores not sorted: %f before %f", recs[i-1].Score, r.Score)
				}
			}
		})
	}
}

func TestRankDeterministic(t *testing.T) {
	catalog := sampleCatalog()
	catalog = append(catalog,
		model.Item{ID: 4, Description: "ergonomic wrist rest"},
		model.Item{ID: 5, Description: "ergonomic wrist rest"},
	)

	first, err := Rank(catalog, 1, 4)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Rank(catalog, 1, 4)
		if err != nil {
			t.Fatalf("Rank failed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, ids(first), ids(again))
		}
	}

	// 相同描述分数完全一致，按目录顺序排列
	if first[0].Item.ID != 4 || first[1].Item.ID != 5 {
		t.Errorf("expected tie broken by catalog order, got %v", ids(first))
	}
}

func TestRankIdenticalDescription(t *testing.T) {
	catalog := []model.Item{
		{ID: 1, Description: "noise cancelling headphones"},
		{ID: 2, Description: "portable speaker"},
		{ID: 3, Description: "Noise-cancelling headphones"},
	}

	recs, err := Rank(catalog, 1, 1)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if recs[0].Item.ID != 3 {
		t.Fatalf("expected item 3 first, got %d", recs[0].Item.ID)
	}
	if math.Abs(recs[0].Score-1.0) > 1e-9 {
		t.Errorf("expected score 1.0, got %f", recs[0].Score)
	}
}

func TestRankSingleItem(t *testing.T) {
	recs, err := Rank([]model.Item{{ID: 7, Description: "desk lamp"}}, 7, 3)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected empty list, got %v", ids(recs))
	}
}

func TestRankDegenerateDescriptions(t *testing.T) {
	catalog := []model.Item{
		{ID: 1, Description: ""},
		{ID: 2, Description: ""},
		{ID: 3, Description: "a b c"},
	}

	recs, err := Rank(catalog, 1, 5)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 results, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Score != 0 {
			t.Errorf("expected zero score for empty vectors, got %f", r.Score)
		}
	}
}

func TestRankNotFound(t *testing.T) {
	if _, err := Rank(nil, 1, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty catalog, got %v", err)
	}
	if _, err := Rank(sampleCatalog(), 99, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRankDuplicateIDs(t *testing.T) {
	catalog := append(sampleCatalog(), model.Item{ID: 2, Description: "duplicate"})
	if _, err := Rank(catalog, 1, 3); !errors.Is(err, ErrMalformedCatalog) {
		t.Errorf("expected ErrMalformedCatalog, got %v", err)
	}
}

func TestRoundScore(t *testing.T) {
	if got := RoundScore(0.123456); got != 0.1235 {
		t.Errorf("RoundScore() = %v, want 0.1235", got)
	}
	if got := RoundScore(1); got != 1 {
		t.Errorf("RoundScore() = %v, want 1", got)
	}
}
