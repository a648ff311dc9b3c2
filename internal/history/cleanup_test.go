package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"product_recommend/internal/model"
)

func TestCleanup(t *testing.T) {
	// 1. 创建临时文件
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "test_behaviors.jsonl")

	// 2. 准备数据：包含过期和未过期的数据
	now := time.Now().Unix()
	records := []model.Behavior{
		{UserID: 1, ProductID: 10, Action: "view", Timestamp: now - 8*24*3600},           // expired
		{UserID: 1, ProductID: 11, Action: "view", Timestamp: now - 1*24*3600},           // kept
		{UserID: 2, ProductID: 12, Action: "click", Timestamp: now - 7*24*3600 - 100},    // expired
		{UserID: 2, ProductID: 13, Action: "purchase", Timestamp: now - 7*24*3600 + 100}, // kept
	}

	f, err := os.Create(filePath)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	encoder := json.NewEncoder(f)
	for _, r := range records {
		if err := encoder.Encode(r); err != nil {
			t.Fatalf("failed to write record: %v", err)
		}
	}
	f.WriteString("not json\n")
	f.Close()

	// 3. 初始化 Store (损坏的行被忽略)
	store, err := NewFileStore(filePath)
	if err != nil {
		t.Fatalf("failed to new file store: %v", err)
	}
	if len(store.records) != 4 {
		t.Fatalf("expected 4 records loaded, got %d", len(store.records))
	}

	// 4. 执行清理 (保留 7 天)
	if err := store.Cleanup(7); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	// 5. 验证内存数据
	expectedCount := 2
	if len(store.records) != expectedCount {
		t.Errorf("expected %d records, got %d", expectedCount, len(store.records))
	}
	for _, r := range store.records {
		if r.ProductID == 10 || r.ProductID == 12 {
			t.Errorf("found expired record: %+v", r)
		}
	}

	// 6. 验证文件持久化
	store2, err := NewFileStore(filePath)
	if err != nil {
		t.Fatalf("failed to reload file store: %v", err)
	}
	if len(store2.records) != expectedCount {
		t.Errorf("expected %d records after reload, got %d", expectedCount, len(store2.records))
	}
}

func TestSaveAndGetRecent(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "behaviors.jsonl")
	store, err := NewFileStore(filePath)
	if err != nil {
		t.Fatalf("failed to new file store: %v", err)
	}

	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	old := fixed.Add(-10 * 24 * time.Hour).Unix()
	if err := store.Save(
		model.Behavior{UserID: 1, ProductID: 1, Action: "view"},
		model.Behavior{UserID: 1, ProductID: 2, Action: "click", Timestamp: old},
		model.Behavior{UserID: 2, ProductID: 3, Action: "view"},
	); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	recent, err := store.GetRecent(1, 7)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 1 || recent[0].ProductID != 1 || recent[0].Timestamp != fixed.Unix() {
		t.Errorf("unexpected recent records: %+v", recent)
	}

	reloaded, err := NewFileStore(filePath)
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if len(reloaded.records) != 3 {
		t.Errorf("expected 3 persisted records, got %d", len(reloaded.records))
	}
}
