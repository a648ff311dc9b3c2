package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"product_recommend/internal/model"
)

// Store 定义用户行为记录的存储接口
type Store interface {
	// GetRecent 获取用户最近 N 天的行为记录，按时间先后排列
	GetRecent(userID int64, days int) ([]model.Behavior, error)
	// Save 保存行为记录；Timestamp 为 0 时使用当前时间
	Save(records ...model.Behavior) error
}

// FileStore 基于 JSONL 文件的行为存储实现
type FileStore struct {
	filePath string
	mu       sync.RWMutex
	records  []model.Behavior // 内存缓存，用于快速查询
	now      func() time.Time
}

// NewFileStore 创建一个新的 FileStore
// 如果文件不存在，会自动创建
func NewFileStore(filePath string) (*FileStore, error) {
	fs := &FileStore{
		filePath: filePath,
		records:  make([]model.Behavior, 0),
		now:      time.Now,
	}

	if err := fs.load(); err != nil {
		return nil, err
	}

	return fs, nil
}

// load 从文件加载所有记录到内存，损坏的行直接跳过
func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record model.Behavior
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		s.records = append(s.records, record)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan history file: %w", err)
	}

	return nil
}

// GetRecent 获取用户最近 N 天的行为记录
func (s *FileStore) GetRecent(userID int64, days int) ([]model.Behavior, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Unix() - int64(days*24*60*60)

	result := make([]model.Behavior, 0)
	for _, r := range s.records {
		if r.UserID == userID && r.Timestamp >= cutoff {
			result = append(result, r)
		}
	}

	return result, nil
}

// Save 追加记录到文件和内存
func (s *FileStore) Save(records ...model.Behavior) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file for appending: %w", err)
	}
	defer f.Close()

	now := s.now().Unix()
	encoder := json.NewEncoder(f)

	for _, record := range records {
		if record.Timestamp == 0 {
			record.Timestamp = now
		}
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write history record: %w", err)
		}
		s.records = append(s.records, record)
	}

	return nil
}

// Cleanup 删除超过 retentionDays 的记录并重写文件
func (s *FileStore) Cleanup(retentionDays int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Unix() - int64(retentionDays*24*60*60)

	kept := make([]model.Behavior, 0, len(s.records))
	for _, r := range s.records {
		if r.Timestamp >= cutoff {
			kept = append(kept, r)
		}
	}

	tmpPath := s.filePath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}

	encoder := json.NewEncoder(f)
	for _, r := range kept {
		if err := encoder.Encode(r); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to write history record: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp history file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}

	s.records = kept
	return nil
}
