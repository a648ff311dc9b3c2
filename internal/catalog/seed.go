package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"product_recommend/internal/logger"
	"product_recommend/internal/model"
)

// SeedFromCSV 在目录为空时从 CSV 导入商品。
// 表头需包含 title, description, category；id 和 price 可选。
// 文件不存在时只记录日志，返回 0。
func SeedFromCSV(ctx context.Context, store Store, path string) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Debug("Catalog already has %d products, skip seeding", n)
		return 0, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("CSV file '%s' not found. No products added.", path)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	items, err := ParseCSV(f)
	if err != nil {
		return 0, err
	}

	if err := store.CreateMany(ctx, items); err != nil {
		return 0, fmt.Errorf("failed to seed catalog: %w", err)
	}

	logger.Info("Inserted %d products from %s", len(items), path)
	return len(items), nil
}

// ParseCSV 解析带表头的商品 CSV
func ParseCSV(r io.Reader) ([]model.Item, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"title", "description", "category"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var items []model.Item
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		item := model.Item{
			Title:       field(row, "title"),
			Description: field(row, "description"),
			Category:    field(row, "category"),
		}
		if v := field(row, "id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: invalid id %q", line, v)
			}
			item.ID = id
		}
		if v := field(row, "price"); v != "" {
			p, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: invalid price %q", line, v)
			}
			item.Price = &p
		}
		items = append(items, item)
	}
	return items, nil
}
