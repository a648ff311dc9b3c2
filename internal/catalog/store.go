// Package catalog 提供商品目录的持久化 (SQLite)。
// 推荐引擎只依赖 Lister.List，其余 CRUD 供 HTTP 接口使用。
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"product_recommend/internal/logger"
	"product_recommend/internal/model"

	"modernc.org/sqlite" // 纯 Go 实现的 SQLite 驱动
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound 商品不存在
var ErrNotFound = errors.New("product not found")

// ErrDuplicate 商品 ID 已存在
var ErrDuplicate = errors.New("product already exists")

// wrapConstraint 将主键/唯一约束冲突转换为 ErrDuplicate
func wrapConstraint(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	return err
}

// Lister 是推荐引擎需要的最小目录接口：返回当前全部商品
type Lister interface {
	List(ctx context.Context) ([]model.Item, error)
}

// Store 定义商品目录的读写接口
type Store interface {
	Lister
	Get(ctx context.Context, id int64) (*model.Item, error)
	Create(ctx context.Context, item *model.Item) error
	CreateMany(ctx context.Context, items []model.Item) error
	Update(ctx context.Context, id int64, item *model.Item) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// SQLiteStore 基于 SQLite 的目录实现
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 打开 (必要时创建) 数据库并执行迁移
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 内存库每个连接都是独立的数据库，必须限制为单连接
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Catalog database initialized: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL DEFAULT '',
		price REAL
	);

	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanItem 读取一行；NULL 描述按空串处理
func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item  model.Item
		desc  sql.NullString
		price sql.NullFloat64
	)
	if err := row.Scan(&item.ID, &item.Title, &desc, &item.Category, &price); err != nil {
		return nil, err
	}
	item.Description = desc.String
	if price.Valid {
		p := price.Float64
		item.Price = &p
	}
	return &item, nil
}

// List 按 id 顺序返回全部商品
func (s *SQLiteStore) List(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description, category, price FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Get 根据 id 获取商品
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, description, category, price FROM products WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return item, nil
}

// Create 插入商品；item.ID 为 0 时由数据库分配，并回填到 item.ID
func (s *SQLiteStore) Create(ctx context.Context, item *model.Item) error {
	var id any
	if item.ID != 0 {
		id = item.ID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, title, description, category, price) VALUES (?, ?, ?, ?, ?)`,
		id, item.Title, item.Description, item.Category, item.Price,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", wrapConstraint(err))
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read product id: %w", err)
	}
	item.ID = newID
	return nil
}

// CreateMany 在同一个事务中插入多个商品，任一失败则全部回滚
func (s *SQLiteStore) CreateMany(ctx context.Context, items []model.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO products (id, title, description, category, price) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		var id any
		if items[i].ID != 0 {
			id = items[i].ID
		}
		res, err := stmt.ExecContext(ctx, id, items[i].Title, items[i].Description, items[i].Category, items[i].Price)
		if err != nil {
			return fmt.Errorf("failed to insert product %q: %w", items[i].Title, wrapConstraint(err))
		}
		if items[i].ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read product id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit products: %w", err)
	}
	return nil
}

// Update 更新 title/description/category/price
func (s *SQLiteStore) Update(ctx context.Context, id int64, item *model.Item) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET title = ?, description = ?, category = ?, price = ? WHERE id = ?`,
		item.Title, item.Description, item.Category, item.Price, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	item.ID = id
	return nil
}

// Delete 删除商品
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// Count 返回商品数量
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}
