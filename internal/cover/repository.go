package cover

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/emandor/bookcover_service/internal/model"
)

var ErrNotFound = errors.New("cover: not found")

// Repository persists processed cover records.
type Repository interface {
	Save(ctx context.Context, c *model.Cover) error
	Get(ctx context.Context, id string) (*model.Cover, error)
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]model.Cover, error)
}

type MySQLRepository struct {
	db *sqlx.DB
}

func NewMySQLRepository(db *sqlx.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

func (r *MySQLRepository) Save(ctx context.Context, c *model.Cover) error {
	_, err := r.db.NamedExecContext(ctx, `
  INSERT INTO covers
    (id, original_name, image_path, url, image_hash, upload_hash, width, height,
     detected, rescaled, backend, ocr_text, created_at)
  VALUES
    (:id, :original_name, :image_path, :url, :image_hash, :upload_hash, :width, :height,
     :detected, :rescaled, :backend, :ocr_text, :created_at)`, c)
	return err
}

const coverColumns = `id, original_name, image_path, url, image_hash, upload_hash, width, height,
	detected, rescaled, backend, ocr_text, created_at`

func (r *MySQLRepository) Get(ctx context.Context, id string) (*model.Cover, error) {
	var c model.Cover
	err := r.db.GetContext(ctx, &c, `SELECT `+coverColumns+` FROM covers WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MySQLRepository) List(ctx context.Context, limit int) ([]model.Cover, error) {
	covers := []model.Cover{}
	err := r.db.SelectContext(ctx, &covers,
		`SELECT `+coverColumns+` FROM covers ORDER BY created_at DESC LIMIT ?`, limit)
	return covers, err
}

// MemoryRepository keeps records in process; used when no DSN is set.
type MemoryRepository struct {
	mu     sync.RWMutex
	covers []model.Cover
	byID   map[string]int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]int{}}
}

func (r *MemoryRepository) Save(_ context.Context, c *model.Cover) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byID[c.ID]; ok {
		r.covers[i] = *c
		return nil
	}
	r.byID[c.ID] = len(r.covers)
	r.covers = append(r.covers, *c)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*model.Cover, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := r.covers[i]
	return &c, nil
}

func (r *MemoryRepository) List(_ context.Context, limit int) ([]model.Cover, error) {
	r.mu.RLock()
	out := append([]model.Cover{}, r.covers...)
	r.mu.RUnlock()

	// later inserts win created_at ties
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b model.Cover) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
