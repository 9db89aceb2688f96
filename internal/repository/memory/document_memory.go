package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"docgate/internal/model"
	"docgate/internal/repository"
)

// DocumentMemory keeps document metadata in process memory. It is used when no
// database is configured; records do not survive a restart.
type DocumentMemory struct {
	mu    sync.RWMutex
	items map[string]model.Document
}

// NewDocumentMemory creates an empty in-memory repository.
func NewDocumentMemory() *DocumentMemory {
	return &DocumentMemory{items: make(map[string]model.Document)}
}

var _ repository.DocumentRepository = (*DocumentMemory)(nil)

// Create stores a copy of doc. IDs and filenames must be unique.
func (r *DocumentMemory) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[doc.ID]; ok {
		return nil, fmt.Errorf("document %s already exists", doc.ID)
	}
	for _, d := range r.items {
		if d.StoragePath == doc.StoragePath {
			return nil, fmt.Errorf("storage path %s already in use", doc.StoragePath)
		}
	}
	r.items[doc.ID] = *doc
	out := *doc
	return &out, nil
}

// FindByID returns sql.ErrNoRows for unknown IDs, matching the postgres repository.
func (r *DocumentMemory) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

// List orders by created_at DESC, id DESC like the SQL implementation.
func (r *DocumentMemory) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	all := make([]model.Document, 0, len(r.items))
	for _, d := range r.items {
		all = append(all, d)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	start := min(max(pq.Offset, 0), len(all))
	end := len(all)
	if pq.Limit >= 0 {
		end = min(start+pq.Limit, len(all))
	}
	items := make([]model.Document, end-start)
	copy(items, all[start:end])

	return &repository.PageResult[model.Document]{Items: items, Total: len(all)}, nil
}
