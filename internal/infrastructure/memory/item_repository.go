// Package memory はプロセス内だけで完結する Repository 実装（テスト / DB_DRIVER=memory 用）。
package memory

import (
	"context"
	"sort"
	"sync"

	domain_todo "github.com/hijjiri/todo-items/internal/domain/todo"
)

type ItemRepository struct {
	mu    sync.Mutex
	next  int64 // 削除後も巻き戻さない
	items map[int64]domain_todo.Item
}

var _ domain_todo.Repository = (*ItemRepository)(nil)

func NewItemRepository() *ItemRepository {
	return &ItemRepository{
		next:  1,
		items: make(map[int64]domain_todo.Item),
	}
}

func (r *ItemRepository) List(ctx context.Context) ([]*domain_todo.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*domain_todo.Item, 0, len(r.items))
	for _, it := range r.items {
		it := it
		items = append(items, &it)
	}
	// map の順番は保証されないので ID 昇順に揃える
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *ItemRepository) FindByID(ctx context.Context, id int64) (*domain_todo.Item, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return nil, false, nil
	}
	return &it, true, nil
}

func (r *ItemRepository) Create(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.next
	r.next++

	stored := domain_todo.Item{ID: id, Text: it.Text}
	r.items[id] = stored
	return &stored, nil
}

func (r *ItemRepository) Update(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[it.ID]; !ok {
		return nil, false, nil
	}
	stored := domain_todo.Item{ID: it.ID, Text: it.Text}
	r.items[it.ID] = stored
	return &stored, true, nil
}

func (r *ItemRepository) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}
