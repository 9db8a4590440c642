// internal/usecase/todo/usecase_test.go
package todo_usecase

import (
	"context"
	"errors"
	"testing"

	domain_todo "github.com/hijjiri/todo-items/internal/domain/todo"
	"go.uber.org/zap"
)

// テスト用のモック Repository
type mockRepo struct {
	// 挙動を制御するためのフィールド
	listFn     func(ctx context.Context) ([]*domain_todo.Item, error)
	findByIDFn func(ctx context.Context, id int64) (*domain_todo.Item, bool, error)
	createFn   func(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, error)
	updateFn   func(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, bool, error)
	deleteFn   func(ctx context.Context, id int64) (bool, error)

	// 呼ばれたかどうか
	updateCalled bool
	deleteCalled bool
}

func (m *mockRepo) List(ctx context.Context) ([]*domain_todo.Item, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*domain_todo.Item, bool, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, false, nil
}

func (m *mockRepo) Create(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, error) {
	if m.createFn != nil {
		return m.createFn(ctx, it)
	}
	return it, nil
}

func (m *mockRepo) Update(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, bool, error) {
	m.updateCalled = true
	if m.updateFn != nil {
		return m.updateFn(ctx, it)
	}
	return it, true, nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) (bool, error) {
	m.deleteCalled = true
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

// テスト用の TxManager（呼び出し回数と fn の結果を記録する）
type mockTx struct {
	calls   int
	lastErr error
}

func (m *mockTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	m.lastErr = fn(ctx)
	return m.lastErr
}

func strPtr(s string) *string { return &s }

func TestUsecase_Create_Success(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		createFn: func(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, error) {
			// 疑似的にIDを付与する
			it.ID = 1
			return it, nil
		},
	}
	tx := &mockTx{}

	uc := New(repo, tx, zap.NewNop())

	got, err := uc.Create(context.Background(), strPtr("buy milk"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if got.ID != 1 {
		t.Errorf("expected ID=1, got %d", got.ID)
	}
	if got.Text != "buy milk" {
		t.Errorf("expected Text=%q, got %q", "buy milk", got.Text)
	}
	if tx.calls != 1 {
		t.Errorf("expected 1 transaction, got %d", tx.calls)
	}
}

func TestUsecase_Create_TextRequired(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		createFn: func(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, error) {
			t.Error("Create must not reach the repository without text")
			return it, nil
		},
	}
	uc := New(repo, nil, zap.NewNop())

	_, err := uc.Create(context.Background(), nil)
	if !errors.Is(err, ErrTextRequired) {
		t.Errorf("expected ErrTextRequired, got %v", err)
	}
}

func TestUsecase_Create_EmptyTextAllowed(t *testing.T) {
	t.Parallel()

	uc := New(&mockRepo{}, nil, zap.NewNop())

	got, err := uc.Create(context.Background(), strPtr(""))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got.Text != "" {
		t.Errorf("expected empty text, got %q", got.Text)
	}
}

func TestUsecase_Create_StoreError(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("disk I/O error")
	repo := &mockRepo{
		createFn: func(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, error) {
			return nil, storeErr
		},
	}
	uc := New(repo, &mockTx{}, zap.NewNop())

	_, err := uc.Create(context.Background(), strPtr("x"))
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTextRequired) {
		t.Errorf("store error must not look like a domain error: %v", err)
	}
}

func TestUsecase_List_Success(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		listFn: func(ctx context.Context) ([]*domain_todo.Item, error) {
			return []*domain_todo.Item{
				{ID: 1, Text: "A"},
				{ID: 2, Text: "B"},
			}, nil
		},
	}

	uc := New(repo, nil, zap.NewNop())

	list, err := uc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(list) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list))
	}
	if list[0].Text != "A" || list[1].Text != "B" {
		t.Errorf("unexpected texts: %#v", list)
	}
}

func TestUsecase_List_EmptyIsNotNil(t *testing.T) {
	t.Parallel()

	uc := New(&mockRepo{}, nil, zap.NewNop())

	list, err := uc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", list)
	}
}

func TestUsecase_Get(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id int64) (*domain_todo.Item, bool, error) {
			if id == 1 {
				return &domain_todo.Item{ID: 1, Text: "A"}, true, nil
			}
			return nil, false, nil
		},
	}
	uc := New(repo, nil, zap.NewNop())

	got, err := uc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ID != 1 || got.Text != "A" {
		t.Errorf("unexpected item: %#v", got)
	}

	for _, id := range []int64{999, 0, -1} {
		if _, err := uc.Get(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%d): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestUsecase_Update_Success(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id int64) (*domain_todo.Item, bool, error) {
			return &domain_todo.Item{ID: id, Text: "buy milk"}, true, nil
		},
		updateFn: func(ctx context.Context, it *domain_todo.Item) (*domain_todo.Item, bool, error) {
			if it.ID != 3 {
				t.Errorf("expected id=3, got %d", it.ID)
			}
			return it, true, nil
		},
	}
	tx := &mockTx{}

	uc := New(repo, tx, zap.NewNop())

	got, err := uc.Update(context.Background(), 3, strPtr("buy bread"))
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if got.ID != 3 || got.Text != "buy bread" {
		t.Errorf("unexpected updated item: %#v", got)
	}
	if tx.calls != 1 {
		t.Errorf("expected 1 transaction, got %d", tx.calls)
	}
}

func TestUsecase_Update_NotFoundBeforeTextRequired(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{}
	uc := New(repo, &mockTx{}, zap.NewNop())

	// text も無いが、存在チェックが先なので ErrNotFound
	_, err := uc.Update(context.Background(), 42, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if repo.updateCalled {
		t.Error("Update must not reach the repository for an absent id")
	}
}

func TestUsecase_Update_TextRequired(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id int64) (*domain_todo.Item, bool, error) {
			return &domain_todo.Item{ID: id, Text: "A"}, true, nil
		},
	}
	uc := New(repo, &mockTx{}, zap.NewNop())

	_, err := uc.Update(context.Background(), 1, nil)
	if !errors.Is(err, ErrTextRequired) {
		t.Errorf("expected ErrTextRequired, got %v", err)
	}
	if repo.updateCalled {
		t.Error("Update must not reach the repository without text")
	}
}

func TestUsecase_Delete_Success(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id int64) (*domain_todo.Item, bool, error) {
			return &domain_todo.Item{ID: id}, true, nil
		},
		deleteFn: func(ctx context.Context, id int64) (bool, error) {
			if id != 1 {
				t.Errorf("expected id=1, got %d", id)
			}
			return true, nil
		},
	}

	uc := New(repo, &mockTx{}, zap.NewNop())

	if err := uc.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}

func TestUsecase_Delete_NotFound(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{} // FindByID は常に「無し」
	uc := New(repo, &mockTx{}, zap.NewNop())

	for _, id := range []int64{123, 0} {
		if err := uc.Delete(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete(%d): expected ErrNotFound, got %v", id, err)
		}
	}
	if repo.deleteCalled {
		t.Error("Delete must not reach the repository for an absent id")
	}
}
