package todo_usecase

import (
	"context"
	"errors"
	"fmt"

	domain_todo "github.com/hijjiri/todo-items/internal/domain/todo"
	"go.uber.org/zap"
)

// ===== エラー定数（Handler側からも使う） =====

var (
	ErrNotFound     = errors.New("todo item not found")
	ErrTextRequired = domain_todo.ErrTextRequired
)

// ===== 外部に公開する Usecase インターフェース =====

type Usecase interface {
	List(ctx context.Context) ([]*domain_todo.Item, error)
	Get(ctx context.Context, id int64) (*domain_todo.Item, error)
	Create(ctx context.Context, text *string) (*domain_todo.Item, error)
	Update(ctx context.Context, id int64, text *string) (*domain_todo.Item, error)
	Delete(ctx context.Context, id int64) error
}

// TxManager は「fn を 1 トランザクションで実行して commit する」役。
// sqldb.TxManager がこれを満たす。
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ===== 実装 =====

type usecase struct {
	repo   domain_todo.Repository
	tx     TxManager
	logger *zap.Logger
}

// New は Usecase を組み立てる。tx が nil なら fn をそのまま実行する（in-memory 用）。
func New(repo domain_todo.Repository, tx TxManager, logger *zap.Logger) Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tx == nil {
		tx = directTx{}
	}
	return &usecase{
		repo:   repo,
		tx:     tx,
		logger: logger,
	}
}

type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// List ユースケース（ID 昇順）
func (u *usecase) List(ctx context.Context) ([]*domain_todo.Item, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if items == nil {
		items = []*domain_todo.Item{}
	}
	return items, nil
}

// Get ユースケース
func (u *usecase) Get(ctx context.Context, id int64) (*domain_todo.Item, error) {
	// 0 以下の ID は存在し得ないので、DB に聞くまでもなく not found
	if err := domain_todo.ValidateID(id); err != nil {
		return nil, ErrNotFound
	}

	it, ok, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find item %d: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return it, nil
}

// Create ユースケース
func (u *usecase) Create(ctx context.Context, text *string) (*domain_todo.Item, error) {
	if text == nil {
		return nil, ErrTextRequired
	}

	var created *domain_todo.Item
	err := u.tx.WithinTx(ctx, func(ctx context.Context) error {
		it, err := u.repo.Create(ctx, domain_todo.NewItem(*text))
		if err != nil {
			return err
		}
		created = it
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	u.logger.Info("todo item created", zap.Int64("id", created.ID))
	return created, nil
}

// Update ユースケース
// 存在チェック → text チェック → 更新 の順を守る（404 が 400 より優先）。
func (u *usecase) Update(ctx context.Context, id int64, text *string) (*domain_todo.Item, error) {
	if err := domain_todo.ValidateID(id); err != nil {
		return nil, ErrNotFound
	}

	var updated *domain_todo.Item
	err := u.tx.WithinTx(ctx, func(ctx context.Context) error {
		it, ok, err := u.repo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find item %d: %w", id, err)
		}
		if !ok {
			return ErrNotFound
		}
		if text == nil {
			return ErrTextRequired
		}

		it.ChangeText(*text)
		saved, ok, err := u.repo.Update(ctx, it)
		if err != nil {
			return fmt.Errorf("update item %d: %w", id, err)
		}
		if !ok {
			return ErrNotFound
		}
		updated = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("todo item updated", zap.Int64("id", updated.ID))
	return updated, nil
}

// Delete ユースケース
func (u *usecase) Delete(ctx context.Context, id int64) error {
	if err := domain_todo.ValidateID(id); err != nil {
		return ErrNotFound
	}

	err := u.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, ok, err := u.repo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find item %d: %w", id, err)
		}
		if !ok {
			return ErrNotFound
		}

		ok, err = u.repo.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete item %d: %w", id, err)
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.logger.Info("todo item deleted", zap.Int64("id", id))
	return nil
}
