package todo

import "context"

// Repository は Item の永続化ポート。
// 「見つからない」はエラーではなく bool=false で返す。
type Repository interface {
	// List は全件を ID 昇順で返す。
	List(ctx context.Context) ([]*Item, error)
	FindByID(ctx context.Context, id int64) (*Item, bool, error)
	// Create は ID を採番して保存し、ID 付きで返す。
	Create(ctx context.Context, it *Item) (*Item, error)
	// Update は text を置き換える。行が無ければ false（upsert はしない）。
	Update(ctx context.Context, it *Item) (*Item, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
