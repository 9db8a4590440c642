package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// context にぶら下げる用のキー
type txKey struct{}

func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext は「この ctx に Tx がぶら下がっているか？」を返す。
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// querier は *sql.DB と *sql.Tx の共通部分。
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn は ctx に Tx があればそれを、無ければ DB を返す。
// sqlite は接続 1 本なので、Tx 中に DB を直接使うと詰まる点に注意。
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db
}

// TxManager は「この DB でトランザクションを張る」ための小さなラッパ
type TxManager struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewTxManager(db *sql.DB, logger *zap.Logger) *TxManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxManager{
		db:     db,
		logger: logger,
	}
}

// WithinTx は ctx を引き継いだトランザクションを開始し、fn をその中で実行する。
// fn がエラーなら rollback、成功なら commit してから返る。
// 既に ctx に Tx がある場合はそれに相乗りする（入れ子にはしない）。
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("failed to rollback tx", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
