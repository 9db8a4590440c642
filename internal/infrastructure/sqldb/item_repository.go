package sqldb

import (
	"context"
	"database/sql"
	"errors"

	domain_todo "github.com/hijjiri/todo-items/internal/domain/todo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/hijjiri/todo-items/internal/infrastructure/sqldb"

// ItemRepository は todo_items テーブルに対する domain_todo.Repository 実装。
// ctx に Tx があればそれを使う（TxManager.WithinTx の中から呼ばれる想定）。
type ItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
	tracer trace.Tracer
}

var _ domain_todo.Repository = (*ItemRepository)(nil)

func NewItemRepository(db *sql.DB, logger *zap.Logger) *ItemRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *ItemRepository) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.sql.table", "todo_items"))
	return r.tracer.Start(ctx, "ItemRepository."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// List は全件を ID 昇順で返す
func (r *ItemRepository) List(ctx context.Context) (items []*domain_todo.Item, err error) {
	ctx, span := r.startSpan(ctx, "List")
	defer func() { endSpan(span, err) }()

	rows, err := conn(ctx, r.db).QueryContext(ctx, "SELECT id, text FROM todo_items ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items = []*domain_todo.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// FindByID は 1 件引く。行が無ければ ok=false（エラーではない）。
func (r *ItemRepository) FindByID(ctx context.Context, id int64) (it *domain_todo.Item, ok bool, err error) {
	ctx, span := r.startSpan(ctx, "FindByID", attribute.Int64("todo.id", id))
	defer func() { endSpan(span, err) }()

	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT id, text FROM todo_items WHERE id = ?", id)
	it, err = scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return it, true, nil
}

// Create は INSERT して採番された ID を付けて返す
func (r *ItemRepository) Create(ctx context.Context, it *domain_todo.Item) (_ *domain_todo.Item, err error) {
	ctx, span := r.startSpan(ctx, "Create")
	defer func() { endSpan(span, err) }()

	res, err := conn(ctx, r.db).ExecContext(ctx, "INSERT INTO todo_items (text) VALUES (?)", it.Text)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &domain_todo.Item{ID: id, Text: it.Text}, nil
}

// Update は text だけを書き換える。対象行が無ければ ok=false。
func (r *ItemRepository) Update(ctx context.Context, it *domain_todo.Item) (_ *domain_todo.Item, ok bool, err error) {
	ctx, span := r.startSpan(ctx, "Update", attribute.Int64("todo.id", it.ID))
	defer func() { endSpan(span, err) }()

	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, "UPDATE todo_items SET text = ? WHERE id = ?", it.Text, it.ID); err != nil {
		return nil, false, err
	}

	// MySQL は値が同じだと affected=0 を返すので、RowsAffected ではなく読み直しで判定する
	row := q.QueryRowContext(ctx, "SELECT id, text FROM todo_items WHERE id = ?", it.ID)
	saved, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return saved, true, nil
}

// Delete は削除件数 > 0 なら true を返す
func (r *ItemRepository) Delete(ctx context.Context, id int64) (ok bool, err error) {
	ctx, span := r.startSpan(ctx, "Delete", attribute.Int64("todo.id", id))
	defer func() { endSpan(span, err) }()

	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM todo_items WHERE id = ?", id)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// text はスキーマ上 NULL 可なので、NULL は空文字として扱う
func scanItem(s scanner) (*domain_todo.Item, error) {
	var (
		id   int64
		text sql.NullString
	)
	if err := s.Scan(&id, &text); err != nil {
		return nil, err
	}
	return &domain_todo.Item{ID: id, Text: text.String}, nil
}
