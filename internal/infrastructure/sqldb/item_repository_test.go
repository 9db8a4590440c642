package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hijjiri/todo-items/internal/config"
	domain_todo "github.com/hijjiri/todo-items/internal/domain/todo"
	"go.uber.org/zap"
)

// newTestDB は t.TempDir() 上の SQLite を開いてマイグレーション済みで返す
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	cfg := config.DB{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}
	policy := RetryPolicy{MaxAttempts: 1, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	db, dialect, err := OpenWithRetry(ctx, cfg, zap.NewNop(), policy)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if dialect != DialectSQLite {
		t.Fatalf("expected dialect %q, got %q", DialectSQLite, dialect)
	}
	if err := Migrate(ctx, db, dialect, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestItemRepository_CreateAndFind(t *testing.T) {
	repo := NewItemRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	created, err := repo.Create(ctx, domain_todo.NewItem("buy milk"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("expected first id=1, got %d", created.ID)
	}

	got, ok, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected item to exist")
	}
	if got.Text != "buy milk" {
		t.Errorf("expected Text=%q, got %q", "buy milk", got.Text)
	}
}

func TestItemRepository_FindByID_Absent(t *testing.T) {
	repo := NewItemRepository(newTestDB(t), zap.NewNop())

	got, ok, err := repo.FindByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if ok || got != nil {
		t.Errorf("expected absent, got %#v", got)
	}
}

func TestItemRepository_ListOrderedByID(t *testing.T) {
	repo := NewItemRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	empty, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", empty)
	}

	for _, text := range []string{"A", "B", "C"} {
		if _, err := repo.Create(ctx, domain_todo.NewItem(text)); err != nil {
			t.Fatalf("Create(%q) returned error: %v", text, err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 items, got %d", len(list))
	}
	for i, it := range list {
		if it.ID != int64(i+1) {
			t.Errorf("list[%d]: expected id=%d, got %d", i, i+1, it.ID)
		}
	}
}

func TestItemRepository_Update(t *testing.T) {
	repo := NewItemRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	created, err := repo.Create(ctx, domain_todo.NewItem("buy milk"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	created.ChangeText("buy bread")
	updated, ok, err := repo.Update(ctx, created)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !ok || updated.Text != "buy bread" || updated.ID != created.ID {
		t.Errorf("unexpected update result: ok=%v item=%#v", ok, updated)
	}

	// 同じ値での更新も「存在する」扱い
	if _, ok, err := repo.Update(ctx, updated); err != nil || !ok {
		t.Errorf("same-value update: ok=%v err=%v", ok, err)
	}
}

func TestItemRepository_Update_AbsentLeavesStoreUnchanged(t *testing.T) {
	repo := NewItemRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	if _, err := repo.Create(ctx, domain_todo.NewItem("A")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, ok, err := repo.Update(ctx, &domain_todo.Item{ID: 42, Text: "ghost"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for absent id")
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected store unchanged (1 item), got %d", len(list))
	}
}

func TestItemRepository_DeleteDoesNotReuseIDs(t *testing.T) {
	repo := NewItemRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	first, err := repo.Create(ctx, domain_todo.NewItem("first"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	ok, err := repo.Delete(ctx, first.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}

	// 2 回目は削除対象なし
	ok, err = repo.Delete(ctx, first.ID)
	if err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
	if ok {
		t.Error("expected ok=false on second delete")
	}

	second, err := repo.Create(ctx, domain_todo.NewItem("second"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if second.ID <= first.ID {
		t.Errorf("expected id > %d after delete, got %d", first.ID, second.ID)
	}
}

func TestTxManager_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	repo := NewItemRepository(db, zap.NewNop())
	txMgr := NewTxManager(db, zap.NewNop())
	ctx := context.Background()

	boom := errors.New("boom")
	err := txMgr.WithinTx(ctx, func(ctx context.Context) error {
		if _, ok := TxFromContext(ctx); !ok {
			t.Error("expected tx in context")
		}
		if _, err := repo.Create(ctx, domain_todo.NewItem("rolled back")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected rollback to leave no rows, got %d", len(list))
	}
}

func TestTxManager_CommitOnSuccess(t *testing.T) {
	db := newTestDB(t)
	repo := NewItemRepository(db, zap.NewNop())
	txMgr := NewTxManager(db, zap.NewNop())
	ctx := context.Background()

	err := txMgr.WithinTx(ctx, func(ctx context.Context) error {
		_, err := repo.Create(ctx, domain_todo.NewItem("kept"))
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx returned error: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 1 || list[0].Text != "kept" {
		t.Errorf("unexpected rows after commit: %#v", list)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	// 2 回目は何もしない
	if err := Migrate(context.Background(), db, DialectSQLite, zap.NewNop()); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), config.DB{Driver: "oracle"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestMySQLConfig(t *testing.T) {
	mc := mysqlConfig(config.DB{
		Driver:   config.DriverMySQL,
		Host:     "db.local",
		Port:     "3307",
		User:     "todo",
		Password: "secret",
		Name:     "items",
	})

	if mc.Addr != "db.local:3307" {
		t.Errorf("expected Addr=db.local:3307, got %q", mc.Addr)
	}
	if mc.User != "todo" || mc.Passwd != "secret" || mc.DBName != "items" {
		t.Errorf("unexpected credentials: user=%q db=%q", mc.User, mc.DBName)
	}
	if mc.Params["charset"] != "utf8mb4" {
		t.Errorf("expected charset utf8mb4, got %q", mc.Params["charset"])
	}
}

// MySQL 側も connector 経由で開き、ping 失敗をエラーとして返す
func TestOpen_MySQLUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	cfg := config.DB{Driver: config.DriverMySQL, Host: host, Port: port, User: "root", Name: "todo"}
	policy := RetryPolicy{MaxAttempts: 1, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	db, _, err := OpenWithRetry(context.Background(), cfg, zap.NewNop(), policy)
	if err == nil {
		db.Close()
		t.Fatal("expected ping error, got nil")
	}
	if !strings.Contains(err.Error(), "ping mysql") {
		t.Errorf("expected ping mysql error, got %v", err)
	}
}
