package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hijjiri/todo-items/internal/config"
	domain_todo "github.com/hijjiri/todo-items/internal/domain/todo"
	"github.com/hijjiri/todo-items/internal/infrastructure/memory"
	"github.com/hijjiri/todo-items/internal/infrastructure/sqldb"
	grpcadapter "github.com/hijjiri/todo-items/internal/interface/grpc"
	httpadapter "github.com/hijjiri/todo-items/internal/interface/http"
	"github.com/hijjiri/todo-items/internal/observability"
	todo_usecase "github.com/hijjiri/todo-items/internal/usecase/todo"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownGrace = 5 * time.Second

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	// 設定を読む前なので、ここだけ env を直接見る
	logger, err := newLogger(os.Getenv("LOG_DEVELOPMENT") == "true")
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Config 読み込み ----
	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("loaded config",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("db_path", cfg.DB.Path),
		zap.String("db_host", cfg.DB.Host),
		zap.String("db_name", cfg.DB.Name),
		zap.Duration("request_timeout", cfg.RequestTimeout),
	)

	// ---- Tracing ----
	var traceOut io.Writer
	if cfg.TraceStdout {
		traceOut = os.Stdout
	}
	shutdownTracing, err := observability.SetupTracing(traceOut)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	// ---- Store ----
	var (
		db   *sql.DB
		repo domain_todo.Repository
		tx   todo_usecase.TxManager
	)
	if cfg.DB.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on exit")
		repo = memory.NewItemRepository()
	} else {
		var dialect sqldb.Dialect
		db, dialect, err = sqldb.Open(ctx, cfg.DB, logger)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer db.Close()

		if err := sqldb.Migrate(ctx, db, dialect, logger); err != nil {
			return fmt.Errorf("migrate db: %w", err)
		}
		logger.Info("connected to database", zap.String("dialect", string(dialect)))

		repo = sqldb.NewItemRepository(db, logger)
		tx = sqldb.NewTxManager(db, logger)
	}

	uc := todo_usecase.New(repo, tx, logger)

	// ---- Metrics ----
	reg := observability.NewRegistry(db)
	httpMetrics := observability.NewHTTPMetrics(reg)

	// ---- HTTP サーバ ----
	router := httpadapter.NewRouter(httpadapter.NewTodoHandler(uc, logger), httpadapter.RouterOptions{
		Logger:         logger,
		Metrics:        httpMetrics,
		RequestTimeout: cfg.RequestTimeout,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// ---- metrics HTTP サーバ (/metrics) ----
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", observability.MetricsHandler(reg))
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// ---- gRPC health ----
	var pinger grpcadapter.Pinger
	if db != nil {
		pinger = db
	}
	checker := grpcadapter.NewHealthChecker(pinger, cfg.HealthInterval, logger)
	grpcSrv := grpcadapter.NewServer(logger, checker)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 3)

	go checker.Run(ctx)

	go func() {
		logger.Info("gRPC health server is starting", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server is starting", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server failed, shutting down", zap.Error(runErr))
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(sctx); err != nil {
		logger.Warn("metrics shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	logger.Info("server stopped")
	return runErr
}
