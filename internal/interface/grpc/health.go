package grpcadapter

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName は health で個別に報告するサービス名
const ServiceName = "todo.v1.TodoItems"

const pingTimeout = 2 * time.Second

// Pinger は DB の生存確認（*sql.DB が満たす）
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker は DB の ping 結果を gRPC health の状態に反映する。
type HealthChecker struct {
	srv      *health.Server
	pinger   Pinger // nil なら常に SERVING（in-memory 用）
	interval time.Duration
	logger   *zap.Logger
}

func NewHealthChecker(pinger Pinger, interval time.Duration, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthChecker{
		srv:      health.NewServer(),
		pinger:   pinger,
		interval: interval,
		logger:   logger,
	}
}

// Check は 1 回 ping して状態を更新し、その状態を返す。
func (c *HealthChecker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if c.pinger != nil {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := c.pinger.PingContext(ctx); err != nil {
			c.logger.Warn("health check: db ping failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	c.srv.SetServingStatus("", status)
	c.srv.SetServingStatus(ServiceName, status)
	return status
}

// Run は ctx が終わるまで interval ごとに Check する。
// 終了時は全サービスを NOT_SERVING にする。
func (c *HealthChecker) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.srv.Shutdown()
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}

// NewServer は health / reflection 付きの gRPC サーバを組み立てる。
func NewServer(logger *zap.Logger, checker *HealthChecker) *grpc.Server {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			NewRecoveryUnaryInterceptor(logger),
			NewLoggingUnaryInterceptor(logger),
		),
		grpc.ChainStreamInterceptor(
			NewRecoveryStreamInterceptor(logger),
			NewLoggingStreamInterceptor(logger),
		),
	)

	healthpb.RegisterHealthServer(s, checker.srv)
	reflection.Register(s)
	return s
}
