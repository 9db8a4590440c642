package grpcadapter

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// recoverTo は panic を拾って err を Internal に差し替える。defer から直接呼ぶこと。
func recoverTo(logger *zap.Logger, kind, method string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	logger.Error("panic recovered in "+kind+" handler",
		zap.Any("panic", r),
		zap.String("method", method),
		zap.ByteString("stacktrace", debug.Stack()),
	)
	*err = status.Error(codes.Internal, "internal error")
}

// Unary 用 Recovery interceptor
func NewRecoveryUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer recoverTo(logger, "unary", info.FullMethod, &err)
		return handler(ctx, req)
	}
}

// Streaming 用 Recovery interceptor
func NewRecoveryStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer recoverTo(logger, "stream", info.FullMethod, &err)
		return handler(srv, ss)
	}
}
