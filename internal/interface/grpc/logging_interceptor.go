package grpcadapter

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// NewLoggingUnaryInterceptor logs unary RPCs with method, code and duration.
// health の Check はプローブで頻繁に来るので Debug に落とす。
func NewLoggingUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}

		if err != nil {
			logger.Error("gRPC unary request", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("gRPC unary request", fields...)
		}

		return resp, err
	}
}

// NewLoggingStreamInterceptor logs stream RPCs (health Watch) with method and duration.
func NewLoggingStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()

		err := handler(srv, ss)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}

		if err != nil {
			logger.Error("gRPC stream request", append(fields, zap.Error(err))...)
		} else {
			logger.Info("gRPC stream request", fields...)
		}

		return err
	}
}
