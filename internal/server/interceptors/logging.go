package interceptors

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnary attaches a request-scoped logger (method, peer) to the context and logs each
// completed RPC with its status code and duration. Server-side failures log at error level.
func LoggingUnary(base zerolog.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		logger := base.With().Str("method", info.FullMethod).Str("peer", ClientIP(ctx)).Logger()
		ctx = logger.WithContext(ctx)
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		ev := zerolog.Ctx(ctx).Info()
		switch code {
		case codes.OK:
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			ev = zerolog.Ctx(ctx).Error().Err(err)
		default:
			ev = zerolog.Ctx(ctx).Warn().Str("error", status.Convert(err).Message())
		}
		ev.Str("code", code.String()).Dur("duration", time.Since(start)).Msg("rpc finished")
		return resp, err
	}
}

// RecoveryUnary turns a handler panic into codes.Internal and logs the panic value.
func RecoveryUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger := zerolog.Ctx(ctx)
				if logger.GetLevel() == zerolog.Disabled {
					logger = &log.Logger
				}
				logger.Error().Str("method", info.FullMethod).Interface("panic", p).Stack().Msg("handler panic")
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
