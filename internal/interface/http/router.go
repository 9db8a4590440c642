package httpadapter

import (
	"net/http"
	"time"

	"github.com/hijjiri/todo-items/internal/observability"
	"go.uber.org/zap"
)

type RouterOptions struct {
	Logger         *zap.Logger
	Metrics        *observability.HTTPMetrics // nil なら計測しない
	RequestTimeout time.Duration
}

// NewRouter はルートと middleware を組み立てた http.Handler を返す。
// 外側から: recovery → request id → tracing → metrics → logging → timeout → mux
func NewRouter(h *TodoHandler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	h.Register(mux)

	chain := []Middleware{
		NewRecoveryMiddleware(logger),
		NewRequestIDMiddleware(),
		NewTracingMiddleware(),
	}
	if opts.Metrics != nil {
		chain = append(chain, NewMetricsMiddleware(opts.Metrics))
	}
	chain = append(chain,
		NewLoggingMiddleware(logger),
		NewTimeoutMiddleware(logger, opts.RequestTimeout),
	)

	var handler http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler
}
