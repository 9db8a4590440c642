package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hijjiri/todo-items/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Middleware は http.Handler を包む関数
type Middleware func(http.Handler) http.Handler

const (
	headerRequestID = "X-Request-ID"
	maxRequestIDLen = 128
	tracerName      = "github.com/hijjiri/todo-items/internal/interface/http"
)

// statusRecorder は書かれたステータスコードとバイト数を覚えておく
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// http.ResponseController 用
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// NewRecoveryMiddleware は handler の panic を拾って 500 を返す。
func NewRecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				// クライアント切断などで net/http 自身が使う panic はそのまま流す
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.Error("panic recovered in http handler",
					zap.Any("panic", p),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stacktrace", debug.Stack()),
				)
				if !rec.wroteHeader {
					_ = writeJSON(rec, http.StatusInternalServerError, messageError(msgInternal))
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// NewRequestIDMiddleware は X-Request-ID を引き継ぐか新しく振り、ctx とレスポンスヘッダに載せる。
// ルート記録用の箱もここで ctx に置く。
func NewRequestIDMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get(headerRequestID)
			if rid == "" || len(rid) > maxRequestIDLen {
				rid = uuid.NewString()
			}
			w.Header().Set(headerRequestID, rid)

			ctx := withRouteHolder(WithRequestID(r.Context(), rid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewTracingMiddleware はリクエストごとに server span を 1 本張る。
// traceparent ヘッダがあれば親として引き継ぐ。
func NewTracingMiddleware() Middleware {
	tracer := otel.Tracer(tracerName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()

			if rid, ok := RequestIDFromContext(ctx); ok {
				span.SetAttributes(attribute.String("request.id", rid))
			}

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			route := RouteFromContext(ctx)
			span.SetName(route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", rec.status),
			)
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

// NewMetricsMiddleware は Prometheus にリクエスト件数とレイテンシを記録する。
// ラベルは生パスではなくルートパターン（カーディナリティを抑える）。
func NewMetricsMiddleware(m *observability.HTTPMetrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			route := RouteFromContext(r.Context())
			m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.Duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// NewLoggingMiddleware logs each request with method, route, status, duration and request_id.
func NewLoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", RouteFromContext(r.Context())),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("duration", time.Since(start)),
			}
			if rid, ok := RequestIDFromContext(r.Context()); ok {
				fields = append(fields, zap.String("request_id", rid))
			}

			if rec.status >= http.StatusInternalServerError {
				logger.Error("http request", fields...)
			} else {
				logger.Info("http request", fields...)
			}
		})
	}
}

// NewTimeoutMiddleware は各リクエストの ctx にタイムアウトを付ける。
//   - timeout <= 0 の場合は何もしない
//   - 既に ctx に deadline がある場合は「より短い方」を優先
//
// ctx deadline は usecase / repository まで伝播し、DB 待ちを切る。
func NewTimeoutMiddleware(logger *zap.Logger, timeout time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			if dl, ok := r.Context().Deadline(); ok && time.Until(dl) <= timeout {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logger.Warn("request timeout",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("timeout", timeout),
				)
			}
		})
	}
}
