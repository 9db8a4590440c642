package httpadapter

import "context"

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request-id"
	ctxKeyRoute     ctxKey = "route"
)

// ----- request_id -----

func WithRequestID(ctx context.Context, rid string) context.Context {
	if rid == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeyRequestID).(string)
	return s, ok
}

// ----- route -----
// ServeMux がマッチしたパターンは内側の *http.Request にしか入らないので、
// 外側の middleware（metrics / tracing / logging）からも見えるように箱を ctx に置く。

type routeHolder struct {
	pattern string
}

func withRouteHolder(ctx context.Context) context.Context {
	if _, ok := ctx.Value(ctxKeyRoute).(*routeHolder); ok {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRoute, &routeHolder{})
}

func setRoute(ctx context.Context, pattern string) {
	if h, ok := ctx.Value(ctxKeyRoute).(*routeHolder); ok {
		h.pattern = pattern
	}
}

// RouteFromContext はマッチしたルートパターンを返す。未マッチなら "unmatched"。
func RouteFromContext(ctx context.Context) string {
	if h, ok := ctx.Value(ctxKeyRoute).(*routeHolder); ok && h.pattern != "" {
		return h.pattern
	}
	return "unmatched"
}
