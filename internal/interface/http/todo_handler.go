package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	todo_usecase "github.com/hijjiri/todo-items/internal/usecase/todo"
	"go.uber.org/zap"
)

// TodoHandler は to-do item の REST エンドポイント。
// リクエストをまたいだ状態は持たない（Usecase だけを注入で受け取る）。
type TodoHandler struct {
	uc     todo_usecase.Usecase
	logger *zap.Logger
}

func NewTodoHandler(uc todo_usecase.Usecase, logger *zap.Logger) *TodoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoHandler{uc: uc, logger: logger}
}

// Register はルートを mux に登録する。
func (h *TodoHandler) Register(mux *http.ServeMux) {
	h.handle(mux, "GET /{$}", h.hello)
	h.handle(mux, "GET /todos", h.list)
	h.handle(mux, "POST /todos", h.create)
	h.handle(mux, "GET /todo/{id}", h.get)
	h.handle(mux, "PUT /todo/{id}", h.update)
	h.handle(mux, "DELETE /todo/{id}", h.delete)
}

func (h *TodoHandler) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		setRoute(r.Context(), pattern)
		fn(w, r)
	})
}

// --- GET / ---
func (h *TodoHandler) hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Hello World!"))
}

// --- GET /todos ---
func (h *TodoHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.uc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err, 0)
		return
	}
	h.respond(w, r, http.StatusOK, toItemResponses(items))
}

// --- POST /todos ---
func (h *TodoHandler) create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeItemRequest(w, r)
	if err != nil {
		h.writeError(w, r, err, 0)
		return
	}

	it, err := h.uc.Create(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, r, err, 0)
		return
	}
	h.respond(w, r, http.StatusOK, toItemResponse(it))
}

// --- GET /todo/{id} ---
func (h *TodoHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	it, err := h.uc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, id)
		return
	}
	h.respond(w, r, http.StatusOK, toItemResponse(it))
}

// --- PUT /todo/{id} ---
// 存在チェック（404）を body の検証（400）より先にやる。
func (h *TodoHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	if _, err := h.uc.Get(r.Context(), id); err != nil {
		h.writeError(w, r, err, id)
		return
	}

	req, err := decodeItemRequest(w, r)
	if err != nil {
		h.writeError(w, r, err, id)
		return
	}

	// Get と Update の間に消された場合は Update 側が ErrNotFound を返す
	it, err := h.uc.Update(r.Context(), id, req.Text)
	if err != nil {
		h.writeError(w, r, err, id)
		return
	}
	h.respond(w, r, http.StatusOK, toItemResponse(it))
}

// --- DELETE /todo/{id} ---
func (h *TodoHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	if err := h.uc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// itemID は {id} を取り出す。符号なしの10進数だけを受け付け、
// それ以外は 404 を書いて false を返す。
// int64 に収まらない数字列は存在しない id として扱う。
func (h *TodoHandler) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	if !isDigits(raw) {
		h.respond(w, r, http.StatusNotFound, messageError(msgRouteNotFound))
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.respond(w, r, http.StatusNotFound, notFoundError(raw))
		return 0, false
	}
	return id, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (h *TodoHandler) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	if err := writeJSON(w, status, body); err != nil {
		h.logger.Warn("failed to write response",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

// --- error mapper ---
func (h *TodoHandler) writeError(w http.ResponseWriter, r *http.Request, err error, id int64) {
	switch {
	case errors.Is(err, todo_usecase.ErrNotFound):
		h.respond(w, r, http.StatusNotFound, notFoundError(strconv.FormatInt(id, 10)))

	case errors.Is(err, todo_usecase.ErrTextRequired):
		h.respond(w, r, http.StatusBadRequest, requiredFieldError())

	case errors.Is(err, errMalformedBody):
		h.respond(w, r, http.StatusBadRequest, messageError(msgMalformedBody))

	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("request timed out in store",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.respond(w, r, http.StatusGatewayTimeout, messageError(msgTimeout))

	default:
		// 詳細はログにだけ残す
		rid, _ := RequestIDFromContext(r.Context())
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", rid),
			zap.Error(err),
		)
		h.respond(w, r, http.StatusInternalServerError, messageError(msgInternal))
	}
}
