package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"

	domain_todo "github.com/hijjiri/todo-items/internal/domain/todo"
)

// クライアントに返すメッセージ（元アプリの文言をそのまま使う）
const (
	msgRequiredField  = "Обов'язкове поле"
	msgNotFoundFormat = "Елемент з id %s не знайдено в базі даних"
	msgMalformedBody  = "Некоректний JSON у тілі запиту"
	msgRouteNotFound  = "not found"
	msgTimeout        = "request timeout"
	msgInternal       = "internal server error"
)

// itemResponse は item の唯一のワイヤ表現 {"id":..,"text":..}
type itemResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type errorResponse struct {
	Error any `json:"error"`
}

// --- converter (domain -> wire) ---
func toItemResponse(it *domain_todo.Item) itemResponse {
	return itemResponse{ID: it.ID, Text: it.Text}
}

func toItemResponses(items []*domain_todo.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	return out
}

func requiredFieldError() errorResponse {
	return errorResponse{Error: map[string]string{"text": msgRequiredField}}
}

// id は path に書かれたままの10進表記
func notFoundError(id string) errorResponse {
	return errorResponse{Error: fmt.Sprintf(msgNotFoundFormat, id)}
}

func messageError(msg string) errorResponse {
	return errorResponse{Error: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
