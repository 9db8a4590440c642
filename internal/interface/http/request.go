package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	todo_usecase "github.com/hijjiri/todo-items/internal/usecase/todo"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxBodyBytes = 1 << 20

// POST / PUT で受け付ける body の形。text は必須で null 不可。
// 文字列以外の値は JSON 表記のまま文字列として保存する。
const itemInputSchema = `{
  "type": "object",
  "properties": {
    "text": {"not": {"type": "null"}}
  },
  "required": ["text"]
}`

var itemInput = jsonschema.MustCompileString("todo_item_input.json", itemInputSchema)

var errMalformedBody = errors.New("malformed json body")

type itemRequest struct {
	Text *string
}

type rawItemRequest struct {
	Text json.RawMessage `json:"text"`
}

// decodeItemRequest は body を読み、スキーマで検証してから型付きで返す。
//   - JSON として壊れている → errMalformedBody
//   - text が無い / null → todo_usecase.ErrTextRequired
func decodeItemRequest(w http.ResponseWriter, r *http.Request) (itemRequest, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return itemRequest{}, errMalformedBody
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return itemRequest{}, errMalformedBody
	}
	if err := itemInput.Validate(doc); err != nil {
		return itemRequest{}, todo_usecase.ErrTextRequired
	}

	var raw rawItemRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return itemRequest{}, errMalformedBody
	}
	text, err := textValue(raw.Text)
	if err != nil {
		return itemRequest{}, errMalformedBody
	}
	return itemRequest{Text: &text}, nil
}

// textValue は text の値を保存用の文字列にする。
// 文字列はそのまま、数値や真偽値、配列、オブジェクトは詰めた JSON 表記になる。
func textValue(raw json.RawMessage) (string, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}
