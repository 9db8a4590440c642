package todo

import "errors"

// Item は to-do 集約のルートエンティティ。
// ID はストアが採番し、作成後は変更しない。
type Item struct {
	ID   int64
	Text string
}

// ---- ドメインエラー（sentinel error） ----

var (
	// text が送られてこなかった（null / 欠落）ときに使う共通エラー。
	ErrTextRequired = errors.New("todo text is required")

	// ID が 0 以下など、存在し得ない ID のときに使う共通エラー。
	ErrInvalidID = errors.New("todo id must be positive")
)

// ---- ファクトリ / バリデーション ----

// NewItem は「新規作成用」のコンストラクタ。ID は保存時に決まるので 0 のまま。
// 空文字はそのまま受け付ける（必須チェックは「値があるか」だけ）。
func NewItem(text string) *Item {
	return &Item{Text: text}
}

// ChangeText は text の差し替え。更新で変えられるのは text だけ。
func (i *Item) ChangeText(text string) {
	i.Text = text
}

// ValidateID は ID まわりの共通バリデーション。
func ValidateID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}
