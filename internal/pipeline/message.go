package pipeline

import "time"

// RawMessage — входная запись от продюсера (историческая синхронизация,
// realtime-подписка или файловый импорт). Порядок прихода не гарантируется;
// конвейер терпим к перестановкам внутри батча.
type RawMessage struct {
	ChatID       int64
	MsgID        int
	Text         string
	Date         time.Time
	ChatTitle    string
	ChatUsername string
	URL          string
	MediaType    string
}

// Document — каноническая форма сообщения для полнотекстового индекса.
// ID детерминирован ("{chat_id}_{msg_id}") и служит первичным ключом движка,
// поэтому повторная отправка того же документа — идемпотентный upsert.
// Date хранится в Unix-секундах, как того требует схема индекса.
type Document struct {
	ID           string `json:"id"`
	ChatID       int64  `json:"chat_id"`
	ChatTitle    string `json:"chat_title"`
	ChatUsername string `json:"chat_username"`
	MsgID        int    `json:"msg_id"`
	Date         int64  `json:"date"`
	Text         string `json:"text"`
	TextNorm     string `json:"text_norm"`
	Pinyin       string `json:"pinyin"`
	Trad         string `json:"trad"`
	Simp         string `json:"simp"`
	Simhash      string `json:"simhash"`
	URL          string `json:"url,omitempty"`
	MediaType    string `json:"media_type,omitempty"`
}
