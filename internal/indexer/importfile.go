package indexer

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"telegram-search/internal/pipeline"
)

// fileRecord — запись статического экспорта. Дата принимается и как Unix-число,
// и как RFC3339-строка: экспорты встречаются в обоих вариантах.
type fileRecord struct {
	ChatID       int64  `json:"chat_id"`
	MsgID        int    `json:"msg_id"`
	Text         string `json:"text"`
	Date         any    `json:"date"`
	ChatTitle    string `json:"chat_title"`
	ChatUsername string `json:"chat_username"`
	URL          string `json:"url"`
	MediaType    string `json:"media_type"`
}

// parseDate приводит значение даты к time.Time; неразборчивое значение даёт
// нулевое время (трансформер превратит его в date=0).
func parseDate(v any) time.Time {
	switch d := v.(type) {
	case float64:
		return time.Unix(int64(d), 0).UTC()
	case string:
		if ts, err := strconv.ParseInt(d, 10, 64); err == nil {
			return time.Unix(ts, 0).UTC()
		}
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			return t
		}
	}
	return time.Time{}
}

// toRaw переводит запись файла во входной формат конвейера.
func (r fileRecord) toRaw() pipeline.RawMessage {
	return pipeline.RawMessage{
		ChatID:       r.ChatID,
		MsgID:        r.MsgID,
		Text:         r.Text,
		Date:         parseDate(r.Date),
		ChatTitle:    r.ChatTitle,
		ChatUsername: r.ChatUsername,
		URL:          r.URL,
		MediaType:    r.MediaType,
	}
}

// ImportFile читает статический экспорт сообщений (JSON-массив или CSV с
// заголовком) и возвращает записи в формате конвейера. Формат определяется
// расширением файла.
func ImportFile(path string) ([]pipeline.RawMessage, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return importJSON(path)
	case ".csv":
		return importCSV(path)
	default:
		return nil, errors.Errorf("unsupported import format %q", filepath.Ext(path))
	}
}

// importJSON читает JSON-массив записей.
func importJSON(path string) ([]pipeline.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read import file")
	}

	var records []fileRecord
	if err = json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "parse import file")
	}

	msgs := make([]pipeline.RawMessage, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, rec.toRaw())
	}
	return msgs, nil
}

// importCSV читает CSV с заголовком; колонки сопоставляются по имени,
// неизвестные игнорируются.
func importCSV(path string) ([]pipeline.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open import file")
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	field := func(row []string, name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var msgs []pipeline.RawMessage
	for {
		row, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, errors.Wrap(readErr, "read csv row")
		}

		chatID, _ := strconv.ParseInt(field(row, "chat_id"), 10, 64)
		msgID, _ := strconv.Atoi(field(row, "msg_id"))
		msgs = append(msgs, fileRecord{
			ChatID:       chatID,
			MsgID:        msgID,
			Text:         field(row, "text"),
			Date:         field(row, "date"),
			ChatTitle:    field(row, "chat_title"),
			ChatUsername: field(row, "chat_username"),
			URL:          field(row, "url"),
			MediaType:    field(row, "media_type"),
		}.toRaw())
	}
	return msgs, nil
}
