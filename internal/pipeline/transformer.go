package pipeline

import "fmt"

// Transform собирает индексируемый документ из сырого сообщения: нормализация,
// варианты китайского, пиньинь, simhash и синтез постоянной ссылки. Функция
// не делает I/O и на корректном тексте не ошибается; ошибка возможна только
// при недоступных таблицах конвертации.
//
// Инварианты: TextNorm == Normalize(Text); Simhash == ComputeSimhash(TextNorm);
// ID однозначно определяется парой (ChatID, MsgID).
func Transform(raw RawMessage) (Document, error) {
	textNorm := Normalize(raw.Text)

	simp, err := ToSimplified(textNorm)
	if err != nil {
		return Document{}, fmt.Errorf("to simplified: %w", err)
	}
	trad, err := ToTraditional(textNorm)
	if err != nil {
		return Document{}, fmt.Errorf("to traditional: %w", err)
	}

	url := raw.URL
	if url == "" && raw.ChatUsername != "" {
		// Публичные каналы имеют стабильные постоянные ссылки вида t.me.
		url = fmt.Sprintf("https://t.me/%s/%d", raw.ChatUsername, raw.MsgID)
	}

	var date int64
	if !raw.Date.IsZero() {
		date = raw.Date.Unix()
	}

	return Document{
		ID:           fmt.Sprintf("%d_%d", raw.ChatID, raw.MsgID),
		ChatID:       raw.ChatID,
		ChatTitle:    raw.ChatTitle,
		ChatUsername: raw.ChatUsername,
		MsgID:        raw.MsgID,
		Date:         date,
		Text:         raw.Text,
		TextNorm:     textNorm,
		Pinyin:       ToPinyin(simp),
		Trad:         trad,
		Simp:         simp,
		Simhash:      ComputeSimhash(textNorm),
		URL:          url,
		MediaType:    raw.MediaType,
	}, nil
}
