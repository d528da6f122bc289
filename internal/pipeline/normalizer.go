// Package pipeline — конвейер преобразования сообщений перед индексацией:
// нормализация текста (NFC, пробелы, варианты китайского, пиньинь),
// сегментация, simhash-отпечатки, сборка индексируемого документа, фильтры
// и окно дедупликации. Все преобразования чистые и детерминированные:
// одинаковый вход всегда даёт одинаковый документ.
package pipeline

import (
	"strings"
	"sync"
	"unicode"

	"github.com/longbridgeapp/opencc"
	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/unicode/norm"
)

var (
	converterOnce sync.Once
	s2tConverter  *opencc.OpenCC
	t2sConverter  *opencc.OpenCC
	converterErr  error
)

// initConverters лениво поднимает таблицы OpenCC. Словари встроены в пакет,
// поэтому ошибка возможна только при повреждённой сборке; она кэшируется и
// возвращается каждому вызову конвертации.
func initConverters() {
	converterOnce.Do(func() {
		if s2tConverter, converterErr = opencc.New("s2t"); converterErr != nil {
			return
		}
		t2sConverter, converterErr = opencc.New("t2s")
	})
}

// Normalize приводит текст к канонической форме: Unicode NFC, затем все
// последовательности юникодных пробелов схлопываются в один пробел с обрезкой
// по краям. Пустой вход даёт пустую строку.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// ToSimplified конвертирует традиционные иероглифы в упрощённые.
func ToSimplified(text string) (string, error) {
	initConverters()
	if converterErr != nil {
		return "", converterErr
	}
	return t2sConverter.Convert(text)
}

// ToTraditional конвертирует упрощённые иероглифы в традиционные.
func ToTraditional(text string) (string, error) {
	initConverters()
	if converterErr != nil {
		return "", converterErr
	}
	return s2tConverter.Convert(text)
}

// ToPinyin возвращает пиньинь-романизацию текста: слоги без тонов,
// разделённые пробелом. Не-китайские фрагменты проходят насквозь как
// отдельные токены, как это делает lazy-режим pypinyin.
func ToPinyin(text string) string {
	if text == "" {
		return ""
	}

	args := pinyin.NewArgs() // стиль Normal: без тоновых знаков

	var tokens []string
	var pending strings.Builder

	flush := func() {
		if token := strings.TrimSpace(pending.String()); token != "" {
			tokens = append(tokens, token)
		}
		pending.Reset()
	}

	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			flush()
			tokens = append(tokens, pinyin.LazyPinyin(string(r), args)...)
			continue
		}
		pending.WriteRune(r)
	}
	flush()

	return strings.Join(tokens, " ")
}
