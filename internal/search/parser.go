package search

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Регулярные выражения расширенного синтаксиса запроса. Разбор идёт в
// фиксированном порядке: диапазон дат, затем источник, затем сортировка.
var (
	dateRangeRe = regexp.MustCompile(`date:(\d{4}-\d{2}-\d{2})\.\.(\d{4}-\d{2}-\d{2})`)
	sourceRe    = regexp.MustCompile(`from:(\w+)`)
	sortRe      = regexp.MustCompile(`sort:(date|relevance)`)
)

// ParsedQuery — результат разбора пользовательского запроса: очищенные от
// операторов ключевые слова плюс извлечённые ограничения.
type ParsedQuery struct {
	Keywords []string
	Sort     string
	DateFrom time.Time
	DateTo   time.Time
	Source   string
}

// Query собирает строку запроса к движку из оставшихся ключевых слов.
func (p ParsedQuery) Query() string {
	return strings.Join(p.Keywords, " ")
}

// Filters синтезирует фильтры движка из извлечённых ограничений.
// Даты превращаются в Unix-секунды полуночи UTC соответствующего дня; обе
// границы диапазона образуют одно составное выражение.
func (p ParsedQuery) Filters() []string {
	var filters []string
	switch {
	case !p.DateFrom.IsZero() && !p.DateTo.IsZero():
		filters = append(filters, fmt.Sprintf("date >= %d AND date <= %d", p.DateFrom.Unix(), p.DateTo.Unix()))
	case !p.DateFrom.IsZero():
		filters = append(filters, fmt.Sprintf("date >= %d", p.DateFrom.Unix()))
	case !p.DateTo.IsZero():
		filters = append(filters, fmt.Sprintf("date <= %d", p.DateTo.Unix()))
	}
	if p.Source != "" {
		filters = append(filters, fmt.Sprintf("chat_username = %q", p.Source))
	}
	return filters
}

// ParseQuery извлекает из запроса операторы date:YYYY-MM-DD..YYYY-MM-DD,
// from:<слово> и sort:(date|relevance); остальные токены становятся ключевыми
// словами. Перевёрнутый диапазон дат молча исправляется перестановкой границ.
// Токен с неразборчивыми датами остаётся ключевым словом.
func ParseQuery(query string) ParsedQuery {
	var p ParsedQuery

	if m := dateRangeRe.FindStringSubmatch(query); m != nil {
		from, errFrom := time.ParseInLocation("2006-01-02", m[1], time.UTC)
		to, errTo := time.ParseInLocation("2006-01-02", m[2], time.UTC)
		if errFrom == nil && errTo == nil {
			if from.After(to) {
				from, to = to, from
			}
			p.DateFrom, p.DateTo = from, to
			query = strings.Replace(query, m[0], "", 1)
		}
	}

	if m := sourceRe.FindStringSubmatch(query); m != nil {
		p.Source = m[1]
		query = strings.Replace(query, m[0], "", 1)
	}

	if m := sortRe.FindStringSubmatch(query); m != nil {
		p.Sort = m[1]
		query = strings.Replace(query, m[0], "", 1)
	}

	p.Keywords = strings.Fields(query)
	return p
}
