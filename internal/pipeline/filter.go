package pipeline

import "strings"

// MediaTypeService — сентинел сервисных сообщений (вступления в канал,
// смены заголовка и т.п.). Штатные продюсеры таких записей не порождают,
// но файловый импорт принимает произвольные записи, поэтому проверка нужна.
const MediaTypeService = "service"

// DefaultMinLength — минимальная длина текста (в рунах) после обрезки,
// при которой документ попадает в индекс.
const DefaultMinLength = 5

// Filter — набор булевых предикатов над документом. Документ индексируется
// только если проходит все предикаты. Фильтры идемпотентны: повторное
// применение к прошедшему документу ничего не меняет.
type Filter struct {
	minLength int
}

// NewFilter создаёт фильтр с заданной минимальной длиной; значение <= 0
// заменяется на DefaultMinLength.
func NewFilter(minLength int) *Filter {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Filter{minLength: minLength}
}

// NonEmpty — текст документа не пуст и не состоит из одних пробелов.
func (f *Filter) NonEmpty(doc Document) bool {
	return strings.TrimSpace(doc.Text) != ""
}

// NotService — документ не является сервисным сообщением.
func (f *Filter) NotService(doc Document) bool {
	return doc.MediaType != MediaTypeService
}

// MinLength — обрезанный текст не короче порога (считаем руны, не байты:
// пять иероглифов — валидное сообщение).
func (f *Filter) MinLength(doc Document) bool {
	return len([]rune(strings.TrimSpace(doc.Text))) >= f.minLength
}

// Apply применяет все предикаты; false означает, что хотя бы один не прошёл.
func (f *Filter) Apply(doc Document) bool {
	return f.NonEmpty(doc) && f.NotService(doc) && f.MinLength(doc)
}
