package pipeline

// Сегментация китайского текста поверх gse (словарный DAG, как jieba).
// HMM по умолчанию выключен: неизвестные слова не достраиваются моделью,
// что даёт стабильные токены для simhash-отпечатков.

import (
	"strings"
	"sync"

	"github.com/go-ego/gse"
)

var (
	segmenterOnce sync.Once
	segmenter     gse.Segmenter
	segmenterErr  error
)

// initSegmenter лениво загружает встроенный словарь. Загрузка словаря —
// сотни миллисекунд, поэтому выполняется один раз на процесс.
func initSegmenter() {
	segmenterOnce.Do(func() {
		segmenterErr = segmenter.LoadDict()
	})
}

// Segment разбивает текст на токены. hmm включает достройку неизвестных слов
// скрытой марковской моделью. Пустой или пробельный вход даёт nil.
// При недоступном словаре деградирует до разбиения по пробелам.
func Segment(text string, hmm bool) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	initSegmenter()
	if segmenterErr != nil {
		return strings.Fields(text)
	}
	return segmenter.Cut(text, hmm)
}

// SegmentSearch разбивает текст с более мелкой гранулярностью: длинные слова
// дополнительно дробятся, что повышает полноту поиска.
func SegmentSearch(text string, hmm bool) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	initSegmenter()
	if segmenterErr != nil {
		return strings.Fields(text)
	}
	return segmenter.CutSearch(text, hmm)
}
