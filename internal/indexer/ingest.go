// Package indexer — запись сообщений в поисковый индекс: ingest-сервис с
// дедупликацией, чекпоинты каналов, реестр каналов, историческая
// синхронизация, realtime-подписка и файловый импорт. Пакет не знает о
// конкретном движке: ему передаётся узкий интерфейс записи документов.
package indexer

import (
	"context"

	"go.uber.org/zap"

	"telegram-search/internal/infra/logger"
	"telegram-search/internal/infra/metrics"
	"telegram-search/internal/pipeline"
)

// Result — исход обработки одного сообщения ingest-сервисом.
type Result int

const (
	// ResultIndexed — документ принят движком.
	ResultIndexed Result = iota
	// ResultSkipped — сообщение отсеяно фильтрами или дедупликацией.
	ResultSkipped
	// ResultError — трансформация или индексация завершились ошибкой.
	ResultError
)

// String возвращает текстовую метку исхода для логов.
func (r Result) String() string {
	switch r {
	case ResultIndexed:
		return "indexed"
	case ResultSkipped:
		return "skipped"
	default:
		return "error"
	}
}

// DocumentAdder — минимальный интерфейс движка, нужный ingest-сервису.
// Реализация обязана быть идемпотентной по первичному ключу документа.
type DocumentAdder interface {
	AddDocuments(ctx context.Context, docs []pipeline.Document) error
}

// Ingest превращает сырые сообщения в документы и отправляет их в движок.
// Владеет окном дедупликации; окно мутирует только после успешного ответа
// движка, поэтому неудавшийся батч при повторе даёт тот же результат.
//
// Сервис не потокобезопасен: оркестратор сериализует все вызовы Message/Batch
// одним мьютексом (см. internal/app).
type Ingest struct {
	engine DocumentAdder
	filter *pipeline.Filter
	window *pipeline.Window
}

// NewIngest собирает ingest-сервис. windowSize <= 0 даёт ёмкость по умолчанию.
func NewIngest(engine DocumentAdder, filter *pipeline.Filter, windowSize int) *Ingest {
	return &Ingest{
		engine: engine,
		filter: filter,
		window: pipeline.NewWindow(windowSize),
	}
}

// prepare проводит сообщение через общие пошаговые проверки: пустой текст,
// трансформация, фильтры, окно дедупликации. Второй результат — исход для
// случаев, когда документ не готов к индексации.
func (s *Ingest) prepare(raw pipeline.RawMessage) (pipeline.Document, Result) {
	if pipeline.Normalize(raw.Text) == "" {
		return pipeline.Document{}, ResultSkipped
	}

	doc, err := pipeline.Transform(raw)
	if err != nil {
		logger.Error("transform failed",
			zap.Int64("chat_id", raw.ChatID),
			zap.Int("msg_id", raw.MsgID),
			zap.Error(err))
		return pipeline.Document{}, ResultError
	}

	if !s.filter.Apply(doc) {
		return pipeline.Document{}, ResultSkipped
	}
	if s.window.Contains(doc.Simhash) {
		logger.Debug("near-duplicate skipped", zap.String("doc_id", doc.ID))
		return pipeline.Document{}, ResultSkipped
	}
	return doc, ResultIndexed
}

// Message обрабатывает одно сообщение. Ошибки не пробрасываются: любой сбой
// превращается в ResultError, конвейер продолжает жить.
func (s *Ingest) Message(ctx context.Context, raw pipeline.RawMessage) Result {
	doc, outcome := s.prepare(raw)
	if outcome != ResultIndexed {
		s.count(outcome)
		return outcome
	}

	if err := s.engine.AddDocuments(ctx, []pipeline.Document{doc}); err != nil {
		logger.Error("index failed", zap.String("doc_id", doc.ID), zap.Error(err))
		s.count(ResultError)
		return ResultError
	}

	// Отпечаток попадает в окно только после подтверждения движка.
	s.window.Add(doc.Simhash)
	s.count(ResultIndexed)
	return ResultIndexed
}

// Batch обрабатывает срез сообщений одним вызовом движка.
//
// Каждое сообщение проходит те же пошаговые проверки, что и в Message, плюс
// отбраковку отпечатков, дублирующих уже отобранные в этом же батче: ранние
// записи выигрывают, поздний дубликат пропускается. Выжившие документы
// отправляются одним AddDocuments; при успехе все их отпечатки попадают в
// окно в порядке следования. При ошибке движка окно не меняется — повтор
// батча увидит и отправит те же документы — и ошибка возвращается вызывающему
// вместе с нулевым счётчиком.
func (s *Ingest) Batch(ctx context.Context, raws []pipeline.RawMessage) (int, error) {
	var docs []pipeline.Document
	var hashes []string

	for _, raw := range raws {
		doc, outcome := s.prepare(raw)
		if outcome != ResultIndexed {
			s.count(outcome)
			continue
		}

		batchDup := false
		for _, h := range hashes {
			if pipeline.IsDuplicate(doc.Simhash, h, pipeline.DuplicateThreshold) {
				batchDup = true
				break
			}
		}
		if batchDup {
			logger.Debug("near-duplicate skipped", zap.String("doc_id", doc.ID))
			s.count(ResultSkipped)
			continue
		}

		docs = append(docs, doc)
		hashes = append(hashes, doc.Simhash)
	}

	if len(docs) == 0 {
		return 0, nil
	}

	if err := s.engine.AddDocuments(ctx, docs); err != nil {
		logger.Error("batch index failed", zap.Int("count", len(docs)), zap.Error(err))
		metrics.MessagesErrored.Add(float64(len(docs)))
		return 0, err
	}

	s.window.AddAll(hashes)
	metrics.MessagesIndexed.Add(float64(len(docs)))
	metrics.BatchesIndexed.Inc()
	return len(docs), nil
}

// count инкрементирует метрику, соответствующую исходу одного сообщения.
func (s *Ingest) count(outcome Result) {
	switch outcome {
	case ResultIndexed:
		metrics.MessagesIndexed.Inc()
	case ResultSkipped:
		metrics.MessagesSkipped.Inc()
	case ResultError:
		metrics.MessagesErrored.Inc()
	}
}
