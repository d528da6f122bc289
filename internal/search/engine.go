// Package search — путь чтения и клиент поискового движка: обёртка над
// Meilisearch с повторными попытками, парсер расширенного синтаксиса запросов
// и cache-aside сервис выдачи.
package search

import (
	"context"
	"net/http"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"telegram-search/internal/infra/config"
	"telegram-search/internal/infra/logger"
	"telegram-search/internal/infra/metrics"
	"telegram-search/internal/pipeline"
)

// retryBaseDelay — основа экспоненциальной паузы между попытками: 2^attempt
// базовых интервалов, без джиттера.
const retryBaseDelay = 100 * time.Millisecond

// Engine — тонкая обёртка над Meilisearch. Каждая операция завёрнута в retry
// с экспоненциальным backoff; после исчерпания попыток последняя ошибка
// отдаётся вызывающему.
//
// Повтор мутирующего AddDocuments безопасен: движок делает upsert по
// первичному ключу id, поэтому частично применённый и переигранный батч
// сходятся к одному результату.
type Engine struct {
	manager    meilisearch.ServiceManager
	index      meilisearch.IndexManager
	indexName  string
	maxRetries int
}

// NewEngine создаёт клиента движка из конфигурации. Соединение ленивое:
// ошибки сети проявляются на первой операции.
func NewEngine(cfg config.MeiliConfig) *Engine {
	opts := []meilisearch.Option{
		meilisearch.WithCustomClient(&http.Client{Timeout: cfg.Timeout()}),
	}
	if cfg.APIKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(cfg.APIKey))
	}

	manager := meilisearch.New(cfg.Host, opts...)
	return &Engine{
		manager:    manager,
		index:      manager.Index(cfg.IndexName),
		indexName:  cfg.IndexName,
		maxRetries: cfg.MaxRetries,
	}
}

// withRetry выполняет операцию с повторами: пауза 2^attempt * 100мс,
// до maxRetries повторов, затем последняя ошибка возвращается. Отмена
// контекста прерывает ожидание между попытками.
func (e *Engine) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt >= e.maxRetries {
			break
		}

		wait := retryBaseDelay * time.Duration(1<<attempt)
		logger.Warn("engine operation retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(lastErr))
		metrics.EngineRetries.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	logger.Error("engine operation failed",
		zap.String("op", op),
		zap.Int("retries", e.maxRetries),
		zap.Error(lastErr))
	return lastErr
}

// CreateIndex создаёт индекс с первичным ключом id, если его ещё нет.
func (e *Engine) CreateIndex(ctx context.Context) error {
	return e.withRetry(ctx, "create_index", func() error {
		_, err := e.manager.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{
			Uid:        e.indexName,
			PrimaryKey: "id",
		})
		return err
	})
}

// ConfigureIndex применяет настройки индекса.
func (e *Engine) ConfigureIndex(ctx context.Context, settings *meilisearch.Settings) error {
	return e.withRetry(ctx, "configure_index", func() error {
		_, err := e.index.UpdateSettingsWithContext(ctx, settings)
		return err
	})
}

// DefaultSettings — схема индекса сообщений: полнотекстовый поиск по всем
// текстовым вариантам, фильтрация по каналу/дате/типу, сортировка по дате.
func DefaultSettings() *meilisearch.Settings {
	return &meilisearch.Settings{
		SearchableAttributes: []string{"text", "text_norm", "simp", "trad", "pinyin"},
		FilterableAttributes: []string{"chat_id", "chat_username", "date", "media_type"},
		SortableAttributes:   []string{"date"},
	}
}

// EnsureIndex создаёт индекс и применяет настройки по умолчанию.
// Вызывается при старте crawler перед первой записью.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	if err := e.CreateIndex(ctx); err != nil {
		// Существующий индекс — штатная ситуация при повторных запусках.
		logger.Debug("create index", zap.String("index", e.indexName), zap.Error(err))
	}
	return e.ConfigureIndex(ctx, DefaultSettings())
}

// AddDocuments отправляет документы в индекс; пустой срез — no-op.
func (e *Engine) AddDocuments(ctx context.Context, docs []pipeline.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return e.withRetry(ctx, "add_documents", func() error {
		_, err := e.index.AddDocumentsWithContext(ctx, &docs)
		return err
	})
}

// Search выполняет запрос к индексу и возвращает сырой ответ движка.
// filters и sort опциональны (nil — без ограничений).
func (e *Engine) Search(
	ctx context.Context,
	query string,
	limit, offset int,
	filters []string,
	sort []string,
) (*meilisearch.SearchResponse, error) {
	req := &meilisearch.SearchRequest{
		Limit:  int64(limit),
		Offset: int64(offset),
	}
	if len(filters) > 0 {
		req.Filter = filters
	}
	if len(sort) > 0 {
		req.Sort = sort
	}

	var resp *meilisearch.SearchResponse
	err := e.withRetry(ctx, "search", func() error {
		var searchErr error
		resp, searchErr = e.index.SearchWithContext(ctx, query, req)
		return searchErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
