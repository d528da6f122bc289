// Package metrics — prometheus-счётчики конвейера индексации и поискового пути.
// Регистрация идёт через promauto в реестр по умолчанию; HTTP-экспозиция
// остаётся на усмотрение хоста процесса. Счётчики дешёвые, инкременты
// допустимы на горячем пути.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesIndexed — сообщения, успешно отправленные в индекс.
	MessagesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgsearch_messages_indexed_total",
		Help: "Messages accepted by the search engine.",
	})

	// MessagesSkipped — сообщения, отсеянные фильтрами или дедупликацией.
	MessagesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgsearch_messages_skipped_total",
		Help: "Messages rejected by filters or near-duplicate detection.",
	})

	// MessagesErrored — сообщения, завершившиеся ошибкой трансформации или индексации.
	MessagesErrored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgsearch_messages_errored_total",
		Help: "Messages that failed to transform or index.",
	})

	// BatchesIndexed — успешные батчевые вызовы addDocuments.
	BatchesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgsearch_batches_indexed_total",
		Help: "Successful batch addDocuments calls.",
	})

	// EngineRetries — повторные попытки операций движка.
	EngineRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgsearch_engine_retries_total",
		Help: "Retry attempts against the search engine.",
	})

	// CacheHits / CacheMisses — исходы обращения к кэшу результатов поиска.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgsearch_cache_hits_total",
		Help: "Search cache hits.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgsearch_cache_misses_total",
		Help: "Search cache misses.",
	})
)
