package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"telegram-search/internal/cache"
	"telegram-search/internal/infra/config"
)

// Searcher — операция поиска движка; выделена в интерфейс ради тестов.
type Searcher interface {
	Search(ctx context.Context, query string, limit, offset int, filters, sort []string) (*meilisearch.SearchResponse, error)
}

// Options — параметры одного поискового вызова. Нулевое значение означает
// лимит по умолчанию, нулевое смещение, кэш включён.
type Options struct {
	Limit  int
	Offset int
	// Filter — дополнительный фильтр движка от вызывающего; добавляется к
	// фильтрам, извлечённым из операторов запроса.
	Filter string
	// Sort — предпочтение сортировки вызывающего ("date" или "relevance");
	// имеет приоритет над оператором sort: в тексте запроса.
	Sort    string
	NoCache bool
}

// Service — путь чтения: нормализация параметров, разбор операторов запроса,
// cache-aside обращение к движку.
type Service struct {
	engine       Searcher
	cache        *cache.Cache
	defaultLimit int
	maxLimit     int
}

// NewService собирает поисковый сервис. c == nil отключает кэширование.
func NewService(engine Searcher, c *cache.Cache, cfg config.SearchConfig) *Service {
	return &Service{
		engine:       engine,
		cache:        c,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
}

// Search выполняет пользовательский запрос. Ошибки кэша на результат не
// влияют; ошибка движка отдаётся вызывающему. Пустой после обрезки запрос
// не ошибка: движок трактует его как просмотр всего индекса.
func (s *Service) Search(ctx context.Context, query string, opts Options) (*meilisearch.SearchResponse, error) {
	query = strings.TrimSpace(query)

	limit := opts.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	offset := max(0, opts.Offset)

	parsed := ParseQuery(query)
	engineQuery := parsed.Query()

	filters := parsed.Filters()
	if opts.Filter != "" {
		filters = append(filters, opts.Filter)
	}

	engineSort := resolveSort(opts.Sort, parsed.Sort)

	compute := func(ctx context.Context) (*meilisearch.SearchResponse, error) {
		return s.engine.Search(ctx, engineQuery, limit, offset, filters, engineSort)
	}

	if opts.NoCache || s.cache == nil {
		return compute(ctx)
	}

	sortKey := fmt.Sprint(engineSort)
	sortedFilters := append([]string(nil), filters...)
	sort.Strings(sortedFilters)

	// Ключ строится по каноническому запросу движка (без операторов), чтобы
	// перестановка операторов в тексте не плодила разные записи кэша.
	key := cache.Key(engineQuery, map[string]any{
		"limit":   limit,
		"offset":  offset,
		"sort":    sortKey,
		"filters": fmt.Sprint(sortedFilters) + ":" + sortKey,
	})
	return cache.GetOrCompute(ctx, s.cache, key, compute)
}

// resolveSort переводит предпочтение сортировки в выражение движка:
// date — свежее выше, relevance — ранжирование движка (без выражения).
// Явное предпочтение вызывающего перекрывает оператор из запроса.
func resolveSort(caller, parsed string) []string {
	pref := caller
	if pref == "" {
		pref = parsed
	}
	switch pref {
	case "date":
		return []string{"date:desc"}
	case "", "relevance":
		return nil
	default:
		// Вызывающий передал готовое выражение движка.
		return []string{pref}
	}
}
