package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"telegram-search/internal/cache"
	"telegram-search/internal/infra/config"
	"telegram-search/internal/search"
)

// memBackend — кэш-бэкенд в памяти для проверки пути с попаданием.
type memBackend struct {
	store map[string]string
}

func newMemBackend() *memBackend {
	return &memBackend{store: map[string]string{}}
}

func (m *memBackend) Get(_ context.Context, key string) *redis.StringCmd {
	val, ok := m.store[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (m *memBackend) SetEx(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if data, ok := value.([]byte); ok {
		m.store[key] = string(data)
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memBackend) Close() error { return nil }

// fakeSearcher записывает параметры последнего вызова.
type fakeSearcher struct {
	query   string
	limit   int
	offset  int
	filters []string
	sort    []string
	calls   int
	fail    error
}

func (f *fakeSearcher) Search(
	_ context.Context,
	query string,
	limit, offset int,
	filters, sort []string,
) (*meilisearch.SearchResponse, error) {
	f.calls++
	f.query, f.limit, f.offset, f.filters, f.sort = query, limit, offset, filters, sort
	if f.fail != nil {
		return nil, f.fail
	}
	return &meilisearch.SearchResponse{Query: query}, nil
}

func newService(engine *fakeSearcher) *search.Service {
	return search.NewService(engine, nil, config.SearchConfig{DefaultLimit: 20, MaxLimit: 100})
}

func TestServiceSearchNormalization(t *testing.T) {
	t.Parallel()

	engine := &fakeSearcher{}
	svc := newService(engine)
	ctx := context.Background()

	_, err := svc.Search(ctx, "  hello  ", search.Options{})
	require.NoError(t, err)
	require.Equal(t, "hello", engine.query)
	require.Equal(t, 20, engine.limit) // default_limit
	require.Zero(t, engine.offset)

	_, err = svc.Search(ctx, "hello", search.Options{Limit: 500, Offset: -3})
	require.NoError(t, err)
	require.Equal(t, 100, engine.limit) // клиппинг к max_limit
	require.Zero(t, engine.offset)      // отрицательное смещение обнуляется
}

func TestServiceSearchEmptyQueryBrowsesAll(t *testing.T) {
	t.Parallel()

	engine := &fakeSearcher{}
	svc := newService(engine)

	// Пустой запрос — не ошибка: движок получает пустую строку и отдаёт
	// весь индекс постранично.
	_, err := svc.Search(context.Background(), "   ", search.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, engine.calls)
	require.Empty(t, engine.query)
	require.Equal(t, 20, engine.limit)
}

func TestServiceSearchOperators(t *testing.T) {
	t.Parallel()

	engine := &fakeSearcher{}
	svc := newService(engine)

	_, err := svc.Search(context.Background(),
		"上海 疫情 date:2024-01-01..2024-03-31 from:shanghainews sort:date",
		search.Options{Filter: `media_type = "photo"`})
	require.NoError(t, err)

	require.Equal(t, "上海 疫情", engine.query)
	require.Equal(t, []string{
		"date >= 1704067200 AND date <= 1711843200",
		`chat_username = "shanghainews"`,
		`media_type = "photo"`,
	}, engine.filters)
	require.Equal(t, []string{"date:desc"}, engine.sort)
}

func TestServiceSortPrecedence(t *testing.T) {
	t.Parallel()

	engine := &fakeSearcher{}
	svc := newService(engine)
	ctx := context.Background()

	// Явное предпочтение вызывающего перекрывает оператор запроса.
	_, err := svc.Search(ctx, "news sort:date", search.Options{Sort: "relevance"})
	require.NoError(t, err)
	require.Nil(t, engine.sort)

	// Без предпочтения действует оператор.
	_, err = svc.Search(ctx, "news sort:date", search.Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"date:desc"}, engine.sort)

	// Без того и другого — ранжирование движка.
	_, err = svc.Search(ctx, "news", search.Options{})
	require.NoError(t, err)
	require.Nil(t, engine.sort)
}

func TestServiceEngineErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("engine unavailable")
	engine := &fakeSearcher{fail: wantErr}
	svc := newService(engine)

	_, err := svc.Search(context.Background(), "hello", search.Options{})
	require.ErrorIs(t, err, wantErr)
}

func TestServiceNoCacheCallsEngineEachTime(t *testing.T) {
	t.Parallel()

	engine := &fakeSearcher{}
	svc := newService(engine)
	ctx := context.Background()

	for range 3 {
		_, err := svc.Search(ctx, "hello", search.Options{NoCache: true})
		require.NoError(t, err)
	}
	require.Equal(t, 3, engine.calls)
}

func TestServiceRepeatQueryServedFromCache(t *testing.T) {
	t.Parallel()

	engine := &fakeSearcher{}
	c := cache.NewWithBackend(newMemBackend(), time.Minute)
	svc := search.NewService(engine, c, config.SearchConfig{DefaultLimit: 20, MaxLimit: 100})
	ctx := context.Background()

	first, err := svc.Search(ctx, "上海 疫情", search.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, engine.calls)

	// Повторный идентичный вызов обслуживается из кэша, движок не трогается.
	second, err := svc.Search(ctx, "上海 疫情", search.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, engine.calls)
	require.Equal(t, first.Query, second.Query)
}

func TestServiceCacheKeyIgnoresOperatorOrder(t *testing.T) {
	t.Parallel()

	engine := &fakeSearcher{}
	c := cache.NewWithBackend(newMemBackend(), time.Minute)
	svc := search.NewService(engine, c, config.SearchConfig{DefaultLimit: 20, MaxLimit: 100})
	ctx := context.Background()

	// Перестановка операторов не меняет канонический запрос движка,
	// поэтому второй вызов попадает в ту же запись кэша.
	_, err := svc.Search(ctx, "AI from:news", search.Options{})
	require.NoError(t, err)
	_, err = svc.Search(ctx, "from:news AI", search.Options{})
	require.NoError(t, err)

	require.Equal(t, 1, engine.calls)
}
