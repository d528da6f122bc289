// Package stats — счётчики использования поиска в Redis. Учёт строго
// best-effort: недоступный Redis не должен мешать выдаче.
package stats

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telegram-search/internal/infra/config"
	"telegram-search/internal/infra/logger"
)

// Ключи статистики.
const (
	keyTotalSearches = "stats:total_searches"
	keyKeywords      = "stats:keywords"
)

// Keyword — элемент рейтинга популярных запросов.
type Keyword struct {
	Query string
	Count int64
}

// Summary — сводка использования поиска.
type Summary struct {
	TotalSearches int64
	TopKeywords   []Keyword
}

// Service пишет и читает счётчики использования.
type Service struct {
	client *redis.Client
}

// New создаёт сервис статистики на отдельном соединении с Redis.
func New(cfg config.RedisConfig) *Service {
	return &Service{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr(),
			DB:           cfg.DB,
			DialTimeout:  cfg.ConnectTimeout(),
			ReadTimeout:  cfg.SocketTimeout(),
			WriteTimeout: cfg.SocketTimeout(),
			MaxRetries:   cfg.MaxRetries,
		}),
	}
}

// Close закрывает соединение с Redis.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}

// RecordSearch учитывает выполненный запрос: общий счётчик плюс рейтинг
// запроса в нижнем регистре. Ошибки логируются и глотаются.
func (s *Service) RecordSearch(ctx context.Context, query string) {
	if s == nil {
		return
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return
	}

	if err := s.client.Incr(ctx, keyTotalSearches).Err(); err != nil {
		logger.Warn("stats incr failed", zap.Error(err))
		return
	}
	if err := s.client.ZIncrBy(ctx, keyKeywords, 1, query).Err(); err != nil {
		logger.Warn("stats keyword incr failed", zap.Error(err))
	}
}

// Stats возвращает сводку: общее число поисков и topK популярных запросов.
func (s *Service) Stats(ctx context.Context, topK int) (Summary, error) {
	var out Summary

	total, err := s.client.Get(ctx, keyTotalSearches).Int64()
	if err != nil && err != redis.Nil {
		return out, err
	}
	out.TotalSearches = total

	if topK <= 0 {
		return out, nil
	}

	items, err := s.client.ZRevRangeWithScores(ctx, keyKeywords, 0, int64(topK-1)).Result()
	if err != nil {
		return out, err
	}
	for _, item := range items {
		member, _ := item.Member.(string)
		out.TopKeywords = append(out.TopKeywords, Keyword{
			Query: member,
			Count: int64(item.Score),
		})
	}
	return out, nil
}
