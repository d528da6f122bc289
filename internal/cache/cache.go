// Package cache — cache-aside прослойка поисковой выдачи поверх Redis.
// Кэш строго опционален: любые ошибки бэкенда трактуются как промах, путь
// чтения продолжает работать против движка напрямую.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telegram-search/internal/infra/config"
	"telegram-search/internal/infra/logger"
	"telegram-search/internal/infra/metrics"
)

// keyPrefix — пространство ключей поисковой выдачи.
const keyPrefix = "search:"

// Backend — подмножество операций redis.Client, которым пользуется кэш.
// *redis.Client удовлетворяет интерфейсу как есть; в тестах подставляется
// фальшивый бэкенд.
type Backend interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	Close() error
}

// Cache — Redis-клиент с TTL выдачи. Нулевой *Cache допустим и означает
// выключенный кэш: GetOrCompute просто вычисляет значение.
type Cache struct {
	client Backend
	ttl    time.Duration
}

// New создаёт кэш из конфигурации. Соединение ленивое: недоступный Redis
// проявится промахами, а не ошибкой конструктора.
func New(cfg config.RedisConfig) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		DB:           cfg.DB,
		DialTimeout:  cfg.ConnectTimeout(),
		ReadTimeout:  cfg.SocketTimeout(),
		WriteTimeout: cfg.SocketTimeout(),
		MaxRetries:   cfg.MaxRetries,
	})
	return &Cache{client: client, ttl: cfg.CacheTTL()}
}

// NewWithBackend собирает кэш поверх готового бэкенда.
func NewWithBackend(b Backend, ttl time.Duration) *Cache {
	return &Cache{client: b, ttl: ttl}
}

// Close закрывает соединение с Redis.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// Key детерминированно выводит ключ кэша из запроса и параметров: пары
// сортируются по имени, значения приводятся к строке, nil-значения
// исключаются. Порядок передачи параметров на ключ не влияет.
func Key(query string, parts map[string]any) string {
	names := make([]string, 0, len(parts))
	for name, v := range parts {
		if v == nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(query)
	for _, name := range names {
		fmt.Fprintf(&b, "|%s=%v", name, parts[name])
	}

	sum := md5.Sum([]byte(b.String()))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// get читает сырое значение по ключу. Любая ошибка бэкенда — промах.
func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// set пишет значение с TTL. Ошибки записи логируются и глотаются.
func (c *Cache) set(ctx context.Context, key string, data []byte) {
	if err := c.client.SetEx(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// GetOrCompute возвращает закэшированное значение или вычисляет и кэширует
// новое. Успешно десериализованное значение — попадание, даже если это
// пустой объект. Ошибка compute отдаётся вызывающему и в кэш не попадает.
func GetOrCompute[T any](
	ctx context.Context,
	c *Cache,
	key string,
	compute func(ctx context.Context) (T, error),
) (T, error) {
	if c != nil {
		if data, ok := c.get(ctx, key); ok {
			var cached T
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.Inc()
				logger.Debug("cache hit", zap.String("key", key))
				return cached, nil
			}
			logger.Warn("cache entry undecodable", zap.String("key", key))
		}
		metrics.CacheMisses.Inc()
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	if c != nil {
		if data, marshalErr := json.Marshal(value); marshalErr == nil {
			c.set(ctx, key, data)
		}
	}
	return value, nil
}
