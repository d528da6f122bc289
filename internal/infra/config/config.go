// Пакет config отвечает за сбор и предоставление конфигурации всего приложения
// (crawler, channelctl, searchcli). Слои, от младшего к старшему:
//  1. значения по умолчанию,
//  2. TOML-файл (configs/app.toml),
//  3. переменные окружения (.env подхватывается через godotenv).
//
// Некорректные или отсутствующие значения не валят процесс: подставляется
// дефолт и накапливается предупреждение (доступно через Warnings). Жёстко
// валидируются только учётные данные Telegram — без них crawler не стартует.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Значения по умолчанию. Именованные константы вынесены, чтобы дефолты
// читались в одном месте и совпадали с документацией.
const (
	defaultMeiliHost       = "http://localhost:7700"
	defaultMeiliIndex      = "telegram_messages"
	defaultMeiliTimeoutSec = 5
	defaultMeiliRetries    = 3

	defaultRedisHost       = "localhost"
	defaultRedisPort       = 6379
	defaultRedisDB         = 0
	defaultRedisTTLSec     = 3600
	defaultRedisTimeoutSec = 5
	defaultRedisRetries    = 3

	defaultSearchLimit    = 20
	defaultSearchMaxLimit = 100

	defaultBatchSize        = 100
	defaultRateLimitDelay   = 1.0
	defaultFlushInterval    = 1.0
	defaultDedupWindowSize  = 1000
	defaultStateFile        = "state.json"
	defaultChannelsFile     = "configs/channels.json"
	defaultSessionFile      = "data/session.json"
	defaultUpdatesStateFile = "data/updates.bbolt"

	defaultTomlPath = "configs/app.toml"
)

// TelegramConfig — учётные данные MTProto и файлы клиентского состояния.
type TelegramConfig struct {
	BotToken         string `toml:"bot_token"`
	APIID            int    `toml:"api_id"`
	APIHash          string `toml:"api_hash"`
	SessionFile      string `toml:"session_file"`
	UpdatesStateFile string `toml:"updates_state_file"`
	ThrottleRPS      int    `toml:"throttle_rps"`
}

// MeiliConfig — подключение к поисковому движку.
type MeiliConfig struct {
	Host       string `toml:"host"`
	APIKey     string `toml:"api_key"`
	IndexName  string `toml:"index_name"`
	TimeoutSec int    `toml:"timeout"`
	MaxRetries int    `toml:"max_retries"`
}

// Timeout возвращает таймаут операций движка как time.Duration.
func (m MeiliConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

// RedisConfig — подключение к Redis (кэш результатов и статистика).
type RedisConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	DB                int    `toml:"db"`
	CacheTTLSec       int    `toml:"cache_ttl"`
	SocketTimeoutSec  int    `toml:"socket_timeout"`
	ConnectTimeoutSec int    `toml:"connect_timeout"`
	MaxRetries        int    `toml:"max_retries"`
}

// Addr собирает адрес host:port для go-redis.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CacheTTL возвращает TTL кэша как time.Duration.
func (r RedisConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSec) * time.Second
}

// SocketTimeout возвращает таймаут чтения/записи как time.Duration.
func (r RedisConfig) SocketTimeout() time.Duration {
	return time.Duration(r.SocketTimeoutSec) * time.Second
}

// ConnectTimeout возвращает таймаут установки соединения как time.Duration.
func (r RedisConfig) ConnectTimeout() time.Duration {
	return time.Duration(r.ConnectTimeoutSec) * time.Second
}

// SearchConfig — параметры страницы выдачи.
type SearchConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

// IndexerConfig — параметры конвейера индексации.
type IndexerConfig struct {
	BatchSize          int     `toml:"batch_size"`
	RateLimitDelaySec  float64 `toml:"rate_limit_delay"`
	StateFlushInterval float64 `toml:"state_flush_interval"`
	DedupWindowSize    int     `toml:"dedup_window_size"`
	StateFile          string  `toml:"state_file"`
	ChannelsFile       string  `toml:"channels_file"`
}

// RateLimitDelay возвращает паузу между сообщениями исторической синхронизации.
func (i IndexerConfig) RateLimitDelay() time.Duration {
	return time.Duration(i.RateLimitDelaySec * float64(time.Second))
}

// FlushInterval возвращает интервал коалесценции записей чекпоинтов.
func (i IndexerConfig) FlushInterval() time.Duration {
	return time.Duration(i.StateFlushInterval * float64(time.Second))
}

// LogConfig — файловое логирование (опциональное; пустой File отключает).
type LogConfig struct {
	File       string `toml:"file"`
	FileLevel  string `toml:"file_level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Config — итоговая конфигурация приложения после наложения всех слоёв.
type Config struct {
	Name  string `toml:"name"`
	Debug bool   `toml:"debug"`

	Telegram TelegramConfig `toml:"telegram"`
	Meili    MeiliConfig    `toml:"meilisearch"`
	Redis    RedisConfig    `toml:"redis"`
	Search   SearchConfig   `toml:"search"`
	Indexer  IndexerConfig  `toml:"indexer"`
	Log      LogConfig      `toml:"log"`

	warnings []string
}

// defaults возвращает конфигурацию нижнего слоя.
func defaults() *Config {
	return &Config{
		Name: "telegram-search",
		Telegram: TelegramConfig{
			SessionFile:      defaultSessionFile,
			UpdatesStateFile: defaultUpdatesStateFile,
			ThrottleRPS:      1,
		},
		Meili: MeiliConfig{
			Host:       defaultMeiliHost,
			IndexName:  defaultMeiliIndex,
			TimeoutSec: defaultMeiliTimeoutSec,
			MaxRetries: defaultMeiliRetries,
		},
		Redis: RedisConfig{
			Host:              defaultRedisHost,
			Port:              defaultRedisPort,
			DB:                defaultRedisDB,
			CacheTTLSec:       defaultRedisTTLSec,
			SocketTimeoutSec:  defaultRedisTimeoutSec,
			ConnectTimeoutSec: defaultRedisTimeoutSec,
			MaxRetries:        defaultRedisRetries,
		},
		Search: SearchConfig{
			DefaultLimit: defaultSearchLimit,
			MaxLimit:     defaultSearchMaxLimit,
		},
		Indexer: IndexerConfig{
			BatchSize:          defaultBatchSize,
			RateLimitDelaySec:  defaultRateLimitDelay,
			StateFlushInterval: defaultFlushInterval,
			DedupWindowSize:    defaultDedupWindowSize,
			StateFile:          defaultStateFile,
			ChannelsFile:       defaultChannelsFile,
		},
		Log: LogConfig{
			FileLevel:  "debug",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Load собирает конфигурацию: defaults → TOML → окружение.
// envPath — путь к .env (пустая строка означает ".env"; отсутствие файла не
// ошибка). tomlPath — путь к TOML; пустая строка означает configs/app.toml,
// отсутствие файла также не ошибка.
func Load(envPath, tomlPath string) (*Config, error) {
	cfg := defaults()

	if envPath == "" {
		envPath = ".env"
	}
	if err := godotenv.Load(envPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
		cfg.warn("env file %s not found; relying on process environment", envPath)
	}

	if tomlPath == "" {
		tomlPath = defaultTomlPath
	}
	if _, err := os.Stat(tomlPath); err == nil {
		if _, decErr := toml.DecodeFile(tomlPath, cfg); decErr != nil {
			return nil, fmt.Errorf("parse %s: %w", tomlPath, decErr)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv накладывает переменные окружения поверх текущих значений.
// Имена переменных фиксированы контрактом развёртывания.
func (c *Config) applyEnv() {
	c.overrideString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	c.overrideInt("TELEGRAM_API_ID", &c.Telegram.APIID, nonNegative)
	c.overrideString("TELEGRAM_API_HASH", &c.Telegram.APIHash)

	c.overrideString("MEILI_HOST", &c.Meili.Host)
	c.overrideString("MEILI_MASTER_KEY", &c.Meili.APIKey)
	c.overrideString("MEILI_INDEX", &c.Meili.IndexName)
	c.overrideInt("MEILI_TIMEOUT", &c.Meili.TimeoutSec, greaterThanZero)
	c.overrideInt("MEILI_MAX_RETRIES", &c.Meili.MaxRetries, nonNegative)

	c.overrideString("REDIS_HOST", &c.Redis.Host)
	c.overrideInt("REDIS_PORT", &c.Redis.Port, greaterThanZero)
	c.overrideInt("REDIS_DB", &c.Redis.DB, nonNegative)
	c.overrideInt("REDIS_CACHE_TTL", &c.Redis.CacheTTLSec, greaterThanZero)
	c.overrideInt("REDIS_SOCKET_TIMEOUT", &c.Redis.SocketTimeoutSec, greaterThanZero)
	c.overrideInt("REDIS_CONNECT_TIMEOUT", &c.Redis.ConnectTimeoutSec, greaterThanZero)
	c.overrideInt("REDIS_MAX_RETRIES", &c.Redis.MaxRetries, nonNegative)

	c.overrideFloat("STATE_FLUSH_INTERVAL", &c.Indexer.StateFlushInterval, nonNegativeF)
	c.overrideBool("DEBUG", &c.Debug)
}

// ValidateTelegram проверяет обязательные для crawler учётные данные.
// Вызывается только бинарями, которым нужен MTProto-клиент.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.APIID <= 0 {
		return errors.New("TELEGRAM_API_ID is not configured")
	}
	if strings.TrimSpace(c.Telegram.APIHash) == "" {
		return errors.New("TELEGRAM_API_HASH is not configured")
	}
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not configured")
	}
	return nil
}

// Warnings возвращает предупреждения, накопленные при загрузке. Возвращается копия.
func (c *Config) Warnings() []string {
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// warn добавляет форматированное предупреждение.
func (c *Config) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// overrideString заменяет значение, если переменная окружения задана и непуста.
func (c *Config) overrideString(name string, target *string) {
	v := strings.TrimSpace(os.Getenv(name))
	if v != "" {
		*target = v
	}
}

// overrideInt заменяет значение, если переменная задана, корректна и проходит
// validator. Некорректное значение оставляет текущее и пишет предупреждение.
func (c *Config) overrideInt(name string, target *int, validator func(int) bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.warn("env %s value %q is not a valid integer; keeping %d", name, raw, *target)
		return
	}
	if validator != nil && !validator(v) {
		c.warn("env %s value %d does not satisfy constraints; keeping %d", name, v, *target)
		return
	}
	*target = v
}

// overrideFloat — то же для вещественных значений.
func (c *Config) overrideFloat(name string, target *float64, validator func(float64) bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.warn("env %s value %q is not a valid number; keeping %g", name, raw, *target)
		return
	}
	if validator != nil && !validator(v) {
		c.warn("env %s value %g does not satisfy constraints; keeping %g", name, v, *target)
		return
	}
	*target = v
}

// overrideBool — то же для булевых значений.
func (c *Config) overrideBool(name string, target *bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		c.warn("env %s value %q is not a valid boolean; keeping %v", name, raw, *target)
		return
	}
	*target = v
}

// greaterThanZero / nonNegative — простые валидаторы чисел.
func greaterThanZero(v int) bool  { return v > 0 }
func nonNegative(v int) bool      { return v >= 0 }
func nonNegativeF(v float64) bool { return v >= 0 }
