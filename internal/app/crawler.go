// Package app — верхний уровень сборки crawler: связывает MTProto-клиента,
// конвейер обработки, поисковый движок и хранилища состояния, запускает
// выбранный режим обхода и обеспечивает корректный shutdown.
package app

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"telegram-search/internal/indexer"
	"telegram-search/internal/infra/config"
	"telegram-search/internal/infra/logger"
	"telegram-search/internal/pipeline"
	"telegram-search/internal/search"
	"telegram-search/internal/telegram"
)

// Mode — режим работы crawler.
type Mode string

const (
	ModeHistorical Mode = "historical" // дочитать историю каналов до текущего момента
	ModeRealtime   Mode = "realtime"   // слушать только новые сообщения
	ModeBoth       Mode = "both"       // история, затем подписка на новые
)

// ParseMode разбирает строковое значение флага --mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHistorical, ModeRealtime, ModeBoth:
		return Mode(s), nil
	default:
		return "", errors.Errorf("unknown mode %q (historical, realtime or both)", s)
	}
}

// Crawler — оркестратор индексации. Все записи в движок сериализованы через
// ingestMu: исторический батч и realtime-сообщение никогда не обрабатываются
// одновременно, чем сохраняется консистентность окна дедупликации.
type Crawler struct {
	cfg      *config.Config
	client   *telegram.Client
	engine   *search.Engine
	ingest   *indexer.Ingest
	registry *indexer.Registry
	state    *indexer.StateStore

	ingestMu sync.Mutex
}

// NewCrawler собирает crawler из конфигурации.
func NewCrawler(cfg *config.Config) (*Crawler, error) {
	client, err := telegram.NewClient(cfg.Telegram)
	if err != nil {
		return nil, errors.Wrap(err, "init telegram client")
	}

	engine := search.NewEngine(cfg.Meili)
	return &Crawler{
		cfg:      cfg,
		client:   client,
		engine:   engine,
		ingest:   indexer.NewIngest(engine, pipeline.NewFilter(pipeline.DefaultMinLength), cfg.Indexer.DedupWindowSize),
		registry: indexer.NewRegistry(cfg.Indexer.ChannelsFile),
		state:    indexer.NewStateStore(cfg.Indexer.StateFile, cfg.Indexer.FlushInterval()),
	}, nil
}

// Run выполняет выбранный режим обхода. Блокируется до завершения работы или
// отмены контекста; перед выходом принудительно сбрасывает чекпоинты.
func (c *Crawler) Run(ctx context.Context, mode Mode, limit int) error {
	defer func() {
		if err := c.state.Flush(); err != nil {
			logger.Errorf("final state flush: %v", err)
		}
	}()

	return c.client.Run(ctx, func(ctx context.Context) error {
		if err := c.engine.EnsureIndex(ctx); err != nil {
			return errors.Wrap(err, "ensure index")
		}

		enabled := c.enabledChannels()
		if len(enabled) == 0 {
			logger.Warn("no enabled channels, nothing to do")
			return nil
		}
		if err := c.resolveChannels(ctx, enabled); err != nil {
			return err
		}

		switch mode {
		case ModeHistorical:
			return c.runHistorical(ctx, enabled, limit)
		case ModeRealtime:
			return c.runRealtime(ctx, enabled)
		case ModeBoth:
			if err := c.runHistorical(ctx, enabled, limit); err != nil {
				return err
			}
			return c.runRealtime(ctx, enabled)
		default:
			return errors.Errorf("unknown mode %q", mode)
		}
	})
}

// enabledChannels возвращает включённые каналы реестра.
func (c *Crawler) enabledChannels() []indexer.Channel {
	var enabled []indexer.Channel
	for _, ch := range c.registry.List() {
		if ch.Enabled {
			enabled = append(enabled, ch)
		}
	}
	return enabled
}

// resolveChannels прогревает кэш access hash для всех отслеживаемых каналов.
// Канал без резолва выводится из обхода, но не валит остальные.
func (c *Crawler) resolveChannels(ctx context.Context, channels []indexer.Channel) error {
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.client.WatchChannel(ctx, ch.ChannelID, ch.Username); err != nil {
			logger.Errorf("resolve channel %d (%s): %v", ch.ChannelID, ch.Username, err)
		}
	}
	return nil
}

// runHistorical дочитывает историю каждого канала с его чекпоинта.
//
// Сообщения копятся в батч размера batch_size; после успешного приёма батча
// движком чекпоинт канала передвигается на максимальный msg_id батча. Ошибка
// движка останавливает обход этого канала без сдвига чекпоинта — недобранные
// сообщения будут перечитаны при следующем запуске. Запрос на shutdown
// дочитывает уже отправленный батч, но не начинает новый.
func (c *Crawler) runHistorical(ctx context.Context, channels []indexer.Channel, limit int) error {
	hist := indexer.NewHistoricalSync(c.client, c.state, c.cfg.Indexer.RateLimitDelay())

	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.syncChannel(ctx, hist, ch, limit); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Errorf("historical sync of channel %d stopped: %v", ch.ChannelID, err)
		}
	}

	if err := c.state.Flush(); err != nil {
		return errors.Wrap(err, "flush state")
	}
	logger.Info("historical sync complete", zap.Int("channels", len(channels)))
	return nil
}

// syncChannel — исторический обход одного канала.
func (c *Crawler) syncChannel(ctx context.Context, hist *indexer.HistoricalSync, ch indexer.Channel, limit int) error {
	logger.Info("historical sync started",
		zap.Int64("channel_id", ch.ChannelID),
		zap.String("username", ch.Username),
		zap.Int("from_msg_id", c.state.Get(ch.ChannelID)))

	batchSize := c.cfg.Indexer.BatchSize
	batch := make([]pipeline.RawMessage, 0, batchSize)
	lastMsgID := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.submitBatch(ctx, ch.ChannelID, batch, lastMsgID); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	err := hist.Run(ctx, ch.ChannelID, limit, nil, func(msg pipeline.RawMessage) error {
		batch = append(batch, msg)
		if msg.MsgID > lastMsgID {
			lastMsgID = msg.MsgID
		}
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Хвост меньше batch_size досылается после завершения потока, но не при
	// запрошенном shutdown: недосланное перечитается со старого чекпоинта.
	if ctx.Err() == nil {
		if err = flush(); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// submitBatch сериализованно отправляет батч и двигает чекпоинт канала.
// Отправка идёт с контекстом, пережившим отмену: начатый батч должен
// завершиться или упасть сам, а не оборваться на полпути shutdown-ом.
func (c *Crawler) submitBatch(ctx context.Context, channelID int64, batch []pipeline.RawMessage, lastMsgID int) error {
	c.ingestMu.Lock()
	defer c.ingestMu.Unlock()

	indexed, err := c.ingest.Batch(context.WithoutCancel(ctx), batch)
	if err != nil {
		return errors.Wrap(err, "index batch")
	}

	c.state.Set(channelID, lastMsgID)
	logger.Debug("batch indexed",
		zap.Int64("channel_id", channelID),
		zap.Int("size", len(batch)),
		zap.Int("indexed", indexed),
		zap.Int("last_msg_id", lastMsgID))
	return nil
}

// runRealtime подписывается на новые сообщения включённых каналов и гонит их
// через конвейер по одному. Блокируется до отмены контекста.
func (c *Crawler) runRealtime(ctx context.Context, channels []indexer.Channel) error {
	ids := make([]int64, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ChannelID)
	}

	listener := indexer.NewRealtimeListener(c.client, func(ctx context.Context, msg pipeline.RawMessage) error {
		c.ingestMu.Lock()
		defer c.ingestMu.Unlock()
		res := c.ingest.Message(context.WithoutCancel(ctx), msg)
		if res == indexer.ResultError {
			return errors.Errorf("message %d_%d not indexed", msg.ChatID, msg.MsgID)
		}
		return nil
	})
	listener.Start(ids)

	err := c.client.RunUpdates(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunImport индексирует статический экспорт сообщений, не подключаясь к
// Telegram. Чекпоинты не трогаются: импорт не участвует в возобновляемой
// синхронизации.
func (c *Crawler) RunImport(ctx context.Context, path string) error {
	if err := c.engine.EnsureIndex(ctx); err != nil {
		return errors.Wrap(err, "ensure index")
	}

	msgs, err := indexer.ImportFile(path)
	if err != nil {
		return err
	}
	logger.Info("import started", zap.String("path", path), zap.Int("messages", len(msgs)))

	batchSize := c.cfg.Indexer.BatchSize
	total := 0
	for start := 0; start < len(msgs); start += batchSize {
		if err = ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(msgs))

		c.ingestMu.Lock()
		indexed, batchErr := c.ingest.Batch(context.WithoutCancel(ctx), msgs[start:end])
		c.ingestMu.Unlock()
		if batchErr != nil {
			return errors.Wrap(batchErr, "index import batch")
		}
		total += indexed
	}

	logger.Info("import complete", zap.Int("indexed", total))
	return nil
}
