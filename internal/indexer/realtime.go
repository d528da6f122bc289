package indexer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"telegram-search/internal/infra/logger"
	"telegram-search/internal/pipeline"
)

// EventSource — средство подписки на новые сообщения. Реализация вызывает
// зарегистрированный обработчик для каждого входящего сообщения; фильтрация
// по каналам — забота подписчика.
type EventSource interface {
	SubscribeNewMessages(handler func(ctx context.Context, msg pipeline.RawMessage))
}

// RealtimeListener пересылает новые сообщения отслеживаемых каналов в
// ingest-колбэк. Ошибки колбэка логируются и глотаются: единичный сбой
// индексации не должен ронять подписку.
type RealtimeListener struct {
	source   EventSource
	callback func(ctx context.Context, msg pipeline.RawMessage) error
	channels map[int64]struct{}
}

// NewRealtimeListener собирает слушателя с ingest-колбэком.
func NewRealtimeListener(
	source EventSource,
	callback func(ctx context.Context, msg pipeline.RawMessage) error,
) *RealtimeListener {
	return &RealtimeListener{
		source:   source,
		callback: callback,
		channels: make(map[int64]struct{}),
	}
}

// Start подписывается на новые сообщения, ограничивая обработку набором
// каналов channelIDs.
func (l *RealtimeListener) Start(channelIDs []int64) {
	for _, id := range channelIDs {
		l.channels[id] = struct{}{}
	}

	l.source.SubscribeNewMessages(l.handle)
	logger.Info("realtime listening started", zap.Int("channels", len(l.channels)))
}

// handle — обработчик одного события нового сообщения.
func (l *RealtimeListener) handle(ctx context.Context, msg pipeline.RawMessage) {
	if _, watched := l.channels[msg.ChatID]; !watched {
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	logger.Debug("realtime message received",
		zap.Int64("chat_id", msg.ChatID),
		zap.Int("msg_id", msg.MsgID))

	if err := l.callback(ctx, msg); err != nil {
		logger.Error("realtime ingest failed",
			zap.Int64("chat_id", msg.ChatID),
			zap.Int("msg_id", msg.MsgID),
			zap.Error(err))
	}
}
