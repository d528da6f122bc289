package indexer

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"telegram-search/internal/pipeline"
)

// MessageSource — интерфейс исторического продюсера сообщений. Реализация
// (обёртка над MTProto-клиентом) обязана отдавать сообщения канала со
// строго возрастающими msg_id, начиная с minID (не включая его), не более
// limit штук, и уважать отмену контекста между элементами.
type MessageSource interface {
	Messages(ctx context.Context, channelID int64, minID, limit int, fn func(pipeline.RawMessage) error) error
}

// HistoricalSync — возобновляемый продюсер исторической синхронизации.
// Читает чекпоинт канала и тянет сообщения выше него в хронологическом
// порядке, придерживая темп per-item лимитером. Чекпоинт сам не двигает:
// это делает оркестратор после успешного приёма батча движком.
type HistoricalSync struct {
	source MessageSource
	state  *StateStore
	delay  time.Duration
}

// NewHistoricalSync собирает продюсер. delay <= 0 отключает ограничение темпа.
func NewHistoricalSync(source MessageSource, state *StateStore, delay time.Duration) *HistoricalSync {
	return &HistoricalSync{
		source: source,
		state:  state,
		delay:  delay,
	}
}

// Run прогоняет до limit сообщений канала через fn. progress, если задан,
// получает число отданных сообщений после каждого элемента. Ошибка fn
// останавливает поток и возвращается вызывающему; отмена контекста
// проверяется лимитером на каждом элементе.
func (h *HistoricalSync) Run(
	ctx context.Context,
	channelID int64,
	limit int,
	progress func(int),
	fn func(pipeline.RawMessage) error,
) error {
	minID := h.state.Get(channelID)

	var limiter *rate.Limiter
	if h.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(h.delay), 1)
	}

	count := 0
	return h.source.Messages(ctx, channelID, minID, limit, func(msg pipeline.RawMessage) error {
		if err := fn(msg); err != nil {
			return err
		}

		count++
		if progress != nil {
			progress(count)
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
