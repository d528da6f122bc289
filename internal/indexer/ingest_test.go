package indexer_test

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"

	"telegram-search/internal/indexer"
	"telegram-search/internal/pipeline"
)

// fakeEngine записывает все вызовы AddDocuments и умеет падать по требованию.
type fakeEngine struct {
	calls [][]pipeline.Document
	fail  error
}

func (f *fakeEngine) AddDocuments(_ context.Context, docs []pipeline.Document) error {
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, docs)
	return nil
}

func rawMsg(msgID int, text string) pipeline.RawMessage {
	return pipeline.RawMessage{
		ChatID:       1001,
		MsgID:        msgID,
		Text:         text,
		ChatUsername: "testchan",
	}
}

func TestIngestMessage(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	ingest := indexer.NewIngest(engine, pipeline.NewFilter(0), 100)
	ctx := context.Background()

	res := ingest.Message(ctx, rawMsg(1, "первое достаточно длинное сообщение для индекса"))
	require.Equal(t, indexer.ResultIndexed, res)
	require.Len(t, engine.calls, 1)
	require.Equal(t, "1001_1", engine.calls[0][0].ID)

	// Повтор того же текста отсеивается окном дедупликации.
	res = ingest.Message(ctx, rawMsg(2, "первое достаточно длинное сообщение для индекса"))
	require.Equal(t, indexer.ResultSkipped, res)
	require.Len(t, engine.calls, 1)
}

func TestIngestMessageSkips(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	ingest := indexer.NewIngest(engine, pipeline.NewFilter(0), 100)
	ctx := context.Background()

	cases := []struct {
		name string
		raw  pipeline.RawMessage
	}{
		{name: "emptyText", raw: rawMsg(1, "")},
		{name: "whitespaceOnly", raw: rawMsg(2, "   \n\t ")},
		{name: "tooShort", raw: rawMsg(3, "你好")},
		{
			name: "serviceMessage",
			raw: pipeline.RawMessage{
				ChatID:    1001,
				MsgID:     4,
				Text:      "участник вступил в канал",
				MediaType: pipeline.MediaTypeService,
			},
		},
	}

	for _, tc := range cases {
		res := ingest.Message(ctx, tc.raw)
		require.Equalf(t, indexer.ResultSkipped, res, "case %s", tc.name)
	}
	require.Empty(t, engine.calls)
}

func TestIngestMessageEngineFailure(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{fail: errors.New("engine down")}
	ingest := indexer.NewIngest(engine, pipeline.NewFilter(0), 100)
	ctx := context.Background()

	text := "сообщение которое движок не смог принять с первого раза"
	res := ingest.Message(ctx, rawMsg(1, text))
	require.Equal(t, indexer.ResultError, res)

	// Окно не мутировано: после восстановления движка то же сообщение
	// индексируется, а не отсеивается как дубликат.
	engine.fail = nil
	res = ingest.Message(ctx, rawMsg(1, text))
	require.Equal(t, indexer.ResultIndexed, res)
	require.Len(t, engine.calls, 1)
}

func TestIngestBatch(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	ingest := indexer.NewIngest(engine, pipeline.NewFilter(0), 100)
	ctx := context.Background()

	raws := []pipeline.RawMessage{
		rawMsg(1, "уникальное сообщение номер один про погоду в городе"),
		rawMsg(2, ""),
		rawMsg(3, "уникальное сообщение номер один про погоду в городе"), // дубликат внутри батча
		rawMsg(4, "a completely different english post about databases"),
	}

	indexed, err := ingest.Batch(ctx, raws)
	require.NoError(t, err)
	require.Equal(t, 2, indexed)

	// Один вызов движка на батч; ранняя запись выигрывает у позднего дубликата.
	require.Len(t, engine.calls, 1)
	require.Equal(t, "1001_1", engine.calls[0][0].ID)
	require.Equal(t, "1001_4", engine.calls[0][1].ID)
}

func TestIngestBatchAllFiltered(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	ingest := indexer.NewIngest(engine, pipeline.NewFilter(0), 100)

	// Полностью отфильтрованный батч не доходит до движка.
	indexed, err := ingest.Batch(context.Background(), []pipeline.RawMessage{
		rawMsg(1, ""),
		rawMsg(2, "你好"),
	})
	require.NoError(t, err)
	require.Zero(t, indexed)
	require.Empty(t, engine.calls)
}

func TestIngestBatchEngineFailure(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{fail: errors.New("unavailable")}
	ingest := indexer.NewIngest(engine, pipeline.NewFilter(0), 100)
	ctx := context.Background()

	raws := []pipeline.RawMessage{
		rawMsg(1, "первый документ батча который движок отверг целиком"),
		rawMsg(2, "second distinct document of the failing batch"),
	}

	indexed, err := ingest.Batch(ctx, raws)
	require.Error(t, err)
	require.Zero(t, indexed)

	// Повтор после восстановления отправляет ровно те же документы: окно не
	// было мутировано неудавшимся батчем.
	engine.fail = nil
	indexed, err = ingest.Batch(ctx, raws)
	require.NoError(t, err)
	require.Equal(t, 2, indexed)
	require.Len(t, engine.calls, 1)
	require.Len(t, engine.calls[0], 2)
}
