// Package telegram — сетевой слой crawler: обёртка над MTProto-клиентом gotd.
// Здесь живут авторизация бота, middleware против FLOOD_WAIT и троттлинга,
// менеджер апдейтов с bbolt-состоянием, резолв каналов и чтение истории.
package telegram

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	boltstor "github.com/gotd/contrib/bbolt"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	tgupdates "github.com/gotd/td/telegram/updates"
	"github.com/gotd/td/tg"

	"telegram-search/internal/infra/config"
	"telegram-search/internal/infra/logger"
	"telegram-search/internal/infra/storage"
	"telegram-search/internal/pipeline"
)

// historyPageSize — размер страницы messages.getHistory.
const historyPageSize = 100

// channelInfo — кэш резолва канала: access hash плюс атрибуты для документов.
type channelInfo struct {
	accessHash int64
	username   string
	title      string
}

// Client агрегирует MTProto-клиента, диспетчер апдейтов и кэш каналов.
// Создаётся один раз на процесс; все операции требуют активной сессии,
// то есть вызываются изнутри Run.
type Client struct {
	cfg        config.TelegramConfig
	client     *telegram.Client
	api        *tg.Client
	dispatcher tg.UpdateDispatcher
	waiter     *floodwait.Waiter
	updMgr     *tgupdates.Manager
	stateDB    *bbolt.DB
	self       *tg.User

	mu       sync.Mutex
	channels map[int64]channelInfo
}

// NewClient собирает клиента из конфигурации: файловая сессия, middleware
// FLOOD_WAIT и rate limit, менеджер апдейтов поверх bbolt-хранилища.
func NewClient(cfg config.TelegramConfig) (*Client, error) {
	c := &Client{
		cfg:        cfg,
		dispatcher: tg.NewUpdateDispatcher(),
		waiter:     floodwait.NewWaiter(),
		channels:   make(map[int64]channelInfo),
	}

	if err := storage.EnsureDir(cfg.UpdatesStateFile); err != nil {
		return nil, errors.Wrap(err, "ensure updates state dir")
	}
	stateDB, err := bbolt.Open(cfg.UpdatesStateFile, storage.DefaultFilePerm, &bbolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open updates state storage")
	}
	c.stateDB = stateDB

	c.updMgr = tgupdates.New(tgupdates.Config{
		Handler: c.dispatcher,
		Storage: boltstor.NewStateStorage(stateDB),
	})

	if err = storage.EnsureDir(cfg.SessionFile); err != nil {
		return nil, errors.Wrap(err, "ensure session dir")
	}
	c.client = telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
		UpdateHandler:  c.updMgr,
		Middlewares: []telegram.Middleware{
			c.waiter,
			ratelimit.New(
				rate.Limit(cfg.ThrottleRPS),
				cfg.ThrottleRPS*2, //nolint:mnd // burst = 2*rate
			),
		},
	})
	c.api = c.client.API()

	return c, nil
}

// Run устанавливает соединение, авторизует бота и передаёт управление fn.
// Блокируется до возврата fn или отмены контекста.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	defer func() { _ = c.stateDB.Close() }()

	return c.waiter.Run(ctx, func(ctx context.Context) error {
		return c.client.Run(ctx, func(ctx context.Context) error {
			status, err := c.client.Auth().Status(ctx)
			if err != nil {
				return errors.Wrap(err, "auth status")
			}
			if !status.Authorized {
				if _, err = c.client.Auth().Bot(ctx, c.cfg.BotToken); err != nil {
					return errors.Wrap(err, "bot auth")
				}
			}

			self, err := c.client.Self(ctx)
			if err != nil {
				return errors.Wrap(err, "self")
			}
			c.self = self
			logger.Info("Logged in",
				zap.String("username", self.Username),
				zap.Int64("id", self.ID))

			return fn(ctx)
		})
	})
}

// RunUpdates запускает менеджер апдейтов: поток новых сообщений пойдёт через
// диспетчер в подписчиков. Блокируется до отмены контекста. Вызывать только
// изнутри Run.
func (c *Client) RunUpdates(ctx context.Context) error {
	return c.updMgr.Run(ctx, c.api, c.self.ID, tgupdates.AuthOptions{
		IsBot: c.self.Bot,
	})
}

// WatchChannel резолвит канал по username и кэширует access hash вместе с
// атрибутами канала. Обязательный шаг перед чтением истории.
func (c *Client) WatchChannel(ctx context.Context, channelID int64, username string) error {
	if username == "" {
		return errors.Errorf("channel %d has no username to resolve", channelID)
	}

	peer, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		return errors.Wrapf(err, "resolve %q", username)
	}

	for _, chat := range peer.Chats {
		ch, ok := chat.(*tg.Channel)
		if !ok || ch.ID != channelID {
			continue
		}
		c.mu.Lock()
		c.channels[channelID] = channelInfo{
			accessHash: ch.AccessHash,
			username:   ch.Username,
			title:      ch.Title,
		}
		c.mu.Unlock()
		logger.Debug("channel resolved",
			zap.Int64("channel_id", channelID),
			zap.String("username", ch.Username))
		return nil
	}
	return errors.Errorf("username %q does not resolve to channel %d", username, channelID)
}

// channel возвращает кэшированный резолв канала.
func (c *Client) channel(channelID int64) (channelInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.channels[channelID]
	return info, ok
}

// Messages отдаёт историю канала по возрастанию msg_id, начиная после minID,
// не более limit сообщений (limit <= 0 — без ограничения). Сервисные
// сообщения и прочие не-tg.Message элементы пропускаются.
func (c *Client) Messages(
	ctx context.Context,
	channelID int64,
	minID, limit int,
	fn func(pipeline.RawMessage) error,
) error {
	info, ok := c.channel(channelID)
	if !ok {
		return errors.Errorf("channel %d is not resolved", channelID)
	}
	peer := &tg.InputPeerChannel{ChannelID: channelID, AccessHash: info.accessHash}

	emitted := 0
	lastID := minID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page := historyPageSize
		if limit > 0 && limit-emitted < page {
			page = limit - emitted
		}
		if page <= 0 {
			return nil
		}

		// Окно сразу над lastID: AddOffset = -page сдвигает выборку в сторону
		// более новых сообщений относительно OffsetID.
		res, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:      peer,
			OffsetID:  lastID + 1,
			AddOffset: -page,
			Limit:     page,
			MinID:     lastID,
		})
		if err != nil {
			return errors.Wrap(err, "get history")
		}

		history, err := historyMessages(res)
		if err != nil {
			return err
		}

		// Движок отдаёт страницу от новых к старым; переворачиваем в
		// хронологический порядок.
		batch := make([]*tg.Message, 0, len(history))
		for _, m := range history {
			msg, isMsg := m.(*tg.Message)
			if !isMsg || msg.ID <= lastID {
				continue
			}
			batch = append(batch, msg)
		}
		if len(batch) == 0 {
			return nil
		}
		slices.SortFunc(batch, func(a, b *tg.Message) int {
			return cmp.Compare(a.ID, b.ID)
		})

		for _, msg := range batch {
			if err = fn(c.rawMessage(channelID, info, msg)); err != nil {
				return err
			}
			emitted++
			lastID = msg.ID
			if limit > 0 && emitted >= limit {
				return nil
			}
		}
	}
}

// SubscribeNewMessages регистрирует обработчик новых сообщений каналов.
// Атрибуты канала берутся из кэша резолва, при его отсутствии — из сущностей
// апдейта.
func (c *Client) SubscribeNewMessages(handler func(ctx context.Context, msg pipeline.RawMessage)) {
	c.dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		msg, ok := u.Message.(*tg.Message)
		if !ok {
			return nil
		}
		peerCh, ok := msg.PeerID.(*tg.PeerChannel)
		if !ok {
			return nil
		}

		info, _ := c.channel(peerCh.ChannelID)
		if info.username == "" {
			if ch, found := e.Channels[peerCh.ChannelID]; found {
				info.username = ch.Username
				info.title = ch.Title
			}
		}

		handler(ctx, c.rawMessage(peerCh.ChannelID, info, msg))
		return nil
	})
}

// rawMessage переводит сообщение MTProto во входной формат конвейера.
func (c *Client) rawMessage(channelID int64, info channelInfo, msg *tg.Message) pipeline.RawMessage {
	return pipeline.RawMessage{
		ChatID:       channelID,
		MsgID:        msg.ID,
		Text:         msg.Message,
		Date:         time.Unix(int64(msg.Date), 0).UTC(),
		ChatTitle:    info.title,
		ChatUsername: info.username,
		MediaType:    mediaType(msg),
	}
}

// mediaType классифицирует вложение сообщения.
func mediaType(msg *tg.Message) string {
	switch msg.Media.(type) {
	case *tg.MessageMediaPhoto:
		return "photo"
	case *tg.MessageMediaDocument:
		return "document"
	case *tg.MessageMediaWebPage:
		return "webpage"
	default:
		return ""
	}
}

// historyMessages разворачивает полиморфный ответ messages.getHistory.
func historyMessages(res tg.MessagesMessagesClass) ([]tg.MessageClass, error) {
	switch v := res.(type) {
	case *tg.MessagesChannelMessages:
		return v.Messages, nil
	case *tg.MessagesMessagesSlice:
		return v.Messages, nil
	case *tg.MessagesMessages:
		return v.Messages, nil
	default:
		return nil, errors.Errorf("unexpected history response %T", res)
	}
}
