package indexer

import (
	"cmp"
	"encoding/json"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"telegram-search/internal/infra/logger"
	"telegram-search/internal/infra/storage"
)

// Channel — запись реестра отслеживаемых каналов.
// AddedAt сериализуется в RFC3339 стандартным маршалингом time.Time.
type Channel struct {
	ChannelID int64     `json:"channel_id"`
	Username  string    `json:"username"`
	Title     string    `json:"title"`
	Enabled   bool      `json:"enabled"`
	AddedAt   time.Time `json:"added_at"`
}

// ErrInvalidChannelID возвращается операциям реестра с неположительным id.
var ErrInvalidChannelID = errors.New("channel_id must be a positive integer")

// Registry — реестр каналов, которые обходит crawler. Файл configs/channels.json
// читается при создании и атомарно переписывается после каждой мутации.
type Registry struct {
	mu       sync.Mutex
	path     string
	channels map[int64]Channel
}

// NewRegistry загружает реестр из path; отсутствие или нечитаемость файла
// дают пустой реестр с предупреждением в логе.
func NewRegistry(path string) *Registry {
	r := &Registry{
		path:     path,
		channels: make(map[int64]Channel),
	}
	r.load()
	return r
}

// load читает и разбирает файл реестра.
func (r *Registry) load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("channel registry unreadable", zap.String("path", r.path), zap.Error(err))
		}
		return
	}

	var items []Channel
	if err = json.Unmarshal(data, &items); err != nil {
		logger.Warn("channel registry corrupted", zap.String("path", r.path), zap.Error(err))
		return
	}
	for _, ch := range items {
		r.channels[ch.ChannelID] = ch
	}
}

// saveLocked атомарно переписывает файл реестра; вызывающий держит mu.
// Каналы пишутся отсортированными по id, чтобы диффы файла были стабильны.
func (r *Registry) saveLocked() error {
	items := r.listLocked()
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal channels")
	}
	if err = storage.AtomicWriteFile(r.path, data); err != nil {
		return errors.Wrap(err, "write channels")
	}
	return nil
}

// Add регистрирует канал или обновляет username/title существующего,
// сохраняя прочие поля (enabled, added_at).
func (r *Registry) Add(channelID int64, username, title string) (Channel, error) {
	if channelID <= 0 {
		return Channel{}, ErrInvalidChannelID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, exists := r.channels[channelID]
	if exists {
		ch.Username = username
		ch.Title = title
	} else {
		ch = Channel{
			ChannelID: channelID,
			Username:  username,
			Title:     title,
			Enabled:   true,
			AddedAt:   time.Now().UTC(),
		}
	}
	r.channels[channelID] = ch

	if err := r.saveLocked(); err != nil {
		return Channel{}, err
	}
	return ch, nil
}

// Remove удаляет канал; возвращает false, если канала не было.
func (r *Registry) Remove(channelID int64) (bool, error) {
	if channelID <= 0 {
		return false, ErrInvalidChannelID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[channelID]; !exists {
		return false, nil
	}
	delete(r.channels, channelID)

	if err := r.saveLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Get возвращает канал по id.
func (r *Registry) Get(channelID int64) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[channelID]
	return ch, ok
}

// List возвращает все каналы, отсортированные по id.
func (r *Registry) List() []Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked()
}

// listLocked — сортированный срез каналов; вызывающий держит mu.
func (r *Registry) listLocked() []Channel {
	items := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		items = append(items, ch)
	}
	slices.SortFunc(items, func(a, b Channel) int {
		return cmp.Compare(a.ChannelID, b.ChannelID)
	})
	return items
}
