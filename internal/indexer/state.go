package indexer

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"telegram-search/internal/infra/logger"
	"telegram-search/internal/infra/storage"
)

// channelState — сериализуемая запись чекпоинта одного канала.
type channelState struct {
	LastMsgID int `json:"last_msg_id"`
}

// StateStore хранит чекпоинты инкрементальной индексации: для каждого канала —
// последний msg_id, который гарантированно проиндексирован. Значения растут
// строго монотонно; запись назад — no-op. Персистентность — один JSON-файл,
// записываемый атомарно (temp + rename); записи коалесцируются в пределах
// flushInterval, финальный Flush обязателен при останове.
//
// Файлом владеет один процесс; межпроцессных блокировок нет.
type StateStore struct {
	mu            sync.Mutex
	path          string
	flushInterval time.Duration
	state         map[string]channelState
	dirty         bool
	lastFlush     time.Time
}

// NewStateStore загружает состояние из path (отсутствие файла — пустое
// состояние). Нечитаемый файл откладывается в сторону с суффиксом .corrupt,
// работа продолжается с нуля; если и rename не удался, работаем в памяти.
func NewStateStore(path string, flushInterval time.Duration) *StateStore {
	s := &StateStore{
		path:          path,
		flushInterval: flushInterval,
		state:         make(map[string]channelState),
		lastFlush:     time.Now(),
	}
	s.load()
	return s
}

// load читает и разбирает файл состояния; вызывается один раз из конструктора.
func (s *StateStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("state file unreadable; starting empty",
				zap.String("path", s.path), zap.Error(err))
		}
		return
	}

	if err = json.Unmarshal(data, &s.state); err != nil {
		logger.Warn("state file corrupted; quarantining",
			zap.String("path", s.path), zap.Error(err))
		s.state = make(map[string]channelState)
		// Сохраняем повреждённый файл для разбора; неудача не фатальна.
		if renameErr := os.Rename(s.path, s.path+".corrupt"); renameErr != nil {
			logger.Warn("quarantine rename failed", zap.Error(renameErr))
		}
	}
}

// Get возвращает последний проиндексированный msg_id канала, 0 если канала нет.
func (s *StateStore) Get(channelID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[strconv.FormatInt(channelID, 10)].LastMsgID
}

// Set продвигает чекпоинт канала вперёд. Значение не больше текущего
// игнорируется, чем обеспечивается монотонность при любом порядке вызовов.
// Персист выполняется сразу при нулевом flushInterval, иначе откладывается,
// пока с последней записи не пройдёт интервал.
func (s *StateStore) Set(channelID int64, msgID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strconv.FormatInt(channelID, 10)
	if msgID <= s.state[key].LastMsgID {
		return
	}
	s.state[key] = channelState{LastMsgID: msgID}
	s.dirty = true

	if s.flushInterval <= 0 || time.Since(s.lastFlush) >= s.flushInterval {
		s.persistLocked()
	}
}

// Flush принудительно записывает состояние, если есть несохранённые изменения.
func (s *StateStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.persistLocked()
}

// persistLocked сериализует карту и атомарно пишет файл; вызывающий держит mu.
// Ошибка записи оставляет dirty установленным, чтобы следующий Set/Flush
// повторил попытку.
func (s *StateStore) persistLocked() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	if err = storage.AtomicWriteFile(s.path, data); err != nil {
		logger.Error("state persist failed", zap.String("path", s.path), zap.Error(err))
		return errors.Wrap(err, "write state")
	}
	s.dirty = false
	s.lastFlush = time.Now()
	return nil
}
