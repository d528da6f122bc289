package pipeline

import "sync"

// DefaultWindowSize — ёмкость окна дедупликации по умолчанию.
const DefaultWindowSize = 1000

// Window — ограниченный FIFO недавних simhash-отпечатков для межсообщенческой
// дедупликации. Проверка — линейный проход с предикатом почти-дубликата;
// при ёмкости порядка тысячи записей это дешевле любых LSH-индексов.
//
// Инвариант владельца (ingest-сервиса): окно никогда не содержит отпечатков
// батча, который не был принят движком.
type Window struct {
	mu    sync.Mutex
	buf   []string
	next  int
	count int
}

// NewWindow создаёт окно ёмкостью capacity; значение <= 0 заменяется на
// DefaultWindowSize.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{buf: make([]string, capacity)}
}

// Contains сообщает, есть ли в окне отпечаток, почти-дублирующий h
// (расстояние Хэмминга не больше DuplicateThreshold).
func (w *Window) Contains(h string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.count {
		if IsDuplicate(h, w.buf[w.index(i)], DuplicateThreshold) {
			return true
		}
	}
	return false
}

// Add помещает отпечаток в окно, вытесняя самый старый при переполнении.
func (w *Window) Add(h string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.add(h)
}

// AddAll помещает отпечатки в порядке следования. Используется при коммите
// успешного батча, чтобы окно отражало порядок принятия движком.
func (w *Window) AddAll(hashes []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range hashes {
		w.add(h)
	}
}

// Len возвращает число отпечатков в окне.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// index переводит логический индекс (0 — самый старый) в позицию кольца.
func (w *Window) index(i int) int {
	start := w.next - w.count
	if start < 0 {
		start += len(w.buf)
	}
	return (start + i) % len(w.buf)
}

// add — вставка без блокировки; вызывающий держит mu.
func (w *Window) add(h string) {
	w.buf[w.next] = h
	w.next = (w.next + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}
