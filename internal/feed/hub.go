package feed

import (
	"SentinelAI/internal/entity"
	"sync"
	"time"
)

// Update is one published status change.
type Update struct {
	Status entity.DetectionStatus  `json:"status"`
	Result *entity.DetectionResult `json:"result"`
	At     time.Time               `json:"at"`
}

// Hub holds the current detection status and result. The scheduler is the
// only writer; handlers read it or subscribe to changes.
type Hub struct {
	mu     sync.RWMutex
	status entity.DetectionStatus
	result *entity.DetectionResult
	subs   map[uint64]chan Update
	nextID uint64
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		status: entity.StatusIdle,
		subs:   make(map[uint64]chan Update),
		now:    time.Now,
	}
}

func (h *Hub) Status() entity.DetectionStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.status
}

// Result returns a copy of the stored result, or nil when none is stored.
func (h *Hub) Result() *entity.DetectionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.result.Clone()
}

// Snapshot returns status and result read under one lock.
func (h *Hub) Snapshot() Update {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return Update{Status: h.status, Result: h.result.Clone(), At: h.now()}
}

func (h *Hub) Publish(status entity.DetectionStatus, result *entity.DetectionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.status = status
	h.result = result.Clone()

	at := h.now()
	for _, ch := range h.subs {
		deliver(ch, Update{Status: status, Result: result.Clone(), At: at})
	}
}

// Reset returns the hub to IDLE with no result.
func (h *Hub) Reset() {
	h.Publish(entity.StatusIdle, nil)
}

// Subscribe registers a listener. A slow listener loses its oldest pending
// update rather than blocking the publisher. The returned func unsubscribes
// and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}

	ch := make(chan Update, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}

func deliver(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- u:
	default:
	}
}
