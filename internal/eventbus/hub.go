package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	TypeLogCreated        = "log.created"
	TypeLogUpdated        = "log.updated"
	TypeLogDeleted        = "log.deleted"
	TypeMilestoneAchieved = "milestone.achieved"
)

type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	UserID    string         `json:"-"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]string
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]string)}
}

// Publish 广播事件；UserID 非空时只投递给该用户的订阅者
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch, owner := range h.subs {
		if evt.UserID != "" && owner != "" && owner != evt.UserID {
			continue
		}
		select {
		case ch <- evt:
		default:
			// 慢消费者直接丢弃，避免阻塞写入链路
		}
	}
}

// Subscribe 订阅事件，ctx 结束时自动退订并关闭通道；userID 为空表示接收全部
func (h *Hub) Subscribe(ctx context.Context, userID string, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.subs[ch] = userID
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Subscribers 当前订阅者数量
func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
