package network

import (
	"sync"

	"ability-server/internal/domain"
	"ability-server/pkg/api"
	"ability-server/pkg/logger"
)

// Broadcaster занимается только рассылкой сообщений подписчикам
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: ActorID -> Личный канал
	subscribers map[domain.ActorID]chan api.ServerMessage
	// Сколько сообщений выброшено из-за переполненных каналов
	dropped map[domain.ActorID]int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[domain.ActorID]chan api.ServerMessage),
		dropped:     make(map[domain.ActorID]int),
	}
}

// Register создает личный канал для актора (игрока или агента)
func (b *Broadcaster) Register(id domain.ActorID) chan api.ServerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Если канал был, закрываем
	if old, ok := b.subscribers[id]; ok {
		close(old)
	}

	ch := make(chan api.ServerMessage, 256)
	b.subscribers[id] = ch
	delete(b.dropped, id)
	return ch
}

// Unregister удаляет подписчика
func (b *Broadcaster) Unregister(id domain.ActorID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
		delete(b.dropped, id)
	}
}

// UnregisterChan удаляет подписчика, только если его канал все еще тот же.
// Нужен при переподключении: старое соединение не должно закрыть новый канал.
func (b *Broadcaster) UnregisterChan(id domain.ActorID, ch chan api.ServerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.subscribers[id]; ok && cur == ch {
		close(cur)
		delete(b.subscribers, id)
		delete(b.dropped, id)
	}
}

// SendTo отправляет сообщение конкретному ID (Unicast)
func (b *Broadcaster) SendTo(id domain.ActorID, msg api.ServerMessage) {
	b.mu.RLock()
	ch, ok := b.subscribers[id]
	if !ok {
		b.mu.RUnlock()
		return
	}
	sent := trySend(ch, msg)
	b.mu.RUnlock()

	if !sent {
		b.countDrop(id)
	}
}

// Broadcast отправляет всем
func (b *Broadcaster) Broadcast(msg api.ServerMessage) {
	var full []domain.ActorID

	b.mu.RLock()
	for id, ch := range b.subscribers {
		if !trySend(ch, msg) {
			full = append(full, id)
		}
	}
	b.mu.RUnlock()

	for _, id := range full {
		b.countDrop(id)
	}
}

// HasSubscriber проверяет, управляется ли актор кем-то
func (b *Broadcaster) HasSubscriber(id domain.ActorID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subscribers[id]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped - сколько сообщений не дошло до подписчика (отладка).
func (b *Broadcaster) Dropped(id domain.ActorID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped[id]
}

// TakeLagging возвращает подписчиков, потерявших кадры, и сбрасывает их счетчики.
// Таким подписчикам движок отправляет новый снимок.
func (b *Broadcaster) TakeLagging() []domain.ActorID {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []domain.ActorID
	for id, n := range b.dropped {
		if n > 0 {
			out = append(out, id)
		}
		delete(b.dropped, id)
	}
	return out
}

func (b *Broadcaster) countDrop(id domain.ActorID) {
	b.mu.Lock()
	if _, ok := b.subscribers[id]; ok {
		b.dropped[id]++
	}
	n := b.dropped[id]
	b.mu.Unlock()

	// Пропуск кадра ломает дельты: клиенту нужен новый WELCOME
	if n == 1 {
		logger.For("hub").WithField("subscriber", id).Warn("Subscriber channel full, frames dropped")
	}
}

func trySend(ch chan api.ServerMessage, msg api.ServerMessage) bool {
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
