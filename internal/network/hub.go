package network

import (
	"civsim-server/pkg/api"
	"sync"
)

// Broadcaster занимается только рассылкой сообщений подписчикам.
// Подписчики группируются по топику (ID задания симуляции).
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: topic -> набор личных каналов
	topics map[string]map[chan api.ProgressMessage]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		topics: make(map[string]map[chan api.ProgressMessage]struct{}),
	}
}

// Subscribe создает личный канал в топике.
func (b *Broadcaster) Subscribe(topic string) chan api.ProgressMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[chan api.ProgressMessage]struct{})
		b.topics[topic] = subs
	}
	ch := make(chan api.ProgressMessage, 100)
	subs[ch] = struct{}{}
	return ch
}

// Unsubscribe удаляет подписчика и закрывает его канал.
// Повторный вызов (или вызов после CloseTopic) безопасен.
func (b *Broadcaster) Unsubscribe(topic string, ch chan api.ProgressMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	if _, ok := subs[ch]; ok {
		delete(subs, ch)
		close(ch)
	}
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// Publish отправляет сообщение всем подписчикам топика.
// Медленных подписчиков пропускаем, а не ждем.
func (b *Broadcaster) Publish(topic string, msg api.ProgressMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.topics[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// CloseTopic закрывает каналы всех подписчиков топика (задание завершено).
func (b *Broadcaster) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.topics[topic] {
		close(ch)
	}
	delete(b.topics, topic)
}

// SubscriberCount возвращает количество активных подписчиков топика.
func (b *Broadcaster) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
