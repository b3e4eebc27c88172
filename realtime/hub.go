package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrClosed лента остановлена
	ErrClosed = errors.New("лента изменений остановлена")

	// ErrInvalidFilter в фильтре не указана таблица
	ErrInvalidFilter = errors.New("в фильтре подписки не указана таблица")
)

// Subscription подписка на события ленты. События приходят в C;
// после отписки или остановки ленты канал закрывается.
type Subscription struct {
	C <-chan Event

	id     uint64
	filter Filter
	ch     chan Event
	hub    *Hub
	once   sync.Once
}

// Unsubscribe снимает подписку. Повторные вызовы ничего не делают.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
	})
}

// Hub лента изменений строк. Вся работа с подписками идет
// в цикле Run, остальные методы общаются с ним через каналы.
type Hub struct {
	register   chan *Subscription
	unregister chan *Subscription
	publish    chan Event
	done       chan struct{}

	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	log    logrus.FieldLogger
}

// NewHub создает ленту; buffer - размер очереди событий одной подписки
func NewHub(buffer int, log logrus.FieldLogger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		publish:    make(chan Event),
		done:       make(chan struct{}),
		subs:       make(map[uint64]*Subscription),
		buffer:     buffer,
		log:        log,
	}
}

// Run обрабатывает подписки и события до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for id, sub := range h.subs {
			close(sub.ch)
			delete(h.subs, id)
		}
		close(h.done)
		h.log.Info("⚠️ Лента изменений остановлена")
	}()

	for {
		select {
		case sub := <-h.register:
			h.nextID++
			sub.id = h.nextID
			h.subs[sub.id] = sub
			h.log.Debugf("📡 Подписка %d на %s (%s)", sub.id, sub.filter.Table, sub.filter.Type)

		case sub := <-h.unregister:
			if _, ok := h.subs[sub.id]; ok {
				delete(h.subs, sub.id)
				close(sub.ch)
				h.log.Debugf("📡 Подписка %d снята", sub.id)
			}

		case ev := <-h.publish:
			h.dispatch(ev)

		case <-ctx.Done():
			return
		}
	}
}

// dispatch рассылает событие подходящим подпискам без блокировки
func (h *Hub) dispatch(ev Event) {
	for _, sub := range h.subs {
		if !sub.filter.Matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.log.Warnf("⚠️ Очередь подписки %d переполнена, событие %s %s пропущено", sub.id, ev.Table, ev.Type)
		}
	}
}

// Subscribe регистрирует подписку с фильтром
func (h *Hub) Subscribe(filter Filter) (*Subscription, error) {
	if filter.Table == "" {
		return nil, ErrInvalidFilter
	}

	ch := make(chan Event, h.buffer)
	sub := &Subscription{
		C:      ch,
		filter: filter,
		ch:     ch,
		hub:    h,
	}

	select {
	case h.register <- sub:
		return sub, nil
	case <-h.done:
		return nil, ErrClosed
	}
}

// Publish отправляет событие в ленту. После остановки ленты событие отбрасывается.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case h.publish <- ev:
	case <-h.done:
	}
}
