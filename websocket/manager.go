// websocket/manager.go
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/LilVoxy/campus_lostfound/config"
	"github.com/LilVoxy/campus_lostfound/contacts"
	"github.com/LilVoxy/campus_lostfound/realtime"
)

// Создание нового менеджера WebSocket-соединений.
// loader выполняет проход загрузки контактов, feed - лента изменений строк.
func NewManager(cfg config.WebSocketConfig, allowedOrigins []string, loader contacts.Loader, feed contacts.Feed, log logrus.FieldLogger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		Clients:      make(map[*Client]struct{}),
		Broadcast:    make(chan []byte),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		resync:       make(chan struct{}),
		done:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		cfg:          cfg,
		loader:       loader,
		feed:         feed,
		log:          log,
		now:          time.Now,
		UserStatuses: make(map[string]*UserStatus),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Run запускает работу менеджера до отмены ctx. При выходе все
// соединения закрываются.
func (manager *Manager) Run(ctx context.Context) {
	var items <-chan realtime.Event
	if manager.feed != nil {
		sub, err := manager.feed.Subscribe(realtime.Filter{Table: realtime.TableItems, Type: realtime.AnyEvent})
		if err != nil {
			manager.log.Warnf("⚠️ Не удалось подписаться на изменения объявлений: %v", err)
		} else {
			items = sub.C
			defer sub.Unsubscribe()
		}
	}

	defer func() {
		manager.cancel()
		for client := range manager.Clients {
			delete(manager.Clients, client)
			client.shutdown()
			manager.updateUserStatus(client.UserID, -1)
		}
		close(manager.done)
		manager.log.Info("⚠️ Менеджер WebSocket-соединений остановлен")
	}()

	for {
		select {
		case client := <-manager.Register:
			manager.Clients[client] = struct{}{}
			manager.updateUserStatus(client.UserID, 1)
			manager.log.Infof("👤 Клиент %s (пользователь %s) подключился", client.ID, client.UserID)

		case client := <-manager.Unregister:
			if _, ok := manager.Clients[client]; ok {
				delete(manager.Clients, client)
				client.shutdown()
				manager.updateUserStatus(client.UserID, -1)
				manager.log.Infof("👤 Клиент %s (пользователь %s) отключился", client.ID, client.UserID)
			}

		case message := <-manager.Broadcast:
			// Рассылаем сообщение всем подключенным клиентам
			manager.broadcast(message)

		case <-manager.resync:
			for client := range manager.Clients {
				go client.refresh()
			}
			manager.log.Debugf("ℹ️ Запущено обновление контактов для %d соединений", len(manager.Clients))

		case ev, ok := <-items:
			if !ok {
				items = nil
				continue
			}
			if data, err := json.Marshal(ItemsChangedMessage{
				Type:   TypeItemsChanged,
				Event:  string(ev.Type),
				ItemID: ev.Row["id"],
			}); err == nil {
				manager.broadcast(data)
			}

		case <-ctx.Done():
			return
		}
	}
}

// broadcast отправляет сообщение всем подключенным клиентам.
// Клиент с переполненной очередью отключается.
func (manager *Manager) broadcast(message []byte) {
	for client := range manager.Clients {
		if !client.enqueue(message) {
			delete(manager.Clients, client)
			client.shutdown()
			manager.updateUserStatus(client.UserID, -1)
			manager.log.Warnf("⚠️ Клиент %s не успевает получать сообщения, соединение закрыто", client.ID)
		}
	}
}

// BroadcastMessage ставит сообщение в рассылку всем клиентам
func (manager *Manager) BroadcastMessage(message []byte) {
	select {
	case manager.Broadcast <- message:
	case <-manager.done:
	}
}

// RefreshAll запускает полный проход загрузки контактов во всех живых сессиях
func (manager *Manager) RefreshAll() {
	select {
	case manager.resync <- struct{}{}:
	case <-manager.done:
	}
}

// unregister снимает клиента с учета, если менеджер еще работает
func (manager *Manager) unregister(client *Client) {
	select {
	case manager.Unregister <- client:
	case <-manager.done:
	}
}

// originChecker разрешает запросы без Origin и с перечисленных источников;
// "*" разрешает все
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
