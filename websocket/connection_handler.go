// websocket/connection_handler.go
package websocket

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/LilVoxy/campus_lostfound/contacts"
	"github.com/LilVoxy/campus_lostfound/processor"
)

// ServeContacts переводит запрос в WebSocket и открывает для соединения
// живой список контактов пользователя viewer.
// Параметры запроса: encoding=json|snappy, tz - часовой пояс IANA для меток времени.
func (manager *Manager) ServeContacts(w http.ResponseWriter, r *http.Request, viewer string) {
	query := r.URL.Query()

	encoding, err := processor.ParseEncoding(query.Get("encoding"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case <-manager.done:
		http.Error(w, "Сервер останавливается", http.StatusServiceUnavailable)
		return
	default:
	}

	// Устанавливаем WebSocket-соединение
	conn, err := manager.upgrader.Upgrade(w, r, nil)
	if err != nil {
		manager.log.Errorf("❌ Ошибка при установке WebSocket-соединения: %v", err)
		return
	}

	client := &Client{
		ID:       uuid.NewString(),
		UserID:   viewer,
		Socket:   conn,
		Send:     make(chan []byte, manager.cfg.SendBuffer),
		Encoding: encoding,
		Location: contacts.ParseLocation(query.Get("tz")),
		manager:  manager,
	}
	client.session = contacts.NewSession(viewer, manager.loader, manager.feed,
		manager.log.WithField("conn", client.ID),
		contacts.SessionOptions{OnUpdate: client.pushState, Now: manager.now},
	)

	select {
	case manager.Register <- client:
	case <-manager.done:
		client.shutdown()
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	// клиент сразу видит индикатор загрузки
	client.pushState(contacts.State{Loading: true})

	go func() {
		if err := client.session.Start(manager.ctx); err != nil && !errors.Is(err, contacts.ErrSessionClosed) {
			manager.log.Errorf("❌ Не удалось запустить сессию контактов клиента %s: %v", client.ID, err)
		}
	}()
}
