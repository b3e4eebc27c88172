// websocket/client.go
package websocket

import (
	"encoding/json"
	"errors"

	"github.com/LilVoxy/campus_lostfound/contacts"
)

// enqueue ставит сообщение в очередь отправки. Возвращает false,
// если клиент закрыт или очередь переполнена.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// pushState отправляет клиенту состояние списка контактов
func (c *Client) pushState(st contacts.State) {
	msg := ContactsMessage{
		Type:    TypeContacts,
		Rows:    contacts.Present(st.Contacts, c.manager.now().In(c.Location)),
		Loading: st.Loading,
		Error:   contacts.UserMessage(st.Err),
		Seq:     st.Seq,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.manager.log.Errorf("❌ Ошибка кодирования списка контактов: %v", err)
		return
	}
	if !c.enqueue(data) && !c.isClosed() {
		c.manager.log.Warnf("⚠️ Очередь клиента %s переполнена, соединение закрывается", c.ID)
		go c.manager.unregister(c)
	}
}

// sendJSON отправляет произвольное сообщение клиенту
func (c *Client) sendJSON(v interface{}) {
	if data, err := json.Marshal(v); err == nil {
		c.enqueue(data)
	}
}

// refresh запускает ручное обновление списка контактов
func (c *Client) refresh() {
	if err := c.session.Refresh(c.manager.ctx); err != nil && !errors.Is(err, contacts.ErrSessionClosed) {
		c.manager.log.Errorf("❌ Ошибка обновления контактов клиента %s: %v", c.ID, err)
	}
}

// shutdown закрывает сессию и очередь отправки; writePump после этого
// отправляет кадр закрытия и завершает соединение
func (c *Client) shutdown() {
	c.once.Do(func() {
		c.session.Close()

		c.mu.Lock()
		c.closed = true
		close(c.Send)
		c.mu.Unlock()
	})
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
