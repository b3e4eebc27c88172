// websocket/read_pump.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LilVoxy/campus_lostfound/processor"
)

// readPump обрабатывает чтение сообщений от клиента
func (c *Client) readPump() {
	manager := c.manager
	defer func() {
		// Отправляем сигнал отключения
		manager.unregister(c)

		// Безопасно закрываем соединение
		c.Socket.Close()

		manager.log.Debugf("Завершение readPump для клиента %s", c.ID)
	}()

	// Устанавливаем параметры подключения
	c.Socket.SetReadLimit(manager.cfg.MaxMessageSize)
	c.Socket.SetReadDeadline(time.Now().Add(manager.cfg.PongWait))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(manager.cfg.PongWait))
		return nil
	})

	for {
		// Читаем сообщения
		messageType, data, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				manager.log.Warnf("⚠️ Ошибка чтения от клиента %s: %v", c.ID, err)
			}
			break
		}

		payload, err := processor.DecodeFrame(messageType == websocket.BinaryMessage, data)
		if err != nil {
			manager.log.Warnf("⚠️ Клиент %s прислал поврежденный кадр: %v", c.ID, err)
			continue
		}

		// Обрабатываем полученное сообщение
		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			manager.log.Warnf("⚠️ Ошибка декодирования сообщения клиента %s: %v", c.ID, err)
			continue
		}

		switch msg.Type {
		case TypePing:
			// Отправляем понг-сообщение обратно клиенту
			c.sendJSON(ClientMessage{Type: TypePong})

		case TypeRefresh:
			go c.refresh()

		default:
			c.sendJSON(map[string]string{"type": TypeError, "error": "unknown message type " + msg.Type})
		}
	}
}
