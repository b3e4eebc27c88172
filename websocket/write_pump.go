// websocket/write_pump.go
package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/LilVoxy/campus_lostfound/processor"
)

// writePump отвечает за отправку сообщений клиенту
func (c *Client) writePump() {
	manager := c.manager
	ticker := time.NewTicker(manager.cfg.PingPeriod())
	defer func() {
		ticker.Stop()

		// Безопасно закрываем соединение
		c.Socket.Close()

		manager.log.Debugf("Завершение writePump для клиента %s", c.ID)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Socket.SetWriteDeadline(time.Now().Add(manager.cfg.WriteWait))
			if !ok {
				// Канал закрыт
				c.Socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			// Каждое сообщение отправляется отдельным кадром
			if err := c.write(message); err != nil {
				return
			}

			n := len(c.Send)
			for i := 0; i < n; i++ {
				message, ok := <-c.Send
				if !ok {
					break
				}
				if err := c.write(message); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(manager.cfg.WriteWait))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write кодирует и отправляет один кадр
func (c *Client) write(message []byte) error {
	frame := processor.EncodeFrame(c.Encoding, message)
	messageType := websocket.TextMessage
	if frame.Binary {
		messageType = websocket.BinaryMessage
	}
	return c.Socket.WriteMessage(messageType, frame.Data)
}
