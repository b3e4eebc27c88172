// websocket/types.go
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/LilVoxy/campus_lostfound/config"
	"github.com/LilVoxy/campus_lostfound/contacts"
	"github.com/LilVoxy/campus_lostfound/processor"
)

// ClientMessage сообщение от клиента
type ClientMessage struct {
	Type string `json:"type"`
}

// ContactsMessage текущее состояние списка контактов
type ContactsMessage struct {
	Type    string         `json:"type"`
	Rows    []contacts.Row `json:"rows"`
	Loading bool           `json:"loading"`
	Error   string         `json:"error,omitempty"`
	Seq     uint64         `json:"seq"`
}

// ItemsChangedMessage уведомление об изменении объявлений
type ItemsChangedMessage struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	ItemID string `json:"itemId,omitempty"`
}

// Client одно WebSocket-соединение со своей сессией контактов
type Client struct {
	ID       string
	UserID   string
	Socket   *websocket.Conn
	Send     chan []byte
	Encoding processor.Encoding
	Location *time.Location

	session *contacts.Session
	manager *Manager

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// UserStatus сведения о подключениях пользователя
type UserStatus struct {
	Online      bool      `json:"online"`
	Connections int       `json:"connections"`
	LastSeen    time.Time `json:"lastSeen"`
}

// Manager менеджер WebSocket-соединений
type Manager struct {
	Clients    map[*Client]struct{}
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client

	resync chan struct{}
	done   chan struct{}

	// контекст живых сессий, отменяется при остановке менеджера
	ctx    context.Context
	cancel context.CancelFunc

	cfg      config.WebSocketConfig
	loader   contacts.Loader
	feed     contacts.Feed
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
	now      func() time.Time

	UserStatuses map[string]*UserStatus
	statusMutex  sync.RWMutex
}
