// websocket/constants.go
package websocket

// Типы сообщений
const (
	TypeContacts     = "contacts"
	TypeItemsChanged = "items_changed"
	TypeRefresh      = "refresh"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeError        = "error"
)
