// routes/api_routes.go
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/LilVoxy/campus_lostfound/contacts"
	"github.com/LilVoxy/campus_lostfound/database"
	"github.com/LilVoxy/campus_lostfound/realtime"
	"github.com/LilVoxy/campus_lostfound/websocket"
)

// Publisher публикует изменения строк в ленту
type Publisher interface {
	Publish(ev realtime.Event)
}

// API обработчики HTTP-запросов
type API struct {
	store  *database.Store
	loader contacts.Loader
	feed   Publisher
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewAPI создает обработчики поверх хранилища и ленты изменений
func NewAPI(store *database.Store, feed Publisher, log logrus.FieldLogger) *API {
	return &API{
		store:  store,
		loader: contacts.NewFetcher(store, log),
		feed:   feed,
		log:    log,
		now:    time.Now,
	}
}

// SetupRoutes настраивает все маршруты API и WebSocket
func SetupRoutes(router *mux.Router, api *API, wsManager *websocket.Manager, allowedOrigins []string) {
	// Применяем CORS middleware
	router.Use(CORSMiddleware(allowedOrigins))
	router.Use(LoggingMiddleware(api.log))

	router.HandleFunc("/healthz", api.healthHandler(wsManager)).Methods("GET")

	// WebSocket соединения
	if wsManager != nil {
		router.HandleFunc("/ws/contacts", api.contactsStreamHandler(wsManager)).Methods("GET")
		router.HandleFunc("/api/status", wsManager.HandleStatus).Methods("GET", "OPTIONS")
	}

	// API контактов
	router.HandleFunc("/api/contacts", api.GetContactsHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/contact-attempts", api.CreateContactAttemptHandler).Methods("POST", "OPTIONS")

	// API объявлений
	router.HandleFunc("/api/items", api.ListItemsHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/items", api.CreateItemHandler).Methods("POST")
	router.HandleFunc("/api/items/search", api.SearchItemsHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/items/{id}", api.GetItemHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/items/{id}", api.UpdateItemHandler).Methods("PUT")
	router.HandleFunc("/api/items/{id}", api.DeleteItemHandler).Methods("DELETE")
	router.HandleFunc("/api/items/{id}/resolve", api.ResolveItemHandler).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/items/{id}/contacts", api.ItemContactsHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/items/{id}/feedback", api.ListFeedbackHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/items/{id}/feedback", api.CreateFeedbackHandler).Methods("POST")

	// API профиля
	router.HandleFunc("/api/profile", api.GetProfileHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/profile", api.UpdateProfileHandler).Methods("PUT")
	router.HandleFunc("/api/profile/items", api.ProfileItemsHandler).Methods("GET", "OPTIONS")
}

// healthHandler проверяет доступность базы
func (api *API) healthHandler(wsManager *websocket.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := api.store.Ping(ctx); err != nil {
			api.log.Errorf("❌ База данных недоступна: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}

		resp := map[string]interface{}{"status": "ok"}
		if wsManager != nil {
			resp["connections"] = wsManager.ConnectionCount()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// contactsStreamHandler открывает живой список контактов по WebSocket.
// Без пользователя соединение не устанавливается.
func (api *API) contactsStreamHandler(wsManager *websocket.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := ViewerFromRequest(r)
		if err != nil {
			writeError(w, api.log, err)
			return
		}
		wsManager.ServeContacts(w, r, viewer)
	}
}

func (api *API) publish(table string, typ realtime.EventType, row map[string]string) {
	if api.feed == nil {
		return
	}
	api.feed.Publish(realtime.Event{Table: table, Type: typ, Row: row})
}
