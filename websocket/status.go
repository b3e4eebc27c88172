// websocket/status.go
package websocket

import (
	"encoding/json"
	"net/http"
)

// updateUserStatus учитывает подключение (delta = 1) или отключение (delta = -1)
func (manager *Manager) updateUserStatus(userID string, delta int) {
	manager.statusMutex.Lock()
	defer manager.statusMutex.Unlock()

	status, exists := manager.UserStatuses[userID]
	if !exists {
		status = &UserStatus{}
		manager.UserStatuses[userID] = status
	}

	status.Connections += delta
	if status.Connections < 0 {
		status.Connections = 0
	}
	status.Online = status.Connections > 0
	status.LastSeen = manager.now().UTC()
}

// Status возвращает сведения о подключениях пользователя
func (manager *Manager) Status(userID string) UserStatus {
	manager.statusMutex.RLock()
	defer manager.statusMutex.RUnlock()

	if status, ok := manager.UserStatuses[userID]; ok {
		return *status
	}
	return UserStatus{}
}

// ConnectionCount возвращает число открытых соединений
func (manager *Manager) ConnectionCount() int {
	manager.statusMutex.RLock()
	defer manager.statusMutex.RUnlock()

	total := 0
	for _, status := range manager.UserStatuses {
		total += status.Connections
	}
	return total
}

// HandleStatus отдает статус подключения пользователя ?userId=
func (manager *Manager) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		http.Error(w, "Отсутствует обязательный параметр userId или user_id", http.StatusBadRequest)
		return
	}

	status := manager.Status(userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		UserID string `json:"userId"`
		UserStatus
	}{UserID: userID, UserStatus: status})
}
