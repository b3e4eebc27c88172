// routes/respond.go
package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/LilVoxy/campus_lostfound/contacts"
	"github.com/LilVoxy/campus_lostfound/database"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error  string `json:"error"`
	SignIn bool   `json:"signIn,omitempty"`
}

// ViewerFromRequest определяет текущего пользователя: заголовок X-User-Id,
// затем параметры userId или user_id. Значение должно быть UUID.
func ViewerFromRequest(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if id == "" {
		id = r.URL.Query().Get("userId")
	}
	// Поддержка альтернативного формата параметра (user_id)
	if id == "" {
		id = r.URL.Query().Get("user_id")
	}
	if id == "" {
		return "", contacts.ErrNoViewer
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: некорректный id пользователя %q", contacts.ErrNoViewer, id)
	}
	return parsed.String(), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError переводит ошибку в HTTP-статус
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var queryErr *contacts.QueryError

	switch {
	case errors.Is(err, contacts.ErrNoViewer):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: contacts.UserMessage(err), SignIn: true})
	case errors.Is(err, database.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	case errors.Is(err, database.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "Only the author of the item can do this"})
	case errors.Is(err, database.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &queryErr):
		log.Errorf("❌ Ошибка загрузки контактов: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: contacts.UserMessage(err)})
	default:
		log.Errorf("❌ Внутренняя ошибка: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

// decodeBody читает JSON-тело запроса
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: неверный формат тела запроса: %v", database.ErrInvalid, err)
	}
	return nil
}
