// routes/contact_handlers.go
package routes

import (
	"net/http"

	"github.com/LilVoxy/campus_lostfound/contacts"
	"github.com/LilVoxy/campus_lostfound/realtime"
)

// ContactsResponse структура ответа API для списка контактов
type ContactsResponse struct {
	Contacts []contacts.Row `json:"contacts"`
}

// ContactAttemptRequest тело запроса на связь с автором объявления
type ContactAttemptRequest struct {
	ItemID string          `json:"itemId"`
	Method contacts.Method `json:"method"`
}

// GetContactsHandler выполняет один проход загрузки списка контактов.
// Параметр tz задает часовой пояс для меток времени.
func (api *API) GetContactsHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	previews, err := api.loader.Load(r.Context(), viewer)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	loc := contacts.ParseLocation(r.URL.Query().Get("tz"))
	writeJSON(w, http.StatusOK, ContactsResponse{
		Contacts: contacts.Present(previews, api.now().In(loc)),
	})
}

// CreateContactAttemptHandler записывает попытку связи и публикует ее в ленту
func (api *API) CreateContactAttemptHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	var req ContactAttemptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, api.log, err)
		return
	}

	if _, err := api.store.EnsureProfile(r.Context(), viewer, r.Header.Get("X-User-Email")); err != nil {
		writeError(w, api.log, err)
		return
	}

	attempt, err := api.store.CreateContactAttempt(r.Context(), viewer, req.ItemID, req.Method)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	api.publish(realtime.TableContactAttempts, realtime.Insert, map[string]string{
		"id":             attempt.ID,
		"contacted_by":   attempt.ContactedBy,
		"posted_user_id": attempt.PostedUserID,
		"item_id":        req.ItemID,
		"contact_method": attempt.Method,
	})
	writeJSON(w, http.StatusCreated, attempt)
}
