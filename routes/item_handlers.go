// routes/item_handlers.go
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/campus_lostfound/database"
	"github.com/LilVoxy/campus_lostfound/realtime"
)

// ItemsResponse структура ответа API для списка объявлений
type ItemsResponse struct {
	Items []database.Item `json:"items"`
}

// ItemResponse объявление вместе с профилем автора
type ItemResponse struct {
	Item  database.Item     `json:"item"`
	Owner *database.Profile `json:"owner"`
}

// ItemRequest тело запроса на создание или изменение объявления
type ItemRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Type        database.ItemType `json:"type"`
	ImageURL    *string           `json:"imageUrl"`
}

// FeedbackRequest тело запроса с отзывом
type FeedbackRequest struct {
	HelperName string `json:"helperName"`
	Rating     int    `json:"rating"`
	Experience string `json:"experience"`
}

// ListItemsHandler возвращает активные объявления от новых к старым
func (api *API) ListItemsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := api.store.ListActiveItems(r.Context())
	if err != nil {
		writeError(w, api.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// SearchItemsHandler ищет объявления: q - текст, type - lost|found|all,
// mine=true - только объявления текущего пользователя
func (api *API) SearchItemsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := database.ItemQuery{Query: query.Get("q")}

	switch t := database.ItemType(query.Get("type")); {
	case t == "" || t == "all":
	case t.Valid():
		q.Type = t
	default:
		writeError(w, api.log, fmt.Errorf("%w: неизвестный тип объявления %q", database.ErrInvalid, t))
		return
	}

	if mine, _ := strconv.ParseBool(query.Get("mine")); mine {
		viewer, err := ViewerFromRequest(r)
		if err != nil {
			writeError(w, api.log, err)
			return
		}
		q.OwnerID = viewer
	}

	items, err := api.store.SearchItems(r.Context(), q)
	if err != nil {
		writeError(w, api.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// CreateItemHandler публикует новое объявление
func (api *API) CreateItemHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	var req ItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, api.log, err)
		return
	}

	profile, err := api.store.EnsureProfile(r.Context(), viewer, r.Header.Get("X-User-Email"))
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	in := database.NewItem{
		UserID:      viewer,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
	}
	if profile.Email != nil {
		in.UserEmail = *profile.Email
	}
	if req.ImageURL != nil {
		in.ImageURL = *req.ImageURL
	}

	item, err := api.store.CreateItem(r.Context(), in)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	api.publishItem(realtime.Insert, item)
	writeJSON(w, http.StatusCreated, item)
}

// GetItemHandler возвращает объявление и профиль автора
func (api *API) GetItemHandler(w http.ResponseWriter, r *http.Request) {
	item, err := api.store.GetItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	resp := ItemResponse{Item: item}
	owner, err := api.store.GetProfile(r.Context(), item.UserID)
	switch {
	case err == nil:
		resp.Owner = &owner
	case !errors.Is(err, database.ErrNotFound):
		writeError(w, api.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateItemHandler меняет название, описание и фото объявления
func (api *API) UpdateItemHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	var req ItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, api.log, err)
		return
	}

	id := mux.Vars(r)["id"]
	item, err := api.store.UpdateItem(r.Context(), id, viewer, req.Title, req.Description)
	if err != nil {
		writeError(w, api.log, err)
		return
	}
	if req.ImageURL != nil {
		if item, err = api.store.UpdateItemImage(r.Context(), id, viewer, *req.ImageURL); err != nil {
			writeError(w, api.log, err)
			return
		}
	}

	api.publishItem(realtime.Update, item)
	writeJSON(w, http.StatusOK, item)
}

// ResolveItemHandler закрывает объявление
func (api *API) ResolveItemHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	item, err := api.store.ResolveItem(r.Context(), mux.Vars(r)["id"], viewer)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	api.publishItem(realtime.Update, item)
	writeJSON(w, http.StatusOK, item)
}

// DeleteItemHandler удаляет объявление
func (api *API) DeleteItemHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	id := mux.Vars(r)["id"]
	if err := api.store.DeleteItem(r.Context(), id, viewer); err != nil {
		writeError(w, api.log, err)
		return
	}

	api.publish(realtime.TableItems, realtime.Delete, map[string]string{"id": id, "user_id": viewer})
	w.WriteHeader(http.StatusNoContent)
}

// ItemContactsHandler возвращает попытки связи по объявлению его автору
func (api *API) ItemContactsHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	attempts, err := api.store.ContactAttemptsForItem(r.Context(), mux.Vars(r)["id"], viewer)
	if err != nil {
		writeError(w, api.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contactAttempts": attempts})
}

// ListFeedbackHandler возвращает отзывы об объявлении
func (api *API) ListFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	list, err := api.store.FeedbackForItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, api.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feedback": list})
}

// CreateFeedbackHandler сохраняет отзыв об объявлении
func (api *API) CreateFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	var req FeedbackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, api.log, err)
		return
	}

	fb, err := api.store.CreateFeedback(r.Context(), database.NewFeedback{
		ItemID:     mux.Vars(r)["id"],
		UserID:     viewer,
		HelperName: req.HelperName,
		Rating:     req.Rating,
		Experience: req.Experience,
	})
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	api.publish(realtime.TableFeedback, realtime.Insert, map[string]string{"id": fb.ID, "item_id": fb.ItemID})
	writeJSON(w, http.StatusCreated, fb)
}

func (api *API) publishItem(typ realtime.EventType, item database.Item) {
	api.publish(realtime.TableItems, typ, map[string]string{
		"id":      item.ID,
		"user_id": item.UserID,
		"type":    string(item.Type),
		"status":  string(item.Status),
	})
}
