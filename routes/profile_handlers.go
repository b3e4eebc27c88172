// routes/profile_handlers.go
package routes

import (
	"net/http"

	"github.com/LilVoxy/campus_lostfound/realtime"
)

// ProfileRequest изменяемые поля профиля; отсутствующие поля не меняются
type ProfileRequest struct {
	FullName    *string `json:"fullName"`
	AvatarURL   *string `json:"avatarUrl"`
	PhoneNumber *string `json:"phoneNumber"`
}

// GetProfileHandler возвращает профиль текущего пользователя,
// создавая его при первом обращении
func (api *API) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	profile, err := api.store.EnsureProfile(r.Context(), viewer, r.Header.Get("X-User-Email"))
	if err != nil {
		writeError(w, api.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ProfileItemsHandler возвращает все объявления текущего пользователя,
// включая закрытые
func (api *API) ProfileItemsHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	items, err := api.store.ListUserItems(r.Context(), viewer)
	if err != nil {
		writeError(w, api.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// UpdateProfileHandler меняет имя, аватар и телефон
func (api *API) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := ViewerFromRequest(r)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	var req ProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, api.log, err)
		return
	}

	ctx := r.Context()
	if _, err := api.store.EnsureProfile(ctx, viewer, r.Header.Get("X-User-Email")); err != nil {
		writeError(w, api.log, err)
		return
	}

	if req.FullName != nil {
		if err := api.store.UpdateFullName(ctx, viewer, *req.FullName); err != nil {
			writeError(w, api.log, err)
			return
		}
	}
	if req.AvatarURL != nil {
		if err := api.store.UpdateAvatarURL(ctx, viewer, *req.AvatarURL); err != nil {
			writeError(w, api.log, err)
			return
		}
	}
	if req.PhoneNumber != nil {
		if err := api.store.UpdatePhoneNumber(ctx, viewer, *req.PhoneNumber); err != nil {
			writeError(w, api.log, err)
			return
		}
	}

	profile, err := api.store.GetProfile(ctx, viewer)
	if err != nil {
		writeError(w, api.log, err)
		return
	}

	api.publish(realtime.TableProfiles, realtime.Update, map[string]string{"id": viewer})
	writeJSON(w, http.StatusOK, profile)
}
