package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/campus_lostfound/config"
	"github.com/LilVoxy/campus_lostfound/contacts"
	"github.com/LilVoxy/campus_lostfound/database"
	"github.com/LilVoxy/campus_lostfound/realtime"
)

type recordingFeed struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (f *recordingFeed) Publish(ev realtime.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *recordingFeed) last() realtime.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return realtime.Event{}
	}
	return f.events[len(f.events)-1]
}

type testServer struct {
	router *mux.Router
	feed   *recordingFeed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store, err := database.Open(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "api.db"),
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	feed := &recordingFeed{}
	router := mux.NewRouter()
	SetupRoutes(router, NewAPI(store, feed, log), nil, []string{"https://campus.app"})
	return &testServer{router: router, feed: feed}
}

func (s *testServer) do(t *testing.T, method, path, viewer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if viewer != "" {
		req.Header.Set("X-User-Id", viewer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createItem(t *testing.T, owner, title string) database.Item {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/items", owner, ItemRequest{
		Title:       title,
		Description: "found in room 204",
		Type:        database.ItemFound,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[database.Item](t, rec)
}

func TestContactsRequireViewer(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/contacts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.True(t, resp.SignIn)

	rec = s.do(t, http.MethodGet, "/api/contacts", "not-a-uuid", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContactsEmpty(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/contacts?user_id="+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"contacts":[]}`, rec.Body.String())
}

func TestContactFlow(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.NewString()
	finder := uuid.NewString()

	item := s.createItem(t, owner, "Student card")
	ev := s.feed.last()
	assert.Equal(t, realtime.TableItems, ev.Table)
	assert.Equal(t, realtime.Insert, ev.Type)

	rec := s.do(t, http.MethodPut, "/api/profile", finder, ProfileRequest{FullName: strPtr("bob finder")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/contact-attempts", finder, ContactAttemptRequest{ItemID: item.ID, Method: contacts.MethodEmail})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	attempt := decode[database.ContactAttempt](t, rec)
	assert.Equal(t, owner, attempt.PostedUserID)

	ev = s.feed.last()
	assert.Equal(t, realtime.TableContactAttempts, ev.Table)
	assert.True(t, contacts.ContactFilter(owner).Matches(ev))
	assert.True(t, contacts.ContactFilter(finder).Matches(ev))

	rec = s.do(t, http.MethodGet, "/api/contacts", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ownerView := decode[ContactsResponse](t, rec)
	require.Len(t, ownerView.Contacts, 1)
	assert.Equal(t, finder, ownerView.Contacts[0].UserID)
	assert.Equal(t, "bob finder", ownerView.Contacts[0].FullName)
	assert.Equal(t, "B", ownerView.Contacts[0].Initial)

	rec = s.do(t, http.MethodGet, "/api/contacts?tz=Europe/Moscow", finder, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	finderView := decode[ContactsResponse](t, rec)
	require.Len(t, finderView.Contacts, 1)
	assert.Equal(t, owner, finderView.Contacts[0].UserID)
	assert.Equal(t, contacts.DefaultFullName, finderView.Contacts[0].FullName)
	assert.Equal(t, contacts.DefaultEmail, finderView.Contacts[0].Email)

	rec = s.do(t, http.MethodGet, "/api/items/"+item.ID+"/contacts", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/items/"+item.ID+"/contacts", finder, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContactAttemptErrors(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.NewString()
	item := s.createItem(t, owner, "Headphones")

	rec := s.do(t, http.MethodPost, "/api/contact-attempts", owner, ContactAttemptRequest{ItemID: item.ID, Method: contacts.MethodPhone})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/contact-attempts", uuid.NewString(), ContactAttemptRequest{ItemID: item.ID, Method: "fax"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/contact-attempts", uuid.NewString(), ContactAttemptRequest{ItemID: uuid.NewString(), Method: contacts.MethodSMS})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/contact-attempts", uuid.NewString(), "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.NewString()
	stranger := uuid.NewString()

	item := s.createItem(t, owner, "Green scarf")
	s.createItem(t, stranger, "Calculator")

	rec := s.do(t, http.MethodGet, "/api/items/"+item.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ItemResponse](t, rec)
	assert.Equal(t, "Green scarf", got.Item.Title)
	require.NotNil(t, got.Owner)
	assert.Equal(t, owner, got.Owner.ID)

	rec = s.do(t, http.MethodGet, "/api/items/search?q=SCARF&type=found", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ItemsResponse](t, rec).Items, 1)

	rec = s.do(t, http.MethodGet, "/api/items/search?mine=true", stranger, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[ItemsResponse](t, rec).Items
	require.Len(t, mine, 1)
	assert.Equal(t, "Calculator", mine[0].Title)

	rec = s.do(t, http.MethodGet, "/api/items/search?type=stolen", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/items/"+item.ID, stranger, ItemRequest{Title: "x", Description: "y"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/items/"+item.ID, owner, ItemRequest{Title: "Dark green scarf", Description: "wool", ImageURL: strPtr("https://cdn/scarf.jpg")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[database.Item](t, rec)
	require.NotNil(t, updated.ImageURL)
	assert.Equal(t, realtime.Update, s.feed.last().Type)

	rec = s.do(t, http.MethodPost, "/api/items/"+item.ID+"/feedback", stranger, FeedbackRequest{Rating: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/items/"+item.ID+"/feedback", stranger, FeedbackRequest{HelperName: "Ann", Rating: 5, Experience: "Quick"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/items/"+item.ID+"/feedback", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]database.Feedback](t, rec)["feedback"], 1)

	rec = s.do(t, http.MethodPost, "/api/items/"+item.ID+"/resolve", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, database.StatusResolved, decode[database.Item](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/items", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ItemsResponse](t, rec).Items, 1)

	// закрытое объявление остается в списке автора
	rec = s.do(t, http.MethodGet, "/api/profile/items", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ownItems := decode[ItemsResponse](t, rec).Items
	require.Len(t, ownItems, 1)
	assert.Equal(t, item.ID, ownItems[0].ID)
	assert.Equal(t, database.StatusResolved, ownItems[0].Status)

	rec = s.do(t, http.MethodGet, "/api/profile/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/items/"+item.ID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/items/"+item.ID, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, realtime.Delete, s.feed.last().Type)

	rec = s.do(t, http.MethodGet, "/api/items/"+item.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileGetOrCreate(t *testing.T) {
	s := newTestServer(t)
	viewer := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("X-User-Id", viewer)
	req.Header.Set("X-User-Email", "me@campus.edu")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[database.Profile](t, rec)
	assert.Equal(t, viewer, profile.ID)
	require.NotNil(t, profile.Email)
	assert.Equal(t, "me@campus.edu", *profile.Email)
	assert.Nil(t, profile.FullName)

	rec = s.do(t, http.MethodPut, "/api/profile", viewer, ProfileRequest{AvatarURL: strPtr("https://cdn/me.png"), PhoneNumber: strPtr("+100")})
	require.Equal(t, http.StatusOK, rec.Code)
	profile = decode[database.Profile](t, rec)
	assert.Equal(t, "https://cdn/me.png", *profile.AvatarURL)
	assert.Equal(t, "+100", *profile.PhoneNumber)
	assert.Equal(t, realtime.TableProfiles, s.feed.last().Table)
}

func TestHealthAndCORS(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodOptions, "/api/contacts", nil)
	req.Header.Set("Origin", "https://campus.app")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://campus.app", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/contacts", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func strPtr(s string) *string {
	return &s
}
