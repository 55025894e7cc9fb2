package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"gamebay/internal/auth"
	"gamebay/internal/steam"
	"gamebay/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewStorage(filepath.Join(dir, "store.json"))
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	sessions := auth.NewSessionManager(24 * time.Hour)
	return NewHandler(store, sessions), store
}

func doJSON(t *testing.T, handler *Handler, method, target string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.Dispatch(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func adminToken(t *testing.T, handler *Handler, store *storage.Storage) string {
	t.Helper()
	user, err := store.CreateUser(storage.CreateUserParams{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if err := store.SetUserAdmin(user.ID, true); err != nil {
		t.Fatalf("SetUserAdmin error: %v", err)
	}
	token, _, err := handler.Sessions.Create(user.ID)
	if err != nil {
		t.Fatalf("session create error: %v", err)
	}
	return token
}

func TestResolveAction(t *testing.T) {
	cases := []struct {
		target string
		action string
		id     string
	}{
		{target: "/", action: "", id: ""},
		{target: "/?action=stats", action: "stats", id: ""},
		{target: "/api/stats", action: "stats", id: ""},
		{target: "/api/users/u-1", action: "users", id: "u-1"},
		{target: "/api/users?id=u-2", action: "users", id: "u-2"},
		{target: "/api/t-42", action: "", id: "t-42"},
		{target: "/t-42", action: "", id: "t-42"},
		{target: "/?action=categories&id=c-1", action: "categories", id: "c-1"},
		{target: "/api/updateWarning", action: "updateWarning", id: ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.target, nil)
		action, id := resolveAction(req)
		if action != tc.action || id != tc.id {
			t.Fatalf("resolveAction(%q) = (%q, %q), want (%q, %q)", tc.target, action, id, tc.action, tc.id)
		}
	}
}

func TestTorrentCreateListRoundTrip(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/", map[string]interface{}{
		"title":       "Foo",
		"poster":      "u",
		"downloads":   0,
		"size":        1.5,
		"category":    []string{"RPG"},
		"description": "d",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	decodeBody(t, rec, &created)
	if !created.Success || created.ID == "" {
		t.Fatalf("unexpected create response %#v", created)
	}

	rec = doJSON(t, handler, http.MethodGet, "/", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Torrents []struct {
			ID          string   `json:"id"`
			Title       string   `json:"title"`
			Size        float64  `json:"size"`
			Category    []string `json:"category"`
			SteamDeck   bool     `json:"steamDeck"`
			SteamRating *int     `json:"steamRating"`
		} `json:"torrents"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Torrents) != 1 {
		t.Fatalf("expected one torrent, got %d", len(listed.Torrents))
	}
	torrent := listed.Torrents[0]
	if torrent.ID != created.ID || torrent.Title != "Foo" || torrent.Size != 1.5 {
		t.Fatalf("round trip mismatch: %#v", torrent)
	}
	if torrent.SteamDeck || torrent.SteamRating != nil {
		t.Fatalf("defaults not applied: %#v", torrent)
	}
	if len(torrent.Category) != 1 || torrent.Category[0] != "RPG" {
		t.Fatalf("category mismatch: %#v", torrent.Category)
	}
}

func TestTorrentCreateValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/", map[string]interface{}{"title": ""}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["error"] == "" {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestTorrentListCategoryFilter(t *testing.T) {
	handler, _ := newTestHandler(t)

	for _, fixture := range []map[string]interface{}{
		{"title": "A", "category": []string{"RPG"}, "downloads": 1},
		{"title": "B", "category": []string{"action"}, "downloads": 9},
		{"title": "C", "category": []string{"RPG", "action"}, "downloads": 5},
	} {
		if rec := doJSON(t, handler, http.MethodPost, "/", fixture, ""); rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d", rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodGet, "/?category=RPG", nil, "")
	var listed struct {
		Torrents []struct {
			Title     string `json:"title"`
			Downloads int    `json:"downloads"`
		} `json:"torrents"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Torrents) != 2 {
		t.Fatalf("expected 2 RPG torrents, got %d", len(listed.Torrents))
	}
	if listed.Torrents[0].Title != "C" || listed.Torrents[1].Title != "A" {
		t.Fatalf("expected downloads-descending order, got %#v", listed.Torrents)
	}
}

func TestTorrentReplaceAndDeleteViaPath(t *testing.T) {
	handler, store := newTestHandler(t)

	created, err := store.CreateTorrent(storage.TorrentParams{Title: "Old", Downloads: 3})
	if err != nil {
		t.Fatalf("CreateTorrent error: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPut, "/api/"+created.ID, map[string]interface{}{
		"title": "New", "size": 2.5,
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status = %d body=%s", rec.Code, rec.Body.String())
	}
	replaced, ok, err := store.GetTorrent(created.ID)
	if err != nil || !ok {
		t.Fatalf("GetTorrent: ok=%v err=%v", ok, err)
	}
	if replaced.Title != "New" || replaced.Downloads != 0 {
		t.Fatalf("replace did not overwrite fields: %#v", replaced)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/"+created.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, ok, _ := store.GetTorrent(created.ID); ok {
		t.Fatal("torrent should be deleted")
	}
}

func TestUnsupportedMethodReturns405(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPatch, "/", nil, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["error"] != "Method not allowed" {
		t.Fatalf("unexpected error message %q", body["error"])
	}

	// A known action with an unsupported method also falls through to 405.
	rec = doJSON(t, handler, http.MethodDelete, "/api/stats?id=x", nil, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for DELETE stats, got %d", rec.Code)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/?action=categories", map[string]string{
		"name": "Action", "slug": "action",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category status = %d body=%s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &created)

	if rec := doJSON(t, handler, http.MethodPost, "/", map[string]interface{}{
		"title": "Game", "category": []string{"action"},
	}, ""); rec.Code != http.StatusCreated {
		t.Fatalf("create torrent status = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/categories", nil, "")
	var listed struct {
		Categories []struct {
			ID    string `json:"id"`
			Icon  string `json:"icon"`
			Count int    `json:"count"`
		} `json:"categories"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Categories) != 1 {
		t.Fatalf("expected one category, got %d", len(listed.Categories))
	}
	if listed.Categories[0].Icon != "Gamepad2" {
		t.Fatalf("expected default icon, got %q", listed.Categories[0].Icon)
	}
	if listed.Categories[0].Count != 1 {
		t.Fatalf("expected derived count 1, got %d", listed.Categories[0].Count)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/categories?id="+created.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete category status = %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/categories", nil, "")
	decodeBody(t, rec, &listed)
	if len(listed.Categories) != 0 {
		t.Fatalf("expected empty category list, got %#v", listed.Categories)
	}
}

func TestAuthRegisterIssuesOpaqueToken(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth", map[string]string{
		"action": "register", "username": "kot", "email": "kot@example.com", "password": "secret",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", rec.Code, rec.Body.String())
	}
	var registered authResponse
	decodeBody(t, rec, &registered)
	if !registered.Success || registered.Token == "" {
		t.Fatalf("unexpected register response %#v", registered)
	}
	if len(registered.Token) != 64 {
		t.Fatalf("expected opaque 64-char token, got %q", registered.Token)
	}
	if registered.User.Email != "kot@example.com" || registered.User.IsAdmin {
		t.Fatalf("unexpected user payload %#v", registered.User)
	}
	if registered.ExpiresAt.Before(time.Now()) {
		t.Fatalf("token already expired: %v", registered.ExpiresAt)
	}
	// The hash must never appear anywhere in the response body.
	if bytes.Contains(rec.Body.Bytes(), []byte("passwordHash")) {
		t.Fatalf("response leaks password hash: %s", rec.Body.String())
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	for _, body := range []map[string]string{
		{"action": "register", "email": "a@b.c", "password": "x"},
		{"action": "register", "username": "a", "password": "x"},
		{"action": "register", "username": "a", "email": "a@b.c"},
	} {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth", body, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, rec.Code)
		}
	}

	first := map[string]string{"action": "register", "username": "kot", "email": "kot@example.com", "password": "x"}
	if rec := doJSON(t, handler, http.MethodPost, "/api/auth", first, ""); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rec.Code)
	}
	duplicate := map[string]string{"action": "register", "username": "other", "email": "kot@example.com", "password": "x"}
	if rec := doJSON(t, handler, http.MethodPost, "/api/auth", duplicate, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email register status = %d", rec.Code)
	}
	sameName := map[string]string{"action": "register", "username": "kot", "email": "kot2@example.com", "password": "x"}
	if rec := doJSON(t, handler, http.MethodPost, "/api/auth", sameName, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate username register status = %d", rec.Code)
	}
}

func TestAuthLoginFailureIsGeneric(t *testing.T) {
	handler, _ := newTestHandler(t)

	register := map[string]string{"action": "register", "username": "kot", "email": "kot@example.com", "password": "secret"}
	if rec := doJSON(t, handler, http.MethodPost, "/api/auth", register, ""); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	wrongPassword := doJSON(t, handler, http.MethodPost, "/api/auth", map[string]string{
		"email": "kot@example.com", "password": "wrong",
	}, "")
	unknownEmail := doJSON(t, handler, http.MethodPost, "/api/auth", map[string]string{
		"email": "nobody@example.com", "password": "secret",
	}, "")
	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("login failures must be indistinguishable: %q vs %q",
			wrongPassword.Body.String(), unknownEmail.Body.String())
	}

	success := doJSON(t, handler, http.MethodPost, "/api/auth", map[string]string{
		"email": "kot@example.com", "password": "secret",
	}, "")
	if success.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", success.Code, success.Body.String())
	}
}

func TestUsersEndpointsRequireAdmin(t *testing.T) {
	handler, store := newTestHandler(t)

	if rec := doJSON(t, handler, http.MethodGet, "/api/users", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list users status = %d", rec.Code)
	}

	// A valid session for a non-admin user is still rejected.
	user, err := store.CreateUser(storage.CreateUserParams{Username: "pleb", Email: "pleb@example.com", Password: "x"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	token, _, err := handler.Sessions.Create(user.ID)
	if err != nil {
		t.Fatalf("session create error: %v", err)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/users", nil, token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-admin list users status = %d", rec.Code)
	}

	admin := adminToken(t, handler, store)
	rec := doJSON(t, handler, http.MethodGet, "/api/users", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list users status = %d body=%s", rec.Code, rec.Body.String())
	}
	var listed struct {
		Users []userResponse `json:"users"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(listed.Users))
	}
}

func TestUpdateAndDeleteUserAsAdmin(t *testing.T) {
	handler, store := newTestHandler(t)
	admin := adminToken(t, handler, store)

	target, err := store.CreateUser(storage.CreateUserParams{Username: "kot", Email: "kot@example.com", Password: "x"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPut, "/api/users?id="+target.ID, map[string]bool{"isAdmin": true}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("promote status = %d body=%s", rec.Code, rec.Body.String())
	}
	promoted, ok, _ := store.GetUser(target.ID)
	if !ok || !promoted.IsAdmin {
		t.Fatalf("user not promoted: %#v", promoted)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/users/"+target.ID, nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d body=%s", rec.Code, rec.Body.String())
	}
	if _, ok, _ := store.GetUser(target.ID); ok {
		t.Fatal("user should be deleted")
	}
}

func TestAdminCannotDeleteOwnAccount(t *testing.T) {
	handler, store := newTestHandler(t)
	admin := adminToken(t, handler, store)

	users, err := store.ListUsers()
	if err != nil || len(users) != 1 {
		t.Fatalf("ListUsers: %v %d", err, len(users))
	}
	rec := doJSON(t, handler, http.MethodDelete, "/api/users/"+users[0].ID, nil, admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self delete status = %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	handler, store := newTestHandler(t)

	if _, err := store.CreateTorrent(storage.TorrentParams{Title: "Game"}); err != nil {
		t.Fatalf("CreateTorrent error: %v", err)
	}
	if _, err := store.CreateUser(storage.CreateUserParams{Username: "kot", Email: "kot@example.com", Password: "x"}); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/stats", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats struct {
		Games    int `json:"games"`
		Users    int `json:"users"`
		Comments int `json:"comments"`
	}
	decodeBody(t, rec, &stats)
	if stats.Games != 1 || stats.Users != 1 || stats.Comments != 0 {
		t.Fatalf("unexpected stats %#v", stats)
	}
}

func TestSeedEndpointIsOneShot(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/migrate", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("seed status = %d body=%s", rec.Code, rec.Body.String())
	}
	var seeded struct {
		Success bool `json:"success"`
		Seeded  struct {
			Categories int `json:"categories"`
			Users      int `json:"users"`
			Torrents   int `json:"torrents"`
		} `json:"seeded"`
	}
	decodeBody(t, rec, &seeded)
	if !seeded.Success || seeded.Seeded.Categories != 3 || seeded.Seeded.Users != 1 || seeded.Seeded.Torrents != 1 {
		t.Fatalf("unexpected seed response %s", rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/migrate", nil, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second seed status = %d", rec.Code)
	}
}

func TestWarningLifecycle(t *testing.T) {
	handler, store := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/warning", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("warning status = %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["warning"] != "" {
		t.Fatalf("expected empty warning, got %q", body["warning"])
	}

	// Anonymous updates are rejected.
	rec = doJSON(t, handler, http.MethodPost, "/api/updateWarning", map[string]string{"warning": "down"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous update warning status = %d", rec.Code)
	}

	admin := adminToken(t, handler, store)
	rec = doJSON(t, handler, http.MethodPost, "/api/updateWarning", map[string]string{"warning": "maintenance"}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("update warning status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/warning", nil, "")
	decodeBody(t, rec, &body)
	if body["warning"] != "maintenance" {
		t.Fatalf("unexpected warning %q", body["warning"])
	}
}

func TestSteamLookupEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"730": {"success": true, "data": {"name": "Counter-Strike 2", "is_free": true}}}`))
	}))
	defer upstream.Close()

	handler, _ := newTestHandler(t)
	handler.Steam = steam.NewClient(steam.WithBaseURL(upstream.URL))

	rec := doJSON(t, handler, http.MethodGet, "/api/steam?url=https://store.steampowered.com/app/730/CS2/", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("steam status = %d body=%s", rec.Code, rec.Body.String())
	}
	var details struct {
		AppID    string `json:"appId"`
		Name     string `json:"name"`
		SteamURL string `json:"steamUrl"`
	}
	decodeBody(t, rec, &details)
	if details.AppID != "730" || details.Name != "Counter-Strike 2" {
		t.Fatalf("unexpected details %#v", details)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/steam?url=not-a-url", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid input status = %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/steam", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing input status = %d", rec.Code)
	}
}
