package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navicore/navicore-music/internal/auth"
	"github.com/navicore/navicore-music/internal/config"
	"github.com/navicore/navicore-music/internal/database"
	"github.com/navicore/navicore-music/internal/media"
	"github.com/navicore/navicore-music/internal/storage"
	"github.com/navicore/navicore-music/pkg/models"
)

// fakeObjects is an in-memory storage.Client for handler tests.
type fakeObjects struct {
	uploaded map[string][]byte
	deleted  []string
}

func (f *fakeObjects) Enabled() bool { return true }

func (f *fakeObjects) PresignGet(key string, expiry time.Duration) (string, error) {
	return "https://storage.example.com/bucket/" + key + "?sig=abc", nil
}

func (f *fakeObjects) Upload(_ context.Context, key, _ string, body []byte) error {
	if f.uploaded == nil {
		f.uploaded = make(map[string][]byte)
	}
	f.uploaded[key] = body
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) Exists(context.Context, string) (bool, error) { return false, nil }

var _ storage.Client = (*fakeObjects)(nil)

type testHarness struct {
	server  *Server
	handler http.Handler
	db      *database.Database
	objects *fakeObjects
}

func newTestServer(t *testing.T) *testHarness {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("NewDatabase() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	cfg := config.DefaultConfig()
	objects := &fakeObjects{}
	gateway := media.NewGateway(db, objects, time.Hour, logger)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	srv := NewServer(cfg, db, gateway, objects, tokens, logger)
	return &testHarness{
		server:  srv,
		handler: srv.Handler(),
		db:      db,
		objects: objects,
	}
}

func (h *testHarness) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v (body: %s)", err, rec.Body.String())
	}
}

func createTestTrack(t *testing.T, h *testHarness, title, artist, album string) models.Track {
	t.Helper()

	rec := h.request(t, http.MethodPost, "/api/tracks", models.CreateTrack{
		Title:    title,
		Artist:   artist,
		Album:    album,
		Duration: 200,
		FilePath: artist + "/" + album + "/" + title + ".flac",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create track status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var track models.Track
	decodeBody(t, rec, &track)
	return track
}

func createTestPlaylist(t *testing.T, h *testHarness, name string) models.Playlist {
	t.Helper()

	rec := h.request(t, http.MethodPost, "/api/playlists", models.CreatePlaylist{Name: name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create playlist status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var playlist models.Playlist
	decodeBody(t, rec, &playlist)
	return playlist
}

func TestTrackCRUD(t *testing.T) {
	h := newTestServer(t)

	created := createTestTrack(t, h, "So What", "Miles Davis", "Kind of Blue")
	if created.ID == "" {
		t.Fatal("created track has empty id")
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Error("created track timestamps differ")
	}

	// Read it back
	rec := h.request(t, http.MethodGet, "/api/tracks/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get track status = %d", rec.Code)
	}
	var got models.Track
	decodeBody(t, rec, &got)
	if got.Title != "So What" {
		t.Errorf("title = %q, want So What", got.Title)
	}

	// List envelope
	rec = h.request(t, http.MethodGet, "/api/tracks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list tracks status = %d", rec.Code)
	}
	var list trackListResponse
	decodeBody(t, rec, &list)
	if list.Count != 1 || len(list.Tracks) != 1 {
		t.Errorf("list = %d tracks count %d, want 1/1", len(list.Tracks), list.Count)
	}

	// Delete and confirm gone
	rec = h.request(t, http.MethodDelete, "/api/tracks/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete track status = %d", rec.Code)
	}
	rec = h.request(t, http.MethodGet, "/api/tracks/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted track status = %d, want 404", rec.Code)
	}
	rec = h.request(t, http.MethodDelete, "/api/tracks/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func TestTrackValidationErrors(t *testing.T) {
	h := newTestServer(t)

	// Missing required fields
	rec := h.request(t, http.MethodPost, "/api/tracks", models.CreateTrack{Title: "Orphan"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create invalid track status = %d, want 400", rec.Code)
	}

	// Malformed id in path
	rec = h.request(t, http.MethodGet, "/api/tracks/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("get with bad id status = %d, want 400", rec.Code)
	}
}

func TestTrackSearch(t *testing.T) {
	h := newTestServer(t)

	createTestTrack(t, h, "So What", "Miles Davis", "Kind of Blue")
	createTestTrack(t, h, "Naima", "John Coltrane", "Giant Steps")

	rec := h.request(t, http.MethodGet, "/api/tracks?q=coltrane", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	var list trackListResponse
	decodeBody(t, rec, &list)
	if list.Count != 1 {
		t.Errorf("search count = %d, want 1", list.Count)
	}
	if list.Count > 0 && list.Tracks[0].Artist != "John Coltrane" {
		t.Errorf("search result artist = %q", list.Tracks[0].Artist)
	}

	// No match yields an empty list, not an error
	rec = h.request(t, http.MethodGet, "/api/tracks?q=zeppelin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty search status = %d", rec.Code)
	}
	decodeBody(t, rec, &list)
	if list.Count != 0 || list.Tracks == nil {
		t.Errorf("empty search = %+v, want empty non-nil list", list)
	}
}

func TestStreamEndpoint(t *testing.T) {
	h := newTestServer(t)
	track := createTestTrack(t, h, "So What", "Miles Davis", "Kind of Blue")

	rec := h.request(t, http.MethodGet, "/api/tracks/"+track.ID+"/stream", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stream status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var streamURL models.StreamURL
	decodeBody(t, rec, &streamURL)
	if !strings.Contains(streamURL.URL, track.FilePath) {
		t.Errorf("stream url = %q, want it to reference %q", streamURL.URL, track.FilePath)
	}
	if streamURL.ExpiresIn != int(time.Hour.Seconds()) {
		t.Errorf("expires_in = %d, want %d", streamURL.ExpiresIn, int(time.Hour.Seconds()))
	}

	// Unknown track
	rec = h.request(t, http.MethodGet, "/api/tracks/7cb33e06-b9ab-44a8-9b3f-000000000000/stream", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("stream unknown track status = %d, want 404", rec.Code)
	}
}

func TestRecordPlayEndpoint(t *testing.T) {
	h := newTestServer(t)
	track := createTestTrack(t, h, "So What", "Miles Davis", "Kind of Blue")

	// Empty body records an anonymous play
	rec := h.request(t, http.MethodPost, "/api/tracks/"+track.ID+"/play", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record play status = %d, body: %s", rec.Code, rec.Body.String())
	}

	// With a duration
	rec = h.request(t, http.MethodPost, "/api/tracks/"+track.ID+"/play", map[string]int{"play_duration": 95})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record play with duration status = %d", rec.Code)
	}

	count, err := h.db.CountPlays(track.ID)
	if err != nil {
		t.Fatalf("CountPlays() error: %v", err)
	}
	if count != 2 {
		t.Errorf("play count = %d, want 2", count)
	}

	// Unknown track
	rec = h.request(t, http.MethodPost, "/api/tracks/7cb33e06-b9ab-44a8-9b3f-000000000000/play", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("record play unknown track status = %d, want 404", rec.Code)
	}

	// Unknown user on an existing track is rejected, and the error says so
	// instead of blaming the track
	rec = h.request(t, http.MethodPost, "/api/tracks/"+track.ID+"/play",
		map[string]string{"user_id": "7cb33e06-b9ab-44a8-9b3f-000000000001"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("record play unknown user status = %d, want 404", rec.Code)
	}
	var errBody map[string]interface{}
	decodeBody(t, rec, &errBody)
	if errBody["error"] != "User not found" {
		t.Errorf("record play unknown user error = %q, want %q", errBody["error"], "User not found")
	}
}

func TestPlaylistEndpoints(t *testing.T) {
	h := newTestServer(t)

	playlist := createTestPlaylist(t, h, "Late Night")
	first := createTestTrack(t, h, "First", "A Artist", "X")
	second := createTestTrack(t, h, "Second", "B Artist", "Y")

	// Append both, then verify order in the detail payload
	for _, tr := range []models.Track{first, second} {
		rec := h.request(t, http.MethodPost, "/api/playlists/"+playlist.ID+"/tracks", map[string]string{"track_id": tr.ID})
		if rec.Code != http.StatusCreated {
			t.Fatalf("add track status = %d, body: %s", rec.Code, rec.Body.String())
		}
	}

	rec := h.request(t, http.MethodGet, "/api/playlists/"+playlist.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get playlist status = %d", rec.Code)
	}
	var detail playlistDetailResponse
	decodeBody(t, rec, &detail)
	if detail.Playlist.TrackCount != 2 {
		t.Errorf("track_count = %d, want 2", detail.Playlist.TrackCount)
	}
	if len(detail.Tracks) != 2 || detail.Tracks[0].Title != "First" || detail.Tracks[1].Title != "Second" {
		t.Errorf("detail tracks out of order: %+v", detail.Tracks)
	}

	// Duplicate membership is a conflict
	rec = h.request(t, http.MethodPost, "/api/playlists/"+playlist.ID+"/tracks", map[string]string{"track_id": first.ID})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate add status = %d, want 409", rec.Code)
	}

	// Remove, then removing again is 404
	rec = h.request(t, http.MethodDelete, "/api/playlists/"+playlist.ID+"/tracks/"+first.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove track status = %d", rec.Code)
	}
	rec = h.request(t, http.MethodDelete, "/api/playlists/"+playlist.ID+"/tracks/"+first.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double remove status = %d, want 404", rec.Code)
	}

	// Delete the playlist; tracks survive
	rec = h.request(t, http.MethodDelete, "/api/playlists/"+playlist.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete playlist status = %d", rec.Code)
	}
	rec = h.request(t, http.MethodGet, "/api/tracks/"+second.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("track gone after playlist delete, status = %d", rec.Code)
	}
}

func TestAddTrackToUnknownPlaylist(t *testing.T) {
	h := newTestServer(t)
	track := createTestTrack(t, h, "Only", "A", "X")

	rec := h.request(t, http.MethodPost, "/api/playlists/7cb33e06-b9ab-44a8-9b3f-000000000000/tracks", map[string]string{"track_id": track.ID})
	if rec.Code != http.StatusNotFound {
		t.Errorf("add to unknown playlist status = %d, want 404", rec.Code)
	}
}

func TestLoginStub(t *testing.T) {
	h := newTestServer(t)

	rec := h.request(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "whoever", "password": "anything"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}

	var resp struct {
		Token     string `json:"token"`
		UserID    string `json:"user_id"`
		ExpiresIn int    `json:"expires_in"`
	}
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Error("login returned empty token")
	}
	if resp.UserID != auth.StubSubject {
		t.Errorf("login user_id = %q, want %q", resp.UserID, auth.StubSubject)
	}
	if resp.ExpiresIn != int(time.Hour.Seconds()) {
		t.Errorf("login expires_in = %d", resp.ExpiresIn)
	}

	rec = h.request(t, http.MethodGet, "/api/auth/login", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET login status = %d, want 405", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := h.request(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}

	var health HealthStatus
	decodeBody(t, rec, &health)
	if health.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", health.Status)
	}
	if health.Database != "ok" {
		t.Errorf("health database = %q, want ok", health.Database)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t)
	track := createTestTrack(t, h, "Only", "A", "X")

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/tracks"},
		{http.MethodPost, fmt.Sprintf("/api/tracks/%s/stream", track.ID)},
		{http.MethodGet, fmt.Sprintf("/api/tracks/%s/play", track.ID)},
		{http.MethodPut, "/api/playlists"},
	}

	for _, tt := range tests {
		rec := h.request(t, tt.method, tt.path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 405", tt.method, tt.path, rec.Code)
		}
	}
}
