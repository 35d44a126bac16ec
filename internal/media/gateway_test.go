package media

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navicore/navicore-music/internal/database"
	"github.com/navicore/navicore-music/internal/storage"
	"github.com/navicore/navicore-music/pkg/models"
)

// fakeStore implements database.Store with canned tracks and recorded plays.
type fakeStore struct {
	database.Store

	tracks map[string]models.Track
	plays  []string
}

func (f *fakeStore) GetTrackByID(id string) (models.Track, error) {
	track, ok := f.tracks[id]
	if !ok {
		return models.Track{}, database.ErrNotFound
	}
	return track, nil
}

func (f *fakeStore) RecordPlay(trackID string, userID *string, playDuration *int) error {
	if _, ok := f.tracks[trackID]; !ok {
		return database.ErrNotFound
	}
	f.plays = append(f.plays, trackID)
	return nil
}

// fakeObjects implements storage.Client with scripted results.
type fakeObjects struct {
	presignCalls int
	presignKey   string
	presignErr   error
	existsResult bool
	existsErr    error
	uploaded     map[string][]byte
	deleted      []string
}

func (f *fakeObjects) Enabled() bool { return true }

func (f *fakeObjects) PresignGet(key string, expiry time.Duration) (string, error) {
	f.presignCalls++
	f.presignKey = key
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fmt.Sprintf("https://storage.example.com/bucket/%s?call=%d", key, f.presignCalls), nil
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

func (f *fakeObjects) Exists(context.Context, string) (bool, error) {
	return f.existsResult, f.existsErr
}

var _ storage.Client = (*fakeObjects)(nil)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func testTrack(id string) models.Track {
	return models.Track{
		ID:       id,
		Title:    "So What",
		Artist:   "Miles Davis",
		Album:    "Kind of Blue",
		FilePath: "Miles Davis/Kind of Blue/So What.flac",
	}
}

func TestStreamURL(t *testing.T) {
	store := &fakeStore{tracks: map[string]models.Track{"t1": testTrack("t1")}}
	objects := &fakeObjects{}
	gateway := NewGateway(store, objects, 90*time.Minute, testLogger())

	got, err := gateway.StreamURL(context.Background(), "t1")
	if err != nil {
		t.Fatalf("StreamURL() error: %v", err)
	}

	if objects.presignKey != "Miles Davis/Kind of Blue/So What.flac" {
		t.Errorf("presigned key = %q, want track file path", objects.presignKey)
	}
	if got.URL == "" {
		t.Error("StreamURL() returned empty url")
	}
	if got.ExpiresIn != int((90 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d, want %d", got.ExpiresIn, int((90 * time.Minute).Seconds()))
	}
}

func TestStreamURLMintsFreshURLEachCall(t *testing.T) {
	store := &fakeStore{tracks: map[string]models.Track{"t1": testTrack("t1")}}
	objects := &fakeObjects{}
	gateway := NewGateway(store, objects, time.Hour, testLogger())

	first, err := gateway.StreamURL(context.Background(), "t1")
	if err != nil {
		t.Fatalf("StreamURL() error: %v", err)
	}
	second, err := gateway.StreamURL(context.Background(), "t1")
	if err != nil {
		t.Fatalf("StreamURL() error: %v", err)
	}

	if objects.presignCalls != 2 {
		t.Errorf("presign calls = %d, want 2 (no caching)", objects.presignCalls)
	}
	if first.URL == second.URL {
		t.Error("StreamURL() returned a cached URL")
	}
}

func TestStreamURLUnknownTrack(t *testing.T) {
	store := &fakeStore{tracks: map[string]models.Track{}}
	gateway := NewGateway(store, &fakeObjects{}, time.Hour, testLogger())

	_, err := gateway.StreamURL(context.Background(), "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("StreamURL() error = %v, want ErrNotFound", err)
	}
}

func TestStreamURLPresignFailure(t *testing.T) {
	store := &fakeStore{tracks: map[string]models.Track{"t1": testTrack("t1")}}
	objects := &fakeObjects{presignErr: errors.New("boom")}
	gateway := NewGateway(store, objects, time.Hour, testLogger())

	_, err := gateway.StreamURL(context.Background(), "t1")
	if err == nil {
		t.Fatal("StreamURL() succeeded despite presign failure")
	}
	if errors.Is(err, database.ErrNotFound) {
		t.Error("presign failure must not look like a missing track")
	}
}

func TestRecordPlay(t *testing.T) {
	store := &fakeStore{tracks: map[string]models.Track{"t1": testTrack("t1")}}
	gateway := NewGateway(store, &fakeObjects{}, time.Hour, testLogger())

	if err := gateway.RecordPlay(context.Background(), "t1", nil, nil); err != nil {
		t.Fatalf("RecordPlay() error: %v", err)
	}
	if len(store.plays) != 1 || store.plays[0] != "t1" {
		t.Errorf("recorded plays = %v, want [t1]", store.plays)
	}

	if err := gateway.RecordPlay(context.Background(), "missing", nil, nil); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("RecordPlay() unknown track error = %v, want ErrNotFound", err)
	}
}

func TestExistsFlattensFailuresToFalse(t *testing.T) {
	store := &fakeStore{}

	tests := []struct {
		name    string
		objects *fakeObjects
		want    bool
	}{
		{"present", &fakeObjects{existsResult: true}, true},
		{"absent", &fakeObjects{existsResult: false}, false},
		{"check failed", &fakeObjects{existsErr: errors.New("timeout")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := NewGateway(store, tt.objects, time.Hour, testLogger())
			if got := gateway.Exists(context.Background(), "some/key"); got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}
