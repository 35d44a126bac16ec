package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/navicore/navicore-music/internal/database"
	"github.com/navicore/navicore-music/internal/media"
)

// Watcher monitors a local drop directory and ingests audio files placed in
// it: probe metadata, push the bytes to object storage, create the catalog
// row, then delete the local file. The drop directory is a conveyor, not a
// library; object storage holds the canonical copy.
type Watcher struct {
	store     database.Store
	gateway   *media.Gateway
	extractor *Extractor
	logger    *logrus.Logger
	dropDir   string
	watcher   *fsnotify.Watcher
}

// NewWatcher creates a drop-directory watcher.
func NewWatcher(store database.Store, gateway *media.Gateway, extractor *Extractor, dropDir string, logger *logrus.Logger) *Watcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Watcher{
		store:     store,
		gateway:   gateway,
		extractor: extractor,
		logger:    logger,
		dropDir:   dropDir,
	}
}

// Start initializes fsnotify monitoring of the drop directory tree.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dropDir, 0755); err != nil {
		return fmt.Errorf("failed to create drop directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	// Start monitoring in a goroutine
	go w.watchFiles()

	// Add the drop directory tree to the watcher
	if err := w.addDirectoryToWatcher(w.dropDir); err != nil {
		return err
	}

	w.logger.WithField("drop_dir", w.dropDir).Info("Ingest watcher started")
	return nil
}

// ScanOnce walks the drop directory and ingests any audio files already
// present. Called at startup before the watcher takes over.
func (w *Watcher) ScanOnce(ctx context.Context) error {
	return filepath.Walk(w.dropDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !w.extractor.IsAudioFile(path) {
			return nil
		}
		if err := w.ingestFile(ctx, path); err != nil {
			w.logger.WithError(err).WithField("file_path", path).Error("Failed to ingest file during startup scan")
		}
		return nil
	})
}

// addDirectoryToWatcher recursively walks and adds subdirectories to watcher.
func (w *Watcher) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (w *Watcher) watchFiles() {
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Ingest watcher error")
		}
	}
}

// handleFileEvent applies filtering & delegates ingestion.
func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	switch {
	case event.Has(fsnotify.Create) && w.extractor.IsAudioFile(event.Name):
		// Dispatch new file processing asynchronously
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // Ensure file is fully written
			if err := w.ingestFile(context.Background(), name); err != nil {
				w.logger.WithError(err).WithField("file_path", name).Error("Failed to ingest dropped file")
			}
		}(event.Name)

	case event.Has(fsnotify.Create):
		// Check if it's a new directory
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
			w.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// ingestFile moves one audio file into the catalog: extract, upload, create
// the track row, then remove the local copy. The local file is only deleted
// once the row exists, so a crash mid-ingest leaves the file for a rescan.
func (w *Watcher) ingestFile(ctx context.Context, filePath string) error {
	w.logger.WithField("file_path", filePath).Info("New audio file detected")

	params, err := w.extractor.ExtractFromFile(filePath)
	if err != nil {
		return fmt.Errorf("extract metadata: %w", err)
	}
	params.FilePath = ObjectKey(params.Artist, params.Album, params.Title, filepath.Ext(filePath))

	body, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}

	if err := w.gateway.Upload(ctx, params.FilePath, ContentType(filePath), body); err != nil {
		return fmt.Errorf("upload to object storage: %w", err)
	}

	track, err := w.store.CreateTrack(params)
	if err != nil {
		return fmt.Errorf("create track: %w", err)
	}

	if err := os.Remove(filePath); err != nil {
		w.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to remove ingested file")
	}

	w.logger.WithFields(logrus.Fields{
		"artist": track.Artist,
		"title":  track.Title,
		"album":  track.Album,
		"id":     track.ID,
	}).Info("Added new track")
	return nil
}

// Stop closes the watcher (idempotent).
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}

// ObjectKey builds the storage key for a track: artist/album/title.ext with
// path-hostile characters stripped from each segment.
func ObjectKey(artist, album, title, ext string) string {
	return sanitizeSegment(artist) + "/" + sanitizeSegment(album) + "/" + sanitizeSegment(title) + strings.ToLower(ext)
}

func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '/', '\\', 0:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "unknown"
	}
	return out
}
