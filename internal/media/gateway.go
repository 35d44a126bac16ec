// Package media bridges catalog entries and object storage: it mints
// time-limited streaming URLs for stored file references and records
// playback events. It owns no persisted state of its own.
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navicore/navicore-music/internal/database"
	"github.com/navicore/navicore-music/internal/storage"
	"github.com/navicore/navicore-music/pkg/models"
)

// Gateway resolves track ids to presigned media URLs. Both dependencies are
// injected so tests can substitute fakes.
type Gateway struct {
	store   database.Store
	objects storage.Client
	urlTTL  time.Duration
	logger  *logrus.Logger
}

// NewGateway builds a gateway whose URLs are valid for urlTTL.
func NewGateway(store database.Store, objects storage.Client, urlTTL time.Duration, logger *logrus.Logger) *Gateway {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Gateway{
		store:   store,
		objects: objects,
		urlTTL:  urlTTL,
		logger:  logger,
	}
}

// StreamURL looks up the track and mints a fresh presigned GET URL for its
// file reference. A missing track surfaces as database.ErrNotFound; URLs are
// never cached across calls.
func (g *Gateway) StreamURL(ctx context.Context, trackID string) (models.StreamURL, error) {
	track, err := g.store.GetTrackByID(trackID)
	if err != nil {
		return models.StreamURL{}, err
	}

	url, err := g.objects.PresignGet(track.FilePath, g.urlTTL)
	if err != nil {
		g.logger.WithError(err).WithField("track_id", trackID).Error("Failed to presign stream URL")
		return models.StreamURL{}, fmt.Errorf("generate stream url: %w", err)
	}

	return models.StreamURL{
		URL:       url,
		ExpiresIn: int(g.urlTTL.Seconds()),
	}, nil
}

// RecordPlay appends a playback event for the track. User id and observed
// duration are optional; anonymous plays are allowed.
func (g *Gateway) RecordPlay(ctx context.Context, trackID string, userID *string, playDuration *int) error {
	return g.store.RecordPlay(trackID, userID, playDuration)
}

// Upload writes media bytes under key. Used by the admin ingestion path.
func (g *Gateway) Upload(ctx context.Context, key, contentType string, body []byte) error {
	return g.objects.Upload(ctx, key, contentType, body)
}

// Remove deletes the object stored under key.
func (g *Gateway) Remove(ctx context.Context, key string) error {
	return g.objects.Delete(ctx, key)
}

// Exists reports whether an object is present under key. The public contract
// is boolean, but a failed check is logged before being flattened to false so
// transient faults stay distinguishable from truly absent objects internally.
func (g *Gateway) Exists(ctx context.Context, key string) bool {
	present, err := g.objects.Exists(ctx, key)
	if err != nil {
		g.logger.WithError(err).WithField("key", key).Warn("Object existence check failed; reporting absent")
		return false
	}
	return present
}
