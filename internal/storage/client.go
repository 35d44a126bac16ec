package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 30 * time.Second

// ErrDisabled is returned by the noop client when object storage has not been
// configured. Callers treat it as an upstream failure, not a missing object.
var ErrDisabled = fmt.Errorf("object storage disabled")

// Config holds the S3-compatible endpoint settings.
type Config struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	RequestTimeout time.Duration
}

// Client is the object-storage surface the rest of the system consumes.
//
// Exists is deliberately three-way: (true, nil) when the object is present,
// (false, nil) only when the store definitively reported it absent, and
// (false, err) when the check itself failed. Callers that flatten the last
// case to false must log it first so transient faults are never mistaken for
// missing data.
type Client interface {
	Enabled() bool
	PresignGet(key string, expiry time.Duration) (string, error)
	Upload(ctx context.Context, key, contentType string, body []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type noopClient struct{}

func (noopClient) Enabled() bool { return false }

func (noopClient) PresignGet(string, time.Duration) (string, error) { return "", ErrDisabled }

func (noopClient) Upload(context.Context, string, string, []byte) error { return ErrDisabled }

func (noopClient) Delete(context.Context, string) error { return ErrDisabled }

func (noopClient) Exists(context.Context, string) (bool, error) { return false, ErrDisabled }

// NewClient builds an S3-compatible client from cfg, or a noop client when
// the bucket or endpoint is unconfigured (the development default).
func NewClient(cfg Config, logger *logrus.Logger) Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	trimmedBucket := strings.TrimSpace(cfg.Bucket)
	trimmedEndpoint := strings.TrimSpace(cfg.Endpoint)
	if trimmedBucket == "" || trimmedEndpoint == "" {
		return noopClient{}
	}

	scheme := "https"
	host := trimmedEndpoint
	if strings.Contains(trimmedEndpoint, "://") {
		if parsed, err := url.Parse(trimmedEndpoint); err == nil {
			host = parsed.Host
			if parsed.Scheme != "" {
				scheme = parsed.Scheme
			}
		}
	}
	if host == "" {
		return noopClient{}
	}

	cfg.Bucket = trimmedBucket
	return &s3Client{
		cfg:        cfg,
		endpoint:   &url.URL{Scheme: scheme, Host: host},
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

type s3Client struct {
	cfg        Config
	endpoint   *url.URL
	httpClient *http.Client
	logger     *logrus.Logger

	// injectable clock for deterministic signature tests
	now func() time.Time
}

func (c *s3Client) Enabled() bool { return true }

// PresignGet mints a SigV4 query-signed GET URL for key, valid for expiry.
// Every call produces a fresh URL; nothing is cached or reused.
func (c *s3Client) PresignGet(key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		return "", fmt.Errorf("presign expiry must be positive")
	}
	target := c.objectURL(key)
	signed, err := c.presignURL(http.MethodGet, target, expiry)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return signed, nil
}

// Upload writes body under key with an optional content type.
func (c *s3Client) Upload(ctx context.Context, key, contentType string, body []byte) error {
	target := c.objectURL(key)
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if err := c.signRequest(request, hashSHA256Hex(body)); err != nil {
		return err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("upload object %s: %w", key, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		c.logUnexpectedStatus("upload", key, response.StatusCode)
		return fmt.Errorf("upload object %s: unexpected status %d", key, response.StatusCode)
	}
	return nil
}

// Delete removes the object stored under key.
func (c *s3Client) Delete(ctx context.Context, key string) error {
	target := c.objectURL(key)
	request, err := http.NewRequestWithContext(ctx, http.MethodDelete, target.String(), nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	if err := c.signRequest(request, emptyPayloadHash); err != nil {
		return err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	c.logUnexpectedStatus("delete", key, response.StatusCode)
	return fmt.Errorf("delete object %s: unexpected status %d", key, response.StatusCode)
}

// Exists HEADs the object. Only a definitive 404 reports (false, nil); any
// other failure is surfaced so callers can tell "absent" from "don't know".
func (c *s3Client) Exists(ctx context.Context, key string) (bool, error) {
	target := c.objectURL(key)
	request, err := http.NewRequestWithContext(ctx, http.MethodHead, target.String(), nil)
	if err != nil {
		return false, fmt.Errorf("create head request: %w", err)
	}
	if err := c.signRequest(request, emptyPayloadHash); err != nil {
		return false, err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()
	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		return true, nil
	case response.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		c.logUnexpectedStatus("head", key, response.StatusCode)
		return false, fmt.Errorf("head object %s: unexpected status %d", key, response.StatusCode)
	}
}

func (c *s3Client) logUnexpectedStatus(operation, key string, status int) {
	c.logger.WithFields(logrus.Fields{
		"operation":   operation,
		"key":         key,
		"status_code": status,
	}).Warn("Storage request returned unexpected status")
}

func (c *s3Client) objectURL(key string) *url.URL {
	trimmedKey := strings.TrimLeft(strings.TrimSpace(key), "/")
	path := "/" + strings.TrimLeft(c.cfg.Bucket, "/")
	if trimmedKey != "" {
		path += "/" + trimmedKey
	}
	u := *c.endpoint
	u.Path = path
	return &u
}

func (c *s3Client) region() string {
	region := strings.TrimSpace(c.cfg.Region)
	if region == "" {
		region = "auto"
	}
	return region
}
