// Package upload publishes composite shots to Google Cloud Storage.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// ErrDisabled is returned by Upload when no bucket is configured.
var ErrDisabled = errors.New("upload disabled")

// Config configures the shot uploader.
type Config struct {
	Bucket          string        `yaml:"bucket"`
	Prefix          string        `yaml:"prefix"`
	CredentialsFile string        `yaml:"credentials_file"`
	PublicBaseURL   string        `yaml:"public_base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	// Endpoint overrides the storage API endpoint, e.g. for an emulator.
	Endpoint string `yaml:"endpoint"`
}

// DefaultConfig returns an uploader configuration with uploads disabled.
func DefaultConfig() Config {
	return Config{
		Prefix:        "reports/",
		PublicBaseURL: "https://storage.googleapis.com",
		Timeout:       8 * time.Second,
	}
}

// Uploader writes JPEG shots to a bucket and returns their public URLs.
type Uploader struct {
	config  Config
	service *storage.Service
}

// New creates an Uploader. With an empty bucket the Uploader is inert and
// every Upload returns ErrDisabled. Extra options are passed to the storage client.
func New(ctx context.Context, config Config, opts ...option.ClientOption) (*Uploader, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.PublicBaseURL == "" {
		config.PublicBaseURL = DefaultConfig().PublicBaseURL
	}
	u := &Uploader{config: config}
	if config.Bucket == "" {
		return u, nil
	}

	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	service, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	u.service = service
	return u, nil
}

// Enabled reports whether uploads go anywhere.
func (u *Uploader) Enabled() bool {
	return u != nil && u.service != nil
}

// ObjectName returns a fresh object name for a shot.
func (u *Uploader) ObjectName() string {
	return u.config.Prefix + uuid.New().String() + ".jpg"
}

// Upload stores data as a new JPEG object and returns its public URL.
// The call is bounded by the configured timeout.
func (u *Uploader) Upload(ctx context.Context, data []byte) (string, error) {
	if !u.Enabled() {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, u.config.Timeout)
	defer cancel()

	obj := &storage.Object{
		Name:        u.ObjectName(),
		ContentType: "image/jpeg",
	}
	_, err := u.service.Objects.Insert(u.config.Bucket, obj).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", obj.Name, err)
	}
	return u.PublicURL(obj.Name), nil
}

// PublicURL returns the public address of an object in the bucket.
func (u *Uploader) PublicURL(name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(u.config.PublicBaseURL, "/") + "/" + u.config.Bucket + "/" + strings.Join(segments, "/")
}
