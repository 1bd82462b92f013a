package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Service defines a playlist provider.
type Service interface {
	// Platform returns the provider this service talks to.
	Platform() models.Platform

	// ResolveID normalizes a user-supplied identifier into the provider's canonical id.
	// It never fails: an unresolvable id is returned trimmed.
	ResolveID(ctx context.Context, rawID string) string

	// Info fetches playlist metadata without the track list.
	Info(ctx context.Context, id string) (*models.PlaylistInfo, error)

	// Fetch fetches metadata and the ordered track list. A non-nil info is reused
	// instead of fetching metadata again.
	Fetch(ctx context.Context, id string, info *models.PlaylistInfo) (*models.Playlist, error)
}

// Registry maps each platform to its [Service].
type Registry map[models.Platform]Service

// NewRegistry builds a registry keyed by each service's platform.
func NewRegistry(services ...Service) Registry {
	r := make(Registry, len(services))
	for _, s := range services {
		r[s.Platform()] = s
	}
	return r
}

// Lookup returns the service for a case-insensitive provider name.
func (r Registry) Lookup(name string) (Service, error) {
	platform, err := models.ParsePlatform(name)
	if err != nil {
		return nil, errors.Mark(err, shared.ErrUnsupportedPlatform)
	}
	srv, ok := r[platform]
	if !ok {
		return nil, errors.Mark(errors.Newf("platform %s is not configured", platform), shared.ErrUnsupportedPlatform)
	}
	return srv, nil
}

// trimID is the default id normalization.
func trimID(rawID string) string {
	return strings.TrimSpace(rawID)
}

// newHTTPClient returns a client with a fixed per-request timeout.
func newHTTPClient(timeout time.Duration, transport http.RoundTripper) *http.Client {
	return &http.Client{Timeout: timeout, Transport: transport}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
