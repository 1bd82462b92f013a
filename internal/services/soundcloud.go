// SoundCloud implementation of [Service]
//
// SoundCloud has no public playlist API: playlist pages embed their state in a
// window.__sc_hydration array, and api-v2 accepts the client id used by the web bundle.
package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	soundcloudBaseURL     = "https://soundcloud.com"
	soundcloudAPIURL      = "https://api-v2.soundcloud.com"
	soundcloudPageTimeout = 5 * time.Second
	soundcloudUserAgent   = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

var hydrationPattern = regexp.MustCompile(`__sc_hydration\s*=\s*(.*)\s*;`)

type scUser struct {
	Username string `json:"username"`
}

// scTrack is a track as rendered in the hydration blob or returned by api-v2/tracks.
// Stubs carry only an id.
type scTrack struct {
	ID         json.Number `json:"id"`
	Title      *string     `json:"title"`
	ArtworkURL *string     `json:"artwork_url"`
	User       *scUser     `json:"user"`
	Duration   *int        `json:"duration"`
}

// complete reports whether the track was rendered with every field a [models.Track] needs.
func (t scTrack) complete() bool {
	return t.ID != "" && t.Title != nil && t.User != nil && t.ArtworkURL != nil
}

func (t scTrack) track() models.Track {
	track := models.Track{
		TrackID:  t.ID.String(),
		Platform: models.PlatformSoundCloud,
	}
	if t.Title != nil {
		track.Title = *t.Title
	}
	if t.User != nil {
		track.Owner = t.User.Username
	}
	if t.ArtworkURL != nil {
		track.Thumbnail = *t.ArtworkURL
	}
	if t.Duration != nil {
		track.DurationSeconds = models.Seconds(*t.Duration / 1000)
	}
	return track
}

// scPlaylist is the "playlist" hydratable's data.
type scPlaylist struct {
	PermalinkURL string    `json:"permalink_url"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	ArtworkURL   *string   `json:"artwork_url"`
	LastModified *string   `json:"last_modified"`
	TrackCount   *int      `json:"track_count"`
	User         *scUser   `json:"user"`
	Tracks       []scTrack `json:"tracks"`
}

type hydratable struct {
	Hydratable string          `json:"hydratable"`
	Data       json.RawMessage `json:"data"`
}

// SoundCloudOptions configures a [SoundCloudService].
type SoundCloudOptions struct {
	BaseURL     string
	ClientIDTTL time.Duration
	HTTPClient  *http.Client // Page requests (default: 5s timeout)
	AssetClient *http.Client // Client id scraping (default: 2s timeout)
	Batch       BatchOpts
	Logger      *log.Logger
}

// SoundCloudService implements [Service] by scraping SoundCloud playlist pages.
type SoundCloudService struct {
	baseURL   string
	client    *http.Client
	clientIDs *ClientIDManager
	batch     *BatchFetcher
	logger    *log.Logger
}

// NewSoundCloudService creates a SoundCloudService owning its [ClientIDManager] and [BatchFetcher].
func NewSoundCloudService(opts SoundCloudOptions) *SoundCloudService {
	if opts.BaseURL == "" {
		opts.BaseURL = soundcloudBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = newHTTPClient(soundcloudPageTimeout, nil)
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	logger := shared.WithLogger(opts.Logger, "platform", models.PlatformSoundCloud)
	if opts.Batch.Logger == nil {
		opts.Batch.Logger = logger
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	return &SoundCloudService{
		baseURL:   baseURL,
		client:    opts.HTTPClient,
		clientIDs: NewClientIDManager(baseURL, opts.AssetClient, opts.ClientIDTTL),
		batch:     NewBatchFetcher(opts.Batch),
		logger:    logger,
	}
}

// Platform returns [models.PlatformSoundCloud].
func (s *SoundCloudService) Platform() models.Platform {
	return models.PlatformSoundCloud
}

// ResolveID turns a playlist path or URL into its canonical path. Unresolvable ids are normalized
// with [playlistPath] so they match the cache key of an earlier successful sync.
func (s *SoundCloudService) ResolveID(ctx context.Context, rawID string) string {
	id := trimID(rawID)
	info, err := s.Info(ctx, id)
	if err != nil {
		s.logger.Debug("could not resolve id", "id", id, "error", err)
		if id == "" {
			return id
		}
		return playlistPath(id)
	}
	return info.PlaylistID
}

// Info fetches the playlist page and reads metadata from its hydration blob.
func (s *SoundCloudService) Info(ctx context.Context, id string) (*models.PlaylistInfo, error) {
	path := playlistPath(id)
	data, err := s.page(ctx, path)
	if err != nil {
		return nil, err
	}
	info := data.info(path)
	return &info, nil
}

// Fetch converts inline tracks in source order, then appends the batch-completed stubs.
func (s *SoundCloudService) Fetch(ctx context.Context, id string, info *models.PlaylistInfo) (*models.Playlist, error) {
	path := playlistPath(id)
	data, err := s.page(ctx, path)
	if err != nil {
		return nil, err
	}

	if info == nil {
		i := data.info(path)
		info = &i
	}

	tracks := make([]models.Track, 0, len(data.Tracks))
	var stubs []string
	for _, t := range data.Tracks {
		switch {
		case t.complete():
			tracks = append(tracks, t.track())
		case t.ID != "":
			stubs = append(stubs, t.ID.String())
		}
	}

	inline := len(tracks)
	if len(stubs) > 0 {
		clientID, err := s.clientIDs.Get(ctx)
		if err != nil {
			return nil, shared.Unrecoverable(err, "failed to obtain soundcloud client id")
		}
		completed := s.batch.Fetch(ctx, stubs, clientID)
		if len(completed) < len(stubs) {
			s.logger.Warn("some tracks could not be completed", "requested", len(stubs), "received", len(completed))
		}
		tracks = append(tracks, completed...)
	}

	s.logger.Debug("fetched playlist", "id", path, "inline", inline, "deferred", len(stubs))
	return &models.Playlist{PlaylistInfo: *info, Tracks: tracks}, nil
}

// page fetches a playlist page and extracts its playlist hydratable.
func (s *SoundCloudService) page(ctx context.Context, path string) (*scPlaylist, error) {
	if path == "/" {
		return nil, shared.NotFound(nil, "empty soundcloud playlist path")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, shared.Unrecoverable(err, "failed to create request")
	}
	req.Header.Set("User-Agent", soundcloudUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, shared.Unrecoverable(err, "request failed")
	}
	defer resp.Body.Close()

	switch classifyStatus(resp.StatusCode) {
	case statusOK:
	case statusNotFound:
		return nil, shared.NotFound(nil, "soundcloud page not found: "+path)
	default:
		return nil, shared.Unrecoverable(errors.Newf("status %d", resp.StatusCode), "soundcloud page error")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, shared.Unrecoverable(err, "failed to read soundcloud page")
	}
	return parseHydration(string(body))
}

// parseHydration locates the element whose hydratable is "playlist". No blob or no playlist element is not-found.
func parseHydration(doc string) (*scPlaylist, error) {
	match := hydrationPattern.FindStringSubmatch(doc)
	if match == nil {
		return nil, shared.NotFound(nil, "no hydration data on page")
	}

	var entries []hydratable
	if err := json.Unmarshal([]byte(strings.TrimSpace(match[1])), &entries); err != nil {
		return nil, shared.Unrecoverable(err, "malformed hydration data")
	}

	for _, e := range entries {
		if e.Hydratable != "playlist" {
			continue
		}
		var data scPlaylist
		if err := json.Unmarshal(e.Data, &data); err != nil {
			return nil, shared.Unrecoverable(err, "malformed playlist hydration data")
		}
		if data.Tracks == nil {
			return nil, shared.Unrecoverable(nil, "playlist hydration data has no track list")
		}
		return &data, nil
	}
	return nil, shared.NotFound(nil, "page is not a playlist")
}

// info maps hydration data to metadata. The canonical id is the path of permalink_url.
func (p *scPlaylist) info(requested string) models.PlaylistInfo {
	info := models.PlaylistInfo{
		Platform:   models.PlatformSoundCloud,
		PlaylistID: requested,
		Title:      p.Title,
		Etag:       p.LastModified,
		Length:     len(p.Tracks),
	}
	if u, err := url.Parse(p.PermalinkURL); err == nil && u.Path != "" {
		info.PlaylistID = u.Path
	}
	if p.Description != nil {
		info.Description = *p.Description
	}
	if p.ArtworkURL != nil {
		info.Thumbnail = *p.ArtworkURL
	}
	if p.TrackCount != nil {
		info.Length = *p.TrackCount
	}
	if p.User != nil {
		info.Owner = p.User.Username
	}
	return info
}

// playlistPath turns "user/sets/name", "/user/sets/name" or a full soundcloud URL into "/user/sets/name".
func playlistPath(id string) string {
	id = trimID(id)
	if u, err := url.Parse(id); err == nil && u.Host != "" {
		id = u.Path
	}
	id = strings.TrimSuffix(id, "/")
	if !strings.HasPrefix(id, "/") {
		id = "/" + id
	}
	return id
}
