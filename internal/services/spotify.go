// Spotify Web API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	spotifyPageSize = 50
	apiTimeout      = 30 * time.Second
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents an album with its declared track total.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
}

// SpotifyTrack represents a track. Album is absent on album track listings.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      *SpotifyAlbum   `json:"album"`
	DurationMS *int            `json:"duration_ms"`
}

// SpotifyOwner is the user owning a playlist.
type SpotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist object.
type SpotifyPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       SpotifyOwner      `json:"owner"`
	SnapshotID  string            `json:"snapshot_id"`
	Tracks      playlistTracksRef `json:"tracks"`
	Images      []SpotifyImage    `json:"images"`
}

// SpotifyPlaylistItem wraps a playlist entry; Track is nil for unavailable items.
type SpotifyPlaylistItem struct {
	Track *SpotifyTrack `json:"track"`
}

// spotifyPage is one page of a paginated listing.
type spotifyPage[T any] struct {
	Items []T     `json:"items"`
	Total int     `json:"total"`
	Next  *string `json:"next"`
}

// SpotifyOptions configures a [SpotifyService]. Start from [DefaultSpotifyOptions]; a zero
// DefaultRetryAfter retries immediately and a negative one takes the default.
type SpotifyOptions struct {
	ClientID          string
	ClientSecret      string
	BaseURL           string
	TokenURL          string
	MaxRetries        int           // Consecutive 429 responses tolerated (default: 3)
	DefaultRetryAfter time.Duration // Sleep when Retry-After is absent, 0 disables (default: 15s)
	HTTPClient        *http.Client
	TokenClient       *http.Client
	Logger            *log.Logger
}

// DefaultSpotifyOptions returns the production retry settings.
func DefaultSpotifyOptions() SpotifyOptions {
	return SpotifyOptions{
		MaxRetries:        3,
		DefaultRetryAfter: 15 * time.Second,
	}
}

// SpotifyService implements [Service] for the Spotify Web API.
type SpotifyService struct {
	baseURL           string
	client            *http.Client
	tokens            *TokenManager
	maxRetries        int
	defaultRetryAfter time.Duration
	sleep             func(ctx context.Context, d time.Duration) error
	now               func() time.Time
	logger            *log.Logger
}

// NewSpotifyService creates a SpotifyService owning its own [TokenManager].
func NewSpotifyService(opts SpotifyOptions) *SpotifyService {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	def := DefaultSpotifyOptions()
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.DefaultRetryAfter < 0 {
		opts.DefaultRetryAfter = def.DefaultRetryAfter
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = newHTTPClient(apiTimeout, nil)
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &SpotifyService{
		baseURL:           strings.TrimSuffix(opts.BaseURL, "/"),
		client:            opts.HTTPClient,
		tokens:            NewTokenManager(opts.ClientID, opts.ClientSecret, opts.TokenURL, opts.TokenClient),
		maxRetries:        opts.MaxRetries,
		defaultRetryAfter: opts.DefaultRetryAfter,
		sleep:             sleepCtx,
		now:               time.Now,
		logger:            shared.WithLogger(opts.Logger, "platform", models.PlatformSpotify),
	}
}

// Platform returns [models.PlatformSpotify].
func (s *SpotifyService) Platform() models.Platform {
	return models.PlatformSpotify
}

// ResolveID trims whitespace.
func (s *SpotifyService) ResolveID(_ context.Context, rawID string) string {
	return trimID(rawID)
}

// validSpotifyID reports whether id is a non-empty base-62 string.
func validSpotifyID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// doRequest performs an authenticated GET against endpoint (absolute URL) and decodes the JSON body into result.
//
// 429 responses sleep for Retry-After and retry; the maxRetries-th consecutive 429 is unrecoverable.
// A 401 invalidates the token and retries once.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	rateLimited := 0
	refreshed := false

	for {
		token, err := s.tokens.Get(ctx)
		if err != nil {
			return shared.Unrecoverable(err, "failed to obtain spotify token")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return shared.Unrecoverable(err, "failed to create request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return shared.Unrecoverable(err, "request failed")
		}

		status := classifyStatus(resp.StatusCode)
		if status != statusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		switch status {
		case statusOK:
			defer resp.Body.Close()
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return shared.Unrecoverable(err, "failed to decode response")
			}
			return nil
		case statusNotFound:
			return shared.NotFound(nil, "spotify resource not found: "+endpoint)
		case statusUnauthorized:
			if refreshed {
				return shared.Unrecoverable(nil, "spotify rejected a refreshed token")
			}
			s.logger.Debug("bad or expired token, refreshing", "endpoint", endpoint)
			s.tokens.Invalidate()
			refreshed = true
		case statusRateLimited:
			rateLimited++
			if rateLimited >= s.maxRetries {
				return shared.Unrecoverable(errors.Mark(errors.Newf("%d consecutive 429 responses", rateLimited), shared.ErrRateLimited),
					"spotify rate limit retries exhausted")
			}
			wait := retryAfter(resp.Header, s.now(), s.defaultRetryAfter)
			s.logger.Warn("rate limited, retrying", "endpoint", endpoint, "retry_after", wait, "attempt", rateLimited)
			if err := s.sleep(ctx, wait); err != nil {
				return shared.Unrecoverable(err, "interrupted while waiting for rate limit")
			}
		default:
			return shared.Unrecoverable(errors.Newf("status %d", resp.StatusCode), "spotify API error")
		}
	}
}

// Info fetches playlist metadata, falling back to the album with the same id.
func (s *SpotifyService) Info(ctx context.Context, id string) (*models.PlaylistInfo, error) {
	id = trimID(id)
	if !validSpotifyID(id) {
		return nil, shared.NotFound(nil, "invalid spotify id "+id)
	}

	var playlist SpotifyPlaylist
	err := s.doRequest(ctx, s.baseURL+"/playlists/"+url.PathEscape(id), &playlist)
	switch {
	case err == nil:
		return s.playlistInfo(playlist), nil
	case errors.Is(err, shared.ErrPlaylistNotFound):
		s.logger.Debug("playlist not found, trying album", "id", id)
		return s.albumInfo(ctx, id)
	default:
		return nil, err
	}
}

func (s *SpotifyService) playlistInfo(p SpotifyPlaylist) *models.PlaylistInfo {
	info := &models.PlaylistInfo{
		Platform:    models.PlatformSpotify,
		PlaylistID:  p.ID,
		Title:       p.Name,
		Owner:       p.Owner.DisplayName,
		Description: p.Description,
		Thumbnail:   firstImage(p.Images),
		Length:      p.Tracks.Total,
	}
	if p.SnapshotID != "" {
		info.Etag = models.Etag(p.SnapshotID)
	}
	return info
}

// albumInfo fetches album metadata. Albums carry no etag.
func (s *SpotifyService) albumInfo(ctx context.Context, id string) (*models.PlaylistInfo, error) {
	var album SpotifyAlbum
	if err := s.doRequest(ctx, s.baseURL+"/albums/"+url.PathEscape(id), &album); err != nil {
		return nil, err
	}

	return &models.PlaylistInfo{
		Platform:   models.PlatformSpotify,
		PlaylistID: album.ID,
		Title:      album.Name,
		Owner:      joinArtists(album.Artists),
		Thumbnail:  firstImage(album.Images),
		Length:     album.TotalTracks,
	}, nil
}

// Fetch fetches every playlist track following next links, falling back to the album listing.
// A failure on any page fails the whole fetch.
func (s *SpotifyService) Fetch(ctx context.Context, id string, info *models.PlaylistInfo) (*models.Playlist, error) {
	id = trimID(id)
	if !validSpotifyID(id) {
		return nil, shared.NotFound(nil, "invalid spotify id "+id)
	}

	endpoint := s.baseURL + "/playlists/" + url.PathEscape(id) + "/tracks?limit=" + strconv.Itoa(spotifyPageSize)
	var first spotifyPage[SpotifyPlaylistItem]
	err := s.doRequest(ctx, endpoint, &first)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		s.logger.Debug("playlist tracks not found, trying album", "id", id)
		return s.fetchAlbum(ctx, id, info)
	}
	if err != nil {
		return nil, err
	}

	tracks := playlistItemTracks(first.Items)
	if err := followPages(ctx, s, first.Next, func(page spotifyPage[SpotifyPlaylistItem]) {
		tracks = append(tracks, playlistItemTracks(page.Items)...)
	}); err != nil {
		return nil, err
	}

	if info == nil {
		if info, err = s.Info(ctx, id); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("fetched playlist", "id", id, "tracks", len(tracks))
	return &models.Playlist{PlaylistInfo: *info, Tracks: tracks}, nil
}

// fetchAlbum lists album tracks; each uses the album cover as its thumbnail.
func (s *SpotifyService) fetchAlbum(ctx context.Context, id string, info *models.PlaylistInfo) (*models.Playlist, error) {
	if info == nil {
		var err error
		if info, err = s.albumInfo(ctx, id); err != nil {
			return nil, err
		}
	}

	endpoint := s.baseURL + "/albums/" + url.PathEscape(id) + "/tracks?limit=" + strconv.Itoa(spotifyPageSize)
	var first spotifyPage[SpotifyTrack]
	if err := s.doRequest(ctx, endpoint, &first); err != nil {
		return nil, err
	}

	tracks := albumTracks(first.Items, info.Thumbnail)
	if err := followPages(ctx, s, first.Next, func(page spotifyPage[SpotifyTrack]) {
		tracks = append(tracks, albumTracks(page.Items, info.Thumbnail)...)
	}); err != nil {
		return nil, err
	}

	s.logger.Debug("fetched album", "id", id, "tracks", len(tracks))
	return &models.Playlist{PlaylistInfo: *info, Tracks: tracks}, nil
}

// followPages requests each next link until none remains. Any failure, including a
// not-found page, is unrecoverable.
func followPages[T any](ctx context.Context, s *SpotifyService, next *string, add func(spotifyPage[T])) error {
	for next != nil && *next != "" {
		var page spotifyPage[T]
		if err := s.doRequest(ctx, *next, &page); err != nil {
			if errors.Is(err, shared.ErrUnrecoverable) {
				return err
			}
			// A missing later page fails the fetch; it does not mean the playlist is gone.
			return shared.Unrecoverable(errors.Newf("page %s: %s", *next, err.Error()), "failed to fetch page")
		}
		add(page)
		next = page.Next
	}
	return nil
}

func playlistItemTracks(items []SpotifyPlaylistItem) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if item.Track == nil || item.Track.ID == "" {
			continue
		}
		thumbnail := ""
		if item.Track.Album != nil {
			thumbnail = firstImage(item.Track.Album.Images)
		}
		tracks = append(tracks, spotifyTrack(*item.Track, thumbnail))
	}
	return tracks
}

func albumTracks(items []SpotifyTrack, cover string) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		tracks = append(tracks, spotifyTrack(item, cover))
	}
	return tracks
}

func spotifyTrack(t SpotifyTrack, thumbnail string) models.Track {
	track := models.Track{
		TrackID:   t.ID,
		Platform:  models.PlatformSpotify,
		Title:     t.Name,
		Owner:     joinArtists(t.Artists),
		Thumbnail: thumbnail,
	}
	if t.DurationMS != nil {
		track.DurationSeconds = models.Seconds(*t.DurationMS / 1000)
	}
	return track
}

// joinArtists joins contributor names with ", ", skipping blanks.
func joinArtists(artists []SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
