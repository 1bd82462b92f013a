// YouTube Data API implementation of [Service]
//
// https://developers.google.com/youtube/v3/docs/playlists/list
// https://developers.google.com/youtube/v3/docs/playlistItems/list
package services

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubePageSize = 50

// thumbnailPriority is the order in which thumbnail sizes are chosen.
var thumbnailPriority = []string{"standard", "default"}

// YouTubeOptions configures a [YouTubeService].
type YouTubeOptions struct {
	APIKey   string
	Endpoint string // Overrides the API base path (tests)
	Logger   *log.Logger
}

// YouTubeService implements [Service] for the YouTube Data API v3.
type YouTubeService struct {
	svc    *youtube.Service
	logger *log.Logger
}

// NewYouTubeService creates a YouTubeService authenticating every request with the API key.
func NewYouTubeService(ctx context.Context, opts YouTubeOptions) (*YouTubeService, error) {
	if opts.APIKey == "" {
		return nil, errors.Wrap(shared.ErrMissingCredentials, "youtube api key is required")
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	client := newHTTPClient(apiTimeout, &transport.APIKey{Key: opts.APIKey, Transport: http.DefaultTransport})
	clientOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create youtube client")
	}

	return &YouTubeService{svc: svc, logger: shared.WithLogger(opts.Logger, "platform", models.PlatformYouTube)}, nil
}

// Platform returns [models.PlatformYouTube].
func (s *YouTubeService) Platform() models.Platform {
	return models.PlatformYouTube
}

// ResolveID trims whitespace.
func (s *YouTubeService) ResolveID(_ context.Context, rawID string) string {
	return trimID(rawID)
}

// Info fetches playlist metadata. The resource etag changes whenever the playlist does.
func (s *YouTubeService) Info(ctx context.Context, id string) (*models.PlaylistInfo, error) {
	id = trimID(id)
	if id == "" {
		return nil, shared.NotFound(nil, "empty youtube playlist id")
	}

	resp, err := s.svc.Playlists.List([]string{"snippet", "contentDetails"}).Id(id).Context(ctx).Do()
	if err != nil {
		return nil, classifyGoogleError(err, "failed to fetch youtube playlist")
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return nil, shared.NotFound(nil, "youtube playlist not found: "+id)
	}

	p := resp.Items[0]
	info := &models.PlaylistInfo{
		Platform:   models.PlatformYouTube,
		PlaylistID: p.Id,
	}
	if p.Etag != "" {
		info.Etag = models.Etag(p.Etag)
	}
	if p.Snippet != nil {
		info.Title = p.Snippet.Title
		info.Owner = p.Snippet.ChannelTitle
		info.Description = p.Snippet.Description
		info.Thumbnail = chooseThumbnail(p.Snippet.Thumbnails)
	}
	if p.ContentDetails != nil {
		info.Length = int(p.ContentDetails.ItemCount)
	}
	return info, nil
}

// Fetch lists every playlist item following nextPageToken. Any failed page fails the whole fetch.
func (s *YouTubeService) Fetch(ctx context.Context, id string, info *models.PlaylistInfo) (*models.Playlist, error) {
	id = trimID(id)
	if id == "" {
		return nil, shared.NotFound(nil, "empty youtube playlist id")
	}

	var tracks []models.Track
	declared := -1
	pageToken := ""
	for {
		call := s.svc.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(id).
			MaxResults(youtubePageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			if pageToken == "" {
				return nil, classifyGoogleError(err, "failed to list youtube playlist items")
			}
			return nil, shared.Unrecoverable(err, "failed to list youtube playlist items")
		}

		if declared < 0 && resp.PageInfo != nil {
			declared = int(resp.PageInfo.TotalResults)
		}
		for _, item := range resp.Items {
			if item == nil || item.Snippet == nil {
				return nil, shared.Unrecoverable(nil, "malformed youtube playlist item")
			}
			tracks = append(tracks, youtubeTrack(item))
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if info == nil {
		var err error
		if info, err = s.Info(ctx, id); err != nil {
			return nil, err
		}
	}

	playlist := &models.Playlist{PlaylistInfo: *info, Tracks: tracks}
	if declared >= 0 {
		playlist.Length = declared
	}
	s.logger.Debug("fetched playlist", "id", id, "tracks", len(tracks))
	return playlist, nil
}

func youtubeTrack(item *youtube.PlaylistItem) models.Track {
	sn := item.Snippet
	track := models.Track{
		TrackID:   item.Id,
		Platform:  models.PlatformYouTube,
		Title:     sn.Title,
		Owner:     sn.VideoOwnerChannelTitle,
		Thumbnail: chooseThumbnail(sn.Thumbnails),
	}
	if sn.ResourceId != nil && sn.ResourceId.VideoId != "" {
		track.TrackID = sn.ResourceId.VideoId
	}
	if track.Owner == "" {
		track.Owner = sn.ChannelTitle
	}
	return track
}

// chooseThumbnail returns the first available thumbnail in [thumbnailPriority], or "".
func chooseThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	sizes := map[string]*youtube.Thumbnail{"standard": t.Standard, "default": t.Default}
	for _, key := range thumbnailPriority {
		if th := sizes[key]; th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// classifyGoogleError maps a 404 to not-found and everything else to unrecoverable.
func classifyGoogleError(err error, msg string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && classifyStatus(gerr.Code) == statusNotFound {
		return shared.NotFound(err, msg)
	}
	return shared.Unrecoverable(err, msg)
}
