package repositories

import (
	"context"

	"github.com/desertthunder/mixtape/internal/models"
)

// Playlist column names.
const (
	ColPlaylistID  = "PlaylistID"
	ColPlatform    = "Platform"
	ColTitle       = "Title"
	ColOwner       = "Owner"
	ColDescription = "Description"
	ColThumbnail   = "Thumbnail"
	ColLength      = "Length"
	ColEtag        = "Etag"
)

// PlaylistTable stores playlist metadata keyed by (PlaylistID, Platform).
type PlaylistTable struct {
	*Table
}

func newPlaylistTable(c conn) *PlaylistTable {
	return &PlaylistTable{newTable(c, "Playlist", []string{ColPlaylistID, ColPlatform}, false,
		Required(ColPlaylistID),
		Required(ColTitle),
		Required(ColOwner),
		Optional(ColDescription, ""),
		Optional(ColThumbnail, ""),
		Required(ColLength),
		Optional(ColEtag, nil),
		Required(ColPlatform),
	)}
}

// Get returns the cached row for a playlist, or nil when absent.
func (t *PlaylistTable) Get(ctx context.Context, platform models.Platform, id string) (*models.PlaylistInfo, error) {
	rows, err := t.Find(ctx, Where(PlaylistKey(platform, id)))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	info := PlaylistInfoFromRecord(rows[0])
	return &info, nil
}
