package repositories

// Track column names.
const (
	ColTrackID         = "TrackID"
	ColDurationSeconds = "DurationSeconds"
)

// TrackTable stores tracks keyed by (TrackID, Platform).
//
// Inserts never overwrite: a track already cached for another playlist is left as is.
type TrackTable struct {
	*Table
}

func newTrackTable(c conn) *TrackTable {
	return &TrackTable{newTable(c, "Track", []string{ColTrackID, ColPlatform}, true,
		Required(ColTrackID),
		Required(ColPlatform),
		Required(ColTitle),
		Required(ColOwner),
		Optional(ColThumbnail, ""),
		Optional(ColDurationSeconds, nil),
	)}
}
