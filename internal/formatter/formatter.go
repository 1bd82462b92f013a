// package formatter renders playlists as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Formats lists every supported export format.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatText}

// ParseFormat converts a case-insensitive format name into a [Format]. "md" and "txt" are accepted.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", shared.Validationf("unsupported export format %q", name)
	}
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return string(f)
	}
}

// FormatDuration renders seconds as m:ss, or --:-- when unknown.
func FormatDuration(seconds *int) string {
	if seconds == nil {
		return "--:--"
	}
	return fmt.Sprintf("%d:%02d", *seconds/60, *seconds%60)
}

// ExportToCSV converts a playlist to CSV with columns: Position, ID, Title, Owner, Duration, Thumbnail.
// Duration is in seconds and empty when unknown.
func ExportToCSV(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Owner", "Duration", "Thumbnail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range p.Tracks {
		duration := ""
		if track.DurationSeconds != nil {
			duration = strconv.Itoa(*track.DurationSeconds)
		}
		record := []string{
			strconv.Itoa(i),
			track.TrackID,
			track.Title,
			track.Owner,
			duration,
			track.Thumbnail,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown, linking its thumbnail as the cover image.
func ExportToMarkdown(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Title)

	if p.Thumbnail != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", p.Thumbnail)
	}

	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}

	fmt.Fprintf(&buf, "**Owner**: %s\n", p.Owner)
	fmt.Fprintf(&buf, "**Platform**: %s\n", p.Platform.Lower())
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(p.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range p.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Owner, track.Title, FormatDuration(track.DurationSeconds))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(p.Tracks))

	for i, track := range p.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Owner, track.Title)
	}

	return buf.Bytes(), nil
}

// Export renders p in format f.
func Export(f Format, p *models.Playlist) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(p)
	case FormatMarkdown:
		return ExportToMarkdown(p)
	case FormatText:
		return ExportToText(p)
	default:
		return nil, shared.Validationf("unsupported export format %q", f)
	}
}

// DefaultFilename derives a file name from the playlist id. Path separators in
// SoundCloud ids become underscores.
func DefaultFilename(f Format, p *models.Playlist) string {
	base := strings.Trim(strings.ReplaceAll(p.PlaylistID, "/", "_"), "_")
	if base == "" {
		base = "playlist"
	}
	return fmt.Sprintf("%s_%s.%s", p.Platform.Lower(), base, f.Ext())
}

// WriteExport renders p in format f and writes it to path, or to [DefaultFilename] when path is empty.
// Returns the path written.
func WriteExport(f Format, p *models.Playlist, path string) (string, error) {
	if path == "" {
		path = DefaultFilename(f, p)
	}

	data, err := Export(f, p)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s export", f)
	}

	return path, nil
}
