// Package formatter renders playlists, split previews and apply results for the CLI (table, Markdown, CSV, JSON).
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/splitx/internal/genre"
	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
	"github.com/desertthunder/splitx/internal/split"
	"github.com/desertthunder/splitx/internal/ui"
)

// Format is an output format accepted by the split commands.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat resolves a format name; "md" is accepted for Markdown and an empty name means table.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table":
		return FormatTable, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
}

// Extension returns the file extension used when writing f to disk.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// FormatDuration renders milliseconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(ms int) string {
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(ui.Styles.Border()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return ui.Styles.Header()
			}
			return ui.Styles.Cell()
		}).
		Headers(headers...)
}

// PlaylistsToTable renders playlist summaries.
func PlaylistsToTable(playlists []models.Playlist) string {
	t := newTable("ID", "Name", "Owner", "Tracks")
	for _, p := range playlists {
		owner := p.Owner.Name
		if owner == "" {
			owner = p.Owner.ID
		}
		t.Row(p.ID, p.Name, owner, strconv.Itoa(p.TrackCount))
	}
	return t.String()
}

// TracksToTable renders resolved tracks with their genre and its source.
func TracksToTable(tracks []models.EnrichedTrack) string {
	t := newTable("#", "Track", "Artists", "Genre", "Source", "Duration")
	for i, tr := range tracks {
		t.Row(
			strconv.Itoa(i+1),
			tr.Name,
			tr.ArtistNames(),
			genre.Label(tr.Genre),
			string(tr.GenreSource),
			FormatDuration(tr.DurationMs),
		)
	}
	return t.String()
}

// PreviewToTable renders one row per proposed split followed by the suggested mix name.
func PreviewToTable(preview split.Preview) string {
	t := newTable("Genre", "Tracks", "Suggested Name")
	for _, sp := range preview.Splits {
		t.Row(sp.Genre, strconv.Itoa(sp.TrackCount), sp.SuggestedName)
	}

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(ui.Styles.Help("Suggested mix: " + preview.SuggestedMixName))
	b.WriteString("\n")
	return b.String()
}

// PreviewToMarkdown renders a preview as a Markdown document with a section per split.
func PreviewToMarkdown(playlist models.Playlist, preview split.Preview) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlist.Name)
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", playlist.Description)
	}
	fmt.Fprintf(&buf, "**Splits**: %d\n", len(preview.Splits))
	fmt.Fprintf(&buf, "**Suggested mix**: %s\n", preview.SuggestedMixName)

	for _, sp := range preview.Splits {
		fmt.Fprintf(&buf, "\n## %s (%d)\n\n", sp.Genre, sp.TrackCount)
		fmt.Fprintf(&buf, "_%s_\n\n", sp.SuggestedName)
		for i, tr := range sp.Tracks {
			albumPart := ""
			if tr.Album.Name != "" {
				albumPart = fmt.Sprintf(" (%s)", tr.Album.Name)
			}
			fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, tr.ArtistNames(), tr.Name, albumPart, FormatDuration(tr.DurationMs))
		}
	}

	return buf.Bytes(), nil
}

// PreviewToCSV flattens a preview into one row per track with columns: Genre, Split Name, Track, Artists, Album,
// Duration, Source, URI
func PreviewToCSV(preview split.Preview) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Genre", "Split Name", "Track", "Artists", "Album", "Duration", "Source", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, sp := range preview.Splits {
		for _, tr := range sp.Tracks {
			record := []string{
				sp.Genre,
				sp.SuggestedName,
				tr.Name,
				tr.ArtistNames(),
				tr.Album.Name,
				FormatDuration(tr.DurationMs),
				string(tr.GenreSource),
				tr.URI,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

type previewDocument struct {
	Playlist models.Playlist `json:"playlist"`
	split.Preview
}

// RenderPreview renders preview of playlist in format.
func RenderPreview(format Format, playlist models.Playlist, preview split.Preview) ([]byte, error) {
	switch format {
	case FormatTable:
		return []byte(PreviewToTable(preview)), nil
	case FormatMarkdown:
		return PreviewToMarkdown(playlist, preview)
	case FormatCSV:
		return PreviewToCSV(preview)
	case FormatJSON:
		return shared.MarshalJSON(previewDocument{Playlist: playlist, Preview: preview}, true)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

// WritePreview renders preview to w.
func WritePreview(w io.Writer, format Format, playlist models.Playlist, preview split.Preview) error {
	data, err := RenderPreview(format, playlist, preview)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	return nil
}

// WritePreviewFile renders preview to path, defaulting to {playlist.ID}_preview plus the format's extension.
func WritePreviewFile(path string, format Format, playlist models.Playlist, preview split.Preview) (string, error) {
	if path == "" {
		path = playlist.ID + "_preview" + format.Extension()
	}

	data, err := RenderPreview(format, playlist, preview)
	if err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write preview file: %w", err)
	}
	return path, nil
}

// ApplyResultToText summarizes created and failed split playlists, one line each.
func ApplyResultToText(result *models.ApplyResult) string {
	var b strings.Builder
	for _, c := range result.Created {
		fmt.Fprintf(&b, "%s %s [%s] %d tracks %s\n", ui.Styles.OK("✓"), c.Name, c.Genre, c.TrackCount, c.URI)
	}
	for _, f := range result.Failed {
		fmt.Fprintf(&b, "%s %s [%s] %s\n", ui.Styles.Err("✗"), f.Name, f.Genre, f.Error)
	}
	fmt.Fprintf(&b, "%d created, %d failed\n", len(result.Created), len(result.Failed))
	return b.String()
}

// MixToText summarizes a playlist created from a genre selection.
func MixToText(mix *models.CreatedMix) string {
	cover := "no cover"
	if mix.CoverImageSet {
		cover = "cover set"
	}
	return fmt.Sprintf("%s %s (%s) %d tracks, %s, %s\n%s\n",
		ui.Styles.OK("✓"), mix.Name, strings.Join(mix.Genres, ", "), mix.TrackCount,
		shared.VisibilityString(mix.IsPublic), cover, mix.URI)
}
