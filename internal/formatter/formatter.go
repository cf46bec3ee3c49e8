// package formatter exports playlist track listings to CSV and Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/mixtape/internal/services"
)

// artistNames joins a track's artist names for single-column output.
func artistNames(track services.Track) string {
	names := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		names = append(names, artist.Name)
	}
	return strings.Join(names, ", ")
}

// ExportToCSV converts a playlist to CSV with columns: ID, Title, Artist, Album, Duration
func ExportToCSV(playlist *services.PlaylistDetail) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range playlist.Tracks.Items {
		record := []string{
			item.Track.ID,
			item.Track.Name,
			artistNames(item.Track),
			item.Track.Album.Name,
			strconv.Itoa(item.Track.DurationMS / 1000),
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

// ExportToMarkdown converts a playlist to a Markdown document with a track table
func ExportToMarkdown(playlist *services.PlaylistDetail) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist.Name))

	if playlist.Description != "" {
		buf.WriteString(playlist.Description + "\n\n")
	}

	buf.WriteString(fmt.Sprintf("%d tracks\n\n", playlist.Tracks.Total))
	buf.WriteString("| Title | Artist | Album |\n")
	buf.WriteString("| --- | --- | --- |\n")

	for _, item := range playlist.Tracks.Items {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			item.Track.Name, artistNames(item.Track), item.Track.Album.Name))
	}

	return buf.Bytes(), nil
}
