package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
)

// PlaylistMetadataRepository records when a user's playlists were last
// observed. This is a write-through cache of sync times, not a mirror of
// playlist contents.
type PlaylistMetadataRepository struct {
	db *sql.DB
}

// NewPlaylistMetadataRepository creates a new [PlaylistMetadataRepository] with the given database connection
func NewPlaylistMetadataRepository(db *sql.DB) *PlaylistMetadataRepository {
	return &PlaylistMetadataRepository{db: db}
}

// RecordSync upserts last_synced to now for each playlist id, creating a row
// on first sight of a (user, playlist) pair. All rows are written in one
// transaction.
func (r *PlaylistMetadataRepository) RecordSync(userID int64, playlistIDs []string) error {
	if len(playlistIDs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	query := `
		INSERT INTO playlist_metadata (user_id, playlist_id, last_synced)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, playlist_id) DO UPDATE SET
			last_synced = excluded.last_synced
	`

	for _, playlistID := range playlistIDs {
		if _, err := tx.Exec(query, userID, playlistID, now); err != nil {
			return fmt.Errorf("failed to upsert playlist metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync transaction: %w", err)
	}

	return nil
}

// SetCustomName stores a user-assigned display name for a playlist.
//
// The row must already exist; playlists are only named after they have been
// observed by a sync.
func (r *PlaylistMetadataRepository) SetCustomName(userID int64, playlistID, name string) error {
	query := `
		UPDATE playlist_metadata
		SET custom_name = ?
		WHERE user_id = ? AND playlist_id = ?
	`

	result, err := r.db.Exec(query, name, userID, playlistID)
	if err != nil {
		return fmt.Errorf("failed to set custom name: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist metadata not found for playlist %s", playlistID)
	}

	return nil
}

// ListByUser retrieves all sync metadata for a user, most recently synced first.
func (r *PlaylistMetadataRepository) ListByUser(userID int64) ([]*models.PlaylistMetadata, error) {
	query := `
		SELECT id, user_id, playlist_id, last_synced, custom_name
		FROM playlist_metadata
		WHERE user_id = ?
		ORDER BY last_synced DESC, id ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist metadata: %w", err)
	}
	defer rows.Close()

	var entries []*models.PlaylistMetadata
	for rows.Next() {
		var (
			id         int64
			uid        int64
			playlistID string
			lastSynced time.Time
			customName sql.NullString
		)

		if err := rows.Scan(&id, &uid, &playlistID, &lastSynced, &customName); err != nil {
			return nil, fmt.Errorf("failed to scan playlist metadata: %w", err)
		}

		entry := models.NewPlaylistMetadata(uid, playlistID, lastSynced)
		entry.SetID(id)
		if customName.Valid {
			entry.SetCustomName(&customName.String)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}
