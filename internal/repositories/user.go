package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
)

// UserRepository persists provider credentials keyed by Spotify account id.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates a user record for the given Spotify id, or overwrites both
// token fields when one already exists. Last write wins; safe to call
// repeatedly with the same identity.
func (r *UserRepository) Upsert(spotifyID, accessToken, refreshToken string) (*models.User, error) {
	user := models.NewUser(spotifyID, accessToken, refreshToken)
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO users (spotify_id, access_token, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(spotify_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, spotifyID, accessToken, refreshToken, now, now); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return r.GetBySpotifyID(spotifyID)
}

// GetBySpotifyID retrieves a user by Spotify account id.
//
// Returns (nil, nil) when no record exists; absence means no cached
// credentials yet, not a failure.
func (r *UserRepository) GetBySpotifyID(spotifyID string) (*models.User, error) {
	query := `
		SELECT id, spotify_id, access_token, refresh_token, created_at, updated_at
		FROM users
		WHERE spotify_id = ?
	`

	var (
		id           int64
		sid          string
		accessToken  string
		refreshToken string
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := r.db.QueryRow(query, spotifyID).Scan(&id, &sid, &accessToken, &refreshToken, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user := models.NewUser(sid, accessToken, refreshToken)
	user.SetID(id)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)

	return user, nil
}
