// package models defines the data model for the playlist manager web service
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() int64       // ID returns the surrogate primary key, owned by the store
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// User is the durable record of a Spotify account's provider credentials.
//
// At most one record exists per spotify_id; both token fields are overwritten
// on every successful re-authorization.
type User struct {
	id           int64
	spotifyID    string
	accessToken  string
	refreshToken string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUser creates a User for the given Spotify account and token pair.
func NewUser(spotifyID, accessToken, refreshToken string) *User {
	now := time.Now().UTC()
	return &User{
		spotifyID:    spotifyID,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (u *User) ID() int64            { return u.id }
func (u *User) SpotifyID() string    { return u.spotifyID }
func (u *User) AccessToken() string  { return u.accessToken }
func (u *User) RefreshToken() string { return u.refreshToken }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) SetID(id int64)           { u.id = id }
func (u *User) SetCreatedAt(t time.Time) { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time) { u.updatedAt = t }
func (u *User) SetTokens(access, refresh string) {
	u.accessToken = access
	u.refreshToken = refresh
}

// Validate checks required fields. The spotify_id is immutable once created so
// an empty one is never persistable.
func (u *User) Validate() error {
	if u.spotifyID == "" {
		return fmt.Errorf("spotify_id is required")
	}
	if u.accessToken == "" {
		return fmt.Errorf("access_token is required")
	}
	return nil
}

// PlaylistMetadata records the last time a playlist was observed for a user,
// with an optional user-assigned display name.
//
// Unique per (user_id, playlist_id); this is bookkeeping about the playlist,
// not a mirror of its contents.
type PlaylistMetadata struct {
	id         int64
	userID     int64
	playlistID string
	lastSynced time.Time
	customName *string
}

// NewPlaylistMetadata creates sync metadata for the given user and playlist.
func NewPlaylistMetadata(userID int64, playlistID string, lastSynced time.Time) *PlaylistMetadata {
	return &PlaylistMetadata{
		userID:     userID,
		playlistID: playlistID,
		lastSynced: lastSynced,
	}
}

func (p *PlaylistMetadata) ID() int64             { return p.id }
func (p *PlaylistMetadata) UserID() int64         { return p.userID }
func (p *PlaylistMetadata) PlaylistID() string    { return p.playlistID }
func (p *PlaylistMetadata) LastSynced() time.Time { return p.lastSynced }
func (p *PlaylistMetadata) CustomName() *string   { return p.customName }

func (p *PlaylistMetadata) SetID(id int64)             { p.id = id }
func (p *PlaylistMetadata) SetLastSynced(t time.Time)  { p.lastSynced = t }
func (p *PlaylistMetadata) SetCustomName(name *string) { p.customName = name }

func (p *PlaylistMetadata) Validate() error {
	if p.userID <= 0 {
		return fmt.Errorf("user_id is required")
	}
	if p.playlistID == "" {
		return fmt.Errorf("playlist_id is required")
	}
	return nil
}
