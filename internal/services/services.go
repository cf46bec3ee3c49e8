// package services defines interface Service for the upstream music provider
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// Service defines the interface for the music provider consumed by the web
// handlers. Tokens are passed per call because each browser session carries
// its own credentials.
type Service interface {
	// Name returns the name of the service (e.g., "Spotify")
	Name() string

	// AuthURL returns the provider authorization URL carrying the given
	// anti-forgery state parameter.
	AuthURL(state string) string

	// ExchangeCode exchanges an authorization code for a token pair.
	// Returns an *AuthError when the provider's response body carries an
	// error field.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// CurrentUserID resolves the provider's opaque identifier for the token's
	// owner. Returns "" on any non-200 response or transport failure; callers
	// must tolerate an empty id.
	CurrentUserID(ctx context.Context, token string) string

	// Playlists retrieves all playlists belonging to the token's owner.
	Playlists(ctx context.Context, token string) ([]Playlist, error)

	// Playlist retrieves a single playlist with its track listing.
	Playlist(ctx context.Context, token, playlistID string) (*PlaylistDetail, error)

	// SearchTracks performs a track search and returns the provider's
	// response body unmodified.
	SearchTracks(ctx context.Context, token, query string, limit int) (json.RawMessage, error)

	// Track retrieves a single track's raw representation.
	Track(ctx context.Context, token, trackID string) (json.RawMessage, error)

	// AddTrack appends a track to a playlist by URI.
	AddTrack(ctx context.Context, token, playlistID, trackURI string) (json.RawMessage, error)

	// RemoveTrack removes all occurrences of a track URI from a playlist.
	RemoveTrack(ctx context.Context, token, playlistID, trackURI string) (json.RawMessage, error)

	// CreatePlaylist creates a playlist owned by the given provider user.
	CreatePlaylist(ctx context.Context, token, userID, name, description string) (json.RawMessage, error)
}

// AuthError is the provider's rejection of a token exchange. The code is the
// error field of the provider's JSON response (e.g., "invalid_grant") and is
// what gets surfaced to the user.
type AuthError struct {
	Code        string
	Description string
}

func (e *AuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// Owner identifies the account a playlist belongs to.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// Playlist represents a playlist as it appears in a listing.
type Playlist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      playlistTracks `json:"tracks"`
	Images      []Image        `json:"images"`
	URI         string         `json:"uri"`
}

// TrackCount returns the provider-reported number of tracks in the playlist.
func (p Playlist) TrackCount() int { return p.Tracks.Total }

// Artist represents a track artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a track album.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
	URI    string  `json:"uri"`
}

// Track represents a playable track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	URI        string   `json:"uri"`
}

// PlaylistTrack represents a track within a playlist context.
type PlaylistTrack struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// PlaylistDetail represents a full playlist with its track listing.
type PlaylistDetail struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Owner       Owner   `json:"owner"`
	Public      bool    `json:"public"`
	Images      []Image `json:"images"`
	URI         string  `json:"uri"`
	Tracks      struct {
		Total int             `json:"total"`
		Items []PlaylistTrack `json:"items"`
	} `json:"tracks"`
}
