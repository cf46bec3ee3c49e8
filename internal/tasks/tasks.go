// package tasks implements playlist sync operations against the music provider.
//
// The core abstraction is Engine, which fetches a user's playlists, records
// sync observations in the metadata store, and filters playlists by ownership.
package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
)

// Engine orchestrates playlist fetches and the sync bookkeeping that follows
// them.
type Engine struct {
	service  services.Service
	users    *repositories.UserRepository
	metadata *repositories.PlaylistMetadataRepository
	logger   *log.Logger
}

// NewEngine creates an Engine with the provided service and repositories.
func NewEngine(service services.Service, users *repositories.UserRepository, metadata *repositories.PlaylistMetadataRepository, logger *log.Logger) *Engine {
	return &Engine{
		service:  service,
		users:    users,
		metadata: metadata,
		logger:   logger,
	}
}

// SyncPlaylists fetches the user's playlists and upserts a last_synced
// observation for each.
//
// Bookkeeping is best effort: a missing user record (including the empty
// spotify id left by a failed identity resolution) or a store failure is
// logged and the playlists are still returned.
func (e *Engine) SyncPlaylists(ctx context.Context, token, spotifyUserID string) ([]services.Playlist, error) {
	playlists, err := e.service.Playlists(ctx, token)
	if err != nil {
		return nil, err
	}

	if spotifyUserID == "" {
		return playlists, nil
	}

	user, err := e.users.GetBySpotifyID(spotifyUserID)
	if err != nil {
		e.logger.Warnf("skipping playlist sync bookkeeping: %v", err)
		return playlists, nil
	}
	if user == nil {
		return playlists, nil
	}

	ids := make([]string, 0, len(playlists))
	for _, playlist := range playlists {
		ids = append(ids, playlist.ID)
	}

	if err := e.metadata.RecordSync(user.ID(), ids); err != nil {
		e.logger.Warnf("failed to record playlist sync: %v", err)
	}

	return playlists, nil
}

// FilterOwned returns the playlists owned by the given provider user id.
//
// An empty user id yields an empty result, which is how a failed identity
// resolution degrades downstream.
func FilterOwned(playlists []services.Playlist, spotifyUserID string) []services.Playlist {
	if spotifyUserID == "" {
		return nil
	}

	var owned []services.Playlist
	for _, playlist := range playlists {
		if playlist.Owner.ID == spotifyUserID {
			owned = append(owned, playlist)
		}
	}

	return owned
}
