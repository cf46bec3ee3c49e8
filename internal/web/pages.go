package web

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// handleIndex renders the landing page, or forwards straight to the dashboard
// when the session already carries a token.
//
// GET /
func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := a.sessions.Get(r)

	if sess.AccessToken() != "" {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	a.render(w, r, sess, "index.html", nil)
}

// handleDashboard renders the authenticated home page.
//
// GET /dashboard
func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := a.requireAuthenticated(w, r)
	if !ok {
		return
	}

	a.render(w, r, sess, "dashboard.html", nil)
}

// playlistsPage is the template payload for the playlist listing.
type playlistsPage struct {
	Playlists []services.Playlist
	Owned     []services.Playlist
}

// handlePlaylists renders the user's playlists. Fetching the list also
// records a sync observation for each playlist, and the insert targets shown
// by the page are filtered to playlists the session user owns.
//
// GET /playlists
func (a *App) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	token, sess, ok := a.requireAuthenticated(w, r)
	if !ok {
		return
	}

	playlists, err := a.engine.SyncPlaylists(r.Context(), token, sess.UserID())
	if err != nil {
		a.logger.Errorf("failed to retrieve playlists: %v", err)
		a.flashAndRedirect(w, r, sess, FlashDanger, "Failed to retrieve playlists.", "/dashboard")
		return
	}

	a.render(w, r, sess, "playlists.html", playlistsPage{
		Playlists: playlists,
		Owned:     tasks.FilterOwned(playlists, sess.UserID()),
	})
}

// handlePlaylistDetail renders a playlist and its track listing.
//
// GET /playlists/{id}
func (a *App) handlePlaylistDetail(w http.ResponseWriter, r *http.Request) {
	token, sess, ok := a.requireAuthenticated(w, r)
	if !ok {
		return
	}

	playlist, err := a.service.Playlist(r.Context(), token, r.PathValue("id"))
	if err != nil {
		a.logger.Errorf("failed to retrieve playlist: %v", err)
		a.flashAndRedirect(w, r, sess, FlashDanger, "Failed to retrieve playlist details.", "/playlists")
		return
	}

	a.render(w, r, sess, "playlist.html", playlist)
}

// handlePlaylistExport downloads a playlist's track listing as CSV or
// Markdown.
//
// GET /playlists/{id}/export?format=csv|markdown
func (a *App) handlePlaylistExport(w http.ResponseWriter, r *http.Request) {
	token, sess, ok := a.requireAuthenticated(w, r)
	if !ok {
		return
	}

	playlist, err := a.service.Playlist(r.Context(), token, r.PathValue("id"))
	if err != nil {
		a.logger.Errorf("failed to retrieve playlist for export: %v", err)
		a.flashAndRedirect(w, r, sess, FlashDanger, "Failed to retrieve playlist details.", "/playlists")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var data []byte
	var contentType, ext string

	switch format {
	case "csv":
		data, err = formatter.ExportToCSV(playlist)
		contentType, ext = "text/csv", "csv"
	case "markdown":
		data, err = formatter.ExportToMarkdown(playlist)
		contentType, ext = "text/markdown", "md"
	default:
		a.flashAndRedirect(w, r, sess, FlashDanger, "Unsupported export format.", "/playlists")
		return
	}

	if err != nil {
		a.logger.Errorf("failed to export playlist: %v", err)
		a.flashAndRedirect(w, r, sess, FlashDanger, "Failed to export playlist.", "/playlists")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", playlist.Name+"."+ext))
	if _, err := w.Write(data); err != nil {
		a.logger.Errorf("failed to write export: %v", err)
	}
}
