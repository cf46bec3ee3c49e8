package web

import (
	"encoding/json"
	"net/http"
)

// playlistsHandler multiplexes /playlists: the listing page on GET and
// playlist creation on POST.
type playlistsHandler struct {
	app *App
}

func (h *playlistsHandler) Routes() []string {
	return []string{"/playlists"}
}

func (h *playlistsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.app.handlePlaylists(w, r)
	case http.MethodPost:
		h.app.handleCreatePlaylist(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// playlistTracksHandler multiplexes /playlists/{id}/tracks: track insertion
// on POST and removal on DELETE.
type playlistTracksHandler struct {
	app *App
}

func (h *playlistTracksHandler) Routes() []string {
	return []string{"/playlists/{id}/tracks"}
}

func (h *playlistTracksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.app.handleAddTrack(w, r)
	case http.MethodDelete:
		h.app.handleRemoveTrack(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSearch proxies the search bar's track lookup, passing the provider's
// response through unmodified.
//
// POST /searchbar {"q": "..."}
func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	token, _, ok := a.requireToken(w, r)
	if !ok {
		return
	}

	var body struct {
		Query string `json:"q"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeJSONError(w, http.StatusBadRequest, "Invalid search request.")
		return
	}

	results, err := a.service.SearchTracks(r.Context(), token, body.Query, 5)
	if err != nil {
		a.logger.Errorf("search failed: %v", err)
		a.writeJSONError(w, http.StatusBadGateway, "Backend search failed. Please try again.")
		return
	}

	a.writeRaw(w, results)
}

// handleTrack proxies a single track lookup used by the search UI.
//
// GET /tracks/{id}
func (a *App) handleTrack(w http.ResponseWriter, r *http.Request) {
	token, _, ok := a.requireToken(w, r)
	if !ok {
		return
	}

	track, err := a.service.Track(r.Context(), token, r.PathValue("id"))
	if err != nil {
		a.logger.Errorf("track lookup failed: %v", err)
		a.writeJSONError(w, http.StatusBadGateway, "Failed to retrieve track.")
		return
	}

	a.writeRaw(w, track)
}

// handleAddTrack appends a track to a playlist.
//
// POST /playlists/{id}/tracks {"uri": "spotify:track:..."}
func (a *App) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	token, _, ok := a.requireToken(w, r)
	if !ok {
		return
	}

	uri, ok := a.decodeTrackURI(w, r)
	if !ok {
		return
	}

	resp, err := a.service.AddTrack(r.Context(), token, r.PathValue("id"), uri)
	if err != nil {
		a.logger.Errorf("failed to add track: %v", err)
		a.writeJSONError(w, http.StatusBadGateway, "Failed to add track to playlist.")
		return
	}

	a.writeRaw(w, resp)
}

// handleRemoveTrack removes a track from a playlist.
//
// DELETE /playlists/{id}/tracks {"uri": "spotify:track:..."}
func (a *App) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	token, _, ok := a.requireToken(w, r)
	if !ok {
		return
	}

	uri, ok := a.decodeTrackURI(w, r)
	if !ok {
		return
	}

	resp, err := a.service.RemoveTrack(r.Context(), token, r.PathValue("id"), uri)
	if err != nil {
		a.logger.Errorf("failed to remove track: %v", err)
		a.writeJSONError(w, http.StatusBadGateway, "Failed to remove track from playlist.")
		return
	}

	a.writeRaw(w, resp)
}

// handleCreatePlaylist creates a playlist owned by the session user. Requires
// a resolved user id; sessions that logged in without one cannot own new
// playlists.
//
// POST /playlists {"name": "...", "description": "..."}
func (a *App) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	token, sess, ok := a.requireToken(w, r)
	if !ok {
		return
	}

	userID := sess.UserID()
	if userID == "" {
		a.writeJSONError(w, http.StatusForbidden, "No user identity on this session.")
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		a.writeJSONError(w, http.StatusBadRequest, "Playlist name is required.")
		return
	}

	resp, err := a.service.CreatePlaylist(r.Context(), token, userID, body.Name, body.Description)
	if err != nil {
		a.logger.Errorf("failed to create playlist: %v", err)
		a.writeJSONError(w, http.StatusBadGateway, "Failed to create playlist.")
		return
	}

	a.writeRaw(w, resp)
}

// decodeTrackURI reads the {"uri": ...} body shared by the track endpoints.
func (a *App) decodeTrackURI(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URI == "" {
		a.writeJSONError(w, http.StatusBadRequest, "Track URI is required.")
		return "", false
	}
	return body.URI, true
}
