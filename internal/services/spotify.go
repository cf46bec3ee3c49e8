// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyService implements the [Service] interface for Spotify API interactions.
//
// The authorization URL is built with [oauth2.Config]; the code exchange is
// performed directly so provider rejections surface as [AuthError] values
// rather than opaque transport errors.
type SpotifyService struct {
	clientID     string
	clientSecret string
	redirectURI  string
	scope        string

	authURL    string
	tokenURL   string
	baseURL    string
	httpClient *http.Client
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/redirect"
	}

	return &SpotifyService{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  redirectURI,
		scope:        cfg.Scope,
		authURL:      spotifyAuthURL,
		tokenURL:     spotifyTokenURL,
		baseURL:      spotifyBaseURL,
		httpClient:   http.DefaultClient,
	}, nil
}

// WithEndpoints overrides the provider endpoints. Used by tests to point the
// service at stub servers.
func (s *SpotifyService) WithEndpoints(authURL, tokenURL, baseURL string) *SpotifyService {
	if authURL != "" {
		s.authURL = authURL
	}
	if tokenURL != "" {
		s.tokenURL = tokenURL
	}
	if baseURL != "" {
		s.baseURL = baseURL
	}
	return s
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func (s *SpotifyService) WithHTTPClient(client *http.Client) *SpotifyService {
	if client != nil {
		s.httpClient = client
	}
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// oauthConfig assembles the [oauth2.Config] from the service's current
// credentials and endpoints.
func (s *SpotifyService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		RedirectURL:  s.redirectURI,
		Scopes:       strings.Fields(s.scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  s.authURL,
			TokenURL: s.tokenURL,
		},
	}
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state)
}

// tokenResponse is the token endpoint's JSON body. A populated Error field
// means the exchange was rejected.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode exchanges an authorization code for a token pair.
//
// Performs a single form-encoded POST with HTTP Basic credentials. No retry;
// a provider rejection is returned as an *AuthError carrying the provider's
// error code.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	form := url.Values{
		"code":         {code},
		"redirect_uri": {s.redirectURI},
		"grant_type":   {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(s.clientID + ":" + s.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrTokenExchange, err)
	}

	if tr.Error != "" {
		return nil, &AuthError{Code: tr.Error, Description: tr.ErrorDescription}
	}

	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: response missing access_token", shared.ErrTokenExchange)
	}

	return &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}, nil
}

// CurrentUserID resolves the authenticated user's Spotify ID from the /me
// endpoint. Returns "" on any non-200 response or transport failure.
func (s *SpotifyService) CurrentUserID(ctx context.Context, token string) string {
	var user struct {
		ID string `json:"id"`
	}

	if err := s.doRequest(ctx, http.MethodGet, "/me", token, nil, &user); err != nil {
		return ""
	}

	return user.ID
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// A non-nil body is JSON-encoded; a non-nil result is decoded from the
// response body. Non-2xx statuses are errors.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint, token string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// raw performs an authenticated request and returns the response body
// unmodified, for pass-through endpoints.
func (s *SpotifyService) raw(ctx context.Context, method, endpoint, token string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.doRequest(ctx, method, endpoint, token, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// paginatedPlaylists represents a page of the user's playlists.
type paginatedPlaylists struct {
	Items []Playlist `json:"items"`
	Next  *string    `json:"next"`
}

// Playlists retrieves all playlists for the token's owner, following
// pagination until the provider reports no next page.
func (s *SpotifyService) Playlists(ctx context.Context, token string) ([]Playlist, error) {
	var all []Playlist
	limit := 50
	offset := 0

	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

		var page paginatedPlaylists
		if err := s.doRequest(ctx, http.MethodGet, endpoint, token, nil, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// Playlist retrieves a playlist with its track listing.
func (s *SpotifyService) Playlist(ctx context.Context, token, playlistID string) (*PlaylistDetail, error) {
	var playlist PlaylistDetail
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, token, nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// SearchTracks searches the track catalog, passing the provider's response
// through unmodified.
func (s *SpotifyService) SearchTracks(ctx context.Context, token, query string, limit int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 5
	}

	endpoint := fmt.Sprintf("/search?q=%s&limit=%d&type=track", url.QueryEscape(query), limit)
	return s.raw(ctx, http.MethodGet, endpoint, token, nil)
}

// Track retrieves a single track.
func (s *SpotifyService) Track(ctx context.Context, token, trackID string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("/tracks/%s", url.PathEscape(trackID))
	return s.raw(ctx, http.MethodGet, endpoint, token, nil)
}

// AddTrack appends a track to a playlist by URI.
func (s *SpotifyService) AddTrack(ctx context.Context, token, playlistID, trackURI string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string]any{"uris": []string{trackURI}}
	return s.raw(ctx, http.MethodPost, endpoint, token, body)
}

// RemoveTrack removes all occurrences of a track URI from a playlist.
func (s *SpotifyService) RemoveTrack(ctx context.Context, token, playlistID, trackURI string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string]any{"tracks": []map[string]string{{"uri": trackURI}}}
	return s.raw(ctx, http.MethodDelete, endpoint, token, body)
}

// CreatePlaylist creates a playlist owned by the given user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, token, userID, name, description string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	body := map[string]string{"name": name, "description": description}
	return s.raw(ctx, http.MethodPost, endpoint, token, body)
}
