// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/mixtape/internal/services"
	"golang.org/x/oauth2"
)

// MockService is a configurable test double for [services.Service].
//
// Zero-value fields fall back to benign defaults; CallCounts records how
// often each method was invoked so tests can assert a gated handler never
// reached the provider.
type MockService struct {
	AuthURLFunc       func(state string) string
	ExchangeCodeFunc  func(ctx context.Context, code string) (*oauth2.Token, error)
	CurrentUserIDFunc func(ctx context.Context, token string) string
	PlaylistsFunc     func(ctx context.Context, token string) ([]services.Playlist, error)
	PlaylistFunc      func(ctx context.Context, token, playlistID string) (*services.PlaylistDetail, error)

	CallCounts map[string]int
}

func (m *MockService) record(method string) {
	if m.CallCounts == nil {
		m.CallCounts = make(map[string]int)
	}
	m.CallCounts[method]++
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) AuthURL(state string) string {
	m.record("AuthURL")
	if m.AuthURLFunc != nil {
		return m.AuthURLFunc(state)
	}
	return "https://provider.example/authorize?state=" + state
}

func (m *MockService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	m.record("ExchangeCode")
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code)
	}
	return &oauth2.Token{AccessToken: "mock_token", RefreshToken: "mock_refresh"}, nil
}

func (m *MockService) CurrentUserID(ctx context.Context, token string) string {
	m.record("CurrentUserID")
	if m.CurrentUserIDFunc != nil {
		return m.CurrentUserIDFunc(ctx, token)
	}
	return "mock_user"
}

func (m *MockService) Playlists(ctx context.Context, token string) ([]services.Playlist, error) {
	m.record("Playlists")
	if m.PlaylistsFunc != nil {
		return m.PlaylistsFunc(ctx, token)
	}
	return []services.Playlist{}, nil
}

func (m *MockService) Playlist(ctx context.Context, token, playlistID string) (*services.PlaylistDetail, error) {
	m.record("Playlist")
	if m.PlaylistFunc != nil {
		return m.PlaylistFunc(ctx, token, playlistID)
	}
	return &services.PlaylistDetail{ID: playlistID, Name: "Mock Playlist"}, nil
}

func (m *MockService) SearchTracks(ctx context.Context, token, query string, limit int) (json.RawMessage, error) {
	m.record("SearchTracks")
	return json.RawMessage(`{"tracks":{"items":[]}}`), nil
}

func (m *MockService) Track(ctx context.Context, token, trackID string) (json.RawMessage, error) {
	m.record("Track")
	return json.RawMessage(`{"id":"` + trackID + `"}`), nil
}

func (m *MockService) AddTrack(ctx context.Context, token, playlistID, trackURI string) (json.RawMessage, error) {
	m.record("AddTrack")
	return json.RawMessage(`{"snapshot_id":"snap"}`), nil
}

func (m *MockService) RemoveTrack(ctx context.Context, token, playlistID, trackURI string) (json.RawMessage, error) {
	m.record("RemoveTrack")
	return json.RawMessage(`{"snapshot_id":"snap"}`), nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, token, userID, name, description string) (json.RawMessage, error) {
	m.record("CreatePlaylist")
	return json.RawMessage(`{"id":"new_playlist","name":"` + name + `"}`), nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
