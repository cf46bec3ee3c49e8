package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	mocks "github.com/desertthunder/mixtape/internal/testing"
	"golang.org/x/oauth2"
)

// newTestServer wires a mock provider into a full App behind an httptest
// server backed by an in-memory database.
func newTestServer(t *testing.T, service services.Service) (*httptest.Server, *sql.DB) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	app, err := NewApp(AppOpts{
		Config:   shared.DefaultConfig(),
		Service:  service,
		Users:    repositories.NewUserRepository(db),
		Metadata: repositories.NewPlaylistMetadataRepository(db),
	})
	if err != nil {
		db.Close()
		t.Fatalf("failed to build app: %v", err)
	}

	router := server.NewBasicRouter()
	app.Register(router)

	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		ts.Close()
		db.Close()
	})

	return ts, db
}

// newTestClient returns a client with a cookie jar that never follows
// redirects, so tests can assert on each hop.
func newTestClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(body)
}

// login walks the authorization-code flow against the mock provider: visit
// /authorize, lift the state out of the provider redirect, and complete it at
// /redirect.
func login(t *testing.T, client *http.Client, baseURL string) {
	t.Helper()

	resp := get(t, client, baseURL+"/authorize")
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect to provider, got %d", resp.StatusCode)
	}

	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("failed to parse provider URL: %v", err)
	}
	state := location.Query().Get("state")
	if state == "" {
		t.Fatal("provider URL carries no state parameter")
	}

	resp = get(t, client, baseURL+"/redirect?code=test_code&state="+url.QueryEscape(state))
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard, got %d -> %s", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestAuthorizationFlow(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		service := &mocks.MockService{
			ExchangeCodeFunc: func(ctx context.Context, code string) (*oauth2.Token, error) {
				if code != "test_code" {
					t.Errorf("unexpected code: %s", code)
				}
				return &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}, nil
			},
			CurrentUserIDFunc: func(ctx context.Context, token string) string { return "u1" },
		}

		ts, db := newTestServer(t, service)
		client := newTestClient(t)

		login(t, client, ts.URL)

		resp := get(t, client, ts.URL+"/dashboard")
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected dashboard to render, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "Authorization successful!") {
			t.Error("expected success flash on dashboard")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE spotify_id = ?", "u1").Scan(&count); err != nil {
			t.Fatalf("failed to count users: %v", err)
		}
		if count != 1 {
			t.Errorf("expected persisted user row, got %d", count)
		}
	})

	t.Run("Provider Denial", func(t *testing.T) {
		ts, _ := newTestServer(t, &mocks.MockService{})
		client := newTestClient(t)

		resp := get(t, client, ts.URL+"/redirect?error=access_denied")
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
			t.Fatalf("expected redirect to landing page, got %d -> %s", resp.StatusCode, resp.Header.Get("Location"))
		}

		body := readBody(t, get(t, client, ts.URL+"/"))
		if !strings.Contains(body, "access_denied") {
			t.Error("expected provider error flashed verbatim")
		}
	})

	t.Run("State Mismatch", func(t *testing.T) {
		service := &mocks.MockService{}
		ts, _ := newTestServer(t, service)
		client := newTestClient(t)

		resp := get(t, client, ts.URL+"/authorize")
		resp.Body.Close()

		resp = get(t, client, ts.URL+"/redirect?code=test_code&state=forged")
		resp.Body.Close()
		if resp.Header.Get("Location") != "/" {
			t.Fatalf("expected redirect to landing page, got %s", resp.Header.Get("Location"))
		}

		body := readBody(t, get(t, client, ts.URL+"/"))
		if !strings.Contains(body, "Authorization state mismatch. Please try again.") {
			t.Error("expected state mismatch flash")
		}

		if service.CallCounts["ExchangeCode"] != 0 {
			t.Error("forged state must not reach the token exchange")
		}
	})

	t.Run("Exchange Rejection", func(t *testing.T) {
		service := &mocks.MockService{
			ExchangeCodeFunc: func(ctx context.Context, code string) (*oauth2.Token, error) {
				return nil, &services.AuthError{Code: "invalid_grant", Description: "expired"}
			},
		}

		ts, _ := newTestServer(t, service)
		client := newTestClient(t)

		resp := get(t, client, ts.URL+"/authorize")
		resp.Body.Close()

		location, _ := url.Parse(resp.Header.Get("Location"))
		state := location.Query().Get("state")

		resp = get(t, client, ts.URL+"/redirect?code=bad&state="+url.QueryEscape(state))
		resp.Body.Close()
		if resp.Header.Get("Location") != "/" {
			t.Fatalf("expected redirect to landing page, got %s", resp.Header.Get("Location"))
		}

		body := readBody(t, get(t, client, ts.URL+"/"))
		if !strings.Contains(body, "invalid_grant") {
			t.Error("expected provider error code flashed")
		}
	})

	t.Run("Missing Code", func(t *testing.T) {
		ts, _ := newTestServer(t, &mocks.MockService{})
		client := newTestClient(t)

		resp := get(t, client, ts.URL+"/redirect")
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
			t.Fatalf("expected plain redirect home, got %d -> %s", resp.StatusCode, resp.Header.Get("Location"))
		}
	})

	t.Run("Identity Resolution Failure Still Logs In", func(t *testing.T) {
		service := &mocks.MockService{
			CurrentUserIDFunc: func(ctx context.Context, token string) string { return "" },
			PlaylistsFunc: func(ctx context.Context, token string) ([]services.Playlist, error) {
				return []services.Playlist{{ID: "p1", Name: "Roadtrip", Owner: services.Owner{ID: "someone"}}}, nil
			},
		}

		ts, db := newTestServer(t, service)
		client := newTestClient(t)

		login(t, client, ts.URL)

		resp := get(t, client, ts.URL+"/playlists")
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected playlists page, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "Roadtrip") {
			t.Error("expected playlist listing despite missing identity")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
			t.Fatalf("failed to count users: %v", err)
		}
		if count != 0 {
			t.Errorf("expected no user row without a resolved id, got %d", count)
		}
	})
}

func TestAccessGate(t *testing.T) {
	t.Run("Pages Redirect With Flash", func(t *testing.T) {
		service := &mocks.MockService{}
		ts, _ := newTestServer(t, service)
		client := newTestClient(t)

		resp := get(t, client, ts.URL+"/playlists")
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
			t.Fatalf("expected redirect home, got %d -> %s", resp.StatusCode, resp.Header.Get("Location"))
		}

		body := readBody(t, get(t, client, ts.URL+"/"))
		if !strings.Contains(body, "No session detected. Please Authorize.") {
			t.Error("expected authorization flash on landing page")
		}

		if service.CallCounts["Playlists"] != 0 {
			t.Error("gated request must not reach the provider")
		}
	})

	t.Run("JSON Routes Return 401", func(t *testing.T) {
		ts, _ := newTestServer(t, &mocks.MockService{})
		client := newTestClient(t)

		resp, err := client.Post(ts.URL+"/searchbar", "application/json", strings.NewReader(`{"q":"song"}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "Failed to authenticate user.") {
			t.Error("expected authentication error body")
		}
	})

	t.Run("Logout Revokes Access", func(t *testing.T) {
		service := &mocks.MockService{}
		ts, _ := newTestServer(t, service)
		client := newTestClient(t)

		login(t, client, ts.URL)

		resp := get(t, client, ts.URL+"/logout")
		resp.Body.Close()
		if resp.Header.Get("Location") != "/" {
			t.Fatalf("expected redirect home after logout, got %s", resp.Header.Get("Location"))
		}

		resp = get(t, client, ts.URL+"/playlists")
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected logged-out session to be gated, got %d", resp.StatusCode)
		}

		if service.CallCounts["Playlists"] != 0 {
			t.Error("logged-out request must not reach the provider")
		}
	})
}

func TestPlaylistPages(t *testing.T) {
	t.Run("Listing Renders And Records Sync", func(t *testing.T) {
		service := &mocks.MockService{
			PlaylistsFunc: func(ctx context.Context, token string) ([]services.Playlist, error) {
				return []services.Playlist{
					{ID: "p1", Name: "Mine", Owner: services.Owner{ID: "mock_user"}},
					{ID: "p2", Name: "Theirs", Owner: services.Owner{ID: "other"}},
				}, nil
			},
		}

		ts, db := newTestServer(t, service)
		client := newTestClient(t)

		login(t, client, ts.URL)

		resp := get(t, client, ts.URL+"/playlists")
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected playlists page, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "Mine") || !strings.Contains(body, "Theirs") {
			t.Error("expected both playlists on the page")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM playlist_metadata").Scan(&count); err != nil {
			t.Fatalf("failed to count metadata: %v", err)
		}
		if count != 2 {
			t.Errorf("expected sync rows for both playlists, got %d", count)
		}
	})

	t.Run("Fetch Failure Flashes", func(t *testing.T) {
		service := &mocks.MockService{
			PlaylistsFunc: func(ctx context.Context, token string) ([]services.Playlist, error) {
				return nil, errors.New("boom")
			},
		}

		ts, _ := newTestServer(t, service)
		client := newTestClient(t)

		login(t, client, ts.URL)

		resp := get(t, client, ts.URL+"/playlists")
		resp.Body.Close()
		if resp.Header.Get("Location") != "/dashboard" {
			t.Fatalf("expected redirect to dashboard, got %s", resp.Header.Get("Location"))
		}

		body := readBody(t, get(t, client, ts.URL+"/dashboard"))
		if !strings.Contains(body, "Failed to retrieve playlists.") {
			t.Error("expected failure flash on dashboard")
		}
	})

	t.Run("Detail Renders Tracks", func(t *testing.T) {
		service := &mocks.MockService{
			PlaylistFunc: func(ctx context.Context, token, playlistID string) (*services.PlaylistDetail, error) {
				detail := &services.PlaylistDetail{ID: playlistID, Name: "Roadtrip"}
				detail.Tracks.Total = 1
				detail.Tracks.Items = []services.PlaylistTrack{
					{Track: services.Track{ID: "t1", Name: "Highway Song"}},
				}
				return detail, nil
			},
		}

		ts, _ := newTestServer(t, service)
		client := newTestClient(t)

		login(t, client, ts.URL)

		resp := get(t, client, ts.URL+"/playlists/p1")
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected detail page, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "Highway Song") {
			t.Error("expected track listing on detail page")
		}
	})

	t.Run("Detail Failure Flashes", func(t *testing.T) {
		service := &mocks.MockService{
			PlaylistFunc: func(ctx context.Context, token, playlistID string) (*services.PlaylistDetail, error) {
				return nil, errors.New("boom")
			},
		}

		ts, _ := newTestServer(t, service)
		client := newTestClient(t)

		login(t, client, ts.URL)

		resp := get(t, client, ts.URL+"/playlists/p1")
		resp.Body.Close()
		if resp.Header.Get("Location") != "/playlists" {
			t.Fatalf("expected redirect to listing, got %s", resp.Header.Get("Location"))
		}
	})

	t.Run("Export CSV", func(t *testing.T) {
		service := &mocks.MockService{
			PlaylistFunc: func(ctx context.Context, token, playlistID string) (*services.PlaylistDetail, error) {
				detail := &services.PlaylistDetail{ID: playlistID, Name: "Roadtrip"}
				detail.Tracks.Items = []services.PlaylistTrack{
					{Track: services.Track{ID: "t1", Name: "Highway Song"}},
				}
				return detail, nil
			},
		}

		ts, _ := newTestServer(t, service)
		client := newTestClient(t)

		login(t, client, ts.URL)

		resp := get(t, client, ts.URL+"/playlists/p1/export?format=csv")
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected export to succeed, got %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
			t.Errorf("unexpected content type %q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Roadtrip.csv") {
			t.Errorf("unexpected disposition %q", cd)
		}
		if !strings.Contains(body, "Highway Song") {
			t.Error("expected track in export body")
		}
	})
}

func TestJSONEndpoints(t *testing.T) {
	authedClient := func(t *testing.T, service services.Service) (*httptest.Server, *http.Client) {
		t.Helper()
		ts, _ := newTestServer(t, service)
		client := newTestClient(t)
		login(t, client, ts.URL)
		return ts, client
	}

	t.Run("Search Passes Response Through", func(t *testing.T) {
		ts, client := authedClient(t, &mocks.MockService{})

		resp, err := client.Post(ts.URL+"/searchbar", "application/json", strings.NewReader(`{"q":"song"}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if body != `{"tracks":{"items":[]}}` {
			t.Errorf("expected raw provider body, got %s", body)
		}
	})

	t.Run("Search Rejects Malformed Body", func(t *testing.T) {
		ts, client := authedClient(t, &mocks.MockService{})

		resp, err := client.Post(ts.URL+"/searchbar", "application/json", strings.NewReader(`not json`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
		}
	})

	t.Run("Track Lookup", func(t *testing.T) {
		ts, client := authedClient(t, &mocks.MockService{})

		resp := get(t, client, ts.URL+"/tracks/t1")
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, `"t1"`) {
			t.Errorf("expected track id in body, got %s", body)
		}
	})

	t.Run("Add Track", func(t *testing.T) {
		service := &mocks.MockService{}
		ts, client := authedClient(t, service)

		resp, err := client.Post(ts.URL+"/playlists/p1/tracks", "application/json", strings.NewReader(`{"uri":"spotify:track:t1"}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if service.CallCounts["AddTrack"] != 1 {
			t.Errorf("expected one AddTrack call, got %d", service.CallCounts["AddTrack"])
		}
	})

	t.Run("Remove Track", func(t *testing.T) {
		service := &mocks.MockService{}
		ts, client := authedClient(t, service)

		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/playlists/p1/tracks", strings.NewReader(`{"uri":"spotify:track:t1"}`))
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if service.CallCounts["RemoveTrack"] != 1 {
			t.Errorf("expected one RemoveTrack call, got %d", service.CallCounts["RemoveTrack"])
		}
	})

	t.Run("Track Endpoints Require URI", func(t *testing.T) {
		service := &mocks.MockService{}
		ts, client := authedClient(t, service)

		resp, err := client.Post(ts.URL+"/playlists/p1/tracks", "application/json", strings.NewReader(`{}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
		if service.CallCounts["AddTrack"] != 0 {
			t.Error("missing uri must not reach the provider")
		}
	})

	t.Run("Create Playlist", func(t *testing.T) {
		service := &mocks.MockService{}
		ts, client := authedClient(t, service)

		resp, err := client.Post(ts.URL+"/playlists", "application/json", strings.NewReader(`{"name":"New Mix","description":"fresh"}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var created struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(body), &created); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if created.Name != "New Mix" {
			t.Errorf("unexpected playlist name %q", created.Name)
		}
	})

	t.Run("Create Playlist Requires Name", func(t *testing.T) {
		ts, client := authedClient(t, &mocks.MockService{})

		resp, err := client.Post(ts.URL+"/playlists", "application/json", strings.NewReader(`{"description":"no name"}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("Create Playlist Requires Identity", func(t *testing.T) {
		service := &mocks.MockService{
			CurrentUserIDFunc: func(ctx context.Context, token string) string { return "" },
		}
		ts, client := authedClient(t, service)

		resp, err := client.Post(ts.URL+"/playlists", "application/json", strings.NewReader(`{"name":"New Mix"}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403 without identity, got %d", resp.StatusCode)
		}
		if service.CallCounts["CreatePlaylist"] != 0 {
			t.Error("identity-less create must not reach the provider")
		}
	})
}
