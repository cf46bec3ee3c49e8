// Package web implements the browser-facing playlist manager application.
//
// Pages are server-rendered with html/template; the search bar and track
// editing endpoints speak JSON. Authorization state lives in a cookie session
// (see [Session]); provider credentials are additionally cached in the user
// store on every successful login.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"golang.org/x/time/rate"
)

//go:embed templates/*.html
var templateFiles embed.FS

// App wires the session store, provider service and repositories into HTTP
// handlers.
type App struct {
	config   *shared.Config
	service  services.Service
	users    *repositories.UserRepository
	metadata *repositories.PlaylistMetadataRepository
	engine   *tasks.Engine
	sessions *SessionStore
	logger   *log.Logger
	tmpl     *template.Template
}

// AppOpts contains dependencies for creating an App.
type AppOpts struct {
	Config   *shared.Config
	Service  services.Service
	Users    *repositories.UserRepository
	Metadata *repositories.PlaylistMetadataRepository
	Sessions *SessionStore
	Logger   *log.Logger
}

// NewApp creates the web application from its dependencies.
func NewApp(opts AppOpts) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Sessions == nil {
		secret := ""
		if opts.Config != nil {
			secret = opts.Config.Session.Secret
		}
		opts.Sessions = NewSessionStore(secret)
	}

	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &App{
		config:   opts.Config,
		service:  opts.Service,
		users:    opts.Users,
		metadata: opts.Metadata,
		engine:   tasks.NewEngine(opts.Service, opts.Users, opts.Metadata, opts.Logger),
		sessions: opts.Sessions,
		logger:   opts.Logger,
		tmpl:     tmpl,
	}, nil
}

// Register attaches every route to the router. The search endpoint gets its
// own throttle so a stuck page cannot hammer the pass-through surface.
func (a *App) Register(router server.Router) {
	router.Use(server.RequestLogger(a.logger))

	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.handleIndex))
	router.Handle(http.MethodGet, "/authorize", http.HandlerFunc(a.handleAuthorize))
	router.Handle(http.MethodGet, "/redirect", http.HandlerFunc(a.handleRedirect))
	router.Handle(http.MethodGet, "/logout", http.HandlerFunc(a.handleLogout))
	router.Handle(http.MethodGet, "/dashboard", http.HandlerFunc(a.handleDashboard))
	router.Handle(http.MethodGet, "/playlists/{id}", http.HandlerFunc(a.handlePlaylistDetail))
	router.Handle(http.MethodGet, "/playlists/{id}/export", http.HandlerFunc(a.handlePlaylistExport))
	router.Handle(http.MethodGet, "/tracks/{id}", http.HandlerFunc(a.handleTrack))

	limiter := rate.NewLimiter(rate.Limit(5), 10)
	searchHandler := server.Throttle(limiter)(http.HandlerFunc(a.handleSearch))
	router.Handle(http.MethodPost, "/searchbar", searchHandler)

	router.Handler(&playlistsHandler{app: a})
	router.Handler(&playlistTracksHandler{app: a})
}

// pageData carries shared template context plus per-page payloads.
type pageData struct {
	Authenticated bool
	UserID        string
	Flashes       map[string][]string
	Data          any
}

// render consumes flashes, saves the session and renders the named template.
func (a *App) render(w http.ResponseWriter, r *http.Request, sess *Session, name string, data any) {
	page := pageData{
		Authenticated: sess.AccessToken() != "",
		UserID:        sess.UserID(),
		Flashes: map[string][]string{
			FlashSuccess: sess.Flashes(FlashSuccess),
			FlashDanger:  sess.Flashes(FlashDanger),
		},
		Data: data,
	}

	if err := sess.Save(r, w); err != nil {
		a.logger.Warnf("failed to save session: %v", err)
	}

	if err := a.tmpl.ExecuteTemplate(w, name, page); err != nil {
		a.logger.Errorf("failed to render %s: %v", name, err)
	}
}

// flashAndRedirect queues a message and sends the browser to the given path.
func (a *App) flashAndRedirect(w http.ResponseWriter, r *http.Request, sess *Session, category, message, path string) {
	sess.Flash(category, message)
	if err := sess.Save(r, w); err != nil {
		a.logger.Warnf("failed to save session: %v", err)
	}
	http.Redirect(w, r, path, http.StatusFound)
}

// requireAuthenticated is the access gate every protected page calls first.
// Returns ok=false after redirecting to the landing page when the session
// carries no token.
func (a *App) requireAuthenticated(w http.ResponseWriter, r *http.Request) (string, *Session, bool) {
	sess := a.sessions.Get(r)

	token := sess.AccessToken()
	if token == "" {
		a.flashAndRedirect(w, r, sess, FlashDanger, "No session detected. Please Authorize.", "/")
		return "", sess, false
	}

	return token, sess, true
}

// requireToken is the JSON-route variant of the access gate: no redirect,
// just an error body.
func (a *App) requireToken(w http.ResponseWriter, r *http.Request) (string, *Session, bool) {
	sess := a.sessions.Get(r)

	token := sess.AccessToken()
	if token == "" {
		a.writeJSONError(w, http.StatusUnauthorized, "Failed to authenticate user.")
		return "", sess, false
	}

	return token, sess, true
}

func (a *App) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Errorf("failed to write JSON response: %v", err)
	}
}

func (a *App) writeJSONError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

// writeRaw passes an upstream JSON body through unmodified.
func (a *App) writeRaw(w http.ResponseWriter, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		a.logger.Errorf("failed to write response: %v", err)
	}
}
