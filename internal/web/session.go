package web

import (
	"net/http"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
)

const sessionName = "mixtape_session"

// Session value keys. The token fields exist only after a successful
// authorization; state exists only between /authorize and /redirect.
const (
	keyState        = "state"
	keyAccessToken  = "token"
	keyRefreshToken = "refresh_token"
	keyUserID       = "user_id"
)

// Flash categories, mirrored by the page templates.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// SessionStore hands out [Session] capability objects backed by signed
// cookies.
type SessionStore struct {
	store sessions.Store
}

// NewSessionStore creates a cookie-backed session store signed with the given
// secret. An empty secret gets a random one, which invalidates all sessions
// on restart.
func NewSessionStore(secret string) *SessionStore {
	if secret == "" {
		secret = shared.GenerateState()
	}

	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
	}

	return &SessionStore{store: cs}
}

// Get returns the request's session, creating an empty one when the cookie is
// absent or undecodable.
func (s *SessionStore) Get(r *http.Request) *Session {
	sess, _ := s.store.Get(r, sessionName)
	return &Session{sess: sess}
}

// Session is the per-browser authorization state: csrf state, token pair and
// resolved user id. All access to the backing cookie store goes through it.
type Session struct {
	sess *sessions.Session
}

func (s *Session) getString(key string) string {
	if v, ok := s.sess.Values[key].(string); ok {
		return v
	}
	return ""
}

func (s *Session) State() string        { return s.getString(keyState) }
func (s *Session) AccessToken() string  { return s.getString(keyAccessToken) }
func (s *Session) RefreshToken() string { return s.getString(keyRefreshToken) }
func (s *Session) UserID() string       { return s.getString(keyUserID) }

// SetState stores the anti-forgery state generated at /authorize time.
func (s *Session) SetState(state string) {
	s.sess.Values[keyState] = state
}

// CompleteLogin stores the token pair and resolved user id. Idempotent;
// calling twice with the same values only overwrites identical fields.
func (s *Session) CompleteLogin(token *oauth2.Token, userID string) {
	s.sess.Values[keyAccessToken] = token.AccessToken
	s.sess.Values[keyRefreshToken] = token.RefreshToken
	s.sess.Values[keyUserID] = userID
}

// Logout clears every authorization field. Clearing an empty session is a
// valid no-op.
func (s *Session) Logout() {
	for _, key := range []string{keyState, keyAccessToken, keyRefreshToken, keyUserID} {
		delete(s.sess.Values, key)
	}
}

// Flash queues a one-time message under the given category.
func (s *Session) Flash(category, message string) {
	s.sess.AddFlash(message, "_flash_"+category)
}

// Flashes consumes and returns queued messages for the given category.
func (s *Session) Flashes(category string) []string {
	var messages []string
	for _, f := range s.sess.Flashes("_flash_" + category) {
		if msg, ok := f.(string); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

// Save writes the session back to the response cookie.
func (s *Session) Save(r *http.Request, w http.ResponseWriter) error {
	return s.sess.Save(r, w)
}
