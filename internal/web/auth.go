package web

import (
	"errors"
	"net/http"

	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// handleAuthorize begins the authorization-code dance: generate the
// anti-forgery state, persist it in the session and send the browser to the
// provider.
//
// GET /authorize
func (a *App) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	sess := a.sessions.Get(r)

	state := shared.GenerateState()
	sess.SetState(state)

	if err := sess.Save(r, w); err != nil {
		a.logger.Errorf("failed to persist authorization state: %v", err)
		a.flashAndRedirect(w, r, sess, FlashDanger, "Failed to retrieve Spotify authorization endpoint.", "/")
		return
	}

	http.Redirect(w, r, a.service.AuthURL(state), http.StatusFound)
}

// handleRedirect completes the dance: verify the echoed state, exchange the
// code for tokens, resolve the user identity and persist everything.
//
// A provider error or a failed exchange drops the session back to
// unauthenticated with a flashed message. A failed identity resolution does
// not; the login succeeds with an empty user id and ownership filtering
// degrades to empty results.
//
// GET /redirect?code=... | /redirect?error=...
func (a *App) handleRedirect(w http.ResponseWriter, r *http.Request) {
	sess := a.sessions.Get(r)
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		a.logger.Warnf("provider denied authorization: %s", errParam)
		a.flashAndRedirect(w, r, sess, FlashDanger, errParam, "/")
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	state := query.Get("state")
	if state == "" || state != sess.State() {
		a.logger.Warn("state parameter mismatch on redirect")
		a.flashAndRedirect(w, r, sess, FlashDanger, "Authorization state mismatch. Please try again.", "/")
		return
	}

	token, err := a.service.ExchangeCode(r.Context(), code)
	if err != nil {
		var authErr *services.AuthError
		if errors.As(err, &authErr) {
			a.logger.Warnf("token exchange rejected: %v", authErr)
			a.flashAndRedirect(w, r, sess, FlashDanger, authErr.Code, "/")
			return
		}

		a.logger.Errorf("token exchange failed: %v", err)
		a.flashAndRedirect(w, r, sess, FlashDanger, "Failed to authorize user.", "/")
		return
	}

	userID := a.service.CurrentUserID(r.Context(), token.AccessToken)
	if userID == "" {
		a.logger.Warn("could not resolve user id; continuing without one")
	}

	sess.CompleteLogin(token, userID)

	if userID != "" {
		if _, err := a.users.Upsert(userID, token.AccessToken, token.RefreshToken); err != nil {
			a.logger.Errorf("failed to persist credentials for %s: %v", userID, err)
		}
	}

	a.flashAndRedirect(w, r, sess, FlashSuccess, "Authorization successful!", "/dashboard")
}

// handleLogout clears the session and returns to the landing page.
//
// GET /logout
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := a.sessions.Get(r)
	sess.Logout()

	if err := sess.Save(r, w); err != nil {
		a.logger.Warnf("failed to save session: %v", err)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}
