package handlers

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/handsomefox/movie-ranking/internal/env"
	"github.com/handsomefox/movie-ranking/internal/logger"
)

const sessionName = "movie-ranking"
const sessionDays = 7

func newSessionStore(secret string, e env.Environment) *sessions.CookieStore {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionDays * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure(e),
	}
	return cs
}

// addFlash queues a message for the next rendered page. It must run before
// the response header is written.
func (h *Handler) addFlash(w http.ResponseWriter, r *http.Request, msg string) {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		h.log.Debug("flash: discarding unreadable session", logger.Error(err))
	}
	session.AddFlash(msg)
	if err := session.Save(r, w); err != nil {
		h.log.Warn("flash: save session failed", logger.Error(err))
	}
}

func (h *Handler) popFlashes(w http.ResponseWriter, r *http.Request) []string {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		h.log.Warn("flash: save session failed", logger.Error(err))
	}

	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func secure(e env.Environment) bool {
	switch e {
	case env.Production:
		return true
	default:
		return false
	}
}
