package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/vbonduro/roastmail/internal/domain"
	"github.com/vbonduro/roastmail/internal/service"
	"github.com/vbonduro/roastmail/internal/session"
)

const recentAttemptsLimit = 50

type indexPage struct {
	ActiveNav string
	State     session.ViewState
}

type attemptsPage struct {
	ActiveNav string
	Summary   *service.AttemptSummary
	Succeeded int
	Failed    int
}

// handleIndex starts a fresh session on every full page load.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.OpenSession(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		s.logger.Error("open session failed", "error", err)
		return
	}

	data := indexPage{ActiveNav: "roast", State: state}
	if err := s.renderPage(w, data, "base.html", "pages/index.html", "partials/workspace.html"); err != nil {
		s.logger.Error("render index failed", "error", err)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	state, err := s.service.GetSession(r.Context(), sessionID)
	s.respondWorkspace(w, sessionID, state, err)
}

// handleRoast runs one roast for the session. The model call outlives the
// client connection, and a failed roast renders the state unchanged.
func (s *Server) handleRoast(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	state, err := s.service.Roast(context.WithoutCancel(r.Context()), sessionID)
	if errors.Is(err, service.ErrRoastFailed) {
		err = nil
	}
	s.respondWorkspace(w, sessionID, state, err)
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.RecentAttempts(r.Context(), recentAttemptsLimit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		s.logger.Error("list attempts failed", "error", err)
		return
	}

	data := attemptsPage{
		ActiveNav: "attempts",
		Summary:   summary,
		Succeeded: summary.Counts[domain.AttemptSucceeded],
		Failed:    summary.Counts[domain.AttemptFailed],
	}
	if err := s.renderPage(w, data, "base.html", "pages/attempts.html"); err != nil {
		s.logger.Error("render attempts failed", "error", err)
	}
}
