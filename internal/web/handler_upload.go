package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/roastmail/internal/session"
)

const maxScreenshotSize = 50 * 1024 * 1024 // 50 MB

// handleSelectImage takes the "image" multipart field and makes it the
// session's screenshot. Submitting the form without a file clears the
// selection. Any file is accepted.
func (s *Server) handleSelectImage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	if err := r.ParseMultipartForm(maxScreenshotSize); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		state, err := s.service.SelectImage(r.Context(), sessionID, "", "", nil)
		s.respondWorkspace(w, sessionID, state, err)
		return
	}
	if err != nil {
		http.Error(w, "failed to read form file", http.StatusBadRequest)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		// The selection is dropped and the page keeps whatever it had.
		s.logger.Error("read upload failed", "session_id", sessionID, "error", err)
		state, err := s.service.GetSession(r.Context(), sessionID)
		s.respondWorkspace(w, sessionID, state, err)
		return
	}
	if data == nil {
		data = []byte{}
	}

	state, err := s.service.SelectImage(r.Context(), sessionID, header.Filename, header.Header.Get("Content-Type"), data)
	s.respondWorkspace(w, sessionID, state, err)
}

// respondWorkspace renders the workspace partial for state, or maps err to
// an HTTP status.
func (s *Server) respondWorkspace(w http.ResponseWriter, sessionID string, state session.ViewState, err error) {
	if errors.Is(err, session.ErrNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		s.logger.Error("session update failed", "session_id", sessionID, "error", err)
		return
	}
	if err := s.renderPartial(w, "partials/workspace.html", state); err != nil {
		s.logger.Error("render workspace failed", "session_id", sessionID, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
