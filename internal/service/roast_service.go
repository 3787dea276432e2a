package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/roastmail/internal/dataurl"
	"github.com/vbonduro/roastmail/internal/domain"
	"github.com/vbonduro/roastmail/internal/roast"
	"github.com/vbonduro/roastmail/internal/session"
)

// ErrRoastFailed wraps every failure of the roast request itself. Callers
// treat it as a silent outcome; it is already logged and journaled.
var ErrRoastFailed = errors.New("roast failed")

// attemptRepository is the subset of store.AttemptStore that RoastService requires.
type attemptRepository interface {
	Create(ctx context.Context, a *domain.Attempt) (*domain.Attempt, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Attempt, error)
	CountByStatus(ctx context.Context) (map[domain.AttemptStatus]int, error)
}

type RoastService struct {
	sessions session.Store
	attempts attemptRepository
	roaster  roast.Roaster
	logger   *slog.Logger
	now      func() time.Time
}

func NewRoastService(
	sessions session.Store,
	attempts attemptRepository,
	roaster roast.Roaster,
	logger *slog.Logger,
) *RoastService {
	return &RoastService{
		sessions: sessions,
		attempts: attempts,
		roaster:  roaster,
		logger:   logger,
		now:      time.Now,
	}
}

// OpenSession starts an empty view state for a fresh page load.
func (s *RoastService) OpenSession(ctx context.Context) (session.ViewState, error) {
	v := session.New(uuid.NewString(), s.now())
	if err := s.sessions.Create(ctx, v); err != nil {
		return session.ViewState{}, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Debug("session opened", "session_id", v.ID)
	return v, nil
}

func (s *RoastService) GetSession(ctx context.Context, sessionID string) (session.ViewState, error) {
	return s.sessions.Get(ctx, sessionID)
}

// SelectImage encodes data once and makes it the session's image. A nil data
// means no file was chosen and clears the image and any shown result.
func (s *RoastService) SelectImage(ctx context.Context, sessionID, fileName, declaredMIME string, data []byte) (session.ViewState, error) {
	var img *domain.SelectedImage
	if data != nil {
		mimeType := dataurl.DetectMIME(data, declaredMIME)
		img = &domain.SelectedImage{
			FileName:   fileName,
			MimeType:   mimeType,
			Data:       data,
			DataURL:    dataurl.Encode(mimeType, data),
			SelectedAt: s.now(),
		}
		s.logger.Info("image selected", "session_id", sessionID, "file_name", fileName, "mime_type", mimeType, "bytes", len(data))
	} else {
		s.logger.Info("image cleared", "session_id", sessionID)
	}

	return s.sessions.Update(ctx, sessionID, func(v session.ViewState) (session.ViewState, error) {
		return v.Select(img, s.now()), nil
	})
}

// Roast sends the session's image to the model and stores the reply. With no
// image selected, or a roast already in flight, it returns the current state
// unchanged and a nil error. Request failures leave the shown result
// untouched and return an error wrapping ErrRoastFailed. The session is back
// to Idle on every return path.
func (s *RoastService) Roast(ctx context.Context, sessionID string) (session.ViewState, error) {
	var ticket session.Ticket
	state, err := s.sessions.Update(ctx, sessionID, func(v session.ViewState) (session.ViewState, error) {
		next, t, err := v.Begin(s.now())
		ticket = t
		return next, err
	})
	if errors.Is(err, session.ErrNoImage) || errors.Is(err, session.ErrInFlight) {
		s.logger.Debug("roast ignored", "session_id", sessionID, "reason", err.Error())
		return state, nil
	}
	if err != nil {
		return state, err
	}

	// Settling must not depend on the caller still listening.
	settleCtx := context.WithoutCancel(ctx)
	settled := false
	defer func() {
		if !settled {
			s.settle(settleCtx, sessionID, func(v session.ViewState) session.ViewState { return v.Fail(s.now()) })
		}
	}()

	s.logger.Info("roast started", "session_id", sessionID, "file_name", ticket.Image.FileName)
	started := s.now()
	resp, runErr := s.run(ctx, ticket.Image)
	s.record(settleCtx, sessionID, started, runErr)

	if runErr != nil {
		s.logger.Error("roast failed", "session_id", sessionID, "error", runErr)
		state = s.settle(settleCtx, sessionID, func(v session.ViewState) session.ViewState { return v.Fail(s.now()) })
		settled = true
		return state, fmt.Errorf("%w: %w", ErrRoastFailed, runErr)
	}

	s.logger.Info("roast complete", "session_id", sessionID, "has_score", resp.Result.Score != "", "raw_len", len(resp.RawText))
	state = s.settle(settleCtx, sessionID, func(v session.ViewState) session.ViewState { return v.Complete(ticket, resp.RawText, s.now()) })
	settled = true
	return state, nil
}

// run is the error boundary around both stages of a roast: preparing the
// payload and calling the model. A panicking backend becomes an error.
func (s *RoastService) run(ctx context.Context, img domain.SelectedImage) (resp *roast.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("roaster panicked: %v", r)
		}
	}()

	prepared, err := preparePayload(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	resp, err = s.roaster.Roast(ctx, prepared)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("roaster returned no response")
	}
	return resp, nil
}

// preparePayload fills in whichever of Data and DataURL is missing.
func preparePayload(img domain.SelectedImage) (*domain.SelectedImage, error) {
	switch {
	case img.DataURL == "" && len(img.Data) == 0:
		return nil, errors.New("image has no content")
	case img.DataURL == "":
		img.DataURL = dataurl.Encode(img.MimeType, img.Data)
	case len(img.Data) == 0:
		data, mimeType, err := dataurl.Decode(img.DataURL)
		if err != nil {
			return nil, err
		}
		img.Data = data
		if img.MimeType == "" {
			img.MimeType = mimeType
		}
	}
	return &img, nil
}

// settle applies a terminal transition. A session that expired mid-roast is
// logged and an empty state returned.
func (s *RoastService) settle(ctx context.Context, sessionID string, fn func(session.ViewState) session.ViewState) session.ViewState {
	state, err := s.sessions.Update(ctx, sessionID, func(v session.ViewState) (session.ViewState, error) {
		return fn(v), nil
	})
	if err != nil {
		s.logger.Warn("failed to settle roast", "session_id", sessionID, "error", err)
	}
	return state
}

func (s *RoastService) record(ctx context.Context, sessionID string, started time.Time, runErr error) {
	a := &domain.Attempt{
		SessionID:  sessionID,
		Backend:    "unknown",
		Status:     domain.AttemptSucceeded,
		DurationMS: s.now().Sub(started).Milliseconds(),
		StartedAt:  started,
	}
	if d, ok := s.roaster.(roast.Describer); ok {
		a.Backend = d.Name()
		a.Model = d.Model()
	}
	if runErr != nil {
		a.Status = domain.AttemptFailed
		a.Error = runErr.Error()
	}
	if _, err := s.attempts.Create(ctx, a); err != nil {
		s.logger.Error("failed to record attempt", "session_id", sessionID, "error", err)
	}
}

// AttemptSummary is the journal view shown on the diagnostics page.
type AttemptSummary struct {
	Recent []*domain.Attempt
	Counts map[domain.AttemptStatus]int
}

func (s *RoastService) RecentAttempts(ctx context.Context, limit int) (*AttemptSummary, error) {
	recent, err := s.attempts.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	counts, err := s.attempts.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &AttemptSummary{Recent: recent, Counts: counts}, nil
}
