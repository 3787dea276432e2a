// Package session holds the per-page view state and its transitions.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/vbonduro/roastmail/internal/domain"
	"github.com/vbonduro/roastmail/internal/roast"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrNoImage  = errors.New("no image selected")
	ErrInFlight = errors.New("roast already in progress")
)

type Phase string

const (
	Idle     Phase = "idle"
	InFlight Phase = "in_flight"
)

// ViewState is everything one page shows. Transitions return a new value;
// stores apply them atomically through Update.
type ViewState struct {
	ID         string
	Image      *domain.SelectedImage
	RawText    string
	Phase      Phase
	Generation int
	UpdatedAt  time.Time
}

// Ticket identifies the image an in-flight roast was started for.
type Ticket struct {
	Generation int
	Image      domain.SelectedImage
}

func New(id string, now time.Time) ViewState {
	return ViewState{ID: id, Phase: Idle, UpdatedAt: now}
}

// Select replaces the image and clears any shown result. A nil image clears
// the preview as well. The phase is left alone.
func (v ViewState) Select(img *domain.SelectedImage, now time.Time) ViewState {
	v.Image = img
	v.RawText = ""
	v.Generation++
	v.UpdatedAt = now
	return v
}

// Begin moves Idle to InFlight for the current image.
func (v ViewState) Begin(now time.Time) (ViewState, Ticket, error) {
	if v.Image == nil {
		return v, Ticket{}, ErrNoImage
	}
	if v.Phase == InFlight {
		return v, Ticket{}, ErrInFlight
	}
	v.Phase = InFlight
	v.UpdatedAt = now
	return v, Ticket{Generation: v.Generation, Image: *v.Image}, nil
}

// Complete returns to Idle and stores raw, unless the image was replaced
// while the roast was running.
func (v ViewState) Complete(t Ticket, raw string, now time.Time) ViewState {
	v.Phase = Idle
	if t.Generation == v.Generation {
		v.RawText = raw
	}
	v.UpdatedAt = now
	return v
}

// Fail returns to Idle without touching the shown result.
func (v ViewState) Fail(now time.Time) ViewState {
	v.Phase = Idle
	v.UpdatedAt = now
	return v
}

func (v ViewState) IsInFlight() bool { return v.Phase == InFlight }

// HasResult reports whether the result block should render.
func (v ViewState) HasResult() bool { return v.RawText != "" }

// Result parses the stored reply on every call.
func (v ViewState) Result() domain.RoastResult {
	return roast.ParseResponse(v.RawText)
}

// Store keeps view states between requests. Update must apply fn atomically
// with respect to other Updates of the same id; if fn returns an error the
// stored state is left unchanged.
type Store interface {
	Create(ctx context.Context, v ViewState) error
	Get(ctx context.Context, id string) (ViewState, error)
	Update(ctx context.Context, id string, fn func(ViewState) (ViewState, error)) (ViewState, error)
	Delete(ctx context.Context, id string) error
}
