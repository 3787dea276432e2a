package domain

import "time"

// SelectedImage is the file a user picked, plus its data-URL encoding. The
// same DataURL feeds both the preview and the outbound request.
type SelectedImage struct {
	FileName   string
	MimeType   string
	Data       []byte
	DataURL    string
	SelectedAt time.Time
}

// RoastResult holds the recognized fields of a model reply. An empty field
// means the reply had no usable line for that key.
type RoastResult struct {
	Score   string
	OneLine string
	Roast   string
}

func (r RoastResult) IsEmpty() bool {
	return r.Score == "" && r.OneLine == "" && r.Roast == ""
}

type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
)

// Attempt is the journal entry for one roast request. It records the outcome
// only; neither the image nor the reply text is kept.
type Attempt struct {
	ID         int64
	SessionID  string
	Backend    string
	Model      string
	Status     AttemptStatus
	Error      string
	DurationMS int64
	StartedAt  time.Time
}
