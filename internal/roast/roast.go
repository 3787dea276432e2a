package roast

import (
	"context"

	"github.com/vbonduro/roastmail/internal/domain"
)

// LineBreak separates the key: value lines in a model reply.
const LineBreak = "<br>"

// DefaultMaxOutputTokens caps the reply length when no limit is configured.
const DefaultMaxOutputTokens = 1000

// Prompt is the system instruction shared by all backends.
const Prompt = `You are a hilarious and professional email roaster. You will be given an image of an email and you will have to give the score of the email out of 10, one line of sassy feedback, and a bit of harsh feedback on the email's contents.
Reply with exactly three key: value lines separated by <br> and nothing else.
Keys: score (an integer out of 10), oneLine (a short punchy phrase), roast (a longer critique, markdown allowed).
Example: score: 8 <br> oneLine: So clean and minimalist, it almost forgot to have a personality. <br> roast: Love the pristine vibe, but how about a splash of color to keep us awake? We're here to unlock insights, not catch Z's, fam.`

// Roaster sends one image to a vision model and returns its reply.
type Roaster interface {
	Roast(ctx context.Context, img *domain.SelectedImage) (*Response, error)
}

// Response is the text of the first returned candidate and its parsed fields.
type Response struct {
	RawText string
	Result  domain.RoastResult
}

// NewResponse parses raw and wraps both in a Response.
func NewResponse(raw string) *Response {
	return &Response{RawText: raw, Result: ParseResponse(raw)}
}

// Describer is implemented by roasters that can name their service and model
// for the attempt journal.
type Describer interface {
	Name() string
	Model() string
}
