package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/roastmail/internal/domain"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func image(name string) *domain.SelectedImage {
	return &domain.SelectedImage{FileName: name, MimeType: "image/png", Data: []byte(name), DataURL: "data:image/png;base64,eA=="}
}

func TestNewIsIdleAndEmpty(t *testing.T) {
	v := New("abc", now)
	assert.Equal(t, "abc", v.ID)
	assert.Equal(t, Idle, v.Phase)
	assert.Nil(t, v.Image)
	assert.False(t, v.HasResult())
	assert.True(t, v.Result().IsEmpty())
}

func TestBeginWithoutImageIsNoop(t *testing.T) {
	v := New("abc", now)
	next, ticket, err := v.Begin(now)
	assert.ErrorIs(t, err, ErrNoImage)
	assert.Equal(t, v, next)
	assert.Equal(t, Ticket{}, ticket)
}

func TestBeginWhileInFlightIsNoop(t *testing.T) {
	v := New("abc", now).Select(image("a.png"), now)
	v, _, err := v.Begin(now)
	require.NoError(t, err)
	require.True(t, v.IsInFlight())

	again, _, err := v.Begin(now.Add(time.Second))
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, v, again)
}

func TestRoastLifecycle(t *testing.T) {
	v := New("abc", now).Select(image("a.png"), now)

	v, ticket, err := v.Begin(now)
	require.NoError(t, err)
	assert.Equal(t, InFlight, v.Phase)
	assert.Equal(t, "a.png", ticket.Image.FileName)

	v = v.Complete(ticket, "score: 7<br>oneLine: fine", now)
	assert.Equal(t, Idle, v.Phase)
	assert.True(t, v.HasResult())
	assert.Equal(t, domain.RoastResult{Score: "7", OneLine: "fine"}, v.Result())
}

func TestFailKeepsPreviousResult(t *testing.T) {
	v := New("abc", now).Select(image("a.png"), now)
	v, ticket, err := v.Begin(now)
	require.NoError(t, err)
	v = v.Complete(ticket, "score: 3", now)

	v, _, err = v.Begin(now)
	require.NoError(t, err)
	v = v.Fail(now)

	assert.Equal(t, Idle, v.Phase)
	assert.Equal(t, "score: 3", v.RawText)
}

func TestSelectClearsResult(t *testing.T) {
	v := New("abc", now).Select(image("a.png"), now)
	v, ticket, err := v.Begin(now)
	require.NoError(t, err)
	v = v.Complete(ticket, "score: 3", now)

	v = v.Select(image("b.png"), now)
	assert.Equal(t, "b.png", v.Image.FileName)
	assert.False(t, v.HasResult())

	v = v.Select(nil, now)
	assert.Nil(t, v.Image)
	assert.False(t, v.HasResult())
}

func TestCompleteAfterReselectDropsStaleText(t *testing.T) {
	v := New("abc", now).Select(image("a.png"), now)
	v, ticket, err := v.Begin(now)
	require.NoError(t, err)

	v = v.Select(image("b.png"), now)
	assert.True(t, v.IsInFlight(), "selection does not end an in-flight roast")

	v = v.Complete(ticket, "score: 1", now)
	assert.Equal(t, Idle, v.Phase)
	assert.False(t, v.HasResult())
}

func TestEmptyReplyShowsNoResult(t *testing.T) {
	v := New("abc", now).Select(image("a.png"), now)
	v, ticket, err := v.Begin(now)
	require.NoError(t, err)
	v = v.Complete(ticket, "", now)
	assert.False(t, v.HasResult())
}

func TestUnparseableReplyStillShowsResultBlock(t *testing.T) {
	v := New("abc", now).Select(image("a.png"), now)
	v, ticket, err := v.Begin(now)
	require.NoError(t, err)
	v = v.Complete(ticket, "I cannot roast this.", now)
	assert.True(t, v.HasResult())
	assert.True(t, v.Result().IsEmpty())
}
