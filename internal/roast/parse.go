package roast

import (
	"strings"

	"github.com/vbonduro/roastmail/internal/domain"
)

// ParseResponse parses a reply of the form "score: 7 <br> oneLine: ... <br> roast: ...".
// Segments with an unknown key, no colon, or an empty value are skipped. A
// repeated key keeps its last value.
func ParseResponse(raw string) domain.RoastResult {
	var result domain.RoastResult
	for _, segment := range strings.Split(raw, LineBreak) {
		key, value, ok := ParseSegment(segment)
		if !ok {
			continue
		}
		switch key {
		case "score":
			result.Score = value
		case "oneLine":
			result.OneLine = value
		case "roast":
			result.Roast = value
		}
	}
	return result
}

// ParseSegment splits one segment on its first colon. ok is false unless the
// key is one of score, oneLine or roast and the value is non-empty.
func ParseSegment(segment string) (key, value string, ok bool) {
	key, value, found := strings.Cut(segment, ":")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", false
	}
	switch key {
	case "score", "oneLine", "roast":
		return key, value, true
	}
	return "", "", false
}
