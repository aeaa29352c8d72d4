package action

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker decides which transcript entries count as finished tasks.
// An entry matches when it carries any of the tags (substring, e.g. ":fire:")
// and any of the completion markers. A completion marker that starts with a
// letter or digit must start a word and matches inflected forms ("finish"
// matches "finished", "done" does not match "undone"); any other marker, such
// as ":white_check_mark:" or "✅", matches as a substring. Matching ignores
// case. An empty half places no constraint; a marker with both halves empty
// matches nothing.
type Marker struct {
	tags       []string
	completion *regexp.Regexp
}

func NewMarker(tags, completion []string) (Marker, error) {
	m := Marker{}
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			m.tags = append(m.tags, t)
		}
	}
	var words []string
	for _, w := range completion {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, completionPattern(w))
		}
	}
	if len(words) > 0 {
		re, err := regexp.Compile(`(?i)(?:` + strings.Join(words, "|") + `)`)
		if err != nil {
			return Marker{}, fmt.Errorf("compile completion markers: %w", err)
		}
		m.completion = re
	}
	return m, nil
}

func (m Marker) Matches(text string) bool {
	if len(m.tags) == 0 && m.completion == nil {
		return false
	}
	if len(m.tags) > 0 {
		lower := strings.ToLower(text)
		found := false
		for _, t := range m.tags {
			if strings.Contains(lower, t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return m.completion == nil || m.completion.MatchString(text)
}

// completionPattern anchors word-like markers at a word start only.
func completionPattern(w string) string {
	if isWordByte(w[0]) {
		return `\b` + regexp.QuoteMeta(w)
	}
	return regexp.QuoteMeta(w)
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
