package intent

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"slack-taskbot/internal/config"
	"slack-taskbot/internal/llm"
)

var (
	isoDatePattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	numberPattern  = regexp.MustCompile(`\b(\d{1,3})\b`)
	dateWords      = []string{
		"today", "yesterday",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	}
)

// KeywordClassifier is the legacy routing strategy used when no language
// model is configured. It never runs alongside LLMClassifier.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, command string) Intent {
	text := strings.ToLower(strings.TrimSpace(command))
	if text == "" {
		return Unknown()
	}
	date := findDate(text)
	switch {
	case strings.Contains(text, "list") && strings.Contains(text, "task"):
		return ListTasks(date)
	case strings.Contains(text, "delete") || strings.Contains(text, "remove"):
		count := 0
		if date == "" {
			if m := numberPattern.FindStringSubmatch(text); m != nil {
				count, _ = strconv.Atoi(m[1])
			}
		}
		return DeleteMessages(date, count)
	case strings.Contains(text, "summar"):
		return Summarize(date)
	default:
		return Converse()
	}
}

func findDate(text string) string {
	if m := isoDatePattern.FindString(text); m != "" {
		return m
	}
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		for _, d := range dateWords {
			if w == d {
				return d
			}
		}
	}
	return ""
}

// New selects the routing strategy from configuration.
func New(mode config.RouterMode, client llm.Client, now func() time.Time, logger *slog.Logger) Classifier {
	if mode == config.RouterKeyword || client == nil {
		return KeywordClassifier{}
	}
	return NewLLMClassifier(client, now, logger)
}
