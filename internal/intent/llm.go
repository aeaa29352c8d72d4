package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"slack-taskbot/internal/llm"
)

const instructionTemplate = "You route commands sent to a Slack task bot. Today is %s (%s).\n" +
	"Reply with exactly one JSON object and nothing else, shaped as\n" +
	`{"action": "<list_tasks|delete_messages|summarize|converse|unknown>", "date": "<optional>", "count": <optional integer>}` + "\n" +
	"Rules:\n" +
	"- list_tasks: the user wants the finished tasks, optionally for a day.\n" +
	"- delete_messages: the user wants the bot's own messages removed; set count when a number is given.\n" +
	"- summarize: the user wants a summary of the channel, optionally for a day.\n" +
	"- converse: any other question or request addressed to the bot.\n" +
	"- unknown: the text is empty or not a request.\n" +
	`- date is "today", "yesterday", a weekday name, or an ISO date (YYYY-MM-DD); omit it when no day is mentioned.` + "\n" +
	"- count is only allowed for delete_messages."

// wire is the documented response schema.
type wire struct {
	Action *string          `json:"action"`
	Date   *json.RawMessage `json:"date,omitempty"`
	Count  *json.RawMessage `json:"count,omitempty"`
}

type LLMClassifier struct {
	client llm.Client
	now    func() time.Time
	logger *slog.Logger
}

func NewLLMClassifier(client llm.Client, now func() time.Time, logger *slog.Logger) *LLMClassifier {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{client: client, now: now, logger: logger}
}

// Classify makes a single LLM call; every failure degrades to Unknown.
func (c *LLMClassifier) Classify(ctx context.Context, command string) Intent {
	now := c.now()
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(instructionTemplate, now.Format("2006-01-02"), now.Weekday())},
		{Role: llm.RoleUser, Content: command},
	}
	resp, err := c.client.Generate(ctx, msgs)
	if err != nil {
		c.logger.Warn("intent classification failed", "error", err)
		return Unknown()
	}
	in, err := Parse(resp.Content)
	if err != nil {
		c.logger.Warn("intent response rejected", "error", err, "content", resp.Content)
		return Unknown()
	}
	c.logger.Debug("intent classified", "kind", in.Kind, "date", in.Date, "count", in.Count,
		"model", resp.Model, "total_tokens", resp.TotalTokens)
	return in
}

// Parse validates a classifier payload against the documented schema.
func Parse(content string) (Intent, error) {
	raw := stripFence(strings.TrimSpace(content))
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var w wire
	if err := dec.Decode(&w); err != nil {
		return Unknown(), fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Unknown(), fmt.Errorf("trailing data after JSON object")
	}
	if w.Action == nil {
		return Unknown(), fmt.Errorf("missing action")
	}
	kind := Kind(strings.ToLower(strings.TrimSpace(*w.Action)))
	if !kind.valid() {
		return Unknown(), fmt.Errorf("unsupported action %q", *w.Action)
	}

	date, err := parseDate(w.Date)
	if err != nil {
		return Unknown(), err
	}
	count, err := parseCount(w.Count)
	if err != nil {
		return Unknown(), err
	}
	if count != 0 && kind != KindDeleteMessages {
		return Unknown(), fmt.Errorf("count is not allowed for %s", kind)
	}

	switch kind {
	case KindListTasks:
		return ListTasks(date), nil
	case KindDeleteMessages:
		return DeleteMessages(date, count), nil
	case KindSummarize:
		return Summarize(date), nil
	case KindConverse:
		return Converse(), nil
	default:
		return Unknown(), nil
	}
}

func parseDate(raw *json.RawMessage) (string, error) {
	if raw == nil || bytes.Equal(*raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(*raw, &s); err != nil {
		return "", fmt.Errorf("date must be a string")
	}
	return strings.TrimSpace(s), nil
}

func parseCount(raw *json.RawMessage) (int, error) {
	if raw == nil || bytes.Equal(*raw, []byte("null")) {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(*raw, &n); err != nil {
		return 0, fmt.Errorf("count must be an integer")
	}
	if n < 1 {
		return 0, fmt.Errorf("count must be positive, got %d", n)
	}
	return n, nil
}

// stripFence removes a single surrounding Markdown code fence.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}
