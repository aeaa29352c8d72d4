package history

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"strings"
	"time"

	"slack-taskbot/internal/chat"
	"slack-taskbot/internal/timewindow"
)

// ErrFetch marks a recoverable history retrieval failure.
var ErrFetch = errors.New("history fetch failed")

// Entry is one transcript line.
type Entry struct {
	MessageID string
	AuthorID  string
	BotID     string
	Text      string
	Timestamp time.Time
}

// Transcript is ordered by timestamp ascending and built fresh per request.
type Transcript []Entry

// All iterates the transcript; each call starts from the beginning.
func (t Transcript) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range t {
			if !yield(e) {
				return
			}
		}
	}
}

// Tail returns the last n entries.
func (t Transcript) Tail(n int) Transcript {
	if n <= 0 {
		return nil
	}
	if len(t) <= n {
		return t
	}
	return t[len(t)-n:]
}

// Format renders one line per entry for LLM prompts.
func (t Transcript) Format() string {
	var b strings.Builder
	for _, e := range t {
		author := e.AuthorID
		if author == "" {
			author = e.BotID
		}
		fmt.Fprintf(&b, "[%s] <@%s>: %s\n", e.Timestamp.Format("2006-01-02 15:04"), author, e.Text)
	}
	return b.String()
}

type Fetcher struct {
	store  chat.Store
	loc    *time.Location
	logger *slog.Logger
}

func NewFetcher(store chat.Store, loc *time.Location, logger *slog.Logger) *Fetcher {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{store: store, loc: loc, logger: logger}
}

// Fetch pulls one page of up to limit messages and filters it by the window
// locally. On transport failure it returns an empty transcript and an error
// wrapping ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, channelID string, w *timewindow.Window, limit int) (Transcript, error) {
	msgs, err := f.store.History(ctx, channelID, limit)
	if err != nil {
		f.logger.Warn("history fetch failed", "channel_id", channelID, "limit", limit, "error", err)
		return Transcript{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	out := make(Transcript, 0, len(msgs))
	for _, m := range msgs {
		if m.Subtype != "" && m.Subtype != "bot_message" {
			continue
		}
		if !w.Contains(m.PostedAt) {
			continue
		}
		out = append(out, Entry{
			MessageID: m.ID,
			AuthorID:  m.User,
			BotID:     m.BotID,
			Text:      m.Text,
			Timestamp: m.PostedAt.In(f.loc),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	f.logger.Debug("history fetched", "channel_id", channelID, "raw", len(msgs), "kept", len(out), "window", w.Label())
	return out, nil
}
