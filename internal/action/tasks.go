package action

import (
	"context"
	"strings"
)

// TaskEntry is a finished task found in the transcript.
type TaskEntry struct {
	SourceText string
	Permalink  string
}

func (t TaskEntry) line() string {
	if t.Permalink == "" {
		return "- " + t.SourceText
	}
	return "- " + t.SourceText + " - " + t.Permalink
}

// ListTasksFor posts the finished tasks of the channel, optionally for one day.
// An unrecognized date lists without a day filter.
func (e *Executor) ListTasksFor(ctx context.Context, channelID, date string) Result {
	w := e.resolver.Resolve(date)
	if ok, res := e.allowed(ctx, channelID, w); !ok {
		return res
	}
	tr, err := e.fetcher.Fetch(ctx, channelID, w, e.opts.HistoryLimit)
	if err != nil {
		return Result{Posted: e.post(ctx, channelID, FallbackReply)}
	}

	var tasks []TaskEntry
	for en := range tr.All() {
		if e.isBotEntry(en) || !e.opts.Marker.Matches(en.Text) {
			continue
		}
		link, err := e.store.Permalink(ctx, channelID, en.MessageID)
		if err != nil {
			e.logger.Warn("failed to resolve permalink", "channel_id", channelID, "message_id", en.MessageID, "error", err)
		}
		tasks = append(tasks, TaskEntry{SourceText: en.Text, Permalink: link})
	}
	e.logger.Info("tasks listed", "channel_id", channelID, "date", w.Label(), "scanned", len(tr), "found", len(tasks))

	if len(tasks) == 0 {
		return Result{Posted: e.post(ctx, channelID, NoTasksFound)}
	}
	lines := make([]string, 0, len(tasks)+1)
	lines = append(lines, TasksHeader)
	for _, t := range tasks {
		lines = append(lines, t.line())
	}
	return Result{Posted: e.post(ctx, channelID, strings.Join(lines, "\n"))}
}
