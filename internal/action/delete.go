package action

import (
	"context"
	"fmt"

	"slack-taskbot/internal/intent"
	"slack-taskbot/internal/ledger"
)

// deleteMessages only ever targets messages recorded in the ledger.
func (e *Executor) deleteMessages(ctx context.Context, channelID string, in intent.Intent) Result {
	var candidates []ledger.Record
	if w := e.resolver.Resolve(in.Date); w != nil {
		candidates = e.ledger.OnChannelDay(channelID, w)
	} else {
		n := in.Count
		if n <= 0 {
			n = 1
		}
		candidates = e.ledger.MostRecent(channelID, n)
	}
	if len(candidates) == 0 {
		e.logger.Info("no bot messages to delete", "channel_id", channelID, "date", in.Date, "count", in.Count)
		return Result{Posted: e.post(ctx, channelID, NoBotMessages)}
	}

	deleted := 0
	for _, r := range candidates {
		if err := e.store.Delete(ctx, r.ChannelID, r.MessageID); err != nil {
			e.logger.Warn("failed to delete bot message", "channel_id", r.ChannelID, "message_id", r.MessageID, "error", err)
			continue
		}
		e.ledger.Remove(r.ChannelID, r.MessageID)
		deleted++
	}
	e.logger.Info("bot messages deleted", "channel_id", channelID, "candidates", len(candidates), "deleted", deleted)
	return Result{Posted: e.post(ctx, channelID, fmt.Sprintf(deletedFormat, deleted)), Deleted: deleted}
}
