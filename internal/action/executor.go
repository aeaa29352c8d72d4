// Package action performs the side effects behind each classified intent and
// posts the outcome back to the channel.
package action

import (
	"context"
	"fmt"
	"log/slog"

	"slack-taskbot/internal/chat"
	"slack-taskbot/internal/history"
	"slack-taskbot/internal/intent"
	"slack-taskbot/internal/ledger"
	"slack-taskbot/internal/llm"
	"slack-taskbot/internal/timewindow"
)

const (
	NoTasksFound       = "No tasks found."
	TasksHeader        = "*Tasks finished:*"
	NoBotMessages      = "No bot messages found to delete."
	NothingToSummarize = "No messages to summarize."
	FallbackReply      = "Sorry, I couldn't process that request."
	deletedFormat      = "Deleted %d bot message(s)."
	lookbackFormat     = "Sorry, I can only look back %d days."
)

// Request identifies the command being executed.
type Request struct {
	ChannelID string
	UserID    string
	MessageID string
	Command   string
}

// Result describes what an action did. Posted is nil when nothing was posted.
type Result struct {
	Posted  *chat.Message
	Deleted int
}

type Options struct {
	BotUserID       string
	Marker          Marker
	HistoryLimit    int
	ConverseContext int
	SystemPrompt    string
}

type Deps struct {
	Store    chat.Store
	Fetcher  *history.Fetcher
	Resolver *timewindow.Resolver
	Ledger   *ledger.Ledger
	LLM      llm.Client
	Logger   *slog.Logger
}

type Executor struct {
	store    chat.Store
	fetcher  *history.Fetcher
	resolver *timewindow.Resolver
	ledger   *ledger.Ledger
	llm      llm.Client
	opts     Options
	logger   *slog.Logger
}

func New(d Deps, opts Options) *Executor {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	return &Executor{
		store:    d.Store,
		fetcher:  d.Fetcher,
		resolver: d.Resolver,
		ledger:   d.Ledger,
		llm:      d.LLM,
		opts:     opts,
		logger:   d.Logger,
	}
}

// Execute runs the handler for the intent. Unknown has no side effect.
func (e *Executor) Execute(ctx context.Context, req Request, in intent.Intent) Result {
	switch in.Kind {
	case intent.KindListTasks:
		return e.ListTasksFor(ctx, req.ChannelID, in.Date)
	case intent.KindDeleteMessages:
		return e.deleteMessages(ctx, req.ChannelID, in)
	case intent.KindSummarize:
		return e.summarize(ctx, req.ChannelID, in.Date)
	case intent.KindConverse:
		return e.converse(ctx, req)
	default:
		e.logger.Info("no action for intent", "channel_id", req.ChannelID, "kind", in.Kind)
		return Result{}
	}
}

// OnNegativeReaction retracts a message only when the bot authored it.
func (e *Executor) OnNegativeReaction(ctx context.Context, channelID, messageID, reactingUserID, originalAuthorID string) bool {
	if originalAuthorID == "" || originalAuthorID != e.opts.BotUserID {
		e.logger.Info("reaction ignored: message not authored by bot",
			"channel_id", channelID, "message_id", messageID, "reacting_user", reactingUserID, "author", originalAuthorID)
		return false
	}
	if err := e.store.Delete(ctx, channelID, messageID); err != nil {
		e.logger.Warn("failed to retract message", "channel_id", channelID, "message_id", messageID, "error", err)
		return false
	}
	e.ledger.Remove(channelID, messageID)
	e.logger.Info("message retracted by reaction", "channel_id", channelID, "message_id", messageID, "reacting_user", reactingUserID)
	return true
}

// post sends text and records the message in the ledger on success.
func (e *Executor) post(ctx context.Context, channelID, text string) *chat.Message {
	msg, err := e.store.Post(ctx, channelID, text)
	if err != nil {
		e.logger.Warn("failed to post message", "channel_id", channelID, "error", err)
		return nil
	}
	e.ledger.Record(msg.ID, channelID, msg.PostedAt)
	return &msg
}

// allowed posts the policy notice when w starts before the lookback limit.
func (e *Executor) allowed(ctx context.Context, channelID string, w *timewindow.Window) (bool, Result) {
	if w == nil || e.resolver.IsWithinLookbackLimit(w.Start) {
		return true, Result{}
	}
	e.logger.Info("date outside lookback limit", "channel_id", channelID, "date", w.Label())
	return false, Result{Posted: e.post(ctx, channelID, fmt.Sprintf(lookbackFormat, e.resolver.MaxLookbackDays()))}
}

func (e *Executor) isBotEntry(en history.Entry) bool {
	return en.BotID != "" || (e.opts.BotUserID != "" && en.AuthorID == e.opts.BotUserID)
}
