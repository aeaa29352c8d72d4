// Package dispatch decides what to do with each inbound Slack payload and runs
// the command and reaction pipelines off the request path.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"slack-taskbot/internal/action"
	"slack-taskbot/internal/auth"
	"slack-taskbot/internal/intent"
	"slack-taskbot/internal/slack"
)

type State int

const (
	Idle State = iota
	ParsingEvent
	ChallengeResponse
	Ignored
	Routing
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ParsingEvent:
		return "parsing_event"
	case ChallengeResponse:
		return "challenge_response"
	case Ignored:
		return "ignored"
	case Routing:
		return "routing"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InboundEvent is a user message addressed to the bot.
type InboundEvent struct {
	ChannelID string
	AuthorID  string
	MessageID string
	RawText   string
	Timestamp time.Time
}

// Reaction is a negative reaction on some message.
type Reaction struct {
	Name           string
	ChannelID      string
	MessageID      string
	ReactingUserID string
	ItemAuthorID   string
}

// Route is the outcome of looking at one payload.
type Route struct {
	State     State
	Challenge string
	Reason    string
	Event     *InboundEvent
	Reaction  *Reaction
}

// Executor performs the classified intent.
type Executor interface {
	Execute(ctx context.Context, req action.Request, in intent.Intent) action.Result
	OnNegativeReaction(ctx context.Context, channelID, messageID, reactingUserID, originalAuthorID string) bool
}

type Options struct {
	BotUserID         string
	NegativeReactions []string
	Auth              *auth.Service
	// Timeout bounds one pipeline run. Zero means two minutes.
	Timeout time.Duration
}

type Dispatcher struct {
	classifier intent.Classifier
	exec       Executor
	opts       Options
	negative   map[string]struct{}
	mention    *regexp.Regexp
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func New(classifier intent.Classifier, exec Executor, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	negative := make(map[string]struct{}, len(opts.NegativeReactions))
	for _, r := range opts.NegativeReactions {
		negative[strings.Trim(strings.TrimSpace(r), ":")] = struct{}{}
	}
	return &Dispatcher{
		classifier: classifier,
		exec:       exec,
		opts:       opts,
		negative:   negative,
		mention:    mentionPattern(opts.BotUserID),
		logger:     logger,
	}
}

func mentionPattern(botUserID string) *regexp.Regexp {
	return regexp.MustCompile(`<@` + regexp.QuoteMeta(botUserID) + `(?:\|[^>]*)?>`)
}

// CommandText removes every mention of the bot from raw and trims the rest.
func CommandText(raw, botUserID string) string {
	return strings.TrimSpace(mentionPattern(botUserID).ReplaceAllString(raw, ""))
}

// Route decides what the payload means without side effects.
func (d *Dispatcher) Route(p slack.Payload) Route {
	switch p.Type {
	case slack.TypeURLVerification:
		return Route{State: ChallengeResponse, Challenge: p.Challenge}
	case slack.TypeEventCallback:
	default:
		return ignored("unsupported payload type " + p.Type)
	}
	ev := p.Event
	if ev == nil {
		return ignored("event callback without event")
	}
	switch ev.Type {
	case slack.EventMessage:
		return d.routeMessage(ev)
	case slack.EventReactionAdded:
		return d.routeReaction(ev)
	default:
		return ignored("unsupported event type " + ev.Type)
	}
}

func (d *Dispatcher) routeMessage(ev *slack.Event) Route {
	switch {
	case ev.Subtype != "":
		return ignored("message subtype " + ev.Subtype)
	case ev.BotID != "":
		return ignored("message from a bot")
	case d.opts.BotUserID == "":
		return ignored("bot identity unknown")
	case ev.User == d.opts.BotUserID:
		return ignored("message from self")
	case !d.mention.MatchString(ev.Text):
		return ignored("bot not mentioned")
	case !d.opts.Auth.IsAllowed(ev.User):
		return ignored("user not allowed")
	}
	ts, _ := slack.ParseTimestamp(ev.TS)
	return Route{State: Routing, Event: &InboundEvent{
		ChannelID: ev.Channel,
		AuthorID:  ev.User,
		MessageID: ev.TS,
		RawText:   ev.Text,
		Timestamp: ts,
	}}
}

func (d *Dispatcher) routeReaction(ev *slack.Event) Route {
	if _, ok := d.negative[ev.Reaction]; !ok {
		return ignored("reaction " + ev.Reaction)
	}
	if ev.Item == nil || ev.Item.TS == "" || (ev.Item.Type != "" && ev.Item.Type != "message") {
		return ignored("reaction not on a message")
	}
	return Route{State: Routing, Reaction: &Reaction{
		Name:           ev.Reaction,
		ChannelID:      ev.Item.Channel,
		MessageID:      ev.Item.TS,
		ReactingUserID: ev.User,
		ItemAuthorID:   ev.ItemUser,
	}}
}

func ignored(reason string) Route {
	return Route{State: Ignored, Reason: reason}
}

// Handle routes the payload and returns at once. Routed payloads are processed
// on their own goroutine that outlives ctx.
func (d *Dispatcher) Handle(ctx context.Context, p slack.Payload) Route {
	r := d.Route(p)
	switch r.State {
	case Ignored:
		d.logger.Debug("payload ignored", "type", p.Type, "event_id", p.EventID, "reason", r.Reason)
	case Routing:
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.run(context.WithoutCancel(ctx), p.EventID, r)
		}()
	}
	return r
}

// Wait blocks until all started pipelines finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, eventID string, r Route) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	logger := d.logger.With("dispatch_id", uuid.NewString(), "event_id", eventID)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("dispatch panicked", "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	start := time.Now()

	switch {
	case r.Event != nil:
		ev := r.Event
		logger = logger.With("channel_id", ev.ChannelID, "user_id", ev.AuthorID)
		cmd := CommandText(ev.RawText, d.opts.BotUserID)
		in := d.classifier.Classify(ctx, cmd)
		logger.Info("intent classified", "kind", in.Kind, "date", in.Date, "count", in.Count)
		res := d.exec.Execute(ctx, action.Request{
			ChannelID: ev.ChannelID,
			UserID:    ev.AuthorID,
			MessageID: ev.MessageID,
			Command:   cmd,
		}, in)
		logger.Info("dispatch finished", "state", Completed.String(), "kind", in.Kind,
			"posted", res.Posted != nil, "deleted", res.Deleted, "duration", time.Since(start))
	case r.Reaction != nil:
		re := r.Reaction
		logger = logger.With("channel_id", re.ChannelID, "user_id", re.ReactingUserID)
		deleted := d.exec.OnNegativeReaction(ctx, re.ChannelID, re.MessageID, re.ReactingUserID, re.ItemAuthorID)
		logger.Info("dispatch finished", "state", Completed.String(), "reaction", re.Name,
			"deleted", deleted, "duration", time.Since(start))
	}
}
