package slack

import (
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack/slackevents"
)

const (
	TypeURLVerification = slackevents.URLVerification
	TypeEventCallback   = slackevents.CallbackEvent

	EventMessage       = string(slackevents.Message)
	EventReactionAdded = string(slackevents.ReactionAdded)
)

// Payload is the Events API envelope, limited to the fields the bot reads.
type Payload struct {
	Type      string
	Challenge string
	TeamID    string
	EventID   string
	Event     *Event
}

type Event struct {
	Type     string
	Subtype  string
	User     string
	BotID    string
	Text     string
	Channel  string
	TS       string
	Reaction string
	Item     *ItemRef
	ItemUser string
	EventTS  string
}

// ItemRef points at the message a reaction was added to.
type ItemRef struct {
	Type    string
	Channel string
	TS      string
}

// ParsePayload decodes an Events API body with slackevents. Callback events
// of a type slackevents does not know come back with only Event.Type set.
func ParsePayload(body []byte) (Payload, error) {
	var outer slackevents.EventsAPICallbackEvent
	if err := json.Unmarshal(body, &outer); err != nil {
		return Payload{}, fmt.Errorf("decode slack payload: %w", err)
	}
	if outer.Type == "" {
		return Payload{}, fmt.Errorf("slack payload has no type")
	}
	p := Payload{Type: outer.Type, TeamID: outer.TeamID, EventID: outer.EventID}

	if outer.Type == TypeEventCallback {
		if outer.InnerEvent == nil {
			return p, nil
		}
		var inner slackevents.EventsAPIInnerEvent
		if err := json.Unmarshal(*outer.InnerEvent, &inner); err != nil {
			return Payload{}, fmt.Errorf("decode slack event: %w", err)
		}
		if _, known := slackevents.EventsAPIInnerEventMapping[slackevents.EventsAPIType(inner.Type)]; !known {
			p.Event = &Event{Type: inner.Type}
			return p, nil
		}
	}

	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return Payload{}, fmt.Errorf("decode slack payload: %w", err)
	}
	if v, ok := ev.Data.(*slackevents.EventsAPIURLVerificationEvent); ok && outer.Type == TypeURLVerification {
		p.Challenge = v.Challenge
	}
	if outer.Type == TypeEventCallback {
		p.Event = innerEvent(ev.InnerEvent)
	}
	return p, nil
}

func innerEvent(in slackevents.EventsAPIInnerEvent) *Event {
	switch e := in.Data.(type) {
	case *slackevents.MessageEvent:
		return &Event{
			Type:    EventMessage,
			Subtype: e.SubType,
			User:    e.User,
			BotID:   e.BotID,
			Text:    e.Text,
			Channel: e.Channel,
			TS:      e.TimeStamp,
			EventTS: e.EventTimeStamp,
		}
	case *slackevents.ReactionAddedEvent:
		return &Event{
			Type:     EventReactionAdded,
			User:     e.User,
			Reaction: e.Reaction,
			ItemUser: e.ItemUser,
			Item: &ItemRef{
				Type:    e.Item.Type,
				Channel: e.Item.Channel,
				TS:      e.Item.Timestamp,
			},
			EventTS: e.EventTimestamp,
		}
	default:
		return &Event{Type: in.Type}
	}
}
