package slack

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"slack-taskbot/internal/chat"
)

// Client implements chat.Store on top of the Slack Web API.
type Client struct {
	api *slackapi.Client
}

type Options struct {
	BotToken   string
	AppToken   string
	APIURL     string
	HTTPClient *http.Client
}

func NewClient(opts Options) *Client {
	var apiOpts []slackapi.Option
	if opts.AppToken != "" {
		apiOpts = append(apiOpts, slackapi.OptionAppLevelToken(opts.AppToken))
	}
	if u := strings.TrimSpace(opts.APIURL); u != "" {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		apiOpts = append(apiOpts, slackapi.OptionAPIURL(u))
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	apiOpts = append(apiOpts, slackapi.OptionHTTPClient(httpClient))
	return &Client{api: slackapi.New(opts.BotToken, apiOpts...)}
}

// BotUserID resolves the bot's own user ID via auth.test.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth.test: %w", err)
	}
	if resp.UserID == "" {
		return "", fmt.Errorf("slack auth.test returned empty user_id")
	}
	return resp.UserID, nil
}

func (c *Client) History(ctx context.Context, channelID string, limit int) ([]chat.Message, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slackapi.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("slack conversations.history: %w", err)
	}
	out := make([]chat.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		postedAt, err := ParseTimestamp(m.Timestamp)
		if err != nil {
			continue
		}
		out = append(out, chat.Message{
			ID:       m.Timestamp,
			Channel:  channelID,
			User:     m.User,
			BotID:    m.BotID,
			Subtype:  m.SubType,
			Text:     m.Text,
			PostedAt: postedAt,
		})
	}
	return out, nil
}

func (c *Client) Permalink(ctx context.Context, channelID, messageID string) (string, error) {
	link, err := c.api.GetPermalinkContext(ctx, &slackapi.PermalinkParameters{Channel: channelID, Ts: messageID})
	if err != nil {
		return "", fmt.Errorf("slack chat.getPermalink: %w", err)
	}
	return link, nil
}

func (c *Client) Post(ctx context.Context, channelID, text string) (chat.Message, error) {
	ch, ts, err := c.api.PostMessageContext(ctx, channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		return chat.Message{}, fmt.Errorf("slack chat.postMessage: %w", err)
	}
	postedAt, err := ParseTimestamp(ts)
	if err != nil {
		postedAt = time.Now()
	}
	if ch == "" {
		ch = channelID
	}
	return chat.Message{ID: ts, Channel: ch, Text: text, PostedAt: postedAt}, nil
}

func (c *Client) Delete(ctx context.Context, channelID, messageID string) error {
	if _, _, err := c.api.DeleteMessageContext(ctx, channelID, messageID); err != nil {
		return fmt.Errorf("slack chat.delete: %w", err)
	}
	return nil
}

// socketURL opens a Socket Mode connection and returns its WebSocket URL.
func (c *Client) socketURL(ctx context.Context) (string, error) {
	_, url, err := c.api.StartSocketModeContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack apps.connections.open: %w", err)
	}
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("slack apps.connections.open returned empty url")
	}
	return url, nil
}

// ParseTimestamp converts a Slack "ts" ("1700000000.123456") to time.
func ParseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slack ts %q", ts)
	}
	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		frac, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid slack ts %q", ts)
		}
		for i := len(fracPart); i < 9; i++ {
			frac *= 10
		}
		nsec = frac
	}
	return time.Unix(sec, nsec), nil
}
