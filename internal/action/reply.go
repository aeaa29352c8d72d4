package action

import (
	"context"
	"strings"

	"slack-taskbot/internal/history"
	"slack-taskbot/internal/llm"
)

const (
	defaultSystemPrompt = "You are a helpful assistant living in a Slack channel. " +
		"Answer briefly and use Slack mrkdwn formatting."
	summarizePrompt = "Summarize the following Slack conversation in a few bullet points. " +
		"Mention decisions, finished work and open questions. Reply with the summary only."
)

func (e *Executor) summarize(ctx context.Context, channelID, date string) Result {
	w := e.resolver.Resolve(date)
	if w == nil {
		w = e.resolver.Today()
	}
	if ok, res := e.allowed(ctx, channelID, w); !ok {
		return res
	}
	tr, err := e.fetcher.Fetch(ctx, channelID, w, e.opts.HistoryLimit)
	if err != nil {
		return Result{Posted: e.post(ctx, channelID, FallbackReply)}
	}
	tr = e.withoutBot(tr)
	if len(tr) == 0 {
		return Result{Posted: e.post(ctx, channelID, NothingToSummarize)}
	}
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: summarizePrompt},
		{Role: llm.RoleUser, Content: "Conversation from " + w.Label() + ":\n" + tr.Format()},
	}
	return Result{Posted: e.post(ctx, channelID, e.generate(ctx, channelID, "summarize", msgs))}
}

func (e *Executor) converse(ctx context.Context, req Request) Result {
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: e.opts.SystemPrompt}}
	if e.opts.ConverseContext > 0 {
		tr, err := e.fetcher.Fetch(ctx, req.ChannelID, nil, e.opts.ConverseContext+1)
		if err == nil {
			var prior history.Transcript
			for en := range tr.All() {
				if en.MessageID != req.MessageID {
					prior = append(prior, en)
				}
			}
			if prior = prior.Tail(e.opts.ConverseContext); len(prior) > 0 {
				msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: "Recent channel messages:\n" + prior.Format()})
			}
		}
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Command})
	return Result{Posted: e.post(ctx, req.ChannelID, e.generate(ctx, req.ChannelID, "converse", msgs))}
}

// generate returns the model's text or the fallback reply.
func (e *Executor) generate(ctx context.Context, channelID, purpose string, msgs []llm.Message) string {
	if e.llm == nil {
		e.logger.Warn("no language model configured", "channel_id", channelID, "purpose", purpose)
		return FallbackReply
	}
	resp, err := e.llm.Generate(ctx, msgs)
	if err != nil {
		e.logger.Warn("failed to generate text", "channel_id", channelID, "purpose", purpose, "error", err)
		return FallbackReply
	}
	e.logger.Info("llm response", "purpose", purpose, "model", resp.Model,
		"prompt_tokens", resp.PromptTokens, "completion_tokens", resp.CompletionTokens, "total_tokens", resp.TotalTokens)
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return FallbackReply
	}
	return text
}

func (e *Executor) withoutBot(tr history.Transcript) history.Transcript {
	out := make(history.Transcript, 0, len(tr))
	for _, en := range tr {
		if !e.isBotEntry(en) {
			out = append(out, en)
		}
	}
	return out
}
