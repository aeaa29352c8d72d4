package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"slack-taskbot/internal/action"
	"slack-taskbot/internal/auth"
	"slack-taskbot/internal/config"
	"slack-taskbot/internal/dispatch"
	"slack-taskbot/internal/history"
	"slack-taskbot/internal/intent"
	"slack-taskbot/internal/ledger"
	"slack-taskbot/internal/llm"
	"slack-taskbot/internal/scheduler"
	"slack-taskbot/internal/slack"
	"slack-taskbot/internal/timewindow"
)

// app holds the wired components shared by both transports.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	slack      *slack.Client
	dispatcher *dispatch.Dispatcher
	scheduler  *scheduler.Scheduler
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider))
	if err != nil {
		if cfg.RouterMode != config.RouterKeyword {
			return nil, fmt.Errorf("failed to create llm client: %w", err)
		}
		logger.Warn("llm unavailable, running keyword router without replies", "error", err)
		llmClient = nil
	}

	sc := slack.NewClient(slack.Options{
		BotToken: cfg.SlackBotToken,
		AppToken: cfg.SlackAppToken,
		APIURL:   cfg.SlackAPIURL,
	})

	botUserID := cfg.SlackBotUserID
	if botUserID == "" {
		botUserID, err = sc.BotUserID(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve bot identity: %w", err)
		}
	}
	logger.Info("bot identity", "bot_user_id", botUserID)

	marker, err := action.NewMarker(cfg.TaskMarkers, cfg.DoneMarkers)
	if err != nil {
		return nil, err
	}

	resolver := timewindow.NewResolver(loc, cfg.MaxLookbackDays)
	exec := action.New(action.Deps{
		Store:    sc,
		Fetcher:  history.NewFetcher(sc, loc, logger.With("component", "history")),
		Resolver: resolver,
		Ledger:   ledger.New(),
		LLM:      llmClient,
		Logger:   logger.With("component", "action"),
	}, action.Options{
		BotUserID:       botUserID,
		Marker:          marker,
		HistoryLimit:    cfg.HistoryLimit,
		ConverseContext: cfg.ConverseContext,
		SystemPrompt:    readSystemPrompt(cfg.SystemPromptPath, logger),
	})

	authSvc := auth.New(cfg.AllowedUsers)
	if !authSvc.Open() {
		logger.Info("allowlist enabled", "users", len(authSvc.List()))
	}

	classifier := intent.New(cfg.RouterMode, llmClient, resolver.Now, logger.With("component", "intent"))
	a := &app{
		cfg:      cfg,
		logger:   logger,
		slack:    sc,
		dispatcher: dispatch.New(classifier, exec, dispatch.Options{
			BotUserID:         botUserID,
			NegativeReactions: cfg.NegativeReactions,
			Auth:              authSvc,
		}, logger.With("component", "dispatch")),
	}

	if cfg.DigestCron != "" {
		sch := scheduler.New(loc, logger.With("component", "scheduler"))
		sch.SetJob(digestJob(exec, cfg.DigestChannels))
		if err := sch.Start(cfg.DigestCron); err != nil {
			return nil, err
		}
		a.scheduler = sch
	}
	return a, nil
}

// close stops the digest and waits for in-flight dispatches.
func (a *app) close() {
	if a.scheduler != nil && a.scheduler.IsRunning() {
		a.scheduler.Stop()
	}
	a.dispatcher.Wait()
	a.logger.Info("bot stopped")
}

// digestJob posts today's finished tasks to every channel.
func digestJob(exec *action.Executor, channels []string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var errs []error
		for _, ch := range channels {
			if res := exec.ListTasksFor(ctx, ch, "today"); res.Posted == nil {
				errs = append(errs, fmt.Errorf("digest for %s was not posted", ch))
			}
		}
		return errors.Join(errs...)
	}
}

func readSystemPrompt(path string, logger *slog.Logger) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("system prompt file not found or unreadable", "path", path, "error", err)
		return ""
	}
	return strings.TrimSpace(string(data))
}
