package config

import (
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("port: got %d", cfg.Port)
	}
	if cfg.RouterMode != RouterLLM {
		t.Fatalf("router mode: got %q", cfg.RouterMode)
	}
	if len(cfg.TaskMarkers) != 1 || cfg.TaskMarkers[0] != ":fire:" {
		t.Fatalf("task markers: %+v", cfg.TaskMarkers)
	}
	if cfg.MaxLookbackDays != 7 || cfg.HistoryLimit != 100 || cfg.ConverseContext != 30 {
		t.Fatalf("limits: %+v", cfg)
	}
	if len(cfg.NegativeReactions) != 2 {
		t.Fatalf("negative reactions: %+v", cfg.NegativeReactions)
	}
}

func TestNew_ListsAreTrimmed(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("DONE_MARKERS", " done , finish ,")
	t.Setenv("ALLOWED_USERS", "U1: U2")

	cfg, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(cfg.DoneMarkers) != 2 || cfg.DoneMarkers[0] != "done" || cfg.DoneMarkers[1] != "finish" {
		t.Fatalf("done markers: %+v", cfg.DoneMarkers)
	}
	if len(cfg.AllowedUsers) != 2 || cfg.AllowedUsers[1] != "U2" {
		t.Fatalf("allowed users: %+v", cfg.AllowedUsers)
	}
}

func TestNew_RejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing token":    {},
		"router mode":      {"SLACK_BOT_TOKEN": "x", "ROUTER_MODE": "regex"},
		"timezone":         {"SLACK_BOT_TOKEN": "x", "TIMEZONE": "Mars/Olympus"},
		"digest no target": {"SLACK_BOT_TOKEN": "x", "DIGEST_CRON": "0 18 * * *"},
		"history limit":    {"SLACK_BOT_TOKEN": "x", "HISTORY_LIMIT": "0"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SLACK_BOT_TOKEN", "")
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := New(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
