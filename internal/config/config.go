package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type RouterMode string

const (
	RouterLLM     RouterMode = "llm"
	RouterKeyword RouterMode = "keyword"
)

type Config struct {
	SlackBotToken      string   `env:"SLACK_BOT_TOKEN,required"`
	SlackAppToken      string   `env:"SLACK_APP_TOKEN"`
	SlackSigningSecret string   `env:"SLACK_SIGNING_SECRET"`
	SlackBotUserID     string   `env:"SLACK_BOT_USER_ID"`
	SlackAPIURL        string   `env:"SLACK_API_URL"`
	Port               int      `env:"PORT" envDefault:"3000"`
	AllowedUsers       []string `env:"ALLOWED_USERS" envSeparator:":"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`

	// Routing and actions. TASK_MARKERS match as substrings. DONE_MARKERS that
	// start with a letter or digit must start a word and also match inflected
	// forms ("finish" matches "finished"); others, such as emoji, match anywhere.
	RouterMode        RouterMode `env:"ROUTER_MODE" envDefault:"llm"`
	TaskMarkers       []string   `env:"TASK_MARKERS" envSeparator:"," envDefault:":fire:"`
	DoneMarkers       []string   `env:"DONE_MARKERS" envSeparator:","`
	MaxLookbackDays   int        `env:"MAX_LOOKBACK_DAYS" envDefault:"7"`
	HistoryLimit      int        `env:"HISTORY_LIMIT" envDefault:"100"`
	ConverseContext   int        `env:"CONVERSE_CONTEXT" envDefault:"30"`
	NegativeReactions []string   `env:"NEGATIVE_REACTIONS" envSeparator:"," envDefault:"-1,thumbsdown"`
	Timezone          string     `env:"TIMEZONE" envDefault:"Local"`

	// Daily digest
	DigestCron     string   `env:"DIGEST_CRON"`
	DigestChannels []string `env:"DIGEST_CHANNELS" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// New parses the environment and validates the result.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.TaskMarkers = trimAll(cfg.TaskMarkers)
	cfg.DoneMarkers = trimAll(cfg.DoneMarkers)
	cfg.NegativeReactions = trimAll(cfg.NegativeReactions)
	cfg.DigestChannels = trimAll(cfg.DigestChannels)
	cfg.AllowedUsers = trimAll(cfg.AllowedUsers)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.SlackBotToken) == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN must not be empty")
	}
	switch c.RouterMode {
	case RouterLLM, RouterKeyword:
	default:
		return fmt.Errorf("unknown router mode: %s", c.RouterMode)
	}
	if c.MaxLookbackDays < 0 {
		return fmt.Errorf("MAX_LOOKBACK_DAYS must not be negative")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive")
	}
	if c.ConverseContext < 0 {
		return fmt.Errorf("CONVERSE_CONTEXT must not be negative")
	}
	if len(c.TaskMarkers) == 0 && len(c.DoneMarkers) == 0 {
		return fmt.Errorf("at least one of TASK_MARKERS or DONE_MARKERS is required")
	}
	if c.DigestCron != "" && len(c.DigestChannels) == 0 {
		return fmt.Errorf("DIGEST_CRON is set but DIGEST_CHANNELS is empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the calendar-day basis for date references.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
