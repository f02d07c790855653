// Package assistant produces the motivational reaction line and the chat
// replies shown next to the averages. Both calls always return text: any
// failure is logged and answered with a local fallback.
package assistant

import (
	"context"
	"strings"

	"github.com/mind-engage/moyenne/internal/config"
	"github.com/mind-engage/moyenne/internal/grading"
	"github.com/mind-engage/moyenne/internal/logger"
)

type Assistant interface {
	// Reaction comments on the current semester average. desired is nil when
	// no target is set; feasible only matters when it is not.
	Reaction(ctx context.Context, current, desired *float64, feasible bool) string
	// Chat answers message given the previous turns and, when sem is not
	// nil, the student's graded average.
	Chat(ctx context.Context, message string, history []Message, sem *grading.Semester) string
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// cleanHistory keeps user and assistant turns with content; clients cannot
// inject system prompts through the history.
func cleanHistory(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// New selects the implementation for cfg.AssistantMode. Remote mode without
// an API key falls back to Local. cache may be nil.
func New(cfg config.Config, log *logger.Logger, cache Cache) Assistant {
	if cfg.AssistantMode != config.AssistantRemote {
		return Local{}
	}
	if strings.TrimSpace(cfg.OpenRouterAPIKey) == "" {
		log.Warn("ASSISTANT_MODE=remote without OPENROUTER_API_KEY, using local assistant")
		return Local{}
	}
	r := NewRemote(RemoteConfig{
		APIKey:     cfg.OpenRouterAPIKey,
		BaseURL:    cfg.OpenRouterBaseURL,
		Model:      cfg.OpenRouterModel,
		Referer:    cfg.OpenRouterReferer,
		Timeout:    cfg.OpenRouterTimeout,
		MaxRetries: cfg.OpenRouterRetries,
	}, log)
	if cache != nil {
		r.WithCache(cache, cfg.ReactionCacheTTL)
	}
	return r
}
