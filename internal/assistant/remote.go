package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/mind-engage/moyenne/internal/grading"
	"github.com/mind-engage/moyenne/internal/logger"
)

const (
	chatEmptyReply = "Désolé, je n'ai pas pu répondre. Réessaye!"
	chatErrorReply = "Désolé, il y a eu une erreur. Réessaye plus tard!"

	reactionMaxTokens = 150
	chatMaxTokens     = 300
	temperature       = 0.8
	appTitle          = "Moyenne Calculator"
)

type RemoteConfig struct {
	APIKey     string
	BaseURL    string // e.g. https://openrouter.ai/api/v1
	Model      string
	Referer    string
	Timeout    time.Duration
	MaxRetries int
}

// Remote talks to an OpenRouter-compatible /chat/completions endpoint.
type Remote struct {
	cfg        RemoteConfig
	httpClient *http.Client
	log        *logger.Logger
	tracer     trace.Tracer
	fallback   Local
	backoff    time.Duration

	cache    Cache
	cacheTTL time.Duration
	inflight singleflight.Group
}

func NewRemote(cfg RemoteConfig, log *logger.Logger) *Remote {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if log == nil {
		log = logger.Nop()
	}
	return &Remote{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
		tracer:     otel.Tracer("github.com/mind-engage/moyenne/internal/assistant"),
		backoff:    time.Second,
	}
}

// WithCache stores successful reactions under their rounded inputs.
func (r *Remote) WithCache(c Cache, ttl time.Duration) *Remote {
	r.cache = c
	r.cacheTTL = ttl
	return r
}

func (r *Remote) Reaction(ctx context.Context, current, desired *float64, feasible bool) string {
	key := reactionKey(current, desired, feasible)
	// concurrent requests for the same inputs share one upstream call
	v, err, _ := r.inflight.Do(key, func() (interface{}, error) {
		// shared by every waiter, so one caller leaving must not cancel it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.callBudget())
		defer cancel()
		if r.cache != nil {
			if text, ok, err := r.cache.Get(ctx, key); err != nil {
				r.log.Warn("reaction cache read failed", "key", key, "error", err)
			} else if ok {
				return text, nil
			}
		}
		text, err := r.complete(ctx, "reaction", []Message{
			{Role: RoleSystem, Content: reactionPrompt(current, desired, feasible)},
			{Role: RoleUser, Content: "Donne-moi une réaction motivante en Darja pour cet étudiant."},
		}, reactionMaxTokens)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, errEmptyReply
		}
		if r.cache != nil {
			if err := r.cache.Set(ctx, key, text, r.cacheTTL); err != nil {
				r.log.Warn("reaction cache write failed", "key", key, "error", err)
			}
		}
		return text, nil
	})
	if err != nil {
		r.log.Warn("remote reaction failed, using local", "error", err)
		return r.fallback.Reaction(ctx, current, desired, feasible)
	}
	return v.(string)
}

// callBudget bounds one completion including its retries.
func (r *Remote) callBudget() time.Duration {
	n := time.Duration(r.cfg.MaxRetries + 1)
	return n*r.cfg.Timeout + n*n*r.backoff
}

func (r *Remote) Chat(ctx context.Context, message string, history []Message, sem *grading.Semester) string {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: chatPrompt(sem)})
	msgs = append(msgs, cleanHistory(history)...)
	msgs = append(msgs, Message{Role: RoleUser, Content: message})

	text, err := r.complete(ctx, "chat", msgs, chatMaxTokens)
	if err != nil {
		r.log.Warn("remote chat failed", "error", err)
		return chatErrorReply
	}
	if text == "" {
		return chatEmptyReply
	}
	return text
}

var errEmptyReply = errors.New("empty completion")

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openrouter http %d: %s", e.StatusCode, e.Body)
}

// complete returns the first choice's content, trimmed. An empty string with
// a nil error means the upstream answered without content.
func (r *Remote) complete(ctx context.Context, op string, msgs []Message, maxTokens int) (string, error) {
	ctx, span := r.tracer.Start(ctx, "assistant."+op, trace.WithAttributes(
		attribute.String("llm.model", r.cfg.Model),
		attribute.Int("llm.max_tokens", maxTokens),
		attribute.Int("llm.messages", len(msgs)),
	))
	defer span.End()

	body := completionRequest{Model: r.cfg.Model, Messages: msgs, Temperature: temperature, MaxTokens: maxTokens}
	var out completionResponse
	if err := r.do(ctx, "/chat/completions", body, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (r *Remote) do(ctx context.Context, path string, body any, out any) error {
	backoff := r.backoff
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := r.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openrouter decode error: %w", uErr)
			}
			return nil
		}
		if !retryable(err) || attempt == r.cfg.MaxRetries {
			return err
		}

		sleepFor := retryAfter(resp, backoff, 10*time.Second)
		r.log.Warn("openrouter request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", r.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (r *Remote) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", r.cfg.Referer)
	req.Header.Set("X-Title", appTitle)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func retryable(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.StatusCode == 408 || he.StatusCode == 429 || he.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func retryAfter(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}
