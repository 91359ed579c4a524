// Package completion talks to an OpenAI-compatible chat completion
// endpoint. It owns model resolution, the rate-limit fallback ladder, the
// per-attempt timeout, and length-truncation repair; callers get either a
// Result or one of the typed errors in errors.go.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/prostat/joule-agent/internal/cache"
	"github.com/prostat/joule-agent/internal/config"
	"github.com/prostat/joule-agent/internal/httpkit"
)

// terminatorWindow matches the post-processor's trim window: a sentence
// end within this many characters of a truncation point is close enough
// to cut to.
const terminatorWindow = 50

// TruncationNotice is appended when a length-limited response has no
// usable sentence boundary near its end.
const TruncationNotice = " [Answer cut off by the model's length limit.]"

// Message is one chat message in OpenAI wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single Complete call.
type Options struct {
	ModelOverride  string  // use exactly this model
	PreferredModel string  // user-stored preference
	Temperature    float64 // 0 means provider default
	MaxTokens      int
}

// Result is a successful completion.
type Result struct {
	Content      string
	Model        string
	TokensUsed   int
	WasTruncated bool
}

// Client is a completion client for one configured provider.
type Client struct {
	baseURL      string
	defaultModel string
	fallbacks    []string
	timeout      time.Duration
	probeTTL     time.Duration

	http  *http.Client
	cache *cache.Cache
	sf    singleflight.Group
	log   *slog.Logger
}

// New builds a client from config. c caches the best-model probe result
// and may be shared with other components; it must not be nil when model
// probing is wanted.
func New(cfg config.CompletionConfig, c *cache.Cache, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel: cfg.DefaultModel,
		fallbacks:    cfg.FallbackModels,
		timeout:      cfg.Timeout(),
		probeTTL:     cfg.ProbeTTL(),
		// The overall deadline is per attempt via context; the http
		// client itself stays unbounded.
		http: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(completionTransport(cfg.Timeout())),
		),
		cache: c,
		log:   log,
	}
}

// completionTransport tunes the shared transport for model inference,
// which can be slow to first byte. The response-header timeout must
// outlast the per-attempt deadline so a slow model surfaces as a
// TimeoutError rather than a transport failure.
func completionTransport(attemptTimeout time.Duration) *http.Transport {
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = attemptTimeout + 15*time.Second
	return t
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends messages to the resolved model and returns the cleaned
// result. A 429 triggers at most one retry on a different fallback model;
// each attempt gets a fresh timeout.
func (c *Client) Complete(ctx context.Context, apiKey string, messages []Message, opts Options) (*Result, error) {
	if apiKey == "" {
		return nil, &ValidationError{Msg: "API key is required"}
	}
	if len(messages) == 0 {
		return nil, &ValidationError{Msg: "no messages to send"}
	}

	model := c.resolveModel(ctx, apiKey, opts)

	// At most two attempts: the original and one fallback retry.
	for attempt := 0; attempt < 2; attempt++ {
		res, err := c.attempt(ctx, apiKey, model, messages, opts)

		var rl *RateLimitError
		if errors.As(err, &rl) && attempt == 0 {
			next := c.fallbackFor(model)
			if next == model {
				return nil, err
			}
			c.log.Info("rate limited, retrying on fallback model", "from", model, "to", next)
			model = next
			continue
		}
		return res, err
	}
	return nil, &RateLimitError{Model: model}
}

// attempt runs a single request with its own timeout.
func (c *Client) attempt(ctx context.Context, apiKey, model string, messages []Message, opts Options) (*Result, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	c.log.Log(actx, config.LevelTrace, "completion request", "model", model, "payload", string(body))

	resp, err := c.http.Do(req)
	if err != nil {
		if actx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{Model: model}
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		httpkit.DrainAndClose(resp.Body, 4096)
		return nil, &RateLimitError{Model: model}
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{Msg: httpkit.ReadErrorBody(resp.Body, 512)}
	case resp.StatusCode == http.StatusBadRequest:
		msg := httpkit.ReadErrorBody(resp.Body, 1024)
		if mentionsAPIKey(msg) {
			return nil, &AuthError{Msg: msg}
		}
		return nil, &RequestError{Status: resp.StatusCode, Msg: msg, PossibleModelMismatch: mentionsModel(msg)}
	case resp.StatusCode != http.StatusOK:
		msg := httpkit.ReadErrorBody(resp.Body, 1024)
		if mentionsAPIKey(msg) {
			return nil, &AuthError{Msg: msg}
		}
		return nil, &RequestError{Status: resp.StatusCode, Msg: msg}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, &EmptyResponseError{Model: model}
	}

	res := &Result{
		Content:    out.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: out.Usage.TotalTokens,
	}
	if out.Choices[0].FinishReason == "length" {
		res.Content, res.WasTruncated = repairTruncation(res.Content), true
	}
	return res, nil
}

// repairTruncation handles a response the model cut mid-thought. A nearby
// sentence end wins; otherwise the text is kept whole and flagged.
func repairTruncation(text string) string {
	if i := strings.LastIndexAny(text, ".!?"); i >= 0 && len(text)-i <= terminatorWindow {
		return text[:i+1]
	}
	return text + TruncationNotice
}

// resolveModel picks a model: caller override, then the probed best
// model, then the stored preference, then the configured default.
func (c *Client) resolveModel(ctx context.Context, apiKey string, opts Options) string {
	if opts.ModelOverride != "" {
		return opts.ModelOverride
	}
	if m := c.probedBestModel(ctx, apiKey); m != "" {
		return m
	}
	if opts.PreferredModel != "" {
		return opts.PreferredModel
	}
	return c.defaultModel
}

// fallbackFor returns the next model in the fallback ladder after the one
// that was rate limited, or the same model when the ladder is exhausted.
func (c *Client) fallbackFor(model string) string {
	for i, m := range c.fallbacks {
		if m == model {
			if i+1 < len(c.fallbacks) {
				return c.fallbacks[i+1]
			}
			return model
		}
	}
	if len(c.fallbacks) > 0 {
		return c.fallbacks[0]
	}
	return model
}

var apiKeyVocab = []string{"api key", "api_key", "apikey", "invalid key", "authentication", "unauthorized"}

func mentionsAPIKey(msg string) bool {
	m := strings.ToLower(msg)
	for _, v := range apiKeyVocab {
		if strings.Contains(m, v) {
			return true
		}
	}
	return false
}

func mentionsModel(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "model")
}
