// Package agent wires the question pipeline together: classify, plan,
// execute tools, assemble context, complete, and post-process. One
// Orchestrator serves all requests; per-request state lives in Request.
package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prostat/joule-agent/internal/assembler"
	"github.com/prostat/joule-agent/internal/completion"
	"github.com/prostat/joule-agent/internal/config"
	"github.com/prostat/joule-agent/internal/intent"
	"github.com/prostat/joule-agent/internal/memory"
	"github.com/prostat/joule-agent/internal/planner"
	"github.com/prostat/joule-agent/internal/postprocess"
	"github.com/prostat/joule-agent/internal/settings"
	"github.com/prostat/joule-agent/internal/telemetry"
	"github.com/prostat/joule-agent/internal/tools"
)

// Answer modes. Simple answers from assembled context alone; advanced
// additionally runs the planner and tool executor.
const (
	ModeSimple   = "simple"
	ModeAdvanced = "advanced"
)

// Token ceilings per mode.
const (
	simpleMaxTokens   = 400
	advancedMaxTokens = 800
)

// historyRecallCount is how many past exchanges are folded into a prompt.
const historyRecallCount = 3

// Completer sends a prompt to the language model.
type Completer interface {
	Complete(ctx context.Context, apiKey string, messages []completion.Message, opts completion.Options) (*completion.Result, error)
}

// Options tune one request.
type Options struct {
	Mode                 string // ModeSimple (default) or ModeAdvanced
	Model                string // explicit model override
	SystemPromptOverride string
	OnProgress           tools.ProgressFunc
}

// Request is one question with everything needed to answer it.
type Request struct {
	Question string
	APIKey   string
	Live     *telemetry.LiveData
	Settings *settings.Settings
	Analysis *assembler.Analysis
	Forecast *assembler.Forecast
	// History is the caller's live chat thread, oldest first. It is
	// folded into the prompt after any recalled past exchanges.
	History []completion.Message
	Options Options
}

// Answer is the pipeline's result. Exactly one of Success or Error is
// set; flags tell the dashboard which setup screen to open.
type Answer struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Intent       string   `json:"intent,omitempty"`
	Model        string   `json:"model,omitempty"`
	TokensUsed   int      `json:"tokensUsed,omitempty"`
	WasTruncated bool     `json:"wasTruncated,omitempty"`
	ToolsUsed    []string `json:"toolsUsed,omitempty"`

	Error       bool `json:"error,omitempty"`
	NeedsAPIKey bool `json:"needsApiKey,omitempty"`
	NeedsSetup  bool `json:"needsSetup,omitempty"`
}

// Orchestrator runs the answer pipeline.
type Orchestrator struct {
	assembler *assembler.Assembler
	executor  *tools.Executor
	completer Completer
	memory    *memory.Store
	models    config.CompletionConfig
	log       *slog.Logger
}

// New creates an orchestrator. memory may be nil to disable recall.
func New(asm *assembler.Assembler, exec *tools.Executor, comp Completer, mem *memory.Store, models config.CompletionConfig, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		assembler: asm,
		executor:  exec,
		completer: comp,
		memory:    mem,
		models:    models,
		log:       log,
	}
}

// Ask answers one question. It never returns a Go error: failures are
// folded into the Answer so the dashboard always has something to render.
func (o *Orchestrator) Ask(ctx context.Context, req Request) *Answer {
	if req.Question == "" {
		return &Answer{Error: true, Message: "Ask me something about your heat pump."}
	}
	if a := o.intercept(req.Question); a != nil {
		return a
	}
	if req.APIKey == "" {
		return &Answer{
			Error:       true,
			NeedsAPIKey: true,
			NeedsSetup:  true,
			Message:     "No API key is configured. Add one in settings to enable answers.",
		}
	}
	cfg := req.Settings
	if cfg == nil {
		cfg = &settings.Settings{}
	}

	reasoning := intent.Classify(req.Question, cfg)
	o.log.Debug("question classified",
		"intent", reasoning.Intent,
		"confidence", reasoning.Confidence,
		"missing", reasoning.MissingData,
	)

	// Simple mode answers from assembled context alone; the planner and
	// tool executor only run in advanced mode. Classification still
	// happens in both so the answer carries its intent.
	var executed tools.ExecutionResult
	if req.Options.Mode == ModeAdvanced {
		plan := planner.CreateExecutionPlan(reasoning)
		executed = o.executor.Execute(ctx, plan, cfg, req.Options.OnProgress)
	}

	contextText := o.assembler.Build(ctx, assembler.Input{
		Question: req.Question,
		Live:     req.Live,
		Settings: cfg,
		Analysis: req.Analysis,
		Forecast: req.Forecast,
	})

	messages := o.buildMessages(req, contextText, executed.Results)

	res, err := o.completer.Complete(ctx, req.APIKey, messages, completion.Options{
		ModelOverride:  req.Options.Model,
		PreferredModel: cfg.PreferredModel,
		Temperature:    0.6,
		MaxTokens:      maxTokensFor(req.Options.Mode),
	})
	if err != nil {
		return o.errorAnswer(err)
	}

	answer := &Answer{
		Success:      true,
		Message:      postprocess.Clean(res.Content),
		Intent:       string(reasoning.Intent),
		Model:        res.Model,
		TokensUsed:   res.TokensUsed,
		WasTruncated: res.WasTruncated,
		ToolsUsed:    executed.ToolsUsed,
	}

	if o.memory != nil {
		// Recall failure costs nothing; save failure costs only future
		// recall. Neither touches the answer path.
		go func(question, message string, in intent.Intent) {
			err := o.memory.SaveConversation(question, message, map[string]any{
				"intent": string(in),
			})
			if err != nil {
				o.log.Warn("conversation save failed", "error", err)
			}
		}(req.Question, answer.Message, reasoning.Intent)
	}
	return answer
}

// buildMessages composes the completion prompt: persona, grounding
// context, recalled history, the caller's chat thread, then the question.
func (o *Orchestrator) buildMessages(req Request, contextText string, results []tools.ToolResult) []completion.Message {
	messages := []completion.Message{
		{Role: "system", Content: systemPrompt(req.Options.SystemPromptOverride, req.Options.Mode)},
	}

	grounding := contextText
	if tr := toolResultsPrompt(results); tr != "" {
		if grounding != "" {
			grounding += "\n\n"
		}
		grounding += tr
	}
	if grounding != "" {
		messages = append(messages, completion.Message{Role: "system", Content: grounding})
	}

	if o.memory != nil {
		history, err := o.memory.GetRelevantHistory(req.Question, historyRecallCount)
		if err != nil {
			o.log.Warn("history recall failed", "error", err)
		}
		// Oldest first so the conversation reads forward.
		for i := len(history) - 1; i >= 0; i-- {
			messages = append(messages,
				completion.Message{Role: "user", Content: history[i].Question},
				completion.Message{Role: "assistant", Content: history[i].Answer},
			)
		}
	}

	messages = append(messages, req.History...)

	return append(messages, completion.Message{Role: "user", Content: req.Question})
}

func maxTokensFor(mode string) int {
	if mode == ModeAdvanced {
		return advancedMaxTokens
	}
	return simpleMaxTokens
}

// errorAnswer maps completion errors to dashboard-facing answers.
func (o *Orchestrator) errorAnswer(err error) *Answer {
	a := &Answer{Error: true}

	var (
		authErr    *completion.AuthError
		rateErr    *completion.RateLimitError
		timeoutErr *completion.TimeoutError
		reqErr     *completion.RequestError
		emptyErr   *completion.EmptyResponseError
		valErr     *completion.ValidationError
	)
	switch {
	case errors.As(err, &authErr):
		a.NeedsAPIKey = true
		a.Message = "The API key was rejected. Check it in settings."
	case errors.As(err, &rateErr):
		a.Message = "The model service is rate limiting requests right now. Try again in a minute."
	case errors.As(err, &timeoutErr):
		a.Message = "The model took too long to answer. Try again, or switch to a faster model."
	case errors.As(err, &reqErr) && reqErr.PossibleModelMismatch:
		a.Message = "The configured model name was not recognized. Pick a model from /models in settings."
	case errors.As(err, &reqErr):
		a.Message = "The model service rejected the request. Try rephrasing the question."
	case errors.As(err, &emptyErr):
		a.Message = "The model returned an empty answer. Try rephrasing the question."
	case errors.As(err, &valErr):
		a.Message = "The request could not be built: " + valErr.Msg
	default:
		a.Message = "Could not reach the model service. Check your connection and try again."
	}

	o.log.Warn("completion failed", "error", err)
	return a
}
