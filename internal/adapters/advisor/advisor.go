// Package advisor asks a text-completion model about aggregated training data.
// Calls are single-shot and never return errors: every failure becomes a
// Result carrying a fallback text.
package advisor

import (
	"context"
	"strings"
	"time"

	"github.com/okian/formacao/pkg/logger"
	"github.com/okian/formacao/pkg/metrics"
)

// Outcome classifies how an assistant call ended.
type Outcome string

// Possible outcomes.
const (
	OutcomeOK           Outcome = "ok"
	OutcomeNoCredential Outcome = "no_credential"
	OutcomeCallFailed   Outcome = "call_failed"
)

// Result is what the assistant returns to callers.
type Result struct {
	Text    string  `json:"text"`
	Outcome Outcome `json:"outcome"`
	Err     error   `json:"-"`
}

// Error returns the failure description, or "".
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Advisor is stateless apart from its configuration.
type Advisor struct {
	factory    Factory
	timeout    time.Duration
	categories []string
	fallback   string
	logger     logger.Logger
}

// New constructs an Advisor using Gemini by default.
func New(opts ...Option) *Advisor {
	a := &Advisor{
		factory:  NewGenAIFactory(DefaultModel),
		timeout:  30 * time.Second,
		fallback: "Outros",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Named("advisor")
	}
	return a
}

// Categories returns the labels Classify chooses from.
func (a *Advisor) Categories() []string {
	return append([]string(nil), a.categories...)
}

// ResolveAPIKey prefers a non-empty per-request key over the configured one.
func ResolveAPIKey(field, configured string) string {
	if k := strings.TrimSpace(field); k != "" {
		return k
	}
	return strings.TrimSpace(configured)
}

// Ask answers question using only summary as context.
func (a *Advisor) Ask(ctx context.Context, apiKey, summary, question string) Result {
	start := time.Now()
	res := a.ask(ctx, apiKey, summary, question)
	a.record(ctx, "ask", res, start)
	return res
}

func (a *Advisor) ask(ctx context.Context, apiKey, summary, question string) Result {
	if strings.TrimSpace(apiKey) == "" {
		return Result{Text: NoCredentialText, Outcome: OutcomeNoCredential, Err: ErrNoCredential}
	}
	text, err := a.complete(ctx, apiKey, askPrompt(summary, question))
	if err != nil {
		return Result{Text: callFailedPrefix + err.Error(), Outcome: OutcomeCallFailed, Err: err}
	}
	return Result{Text: text, Outcome: OutcomeOK}
}

// Classify picks a category for eventName. Any failure yields the fallback label.
func (a *Advisor) Classify(ctx context.Context, apiKey, eventName string) Result {
	start := time.Now()
	res := a.classify(ctx, apiKey, eventName)
	a.record(ctx, "classify", res, start)
	return res
}

func (a *Advisor) classify(ctx context.Context, apiKey, eventName string) Result {
	if strings.TrimSpace(apiKey) == "" {
		return Result{Text: a.fallback, Outcome: OutcomeNoCredential, Err: ErrNoCredential}
	}
	if len(a.categories) == 0 {
		return Result{Text: a.fallback, Outcome: OutcomeOK}
	}
	answer, err := a.complete(ctx, apiKey, classifyPrompt(eventName, a.categories))
	if err != nil {
		return Result{Text: a.fallback, Outcome: OutcomeCallFailed, Err: err}
	}
	label, ok := matchCategory(answer, a.categories)
	if !ok {
		return Result{Text: a.fallback, Outcome: OutcomeCallFailed, Err: ErrUnknownLabel}
	}
	return Result{Text: label, Outcome: OutcomeOK}
}

func (a *Advisor) complete(ctx context.Context, apiKey, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	c, err := a.factory(ctx, apiKey)
	if err != nil {
		return "", err
	}
	text, err := c.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (a *Advisor) record(ctx context.Context, op string, res Result, start time.Time) {
	elapsed := time.Since(start)
	metrics.RecordAdvisorCall(op, string(res.Outcome), float64(elapsed.Milliseconds()))

	fields := []logger.Field{
		logger.String("operation", op),
		logger.String("outcome", string(res.Outcome)),
		logger.Duration("elapsed", elapsed),
	}
	if res.Outcome == OutcomeCallFailed {
		a.logger.Warn(ctx, "assistant call failed", append(fields, logger.Error(res.Err))...)
		return
	}
	a.logger.Debug(ctx, "assistant call finished", fields...)
}
