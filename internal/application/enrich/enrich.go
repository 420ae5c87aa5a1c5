// Package enrich attaches LLM commentary to scored rows: one narrative summary
// for the batch and an alternative suggestion for every low-scoring item.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domain "github.com/anish1206/green-tech/internal/domain/analysis"
	"github.com/anish1206/green-tech/internal/domain/ai"
	"github.com/anish1206/green-tech/internal/infra/ai/prompt"
)

// Config tunes the orchestrator. Zero values fall back to the defaults below.
type Config struct {
	Concurrency          int
	CallTimeout          time.Duration
	MaxAttempts          int
	RetryDelay           time.Duration
	SummaryMaxTokens     int
	AlternativeMaxTokens int
	// DegradeSummary keeps the upload alive with an empty summary when the
	// summary call fails. Off by default: a failed summary fails enrichment.
	DegradeSummary bool
}

const (
	defaultConcurrency          = 5
	defaultCallTimeout          = 20 * time.Second
	defaultRetryDelay           = 200 * time.Millisecond
	defaultSummaryMaxTokens     = 200
	defaultAlternativeMaxTokens = 80
)

// Enricher fans alternative requests out to a Completer through a bounded pool.
type Enricher struct {
	Completer ai.Completer
	Config    Config
	Log       *zap.Logger

	// OnSuggestion, when set, is called once per attempted suggestion.
	OnSuggestion func(ok bool)
}

func New(c ai.Completer, cfg Config, log *zap.Logger) *Enricher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enricher{Completer: c, Config: cfg, Log: log}
}

// Enrich returns the batch summary and a copy of rows with suggestions attached
// in place. A failed suggestion leaves that row without one and never affects
// its siblings or the summary. Only a summary failure returns an error, and
// only when DegradeSummary is off.
func (e *Enricher) Enrich(ctx context.Context, rows []domain.ScoredRow) (string, []domain.ScoredRow, error) {
	out := make([]domain.ScoredRow, len(rows))
	copy(out, rows)
	if len(out) == 0 {
		return "", out, nil
	}

	products := make([]string, len(out))
	for i := range out {
		products[i] = out[i].Product
	}

	summary, err := e.complete(ctx, prompt.SummaryPrompt(products), e.summaryMaxTokens())
	if err != nil {
		if !e.Config.DegradeSummary {
			return "", nil, fmt.Errorf("summary: %w", err)
		}
		e.logger().Warn("summary completion failed, continuing without summary", zap.Error(err))
		summary = ""
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency())
	for i := range out {
		if out[i].GreenScore >= domain.LowScoreThreshold || out[i].Product == "" {
			continue
		}
		g.Go(func() error {
			s, err := e.complete(ctx, prompt.AlternativePrompt(out[i].Product), e.alternativeMaxTokens())
			e.observe(err == nil)
			if err != nil {
				e.logger().Warn("alternative suggestion failed",
					zap.Int("row", i),
					zap.String("product", out[i].Product),
					zap.Bool("quota", errors.Is(err, ai.ErrQuotaExceeded)),
					zap.Error(err))
				return nil
			}
			// each goroutine owns out[i]
			out[i].Suggestion = s
			return nil
		})
	}
	_ = g.Wait()

	return summary, out, nil
}

func (e *Enricher) complete(ctx context.Context, p string, maxTokens int) (string, error) {
	var text string
	err := retry(ctx, e.Config.MaxAttempts, e.retryDelay(), func() error {
		cctx, cancel := context.WithTimeout(ctx, e.callTimeout())
		defer cancel()
		res, err := e.Completer.Complete(cctx, p, maxTokens)
		if err != nil {
			return err
		}
		res = prompt.Clean(res)
		if res == "" {
			return ai.ErrEmptyCompletion
		}
		text = res
		return nil
	})
	return text, err
}

func (e *Enricher) observe(ok bool) {
	if e.OnSuggestion != nil {
		e.OnSuggestion(ok)
	}
}

func (e *Enricher) concurrency() int {
	if e.Config.Concurrency > 0 {
		return e.Config.Concurrency
	}
	return defaultConcurrency
}

func (e *Enricher) callTimeout() time.Duration {
	if e.Config.CallTimeout > 0 {
		return e.Config.CallTimeout
	}
	return defaultCallTimeout
}

func (e *Enricher) retryDelay() time.Duration {
	if e.Config.RetryDelay > 0 {
		return e.Config.RetryDelay
	}
	return defaultRetryDelay
}

func (e *Enricher) summaryMaxTokens() int {
	if e.Config.SummaryMaxTokens > 0 {
		return e.Config.SummaryMaxTokens
	}
	return defaultSummaryMaxTokens
}

func (e *Enricher) alternativeMaxTokens() int {
	if e.Config.AlternativeMaxTokens > 0 {
		return e.Config.AlternativeMaxTokens
	}
	return defaultAlternativeMaxTokens
}

func (e *Enricher) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}
