package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/anish1206/green-tech/internal/domain/analysis"
	"github.com/anish1206/green-tech/internal/domain/ai"
)

// fakeCompleter answers by prompt kind; fail is keyed by product substring.
type fakeCompleter struct {
	mu          sync.Mutex
	calls       []string
	failSummary error
	fail        map[string]error
	delay       time.Duration
	inFlight    atomic.Int32
	peak        atomic.Int32
}

func (f *fakeCompleter) Complete(ctx context.Context, p string, _ int) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if n <= old || f.peak.CompareAndSwap(old, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if strings.Contains(p, "summarize") {
		if f.failSummary != nil {
			return "", f.failSummary
		}
		return "Mixed impact overall.", nil
	}
	for key, err := range f.fail {
		if strings.Contains(p, key) {
			return "", err
		}
	}
	return "Try a greener option.", nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func scored(product string, score int) domain.ScoredRow {
	return domain.ScoredRow{Row: domain.NewRow(map[string]string{"product": product}, nil), GreenScore: score}
}

func TestEnrichSummaryAndLowScoreSuggestions(t *testing.T) {
	f := &fakeCompleter{}
	e := New(f, Config{}, zap.NewNop())

	in := []domain.ScoredRow{scored("Recycled A4 Paper", 70), scored("Disposable Plastic Cups", 0), scored("LED Light Bulbs", 60), scored("Plastic folder", 40)}
	summary, out, err := e.Enrich(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "Mixed impact overall.", summary)
	require.Len(t, out, 4)
	assert.Equal(t, "", out[0].Suggestion)
	assert.Equal(t, "Try a greener option.", out[1].Suggestion)
	assert.Equal(t, "", out[2].Suggestion)
	assert.Equal(t, "", out[3].Suggestion, "score of exactly 40 is not low")
	assert.Equal(t, 2, f.callCount())

	// input slice untouched
	assert.Equal(t, "", in[1].Suggestion)
}

func TestEnrichIsolatesRowFailures(t *testing.T) {
	f := &fakeCompleter{fail: map[string]error{"Styrofoam": errors.New("boom")}}
	var ok, failed atomic.Int32
	e := New(f, Config{}, zap.NewNop())
	e.OnSuggestion = func(good bool) {
		if good {
			ok.Add(1)
		} else {
			failed.Add(1)
		}
	}

	in := []domain.ScoredRow{scored("Disposable Cups", 25), scored("Styrofoam trays", 20), scored("Single-use straws", 20)}
	summary, out, err := e.Enrich(context.Background(), in)
	require.NoError(t, err)

	assert.NotEmpty(t, summary)
	assert.NotEmpty(t, out[0].Suggestion)
	assert.Empty(t, out[1].Suggestion)
	assert.NotEmpty(t, out[2].Suggestion)
	assert.Equal(t, int32(2), ok.Load())
	assert.Equal(t, int32(1), failed.Load())
}

func TestEnrichSummaryFailurePropagates(t *testing.T) {
	f := &fakeCompleter{failSummary: ai.ErrQuotaExceeded}
	e := New(f, Config{}, zap.NewNop())

	_, out, err := e.Enrich(context.Background(), []domain.ScoredRow{scored("Plastic cups", 20)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrQuotaExceeded)
	assert.Nil(t, out)
	assert.Equal(t, 1, f.callCount(), "no alternatives after a failed summary")
}

func TestEnrichSummaryFailureDegrades(t *testing.T) {
	f := &fakeCompleter{failSummary: errors.New("down")}
	e := New(f, Config{DegradeSummary: true}, zap.NewNop())

	summary, out, err := e.Enrich(context.Background(), []domain.ScoredRow{scored("Plastic cups", 20)})
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.NotEmpty(t, out[0].Suggestion)
}

func TestEnrichBoundsConcurrency(t *testing.T) {
	f := &fakeCompleter{delay: 20 * time.Millisecond}
	e := New(f, Config{Concurrency: 3}, zap.NewNop())

	in := make([]domain.ScoredRow, 12)
	for i := range in {
		in[i] = scored("Disposable item", 25)
	}
	_, out, err := e.Enrich(context.Background(), in)
	require.NoError(t, err)

	for _, r := range out {
		assert.NotEmpty(t, r.Suggestion)
	}
	assert.LessOrEqual(t, f.peak.Load(), int32(3))
	assert.Equal(t, 13, f.callCount())
}

func TestEnrichCallTimeoutFailsOnlyThatRow(t *testing.T) {
	f := &fakeCompleter{delay: 200 * time.Millisecond}
	e := New(f, Config{CallTimeout: 10 * time.Millisecond, DegradeSummary: true}, zap.NewNop())

	summary, out, err := e.Enrich(context.Background(), []domain.ScoredRow{scored("Disposable cups", 0)})
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.Empty(t, out[0].Suggestion)
}

func TestEnrichSkipsRowsWithoutProduct(t *testing.T) {
	f := &fakeCompleter{}
	e := New(f, Config{}, zap.NewNop())

	_, out, err := e.Enrich(context.Background(), []domain.ScoredRow{{Row: domain.NewRow(map[string]string{"qty": "1"}, nil)}})
	require.NoError(t, err)
	assert.Empty(t, out[0].Suggestion)
	assert.Equal(t, 1, f.callCount())
}

func TestEnrichEmptyBatch(t *testing.T) {
	f := &fakeCompleter{}
	summary, out, err := New(f, Config{}, nil).Enrich(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.Empty(t, out)
	assert.Equal(t, 0, f.callCount())
}

func TestRetryRecoversTransientFailure(t *testing.T) {
	attempts := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryGivesUp(t *testing.T) {
	attempts := 0
	err := retry(context.Background(), 2, time.Millisecond, func() error {
		attempts++
		return errors.New("nope")
	})
	assert.EqualError(t, err, "nope")
	assert.Equal(t, 2, attempts)
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	attempts := 0
	_ = retry(context.Background(), 0, time.Millisecond, func() error {
		attempts++
		return errors.New("x")
	})
	assert.Equal(t, 1, attempts)
}
