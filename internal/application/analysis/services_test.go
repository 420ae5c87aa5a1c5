package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/anish1206/green-tech/internal/domain/analysis"
	"github.com/anish1206/green-tech/internal/domain/identity"
)

type fakeRepo struct {
	mu       sync.Mutex
	inserted []*domain.Analysis
	calls    int
	fail     error
}

func (r *fakeRepo) Insert(_ context.Context, a *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail != nil {
		return r.fail
	}
	a.ID = domain.AnalysisID("id-" + a.FileName)
	a.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.inserted = append(r.inserted, a)
	return nil
}

func (r *fakeRepo) ListByOwner(_ context.Context, owner string) ([]*domain.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail != nil {
		return nil, r.fail
	}
	var out []*domain.Analysis
	for i := len(r.inserted) - 1; i >= 0; i-- {
		if r.inserted[i].OwnerID == owner {
			out = append(out, r.inserted[i])
		}
	}
	return out, nil
}

// suggestEnricher mimics the real enricher: summary plus a suggestion below 40.
type suggestEnricher struct {
	calls int
	fail  error
}

func (e *suggestEnricher) Enrich(_ context.Context, rows []domain.ScoredRow) (string, []domain.ScoredRow, error) {
	e.calls++
	if e.fail != nil {
		return "", nil, e.fail
	}
	out := append([]domain.ScoredRow(nil), rows...)
	for i := range out {
		if out[i].GreenScore < domain.LowScoreThreshold {
			out[i].Suggestion = "alt for " + out[i].Product
		}
	}
	return "overall summary", out, nil
}

type fakeArchive struct {
	keys []string
	fail error
}

func (a *fakeArchive) Put(_ context.Context, key string, _ []byte, contentType string) error {
	if a.fail != nil {
		return a.fail
	}
	a.keys = append(a.keys, key+"|"+contentType)
	return nil
}

type recordingObserver struct {
	submitted []int
	failed    []string
}

func (o *recordingObserver) AnalysisSubmitted(n int)     { o.submitted = append(o.submitted, n) }
func (o *recordingObserver) AnalysisFailed(stage string) { o.failed = append(o.failed, stage) }

type harness struct {
	svc      *Service
	repo     *fakeRepo
	enricher *suggestEnricher
	archive  *fakeArchive
	obs      *recordingObserver
}

func newHarness() *harness {
	h := &harness{repo: &fakeRepo{}, enricher: &suggestEnricher{}, archive: &fakeArchive{}, obs: &recordingObserver{}}
	h.svc = &Service{Repo: h.repo, Enricher: h.enricher, Archive: h.archive, Observer: h.obs}
	return h
}

var alice = &identity.Identity{Subject: "alice"}

const csvThree = "Product,Quantity\nRecycled A4 Paper,10\nDisposable Plastic Cups,200\nLED Light Bulbs,12\n"

func requireStage(t *testing.T, err error, stage string, kind error) {
	t.Helper()
	require.Error(t, err)
	var se *domain.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, stage, se.Stage)
	assert.ErrorIs(t, err, kind)
}

func TestSubmitAnalysisEndToEnd(t *testing.T) {
	h := newHarness()
	a, err := h.svc.SubmitAnalysis(context.Background(), alice, []byte(csvThree), "supplies.csv")
	require.NoError(t, err)

	require.Len(t, a.Items, 3)
	assert.Equal(t, []int{70, 0, 60}, []int{a.Items[0].GreenScore, a.Items[1].GreenScore, a.Items[2].GreenScore})
	assert.Equal(t, 43, a.AverageScore)
	assert.Equal(t, "overall summary", a.Summary)
	assert.Equal(t, "alice", a.OwnerID)
	assert.Equal(t, domain.AnalysisID("id-supplies.csv"), a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	assert.Equal(t, "10", a.Items[0].Attributes["quantity"], "headers are lower-cased")
	for _, it := range a.Items {
		if it.GreenScore >= domain.LowScoreThreshold {
			assert.Empty(t, it.Suggestion, it.Product)
		} else {
			assert.Equal(t, "alt for "+it.Product, it.Suggestion)
		}
	}

	assert.Equal(t, []string{"alice/id-supplies.csv.csv|text/csv"}, h.archive.keys)
	assert.Equal(t, []int{3}, h.obs.submitted)
	assert.Empty(t, h.obs.failed)
}

func TestSubmitAnalysisUnauthorizedTouchesNothing(t *testing.T) {
	for _, caller := range []*identity.Identity{nil, {}, {DisplayName: "no subject"}} {
		h := newHarness()
		_, err := h.svc.SubmitAnalysis(context.Background(), caller, []byte(csvThree), "a.csv")
		requireStage(t, err, domain.StageAuth, domain.ErrUnauthorized)
		assert.Equal(t, "unauthorized", err.Error())
		assert.Zero(t, h.repo.calls)
		assert.Zero(t, h.enricher.calls)
		assert.Empty(t, h.archive.keys)
	}
}

func TestSubmitAnalysisEmptyFile(t *testing.T) {
	h := newHarness()
	_, err := h.svc.SubmitAnalysis(context.Background(), alice, nil, "")
	requireStage(t, err, domain.StageValidate, domain.ErrBadRequest)
	assert.Equal(t, "no file uploaded", err.Error())
	assert.Zero(t, h.repo.calls)
}

func TestSubmitAnalysisParseError(t *testing.T) {
	h := newHarness()
	_, err := h.svc.SubmitAnalysis(context.Background(), alice, []byte("product,qty\nPaper,1,extra\n"), "bad.csv")
	requireStage(t, err, domain.StageParse, domain.ErrCSVParse)
	assert.Equal(t, "failed to parse CSV file", err.Error())
	assert.Zero(t, h.repo.calls)
	assert.Zero(t, h.enricher.calls)
	assert.Equal(t, []string{domain.StageParse}, h.obs.failed)
}

func TestSubmitAnalysisEnrichmentError(t *testing.T) {
	h := newHarness()
	h.enricher.fail = errors.New("provider down")
	_, err := h.svc.SubmitAnalysis(context.Background(), alice, []byte(csvThree), "a.csv")
	requireStage(t, err, domain.StageEnrich, domain.ErrEnrichment)
	assert.Equal(t, "failed to generate AI insights", err.Error())
	assert.NotContains(t, err.Error(), "provider down")
	assert.Zero(t, h.repo.calls, "nothing persisted on enrichment failure")
}

func TestSubmitAnalysisStorageError(t *testing.T) {
	h := newHarness()
	h.repo.fail = errors.New("deadlock")
	_, err := h.svc.SubmitAnalysis(context.Background(), alice, []byte(csvThree), "a.csv")
	requireStage(t, err, domain.StagePersist, domain.ErrStorage)
	assert.Equal(t, "failed to save analysis", err.Error())
	assert.Empty(t, h.archive.keys, "archive only after persist")
	assert.Empty(t, h.obs.submitted)
}

func TestSubmitAnalysisArchiveFailureIsIgnored(t *testing.T) {
	h := newHarness()
	h.archive.fail = errors.New("bucket gone")
	a, err := h.svc.SubmitAnalysis(context.Background(), alice, []byte(csvThree), "a.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
}

func TestSubmitAnalysisHeaderOnly(t *testing.T) {
	h := newHarness()
	a, err := h.svc.SubmitAnalysis(context.Background(), alice, []byte("product,qty\n"), "empty.csv")
	require.NoError(t, err)
	assert.NotNil(t, a.Items)
	assert.Empty(t, a.Items)
	assert.Equal(t, 0, a.AverageScore)
}

func TestListHistory(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	list, err := h.svc.ListHistory(ctx, alice)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = h.svc.SubmitAnalysis(ctx, alice, []byte(csvThree), "one.csv")
	require.NoError(t, err)
	_, err = h.svc.SubmitAnalysis(ctx, alice, []byte(csvThree), "two.csv")
	require.NoError(t, err)
	_, err = h.svc.SubmitAnalysis(ctx, &identity.Identity{Subject: "bob"}, []byte(csvThree), "bob.csv")
	require.NoError(t, err)

	list, err = h.svc.ListHistory(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two.csv", list[0].FileName)
	assert.Equal(t, "one.csv", list[1].FileName)
}

func TestListHistoryErrors(t *testing.T) {
	h := newHarness()
	_, err := h.svc.ListHistory(context.Background(), nil)
	requireStage(t, err, domain.StageAuth, domain.ErrUnauthorized)
	assert.Zero(t, h.repo.calls)

	h.repo.fail = errors.New("timeout")
	_, err = h.svc.ListHistory(context.Background(), alice)
	requireStage(t, err, domain.StageHistory, domain.ErrStorage)
	assert.Equal(t, "failed to load history", err.Error())
}

func TestAggregate(t *testing.T) {
	rows := []domain.ScoredRow{{GreenScore: 70}, {GreenScore: 0}, {GreenScore: 60}}
	a := Aggregate("f.csv", rows, "s")
	assert.Equal(t, 43, a.AverageScore)
	assert.Equal(t, "f.csv", a.FileName)
	assert.Equal(t, "s", a.Summary)
	assert.Empty(t, a.ID)
	assert.True(t, a.CreatedAt.IsZero())

	empty := Aggregate("e.csv", nil, "")
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.AverageScore)
}

func TestAverageScoreRounding(t *testing.T) {
	cases := []struct {
		scores []int
		want   int
	}{
		{[]int{50, 51}, 51}, // 50.5 rounds half away from zero
		{[]int{10, 10, 11}, 10},
		{[]int{100}, 100},
		{nil, 0},
	}
	for _, c := range cases {
		rows := make([]domain.ScoredRow, len(c.scores))
		for i, s := range c.scores {
			rows[i].GreenScore = s
		}
		assert.Equal(t, c.want, AverageScore(rows), "%v", c.scores)
	}
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "alice/abc.csv", ArchiveKey("alice", "abc"))
}
