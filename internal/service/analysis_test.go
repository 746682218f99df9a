package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"FairOdds/internal/config"
	"FairOdds/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type fakeMarket struct {
	event      *model.GammaEvent
	eventErr   error
	book       *model.RawOrderBook
	bookErr    error
	fetchCalls int
}

func (f *fakeMarket) GetName() string { return "fake" }

func (f *fakeMarket) FetchEvent(_ context.Context, _ string) (*model.GammaEvent, error) {
	f.fetchCalls++
	return f.event, f.eventErr
}

func (f *fakeMarket) FetchOrderBook(_ context.Context, _ string) (*model.RawOrderBook, error) {
	return f.book, f.bookErr
}

type fakeOracle struct {
	estimate *model.CoreEstimate
	err      error
}

func (f *fakeOracle) Estimate(_ context.Context, _ *model.MarketEvent) (*model.CoreEstimate, error) {
	return f.estimate, f.err
}

type fakeRepo struct {
	entry     *model.AnalysisCache
	getErr    error
	upsertErr error

	getCalls int
	touches  int
	upserts  []*model.AnalysisCache
}

func (f *fakeRepo) GetBySlug(_ context.Context, _ string) (*model.AnalysisCache, error) {
	f.getCalls++
	return f.entry, f.getErr
}

func (f *fakeRepo) Upsert(_ context.Context, entry *model.AnalysisCache) error {
	f.upserts = append(f.upserts, entry)
	return f.upsertErr
}

func (f *fakeRepo) Touch(_ context.Context, _ string) error {
	f.touches++
	return nil
}

func (f *fakeRepo) List(_ context.Context, _, _ int) ([]*model.AnalysisCache, int64, error) {
	return nil, 0, nil
}

// 二元政治市场，距离结算50小时（politics × 50h → TTL 135分钟）
func testGammaEvent() *model.GammaEvent {
	return &model.GammaEvent{
		Slug:    "next-president",
		Title:   "Next President",
		Tags:    []model.GammaTag{{Label: "Politics"}},
		EndDate: testBase.Add(50 * time.Hour).Format(time.RFC3339),
		Markets: []model.GammaMarket{{
			Outcomes:      `["Yes","No"]`,
			OutcomePrices: json.RawMessage(`[0.6, 0.4]`),
		}},
	}
}

func newTestService(market *fakeMarket, oracle *fakeOracle, repo *fakeRepo) *AnalysisService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.AnalysisConfig{
		Deadline:        time.Minute,
		SocialPaceDelay: time.Millisecond,
		SignalTimeout:   time.Second,
	}
	collector := NewCollector(nil, nil, cfg, logger)
	svc := NewAnalysisService(market, oracle, collector, repo, cfg, logger)
	svc.now = func() time.Time { return testBase }
	return svc
}

func cacheEntry(t *testing.T, slug string, createdAt, expiresAt time.Time) *model.AnalysisCache {
	t.Helper()
	raw, err := json.Marshal(&model.AnalysisPayload{
		Slug:      slug,
		Title:     "Cached Title",
		EventType: model.EventTypePolitics,
		Options:   []model.AnalysisOption{{Option: "Yes", MarketProbability: 55, AiScore: 58}},
	})
	require.NoError(t, err)
	return &model.AnalysisCache{
		Slug:       slug,
		Payload:    raw,
		TTLMinutes: 30,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
	}
}

func TestAnalyze_InvalidInputBeforeAnyIO(t *testing.T) {
	market := &fakeMarket{}
	repo := &fakeRepo{}
	svc := newTestService(market, &fakeOracle{}, repo)

	_, err := svc.Analyze(context.Background(), "not a slug!!", false)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Zero(t, repo.getCalls)
	assert.Zero(t, market.fetchCalls)
}

func TestAnalyze_MissComputesAndCaches(t *testing.T) {
	market := &fakeMarket{event: testGammaEvent()}
	oracle := &fakeOracle{estimate: &model.CoreEstimate{
		Scores:    map[string]float64{"Yes": 80, "No": 20},
		Rationale: "incumbent polling strong",
	}}
	repo := &fakeRepo{}
	svc := newTestService(market, oracle, repo)

	res, err := svc.Analyze(context.Background(), "next-president", false)
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.False(t, res.Stale)
	assert.Equal(t, 135, res.TTLMinutes)
	assert.Equal(t, 135, res.RefreshAvailableIn)
	assert.Equal(t, model.EventTypePolitics, res.EventType)
	require.Len(t, res.Options, 2)

	// Yes：市场60，核心80，动量+30（量占比100%）→ 模型价81.5，置信0.50 → 71
	yes := res.Options[0]
	assert.Equal(t, "Yes", yes.Option)
	assert.Equal(t, 60, yes.MarketProbability)
	assert.Equal(t, 71, yes.AiScore)
	assert.Equal(t, 11, yes.PricingDeviation)
	assert.Equal(t, model.LabelUnderpriced, yes.PricingLabel)
	assert.Contains(t, yes.Note, "incumbent polling strong")

	// 完整结果落库，过期时间 = now + TTL
	require.Len(t, repo.upserts, 1)
	saved := repo.upserts[0]
	assert.Equal(t, "next-president", saved.Slug)
	assert.Equal(t, 135, saved.TTLMinutes)
	assert.Equal(t, testBase.Add(135*time.Minute), saved.ExpiresAt)
	assert.NotEmpty(t, saved.Payload)
}

func TestAnalyze_FreshHitSkipsUpstream(t *testing.T) {
	market := &fakeMarket{event: testGammaEvent()}
	repo := &fakeRepo{entry: cacheEntry(t, "next-president", testBase.Add(-10*time.Minute), testBase.Add(20*time.Minute))}
	svc := newTestService(market, &fakeOracle{}, repo)

	res, err := svc.Analyze(context.Background(), "next-president", false)
	require.NoError(t, err)

	assert.True(t, res.Cached)
	assert.False(t, res.Stale)
	assert.Equal(t, "Cached Title", res.Title)
	assert.Equal(t, 10, res.CacheAgeMinutes)
	assert.Equal(t, 20, res.RefreshAvailableIn)
	assert.Equal(t, 1, repo.touches)
	assert.Zero(t, market.fetchCalls)
	assert.Empty(t, repo.upserts)
}

func TestAnalyze_ForceRefreshRejectedWhileFresh(t *testing.T) {
	market := &fakeMarket{event: testGammaEvent()}
	repo := &fakeRepo{entry: cacheEntry(t, "next-president", testBase.Add(-5*time.Minute), testBase.Add(25*time.Minute))}
	svc := newTestService(market, &fakeOracle{}, repo)

	res, err := svc.Analyze(context.Background(), "next-president", true)
	require.NoError(t, err)

	// TTL内强制刷新不生效，依旧返回缓存且不触达上游
	assert.True(t, res.Cached)
	assert.Zero(t, market.fetchCalls)
}

func TestAnalyze_ForceRefreshRecomputesWhenExpired(t *testing.T) {
	market := &fakeMarket{event: testGammaEvent()}
	repo := &fakeRepo{entry: cacheEntry(t, "next-president", testBase.Add(-2*time.Hour), testBase.Add(-time.Minute))}
	svc := newTestService(market, &fakeOracle{}, repo)

	res, err := svc.Analyze(context.Background(), "next-president", true)
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.Equal(t, 1, market.fetchCalls)
	assert.Len(t, repo.upserts, 1)
}

func TestAnalyze_ExpiredStaleServeOnFailure(t *testing.T) {
	market := &fakeMarket{eventErr: fmt.Errorf("gateway 502: %w", model.ErrUpstreamUnavailable)}
	repo := &fakeRepo{entry: cacheEntry(t, "next-president", testBase.Add(-2*time.Hour), testBase.Add(-30*time.Minute))}
	svc := newTestService(market, &fakeOracle{}, repo)

	res, err := svc.Analyze(context.Background(), "next-president", false)
	require.NoError(t, err)

	assert.True(t, res.Cached)
	assert.True(t, res.Stale)
	assert.Equal(t, "Cached Title", res.Title)
	assert.Equal(t, 120, res.CacheAgeMinutes)
	assert.Zero(t, res.RefreshAvailableIn) // 已过期，随时可再试
	assert.Empty(t, res.RateLimitWarning)
	// 兜底返回不会把过期条目重新写库
	assert.Empty(t, repo.upserts)
}

func TestAnalyze_RateLimitedStaleServe(t *testing.T) {
	market := &fakeMarket{eventErr: fmt.Errorf("429: %w", model.ErrRateLimited)}
	repo := &fakeRepo{entry: cacheEntry(t, "next-president", testBase.Add(-time.Hour), testBase.Add(-time.Minute))}
	svc := newTestService(market, &fakeOracle{}, repo)

	res, err := svc.Analyze(context.Background(), "next-president", false)
	require.NoError(t, err)

	assert.True(t, res.Stale)
	assert.NotEmpty(t, res.RateLimitWarning)
	// 限流冷却窗口替代正常TTL
	assert.Equal(t, 5, res.RefreshAvailableIn)
}

func TestAnalyze_NoCacheHardFailure(t *testing.T) {
	cases := []struct {
		name     string
		eventErr error
		want     error
	}{
		{"upstream down", fmt.Errorf("boom: %w", model.ErrUpstreamUnavailable), model.ErrUpstreamUnavailable},
		{"rate limited", fmt.Errorf("429: %w", model.ErrRateLimited), model.ErrRateLimited},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			market := &fakeMarket{eventErr: tc.eventErr}
			svc := newTestService(market, &fakeOracle{}, &fakeRepo{})

			res, err := svc.Analyze(context.Background(), "next-president", false)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAnalyze_NoMarketsHardFailure(t *testing.T) {
	market := &fakeMarket{event: &model.GammaEvent{Slug: "empty-event"}}
	svc := newTestService(market, &fakeOracle{}, &fakeRepo{})

	_, err := svc.Analyze(context.Background(), "empty-event", false)
	assert.ErrorIs(t, err, model.ErrNoMarketsFound)
}

func TestAnalyze_DegradedOracleTracksMarket(t *testing.T) {
	market := &fakeMarket{event: testGammaEvent()}
	oracle := &fakeOracle{err: errors.New("model offline")}
	svc := newTestService(market, oracle, &fakeRepo{})

	res, err := svc.Analyze(context.Background(), "next-president", false)
	require.NoError(t, err)
	require.Len(t, res.Options, 2)

	// 降级：核心分=市场价，只剩动量微调（+30×5% → 模型价61.5，置信0.50 → 61）
	yes := res.Options[0]
	assert.Equal(t, 60, yes.MarketProbability)
	assert.Equal(t, 61, yes.AiScore)
	assert.Equal(t, model.LabelFairlyPriced, yes.PricingLabel)
}

func TestAnalyze_OracleRateLimitPropagates(t *testing.T) {
	market := &fakeMarket{event: testGammaEvent()}
	oracle := &fakeOracle{err: fmt.Errorf("quota: %w", model.ErrRateLimited)}
	repo := &fakeRepo{entry: cacheEntry(t, "next-president", testBase.Add(-time.Hour), testBase.Add(-time.Minute))}
	svc := newTestService(market, oracle, repo)

	res, err := svc.Analyze(context.Background(), "next-president", false)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, 5, res.RefreshAvailableIn)
}

func TestAnalyze_RepoFailuresDoNotBlockAnalysis(t *testing.T) {
	market := &fakeMarket{event: testGammaEvent()}
	repo := &fakeRepo{getErr: errors.New("db down"), upsertErr: errors.New("db down")}
	svc := newTestService(market, &fakeOracle{}, repo)

	res, err := svc.Analyze(context.Background(), "next-president", false)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	require.Len(t, res.Options, 2)
}

func TestAnalyze_CorruptCachePayload(t *testing.T) {
	entry := cacheEntry(t, "next-president", testBase.Add(-time.Minute), testBase.Add(time.Hour))
	entry.Payload = []byte(`{broken`)
	svc := newTestService(&fakeMarket{}, &fakeOracle{}, &fakeRepo{entry: entry})

	_, err := svc.Analyze(context.Background(), "next-president", false)
	assert.Error(t, err)
}
