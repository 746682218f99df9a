package service

import (
	"testing"

	"FairOdds/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestBlend_ExtremeMarketGuard(t *testing.T) {
	// 市场接近确定（95），模型逆势（20），信号无支持 → 置信度强制0.10
	v := model.SignalVector{CoreAiScore: 20, NewsScore: 0, MomentumScore: 0}
	b := Blend(95, model.EventTypeOther, v)

	assert.Equal(t, 1, b.Alignment)
	assert.InDelta(t, 0.10, b.Confidence, 1e-9)
	assert.Equal(t, 87, b.FinalProbability)
	assert.Equal(t, -8, b.Divergence)
	assert.Equal(t, model.LabelOverpriced, b.Label)
}

func TestBlend_BalancedCrypto(t *testing.T) {
	// crypto权重 core .30 / news .40 / momentum .30
	v := model.SignalVector{CoreAiScore: 70, NewsScore: 80, MomentumScore: 0}
	b := Blend(50, model.EventTypeCrypto, v)

	// newsImpact = 0.8×40 = 32 → ModelPrice = 102 → 钳位99
	assert.InDelta(t, 99, b.ModelPrice, 1e-9)
	// +2同向、+1强新闻 → alignment=3 → 置信0.90
	assert.Equal(t, 3, b.Alignment)
	assert.InDelta(t, 0.90, b.Confidence, 1e-9)
	// 99×0.9 + 50×0.1 = 94.1 → 94
	assert.Equal(t, 94, b.FinalProbability)
	assert.Equal(t, model.LabelUnderpriced, b.Label)
}

func TestBlend_NeutralVectorsTrackMarket(t *testing.T) {
	// 降级模式：核心分=市场价且无其他信号 → 结果贴近市场
	v := model.SignalVector{CoreAiScore: 60, NewsScore: 0, MomentumScore: 0}
	b := Blend(60, model.EventTypePolitics, v)

	assert.Equal(t, 0, b.Alignment)
	assert.InDelta(t, 0.50, b.Confidence, 1e-9)
	assert.Equal(t, 60, b.FinalProbability)
	assert.Equal(t, 0, b.Divergence)
	assert.Equal(t, model.LabelFairlyPriced, b.Label)
}

func TestBlend_ContrarianLowAlignment(t *testing.T) {
	// 非极端市场的逆势观点，信号不足 → 置信0.30
	v := model.SignalVector{CoreAiScore: 75, NewsScore: 0, MomentumScore: 0}
	b := Blend(40, model.EventTypeOther, v)

	assert.Equal(t, 1, b.Alignment) // 仅 |core-50|>20
	assert.InDelta(t, 0.30, b.Confidence, 1e-9)
	// 75×0.3 + 40×0.7 = 50.5 → 半数向下 → 50
	assert.Equal(t, 50, b.FinalProbability)
	assert.Equal(t, model.LabelUnderpriced, b.Label)
}

func TestBlend_AlignmentTwoGivesConfidence70(t *testing.T) {
	v := model.SignalVector{CoreAiScore: 65, NewsScore: 30, MomentumScore: 0}
	b := Blend(55, model.EventTypeSports, v)

	// +2同向（core>50且news>0），无强新闻，|core-50|=15不加分
	assert.Equal(t, 2, b.Alignment)
	assert.InDelta(t, 0.70, b.Confidence, 1e-9)
}

func TestBlend_Deterministic(t *testing.T) {
	v := model.SignalVector{CoreAiScore: 42, NewsScore: -35, MomentumScore: 18}
	first := Blend(47, model.EventTypeCrypto, v)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Blend(47, model.EventTypeCrypto, v))
	}
}

func TestBlend_OutputAlwaysInRange(t *testing.T) {
	cases := []struct {
		market float64
		v      model.SignalVector
	}{
		{0, model.SignalVector{CoreAiScore: 0, NewsScore: -100, MomentumScore: -100}},
		{100, model.SignalVector{CoreAiScore: 100, NewsScore: 100, MomentumScore: 100}},
		{5, model.SignalVector{CoreAiScore: 95, NewsScore: 100, MomentumScore: 100}},
		{97, model.SignalVector{CoreAiScore: 3, NewsScore: -100, MomentumScore: -100}},
	}
	for _, tc := range cases {
		for et := range eventTypeWeights {
			b := Blend(tc.market, et, tc.v)
			assert.GreaterOrEqual(t, b.FinalProbability, 0)
			assert.LessOrEqual(t, b.FinalProbability, 100)
			assert.GreaterOrEqual(t, b.ModelPrice, 1.0)
			assert.LessOrEqual(t, b.ModelPrice, 99.0)
		}
	}
}

func TestBlend_UnknownEventTypeFallsBackToOther(t *testing.T) {
	v := model.SignalVector{CoreAiScore: 70, NewsScore: 50, MomentumScore: 0}
	got := Blend(50, model.EventType("weather"), v)
	want := Blend(50, model.EventTypeOther, v)
	assert.Equal(t, want, got)
}
