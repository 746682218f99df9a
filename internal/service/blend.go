package service

import (
	"math"

	"FairOdds/internal/model"
)

// blendWeights 各事件类型的信号权重（core+news+momentum=1）
// 这些权重与下面的阈值是精确契约，不是可调默认值
type blendWeights struct {
	Core     float64
	News     float64
	Momentum float64
}

var eventTypeWeights = map[model.EventType]blendWeights{
	model.EventTypePolitics: {Core: 0.70, News: 0.25, Momentum: 0.05},
	model.EventTypeCrypto:   {Core: 0.30, News: 0.40, Momentum: 0.30},
	model.EventTypeSports:   {Core: 0.60, News: 0.35, Momentum: 0.05},
	model.EventTypePop:      {Core: 0.30, News: 0.70, Momentum: 0},
	model.EventTypeOther:    {Core: 0.50, News: 0.30, Momentum: 0.20},
}

// 定价标签阈值：最终概率偏离市场超过±5才算错价
const labelDivergenceThreshold = 5

// BlendResult 混合引擎输出
type BlendResult struct {
	FinalProbability int     // [0,100]
	Label            string  // Underpriced/FairlyPriced/Overpriced
	Divergence       int     // final - market
	Confidence       float64 // Model Price在最终混合中的权重
	ModelPrice       float64 // 混合前的模型价 [1,99]
	Alignment        int     // 信号一致性得分 0-4
}

// Blend 混合引擎：纯函数，相同输入必然得到相同输出
// marketProbability ∈ [0,100]；向量缺核心分时调用方已用市场价兜底
func Blend(marketProbability float64, eventType model.EventType, v model.SignalVector) BlendResult {
	w, ok := eventTypeWeights[eventType]
	if !ok {
		w = eventTypeWeights[model.EventTypeOther]
	}

	// 1. Model Price：核心分 + 新闻冲击 + 动量冲击，钳位[1,99]
	newsImpact := (v.NewsScore / 100) * (w.News * 100)
	momentumImpact := (v.MomentumScore / 100) * (w.Momentum * 100)
	modelPrice := clampRange(v.CoreAiScore+newsImpact+momentumImpact, 1, 99)

	// 2. 一致性得分（0-4）
	alignment := 0
	if sign(v.CoreAiScore-50) == sign(v.NewsScore) && v.NewsScore != 0 && v.CoreAiScore != 50 {
		alignment += 2
	}
	if math.Abs(v.NewsScore) > 50 {
		alignment++
	}
	if math.Abs(v.CoreAiScore-50) > 20 {
		alignment++
	}

	// 3. 置信因子
	contrarian := isContrarian(modelPrice, marketProbability)
	var confidence float64
	switch {
	case alignment >= 3:
		confidence = 0.90
	case alignment >= 2:
		confidence = 0.70
	case contrarian:
		confidence = 0.30
	default:
		confidence = 0.50
	}

	// 4. 极端市场保护：市场接近确定时，逆势观点必须有近乎一致的信号支持
	if (marketProbability > 90 || marketProbability < 10) && contrarian && alignment < 3 {
		confidence = 0.10
	}

	// 5. 最终概率（半数向下取整）
	final := roundHalfDown(modelPrice*confidence + marketProbability*(1-confidence))

	// 6. 标签
	market := roundHalfDown(marketProbability)
	divergence := final - market
	label := model.LabelFairlyPriced
	if divergence > labelDivergenceThreshold {
		label = model.LabelUnderpriced
	} else if divergence < -labelDivergenceThreshold {
		label = model.LabelOverpriced
	}

	return BlendResult{
		FinalProbability: final,
		Label:            label,
		Divergence:       divergence,
		Confidence:       confidence,
		ModelPrice:       modelPrice,
		Alignment:        alignment,
	}
}

// isContrarian 模型价与市场价分别站在50%两侧（任一恰好50不算）
func isContrarian(modelPrice, marketProbability float64) bool {
	m, k := sign(modelPrice-50), sign(marketProbability-50)
	return m != 0 && k != 0 && m != k
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// roundHalfDown 四舍五入，恰好半数时向下（87.5→87，87.6→88）
func roundHalfDown(x float64) int {
	return int(math.Ceil(x - 0.5))
}
