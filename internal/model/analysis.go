package model

import "time"

// 定价标签：最终概率与市场概率的偏离方向
const (
	LabelUnderpriced  = "Underpriced"
	LabelFairlyPriced = "FairlyPriced"
	LabelOverpriced   = "Overpriced"
)

// AnalysisOption 单个选项的分析结果
type AnalysisOption struct {
	Option            string `json:"option"`
	Image             string `json:"image,omitempty"`
	MarketProbability int    `json:"marketProbability"` // [0,100]
	AiScore           int    `json:"aiScore"`           // [0,100]
	PricingLabel      string `json:"pricingLabel"`
	PricingDeviation  int    `json:"pricingDeviation"` // aiScore - marketProbability
	Note              string `json:"note,omitempty"`
}

// AnalysisPayload 缓存的分析结果本体（入库部分，不含缓存元信息）
type AnalysisPayload struct {
	Slug       string           `json:"slug"`
	Title      string           `json:"title"`
	EventType  EventType        `json:"eventType"`
	Options    []AnalysisOption `json:"options"`
	AnalyzedAt time.Time        `json:"analyzedAt"`
}

// AnalysisResult 对外返回的完整结果（payload + 缓存元信息）
type AnalysisResult struct {
	AnalysisPayload
	Cached             bool      `json:"cached"`
	Stale              bool      `json:"stale,omitempty"` // 过期兜底返回时为true
	CachedAt           time.Time `json:"cachedAt"`
	ExpiresAt          time.Time `json:"expiresAt"`
	CacheAgeMinutes    int       `json:"cacheAgeMinutes"`
	TTLMinutes         int       `json:"ttlMinutes"`
	RefreshAvailableIn int       `json:"refreshAvailableIn"` // 距离可刷新的分钟数
	RateLimitWarning   string    `json:"rateLimitWarning,omitempty"`
}
