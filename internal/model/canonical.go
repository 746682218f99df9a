package model

// EventType 事件类型（决定混合权重与缓存倍率）
type EventType string

const (
	EventTypeSports   EventType = "sports"
	EventTypePolitics EventType = "politics"
	EventTypeCrypto   EventType = "crypto"
	EventTypePop      EventType = "pop"
	EventTypeOther    EventType = "other"
)

// MarketEvent 归一化后的统一事件模型（所有平台原始payload归一化为此结构）
type MarketEvent struct {
	Slug                  string
	Title                 string
	Category              string // 平台自由文本分类，原样保留
	EventType             EventType
	ResolutionMethod      string
	SubjectivityLevel     string
	TimeToResolutionHours float64        // 距离结算的小时数，>=0
	Options               []MarketOption // 按概率降序，不允许为空
	Metrics               EventMetrics
	NewsArticles          []NewsArticle
	SocialData            map[string]SocialSignal // key=选项名
}

// MarketOption 单个选项
// 注意：二元市场两个选项的概率之和不一定等于1（市场微观结构导致），不能视为非法数据
type MarketOption struct {
	Name               string
	Image              string
	TokenID            string  // CLOB token，用于拉取订单簿
	ImpliedProbability float64 // [0,1]
	VolumeSharePercent float64 // [0,100]
	PriceChange24h     float64 // 带符号百分比
}

// EventMetrics 事件级别指标
type EventMetrics struct {
	TotalVolume  float64
	Volume24h    float64
	TotalWallets int
	Whale        *WhaleData // 订单簿不可用时为nil
}

// WhaleData 订单簿大单墙统计（notional超过阈值的档位数）
type WhaleData struct {
	BuyWalls   int
	SellWalls  int
	TotalWalls int
}

// NewsArticle 新闻适配器返回的文章
type NewsArticle struct {
	Title       string
	Description string
	Source      string
	URL         string
	Sentiment   *float64 // 上游已给出情绪分时使用，否则走关键词启发式
}

// SocialSignal 社媒适配器返回的选项情绪信号
type SocialSignal struct {
	Score      float64 // [-100,100]
	Engagement float64
	Trend      string
	PostCount  int
}

// SignalVector 单个选项的信号向量（混合引擎的输入）
type SignalVector struct {
	CoreAiScore   float64 // [0,100]，模型不可用时等于市场概率（降级模式）
	NewsScore     float64 // [-100,100]
	MomentumScore float64 // [-100,100]
	Rationale     string  // 模型给出的理由，可为空
}

// CoreEstimate 独立模型对整个事件的估计
type CoreEstimate struct {
	Scores    map[string]float64 // 选项名 → [0,100]
	Rationale string
}
