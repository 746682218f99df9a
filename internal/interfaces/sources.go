package interfaces

import (
	"context"

	"FairOdds/internal/model"
)

// MarketSource 市场数据源（事件payload与订单簿）
type MarketSource interface {
	GetName() string
	FetchEvent(ctx context.Context, slug string) (*model.GammaEvent, error)                // 按slug拉取原始事件
	FetchOrderBook(ctx context.Context, tokenID string) (*model.RawOrderBook, error)       // 按token拉取订单簿
}

// NewsSource 新闻数据源，返回与查询相关的文章列表
// 失败/超时由调用方吸收为中性信号，实现方不做重试以外的兜底
type NewsSource interface {
	FetchNews(ctx context.Context, query string, eventType model.EventType) ([]model.NewsArticle, error)
}

// SocialSource 社媒情绪数据源（有严格限流，调用方必须控制节奏）
type SocialSource interface {
	FetchSentiment(ctx context.Context, option, eventTitle string, eventType model.EventType) (*model.SocialSignal, error)
}

// ModelSource 独立核心模型（LLM推理），尽力而为：不可用时调用方降级为市场价
type ModelSource interface {
	Estimate(ctx context.Context, event *model.MarketEvent) (*model.CoreEstimate, error)
}
