package model

import "errors"

// 错误分级：只有市场源失败且无缓存、或限流且无缓存，才会作为用户可见错误抛出；
// 新闻/社媒/模型等信号源失败一律就地吸收为中性向量
var (
	// ErrInvalidInput slug/URL无法解析，在任何缓存交互之前拒绝
	ErrInvalidInput = errors.New("invalid slug or url")
	// ErrNoMarketsFound 归一化后选项列表为空（硬失败）
	ErrNoMarketsFound = errors.New("no markets found")
	// ErrUpstreamUnavailable 市场数据源不可达
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrRateLimited 模型/数据源配额耗尽
	ErrRateLimited = errors.New("rate limited")
)
