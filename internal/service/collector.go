package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"FairOdds/internal/config"
	"FairOdds/internal/interfaces"
	"FairOdds/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// 只有市场概率前3的选项发起真实信号请求，其余选项使用中性向量
const maxSignalOptions = 3

// 动量各分项的钳位参数
const (
	velocityScale = 3.0
	velocityCap   = 40.0
	momentumCap   = 100.0
	whaleTerm     = 25.0
)

// 新闻相关性判定：选项名中长度超过该值的词参与匹配
const relevantWordMinLen = 3

// 关键词情绪启发式：15 ×（正向命中 − 负向命中），钳位[-100,100]
const keywordSentimentStep = 15.0

var positiveKeywords = []string{
	"win", "wins", "winning", "lead", "leads", "leading", "surge", "rally",
	"gain", "gains", "boost", "success", "strong", "rise", "rises", "favored",
}

var negativeKeywords = []string{
	"lose", "loses", "losing", "fall", "falls", "drop", "drops", "decline",
	"crash", "fail", "fails", "weak", "scandal", "behind", "plunge", "slump",
}

// Collector 信号向量采集器：编排News/Social调用，本地计算动量
// 任何信号源失败都就地吸收为中性向量，绝不中断整体分析
type Collector struct {
	news          interfaces.NewsSource
	social        interfaces.SocialSource
	logger        *logrus.Logger
	signalTimeout time.Duration
	socialLimiter *rate.Limiter // Social源限流严格，调用间强制间隔
}

func NewCollector(news interfaces.NewsSource, social interfaces.SocialSource, cfg *config.AnalysisConfig, logger *logrus.Logger) *Collector {
	return &Collector{
		news:          news,
		social:        social,
		logger:        logger,
		signalTimeout: cfg.SignalTimeout,
		socialLimiter: rate.NewLimiter(rate.Every(cfg.SocialPaceDelay), 1),
	}
}

// Collect 为事件的每个选项产出News/Momentum分量（核心分由AnalysisService另行填充）
// 返回map key=选项名。并发度受限于参与信号采集的选项数（≤3）
func (c *Collector) Collect(ctx context.Context, event *model.MarketEvent) map[string]model.SignalVector {
	if event.SocialData == nil {
		event.SocialData = map[string]model.SocialSignal{}
	}
	vectors := make(map[string]model.SignalVector, len(event.Options))
	for _, opt := range event.Options {
		vectors[opt.Name] = model.SignalVector{} // 默认中性
	}

	top := topOptions(event.Options, maxSignalOptions)

	// 新闻池按事件拉取一次，相关性在选项级别判定
	if len(event.NewsArticles) == 0 && c.news != nil {
		newsCtx, cancel := context.WithTimeout(ctx, c.signalTimeout)
		articles, err := c.news.FetchNews(newsCtx, event.Title, event.EventType)
		cancel()
		if err != nil {
			c.logger.WithError(err).WithField("event", event.Slug).Warn("新闻源失败，新闻信号置为中性")
		} else {
			event.NewsArticles = articles
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, opt := range top {
		wg.Add(1)
		go func(opt model.MarketOption) {
			defer wg.Done()
			v := model.SignalVector{
				NewsScore:     NewsScore(opt.Name, event.NewsArticles),
				MomentumScore: MomentumScore(&opt, event.Metrics.Whale),
			}

			if c.social != nil {
				// 调用前等待限流窗口，保证相邻社媒调用之间有固定间隔
				if err := c.socialLimiter.Wait(ctx); err == nil {
					socialCtx, cancel := context.WithTimeout(ctx, c.signalTimeout)
					signal, err := c.social.FetchSentiment(socialCtx, opt.Name, event.Title, event.EventType)
					cancel()
					if err != nil {
						c.logger.WithError(err).WithField("option", opt.Name).Warn("社媒源失败，社媒信号置为中性")
					} else if signal != nil {
						mu.Lock()
						event.SocialData[opt.Name] = *signal
						mu.Unlock()
					}
				}
			}

			mu.Lock()
			vectors[opt.Name] = v
			mu.Unlock()
		}(opt)
	}
	wg.Wait()

	return vectors
}

// topOptions 按市场概率取前n个选项
func topOptions(options []model.MarketOption, n int) []model.MarketOption {
	sorted := make([]model.MarketOption, len(options))
	copy(sorted, options)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ImpliedProbability > sorted[j].ImpliedProbability
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// NewsScore 选项的新闻分：相关文章情绪的均值（四舍五入），无相关文章为0
// 相关性：选项名整体、或其中任一长度>3的词，出现在标题+描述中（大小写不敏感子串）
func NewsScore(option string, articles []model.NewsArticle) float64 {
	if len(articles) == 0 {
		return 0
	}
	var total float64
	var relevant int
	for i := range articles {
		a := &articles[i]
		text := strings.ToLower(a.Title + " " + a.Description)
		if !articleRelevant(text, option) {
			continue
		}
		relevant++
		if a.Sentiment != nil {
			total += *a.Sentiment
		} else {
			total += keywordSentiment(text)
		}
	}
	if relevant == 0 {
		return 0
	}
	return math.Round(total / float64(relevant))
}

func articleRelevant(lowerText, option string) bool {
	optLower := strings.ToLower(option)
	if strings.Contains(lowerText, optLower) {
		return true
	}
	for _, word := range strings.Fields(optLower) {
		if len(word) > relevantWordMinLen && strings.Contains(lowerText, word) {
			return true
		}
	}
	return false
}

// keywordSentiment 无上游情绪分时的关键词启发式
func keywordSentiment(lowerText string) float64 {
	words := strings.FieldsFunc(lowerText, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var pos, neg int
	for _, w := range words {
		for _, kw := range positiveKeywords {
			if w == kw {
				pos++
				break
			}
		}
		for _, kw := range negativeKeywords {
			if w == kw {
				neg++
				break
			}
		}
	}
	return clampRange(keywordSentimentStep*float64(pos-neg), -momentumCap, momentumCap)
}

// MomentumScore 本地动量分：价格速度 + 交易量信念 + 鲸鱼墙，总分钳位[-100,100]
func MomentumScore(opt *model.MarketOption, whale *model.WhaleData) float64 {
	velocity := clampRange(opt.PriceChange24h*velocityScale, -velocityCap, velocityCap)

	var conviction float64
	switch {
	case opt.VolumeSharePercent > 50:
		conviction = 30
	case opt.VolumeSharePercent > 25:
		conviction = 15
	case opt.VolumeSharePercent < 5:
		conviction = -10
	}

	var whaleScore float64
	if whale != nil {
		// 买卖两侧可同时生效
		if whale.BuyWalls > 0 {
			whaleScore += whaleTerm
		}
		if whale.SellWalls > 0 {
			whaleScore -= whaleTerm
		}
	}

	return clampRange(velocity+conviction+whaleScore, -momentumCap, momentumCap)
}
