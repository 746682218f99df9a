package service

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"FairOdds/internal/model"
)

// 大单墙阈值：单档notional（价格×数量）超过该值计为一面墙
const whaleNotionalThreshold = 5000.0

// 分组市场最多保留的盘口数
const maxGroupedOptions = 5

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-_.]*$`)

// ParseSlug 解析输入的slug或事件URL，非法输入在任何缓存交互前拒绝
// 支持 https://polymarket.com/event/<slug> 形式的完整链接
func ParseSlug(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("输入为空: %w", model.ErrInvalidInput)
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("URL解析失败: %w", model.ErrInvalidInput)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		// 取 /event/<slug> 中的slug段
		for i, p := range parts {
			if p == "event" && i+1 < len(parts) {
				s = parts[i+1]
				break
			}
		}
		if strings.Contains(s, "://") || s == "" {
			return "", fmt.Errorf("URL中未找到事件slug: %w", model.ErrInvalidInput)
		}
	}
	s = strings.ToLower(s)
	if !slugPattern.MatchString(s) {
		return "", fmt.Errorf("slug含非法字符 %q: %w", s, model.ErrInvalidInput)
	}
	return s, nil
}

// eventTypeKeyword 分类关键词表（顺序即优先级，子串首次命中生效）
type eventTypeKeyword struct {
	keyword   string
	eventType model.EventType
}

var eventTypeKeywords = []eventTypeKeyword{
	{"sport", model.EventTypeSports},
	{"nfl", model.EventTypeSports},
	{"nba", model.EventTypeSports},
	{"politic", model.EventTypePolitics},
	{"election", model.EventTypePolitics},
	{"crypto", model.EventTypeCrypto},
	{"bitcoin", model.EventTypeCrypto},
	{"finance", model.EventTypeCrypto},
	{"pop", model.EventTypePop},
	{"culture", model.EventTypePop},
}

// ClassifyEventType 把平台自由文本标签映射为事件类型，无命中兜底other
func ClassifyEventType(texts []string) model.EventType {
	for _, kw := range eventTypeKeywords {
		for _, t := range texts {
			if strings.Contains(strings.ToLower(t), kw.keyword) {
				return kw.eventType
			}
		}
	}
	return model.EventTypeOther
}

// NormalizeEvent 把平台原始payload归一化为统一事件模型
// >1个盘口视为分组市场（取交易量前5的开放盘口），恰好1个盘口视为二元市场
// 价格解析永不报错：单个盘口异常降级为概率0，全部为空才算硬失败
func NormalizeEvent(raw *model.GammaEvent, now time.Time) (*model.MarketEvent, error) {
	if raw == nil || len(raw.Markets) == 0 {
		return nil, fmt.Errorf("事件无任何盘口: %w", model.ErrNoMarketsFound)
	}

	texts := []string{raw.Category}
	for _, t := range raw.Tags {
		texts = append(texts, t.Label, t.Slug)
	}

	event := &model.MarketEvent{
		Slug:                  raw.Slug,
		Title:                 raw.Title,
		Category:              raw.Category,
		EventType:             ClassifyEventType(texts),
		ResolutionMethod:      raw.ResolutionSource,
		TimeToResolutionHours: hoursToResolution(raw.EndDate, now),
		Metrics: model.EventMetrics{
			TotalVolume: raw.Volume.Float64(),
			Volume24h:   raw.Volume24Hr.Float64(),
		},
		SocialData: map[string]model.SocialSignal{},
	}
	if event.ResolutionMethod == "" {
		event.SubjectivityLevel = "medium"
	} else {
		event.SubjectivityLevel = "low"
	}

	if len(raw.Markets) > 1 {
		event.Options = normalizeGrouped(raw.Markets)
	} else {
		event.Options = normalizeBinary(&raw.Markets[0])
	}
	if len(event.Options) == 0 {
		return nil, fmt.Errorf("归一化后无可用选项: %w", model.ErrNoMarketsFound)
	}

	for _, m := range raw.Markets {
		event.Metrics.TotalWallets += m.UniqueHolders
	}
	return event, nil
}

// normalizeGrouped 分组/多选项市场：开放盘口按量取前5，价格走优先级链，按概率降序
func normalizeGrouped(markets []model.GammaMarket) []model.MarketOption {
	open := make([]model.GammaMarket, 0, len(markets))
	var totalVolume float64
	for _, m := range markets {
		if m.Closed {
			continue
		}
		open = append(open, m)
		totalVolume += m.VolumeNum.Float64()
	}
	sort.SliceStable(open, func(i, j int) bool {
		return open[i].VolumeNum.Float64() > open[j].VolumeNum.Float64()
	})
	if len(open) > maxGroupedOptions {
		open = open[:maxGroupedOptions]
	}

	options := make([]model.MarketOption, 0, len(open))
	for i := range open {
		m := &open[i]
		name := m.GroupItemTitle
		if name == "" {
			name = m.Question
		}
		share := 0.0
		if totalVolume > 0 {
			share = m.VolumeNum.Float64() / totalVolume * 100
		}
		options = append(options, model.MarketOption{
			Name:               name,
			Image:              m.Image,
			TokenID:            firstToken(m.ClobTokenIds),
			ImpliedProbability: marketPrice(m),
			VolumeSharePercent: share,
			PriceChange24h:     m.OneDayPriceChange.Float64() * 100,
		})
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].ImpliedProbability > options[j].ImpliedProbability
	})
	return options
}

// normalizeBinary 二元市场：两元素价格数组，缺失时用price/1-price兜底，恒输出两个选项
// 注意两个概率之和不一定等于1，属于市场微观结构的正常现象
func normalizeBinary(m *model.GammaMarket) []model.MarketOption {
	names := model.ParseStringArray(m.Outcomes)
	if len(names) < 2 {
		names = []string{"Yes", "No"}
	}
	prices := model.ParsePriceArray(m.OutcomePrices)
	var yes, no float64
	if len(prices) >= 2 {
		yes, no = prices[0], prices[1]
	} else {
		p := marketPrice(m)
		yes, no = p, 1-p
	}

	tokens := model.ParseStringArray(m.ClobTokenIds)
	tokenAt := func(i int) string {
		if i < len(tokens) {
			return strings.TrimSpace(tokens[i])
		}
		return ""
	}
	change := m.OneDayPriceChange.Float64() * 100
	return []model.MarketOption{
		{
			Name:               names[0],
			Image:              m.Image,
			TokenID:            tokenAt(0),
			ImpliedProbability: clampProb(yes),
			VolumeSharePercent: 100,
			PriceChange24h:     change,
		},
		{
			Name:               names[1],
			Image:              m.Image,
			TokenID:            tokenAt(1),
			ImpliedProbability: clampProb(no),
			VolumeSharePercent: 100,
			PriceChange24h:     -change, // 二元市场反方向
		},
	}
}

// marketPrice 价格优先级链：outcomePrices[0] → lastTradePrice → price → 0
func marketPrice(m *model.GammaMarket) float64 {
	if prices := model.ParsePriceArray(m.OutcomePrices); len(prices) > 0 {
		return clampProb(prices[0])
	}
	if m.LastTradePrice != nil {
		return clampProb(*m.LastTradePrice)
	}
	if m.Price != nil {
		return clampProb(*m.Price)
	}
	return 0
}

// ExtractWhaleSignal 统计订单簿两侧notional超阈值的档位数
// 订单簿为空/异常一律返回零值，绝不报错
func ExtractWhaleSignal(book *model.RawOrderBook) model.WhaleData {
	var w model.WhaleData
	if book == nil {
		return w
	}
	for _, lv := range book.Bids {
		if lv.Price.Float64()*lv.Size.Float64() > whaleNotionalThreshold {
			w.BuyWalls++
		}
	}
	for _, lv := range book.Asks {
		if lv.Price.Float64()*lv.Size.Float64() > whaleNotionalThreshold {
			w.SellWalls++
		}
	}
	w.TotalWalls = w.BuyWalls + w.SellWalls
	return w
}

func firstToken(clobTokenIds string) string {
	tokens := model.ParseStringArray(clobTokenIds)
	if len(tokens) == 0 {
		return ""
	}
	return strings.TrimSpace(tokens[0])
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// hoursToResolution 解析结束时间，无法解析按0处理（会得到最短TTL，宁可勤刷新）
func hoursToResolution(endDate string, now time.Time) float64 {
	if endDate == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, endDate)
	if err != nil {
		return 0
	}
	h := t.Sub(now).Hours()
	if h < 0 {
		return 0
	}
	return h
}
