package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FairOdds/internal/config"
	"FairOdds/internal/interfaces"
	"FairOdds/internal/model"
	"FairOdds/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	defaultGammaBase = "https://gamma-api.polymarket.com"
	defaultClobBase  = "https://clob.polymarket.com"
)

// Ensure Adapter implements interfaces.MarketSource
var _ interfaces.MarketSource = (*Adapter)(nil)

// Adapter Polymarket 市场数据源（Gamma事件 + CLOB订单簿）
// 事件请求走熔断器：市场源连续失败时快速失败，避免每次分析都等满超时
type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
	breaker    *gobreaker.CircuitBreaker
}

func NewMarketSource(cfg *config.SourceConfig, logger *logrus.Logger) *Adapter {
	st := gobreaker.Settings{Name: "polymarket"}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
		breaker:    gobreaker.NewCircuitBreaker(st),
	}
}

// GetName ========== 实现MarketSource接口 ==========
func (p *Adapter) GetName() string {
	return "Polymarket"
}

// FetchEvent 按slug拉取事件原始payload
// Gamma按slug查询返回数组，单查id返回对象，两种形态都要兼容
func (p *Adapter) FetchEvent(ctx context.Context, slug string) (*model.GammaEvent, error) {
	base := strings.TrimSuffix(p.cfg.BaseURL, "/")
	if base == "" {
		base = defaultGammaBase
	}
	u := fmt.Sprintf("%s/events?slug=%s", base, url.QueryEscape(slug))

	body, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var arr []model.GammaEvent
		if err := json.Unmarshal(body, &arr); err != nil {
			return nil, fmt.Errorf("解析Gamma事件数组失败: %w", err)
		}
		if len(arr) == 0 {
			return nil, fmt.Errorf("slug=%s: %w", slug, model.ErrNoMarketsFound)
		}
		return &arr[0], nil
	}

	var ev model.GammaEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("解析Gamma事件失败: %w", err)
	}
	return &ev, nil
}

// FetchOrderBook 按token拉取CLOB订单簿（失败由调用方吸收为无鲸鱼信号）
func (p *Adapter) FetchOrderBook(ctx context.Context, tokenID string) (*model.RawOrderBook, error) {
	base := strings.TrimSuffix(p.cfg.ClobBaseURL, "/")
	if base == "" {
		base = defaultClobBase
	}
	u := fmt.Sprintf("%s/book?token_id=%s", base, url.QueryEscape(tokenID))

	body, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var book model.RawOrderBook
	if err := json.Unmarshal(body, &book); err != nil {
		return nil, fmt.Errorf("解析订单簿失败: %w", err)
	}
	return &book, nil
}

// get 发起GET请求（走熔断器），429映射为ErrRateLimited，网络错误映射为ErrUpstreamUnavailable
func (p *Adapter) get(ctx context.Context, u string) ([]byte, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("请求市场源失败: %w: %v", model.ErrUpstreamUnavailable, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("读取响应失败: %w: %v", model.ErrUpstreamUnavailable, err)
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("市场源限流: %w", model.ErrRateLimited)
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("市场源返回%d: %w", resp.StatusCode, model.ErrUpstreamUnavailable)
		}
		return body, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("熔断器打开: %w", model.ErrUpstreamUnavailable)
		}
		return nil, err
	}
	return result.([]byte), nil
}
