package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"FairOdds/internal/config"
	"FairOdds/internal/interfaces"
	"FairOdds/internal/model"
	"FairOdds/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

var _ interfaces.SocialSource = (*Adapter)(nil)

// Adapter 社媒情绪数据源
// 上游限流严格（按秒计），节奏控制在Collector侧统一做，这里不重试
type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewSocialSource(cfg *config.SourceConfig, logger *logrus.Logger) *Adapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
	}
}

type sentimentResponse struct {
	Score      float64 `json:"score"`      // [-100,100]
	Engagement float64 `json:"engagement"` // 互动量
	Trend      string  `json:"trend"`      // rising/falling/flat
	PostCount  int     `json:"post_count"`
}

// FetchSentiment 拉取单个选项的社媒情绪
func (a *Adapter) FetchSentiment(ctx context.Context, option, eventTitle string, eventType model.EventType) (*model.SocialSignal, error) {
	base := strings.TrimSuffix(a.cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("社媒源未配置base_url")
	}
	u := fmt.Sprintf("%s/sentiment?option=%s&event=%s&type=%s",
		base, url.QueryEscape(option), url.QueryEscape(eventTitle), url.QueryEscape(string(eventType)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if a.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.AuthToken)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求社媒源失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("社媒源限流: %w", model.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("社媒源返回%d", resp.StatusCode)
	}

	var sr sentimentResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("解析社媒响应失败: %w", err)
	}
	return &model.SocialSignal{
		Score:      sr.Score,
		Engagement: sr.Engagement,
		Trend:      sr.Trend,
		PostCount:  sr.PostCount,
	}, nil
}
