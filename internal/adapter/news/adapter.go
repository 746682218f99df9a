package news

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

var _ interfaces.NewsSource = (*Adapter)(nil)

// Adapter 新闻数据源（NewsAPI风格接口）
// 返回错误时由Collector吸收为中性向量，这里只负责取数
type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewNewsSource(cfg *config.SourceConfig, logger *logrus.Logger) *Adapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
	}
}

// newsAPIResponse 上游响应结构
type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
		Sentiment *float64 `json:"sentiment"` // 部分上游直接给出情绪分
	} `json:"articles"`
}

// FetchNews 按查询词拉取文章，eventType仅用于选择检索语境
func (a *Adapter) FetchNews(ctx context.Context, query string, eventType model.EventType) ([]model.NewsArticle, error) {
	base := strings.TrimSuffix(a.cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("新闻源未配置base_url")
	}
	u := fmt.Sprintf("%s/everything?q=%s&category=%s&pageSize=20", base, url.QueryEscape(query), url.QueryEscape(string(eventType)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if a.cfg.AuthToken != "" {
		req.Header.Set("X-Api-Key", a.cfg.AuthToken)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求新闻源失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("新闻源限流: %w", model.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("新闻源返回%d", resp.StatusCode)
	}

	var apiResp newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("解析新闻响应失败: %w", err)
	}

	articles := make([]model.NewsArticle, 0, len(apiResp.Articles))
	for _, item := range apiResp.Articles {
		articles = append(articles, model.NewsArticle{
			Title:       item.Title,
			Description: item.Description,
			Source:      item.Source.Name,
			URL:         item.URL,
			Sentiment:   item.Sentiment,
		})
	}
	return articles, nil
}
