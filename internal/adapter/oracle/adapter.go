package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"FairOdds/internal/config"
	"FairOdds/internal/interfaces"
	"FairOdds/internal/model"
	"FairOdds/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

var _ interfaces.ModelSource = (*Adapter)(nil)

// Adapter 核心模型数据源（OpenAI兼容的chat接口）
// 尽力而为：未配置或调用失败时返回错误，由AnalysisService降级为市场价
type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewModelSource(cfg *config.SourceConfig, logger *logrus.Logger) *Adapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// estimatePayload 模型被要求返回的JSON结构
type estimatePayload struct {
	Scores    map[string]float64 `json:"scores"`
	Rationale string             `json:"rationale"`
}

// Estimate 请求模型对每个选项给出独立概率估计（0-100）
func (a *Adapter) Estimate(ctx context.Context, event *model.MarketEvent) (*model.CoreEstimate, error) {
	if a.cfg.AuthToken == "" || a.cfg.BaseURL == "" {
		return nil, fmt.Errorf("核心模型未配置，走降级模式")
	}

	prompt := buildPrompt(event)
	reqBody, err := json.Marshal(chatRequest{
		Model: a.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a prediction market analyst. Respond with JSON only."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	u := strings.TrimSuffix(a.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.AuthToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求核心模型失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("核心模型限流: %w", model.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("核心模型返回%d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("解析模型响应失败: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("模型返回空choices")
	}

	content := stripCodeFence(cr.Choices[0].Message.Content)
	var ep estimatePayload
	if err := json.Unmarshal([]byte(content), &ep); err != nil {
		return nil, fmt.Errorf("模型输出不是合法JSON: %w", err)
	}
	if len(ep.Scores) == 0 {
		return nil, fmt.Errorf("模型未返回任何选项分数")
	}

	// 分数钳位到[0,100]，模型偶尔会越界
	for k, v := range ep.Scores {
		if v < 0 {
			ep.Scores[k] = 0
		} else if v > 100 {
			ep.Scores[k] = 100
		}
	}
	return &model.CoreEstimate{Scores: ep.Scores, Rationale: ep.Rationale}, nil
}

// buildPrompt 构造估计请求的提示词
func buildPrompt(event *model.MarketEvent) string {
	var sb strings.Builder
	sb.WriteString("Estimate the probability (0-100) for each outcome of this prediction market.\n")
	sb.WriteString(fmt.Sprintf("Title: %s\nType: %s\nResolution: %s\n", event.Title, event.EventType, event.ResolutionMethod))
	sb.WriteString("Outcomes:\n")
	for _, opt := range event.Options {
		sb.WriteString(fmt.Sprintf("- %s (market: %.0f%%)\n", opt.Name, opt.ImpliedProbability*100))
	}
	sb.WriteString(`Respond with JSON: {"scores": {"<outcome>": <0-100>, ...}, "rationale": "<short>"}`)
	return sb.String()
}

// stripCodeFence 去掉模型偶尔包裹的```json代码块
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
