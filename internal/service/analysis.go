package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FairOdds/internal/config"
	"FairOdds/internal/interfaces"
	"FairOdds/internal/metrics"
	"FairOdds/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// 限流兜底后允许再次尝试刷新的冷却分钟数（替代正常TTL）
const rateLimitCooldownMinutes = 5

// AnalysisService 分析主流程：缓存查找 → 重算 → 混合 → 缓存写入
// 过期缓存在重算失败时兜底返回（stale-serve），条目本身保持过期状态
type AnalysisService struct {
	market    interfaces.MarketSource
	oracle    interfaces.ModelSource
	collector *Collector
	repo      interfaces.CacheRepository
	logger    *logrus.Logger
	deadline  time.Duration
	now       func() time.Time
}

func NewAnalysisService(
	market interfaces.MarketSource,
	oracle interfaces.ModelSource,
	collector *Collector,
	repo interfaces.CacheRepository,
	cfg *config.AnalysisConfig,
	logger *logrus.Logger,
) *AnalysisService {
	return &AnalysisService{
		market:    market,
		oracle:    oracle,
		collector: collector,
		repo:      repo,
		logger:    logger,
		deadline:  cfg.Deadline,
		now:       time.Now,
	}
}

// Analyze 入口：slug或URL → 分析结果
// forceRefresh只对已过期的缓存生效，TTL内的显式刷新会被拒绝（直接返回缓存）
func (s *AnalysisService) Analyze(ctx context.Context, slugOrURL string, forceRefresh bool) (*model.AnalysisResult, error) {
	// 1. 输入校验在任何缓存交互之前
	slug, err := ParseSlug(slugOrURL)
	if err != nil {
		metrics.AnalysisFailures.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"slug":       slug,
		"request_id": uuid.NewString(),
	})
	now := s.now()

	// 2. 查缓存（存储故障按未命中处理，服务仍可直连上游）
	entry, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		log.WithError(err).Warn("缓存查询失败，按未命中处理")
		entry = nil
	}

	// 3. TTL内命中：记账后直接返回，显式刷新也不能绕过TTL
	if entry != nil && entry.Fresh(now) {
		if forceRefresh {
			log.Info("缓存仍然有效，拒绝强制刷新请求")
		}
		if err := s.repo.Touch(ctx, slug); err != nil {
			log.WithError(err).Warn("命中记账失败")
		}
		metrics.CacheHits.Inc()
		return s.resultFromEntry(entry, now, false, "")
	}

	// 4. 未命中/已过期：带硬超时重算
	metrics.CacheMisses.Inc()
	start := now
	computeCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	payload, ttlMinutes, err := s.compute(computeCtx, slug)
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return s.handleComputeFailure(log, entry, now, err)
	}

	// 5. 只有完整结果才允许入库
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化分析结果失败: %w", err)
	}
	newEntry := &model.AnalysisCache{
		Slug:           slug,
		Payload:        raw,
		TTLMinutes:     ttlMinutes,
		HitCount:       0,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Duration(ttlMinutes) * time.Minute),
		LastAccessedAt: now,
	}
	if err := s.repo.Upsert(ctx, newEntry); err != nil {
		log.WithError(err).Warn("缓存写入失败，本次结果不落库")
	}

	log.WithFields(logrus.Fields{
		"ttl_minutes": ttlMinutes,
		"options":     len(payload.Options),
	}).Info("分析完成")

	return &model.AnalysisResult{
		AnalysisPayload:    *payload,
		Cached:             false,
		CachedAt:           now,
		ExpiresAt:          newEntry.ExpiresAt,
		CacheAgeMinutes:    0,
		TTLMinutes:         ttlMinutes,
		RefreshAvailableIn: ttlMinutes,
	}, nil
}

// handleComputeFailure 重算失败的分级处理：有旧缓存则stale-serve，否则硬失败
func (s *AnalysisService) handleComputeFailure(log *logrus.Entry, entry *model.AnalysisCache, now time.Time, err error) (*model.AnalysisResult, error) {
	rateLimited := errors.Is(err, model.ErrRateLimited)

	if entry != nil {
		log.WithError(err).Warn("重算失败，返回过期缓存兜底")
		metrics.StaleServes.Inc()
		warning := ""
		if rateLimited {
			warning = fmt.Sprintf("rate limited upstream, retry in %d minutes", rateLimitCooldownMinutes)
		}
		res, rerr := s.resultFromEntry(entry, now, true, warning)
		if rerr != nil {
			return nil, rerr
		}
		if rateLimited {
			// 冷却窗口替代正常TTL：条目保持过期，只是提示调用方别立刻重试
			res.RefreshAvailableIn = rateLimitCooldownMinutes
		}
		return res, nil
	}

	switch {
	case rateLimited:
		metrics.AnalysisFailures.WithLabelValues("rate_limited").Inc()
	case errors.Is(err, model.ErrNoMarketsFound):
		metrics.AnalysisFailures.WithLabelValues("no_markets").Inc()
	case errors.Is(err, context.DeadlineExceeded):
		metrics.AnalysisFailures.WithLabelValues("timeout").Inc()
	default:
		metrics.AnalysisFailures.WithLabelValues("upstream").Inc()
	}
	return nil, err
}

// compute 一次完整重算：取数 → 归一化 → 鲸鱼信号 → 核心估计 → 信号采集 → 混合
// ctx取消时返回错误，部分完成的结果绝不会被写入缓存
func (s *AnalysisService) compute(ctx context.Context, slug string) (*model.AnalysisPayload, int, error) {
	raw, err := s.market.FetchEvent(ctx, slug)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("分析超时: %w", context.DeadlineExceeded)
		}
		return nil, 0, err
	}

	now := s.now()
	event, err := NormalizeEvent(raw, now)
	if err != nil {
		return nil, 0, err
	}

	// 鲸鱼信号取自头部选项的订单簿，失败吸收为无信号
	if token := event.Options[0].TokenID; token != "" {
		book, err := s.market.FetchOrderBook(ctx, token)
		if err != nil {
			s.logger.WithError(err).WithField("slug", slug).Warn("订单簿拉取失败，鲸鱼信号置空")
		} else {
			w := ExtractWhaleSignal(book)
			event.Metrics.Whale = &w
		}
	}

	// 核心模型尽力而为：限流要向上传播（触发stale-serve），其他失败降级为市场价
	var core *model.CoreEstimate
	if s.oracle != nil {
		core, err = s.oracle.Estimate(ctx, event)
		if err != nil {
			if errors.Is(err, model.ErrRateLimited) {
				return nil, 0, err
			}
			s.logger.WithError(err).WithField("slug", slug).Warn("核心模型不可用，降级为市场价")
			core = nil
		}
	}

	vectors := s.collector.Collect(ctx, event)

	options := make([]model.AnalysisOption, 0, len(event.Options))
	for _, opt := range event.Options {
		marketProb := opt.ImpliedProbability * 100
		v := vectors[opt.Name]
		if core != nil {
			if score, ok := core.Scores[opt.Name]; ok {
				v.CoreAiScore = score
				v.Rationale = core.Rationale
			} else {
				v.CoreAiScore = marketProb
			}
		} else {
			v.CoreAiScore = marketProb // 降级模式：模型价坍缩向市场价
		}

		b := Blend(marketProb, event.EventType, v)
		options = append(options, model.AnalysisOption{
			Option:            opt.Name,
			Image:             opt.Image,
			MarketProbability: roundHalfDown(marketProb),
			AiScore:           b.FinalProbability,
			PricingLabel:      b.Label,
			PricingDeviation:  b.Divergence,
			Note:              buildNote(&b, &v, event.SocialData[opt.Name]),
		})
	}

	// 超时的残缺结果不允许进入缓存
	if ctx.Err() != nil {
		return nil, 0, fmt.Errorf("分析超时: %w", context.DeadlineExceeded)
	}

	ttl := TTLMinutes(event.TimeToResolutionHours, event.EventType)
	return &model.AnalysisPayload{
		Slug:       slug,
		Title:      event.Title,
		EventType:  event.EventType,
		Options:    options,
		AnalyzedAt: now,
	}, ttl, nil
}

// resultFromEntry 把缓存条目还原为对外结果
func (s *AnalysisService) resultFromEntry(entry *model.AnalysisCache, now time.Time, stale bool, warning string) (*model.AnalysisResult, error) {
	var payload model.AnalysisPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return nil, fmt.Errorf("缓存payload损坏: %w, slug: %s", err, entry.Slug)
	}
	return &model.AnalysisResult{
		AnalysisPayload:    payload,
		Cached:             true,
		Stale:              stale,
		CachedAt:           entry.CreatedAt,
		ExpiresAt:          entry.ExpiresAt,
		CacheAgeMinutes:    entry.AgeMinutes(now),
		TTLMinutes:         entry.TTLMinutes,
		RefreshAvailableIn: entry.RefreshInMinutes(now),
		RateLimitWarning:   warning,
	}, nil
}

// buildNote 组装选项备注：模型观点 + 置信度，社媒趋势可用时附上
func buildNote(b *BlendResult, v *model.SignalVector, social model.SocialSignal) string {
	note := fmt.Sprintf("model %.0f vs market blend, confidence %.2f", b.ModelPrice, b.Confidence)
	if v.Rationale != "" {
		note = v.Rationale + " | " + note
	}
	if social.Trend != "" {
		note += fmt.Sprintf(" | social %s (%d posts)", social.Trend, social.PostCount)
	}
	return note
}
