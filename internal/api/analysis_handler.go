package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"FairOdds/internal/adapter/news"
	"FairOdds/internal/adapter/oracle"
	"FairOdds/internal/adapter/polymarket"
	"FairOdds/internal/adapter/social"
	"FairOdds/internal/config"
	"FairOdds/internal/interfaces"
	"FairOdds/internal/model"
	"FairOdds/internal/repository"
	"FairOdds/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AnalysisHandler 对外的分析接口
type AnalysisHandler struct {
	svc    *service.AnalysisService
	repo   interfaces.CacheRepository
	logger *logrus.Logger
}

// NewAnalysisHandler 创建 AnalysisHandler（按配置装配各数据源适配器）
func NewAnalysisHandler(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) *AnalysisHandler {
	sourceCfg := func(name string) *config.SourceConfig {
		if s, ok := cfg.Sources[name]; ok {
			return &s
		}
		return &config.SourceConfig{}
	}

	market := polymarket.NewMarketSource(sourceCfg("polymarket"), logger)
	newsSource := news.NewNewsSource(sourceCfg("news"), logger)
	socialSource := social.NewSocialSource(sourceCfg("social"), logger)
	modelSource := oracle.NewModelSource(sourceCfg("oracle"), logger)

	collector := service.NewCollector(newsSource, socialSource, &cfg.Analysis, logger)
	repo := repository.NewCacheRepository(db)
	svc := service.NewAnalysisService(market, modelSource, collector, repo, &cfg.Analysis, logger)

	return &AnalysisHandler{
		svc:    svc,
		repo:   repo,
		logger: logger,
	}
}

// GetAnalysis 分析接口（缓存优先）
// GET /api/analysis/:slug?refresh=true
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	slug := c.Param("slug")
	forceRefresh := c.DefaultQuery("refresh", "false") == "true"

	result, err := h.svc.Analyze(c.Request.Context(), slug, forceRefresh)
	if err != nil {
		h.logger.WithError(err).WithField("slug", slug).Error("Analyze failed")
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAnalyses 缓存列表接口（给前端页面用）
// GET /api/analyses?page=1&page_size=20
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	entries, total, err := h.repo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("ListAnalyses failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	items := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		items = append(items, gin.H{
			"slug":               e.Slug,
			"hit_count":          e.HitCount,
			"created_at":         e.CreatedAt.UnixMilli(),
			"expires_at":         e.ExpiresAt.UnixMilli(),
			"ttl_minutes":        e.TTLMinutes,
			"fresh":              e.Fresh(now),
			"cache_age_minutes":  e.AgeMinutes(now),
			"last_accessed_at":   e.LastAccessedAt.UnixMilli(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
		"items":     items,
	})
}

// statusFromError 错误分级到HTTP状态码
func statusFromError(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNoMarketsFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
