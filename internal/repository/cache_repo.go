package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FairOdds/internal/interfaces"
	"FairOdds/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CacheRepository struct {
	db *gorm.DB
}

func NewCacheRepository(db *gorm.DB) interfaces.CacheRepository {
	return &CacheRepository{db: db}
}

// GetBySlug 按slug查缓存，未命中返回(nil,nil)而不是错误
func (r *CacheRepository) GetBySlug(ctx context.Context, slug string) (*model.AnalysisCache, error) {
	var entry model.AnalysisCache
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询缓存失败: %w", err)
	}
	return &entry, nil
}

// Upsert 按slug唯一键原子替换整条记录（并发miss竞争时后写者胜）
// 替换时hit_count归零：新payload的命中从头计
func (r *CacheRepository) Upsert(ctx context.Context, entry *model.AnalysisCache) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"payload", "ttl_minutes", "hit_count", "created_at", "expires_at", "last_accessed_at",
		}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("写入缓存失败: %w, slug: %s", err, entry.Slug)
	}
	return nil
}

// Touch 命中记账：hit_count+1并刷新last_accessed_at，必须走数据库原子更新
func (r *CacheRepository) Touch(ctx context.Context, slug string) error {
	err := r.db.WithContext(ctx).Model(&model.AnalysisCache{}).
		Where("slug = ?", slug).
		Updates(map[string]interface{}{
			"hit_count":        gorm.Expr("hit_count + 1"),
			"last_accessed_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("更新命中计数失败: %w, slug: %s", err, slug)
	}
	return nil
}

// List 分页返回缓存记录（按最近访问倒序，供前端缓存列表页用）
func (r *CacheRepository) List(ctx context.Context, page, pageSize int) ([]*model.AnalysisCache, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.AnalysisCache{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计缓存总数失败: %w", err)
	}

	var entries []*model.AnalysisCache
	err := r.db.WithContext(ctx).
		Order("last_accessed_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询缓存列表失败: %w", err)
	}
	return entries, total, nil
}
