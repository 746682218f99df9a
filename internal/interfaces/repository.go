package interfaces

import (
	"context"

	"FairOdds/internal/model"
)

// CacheRepository 分析结果缓存的数据库操作契约
// 实现必须用存储自身的原子upsert（按slug唯一键），禁止读-改-写
type CacheRepository interface {
	GetBySlug(ctx context.Context, slug string) (*model.AnalysisCache, error) // 未命中返回(nil,nil)
	Upsert(ctx context.Context, entry *model.AnalysisCache) error             // 存在则整体替换，不存在则插入
	Touch(ctx context.Context, slug string) error                             // hit_count+1并刷新last_accessed_at
	List(ctx context.Context, page, pageSize int) ([]*model.AnalysisCache, int64, error)
}
