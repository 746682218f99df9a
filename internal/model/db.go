package model

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisCache 分析结果缓存表（每个slug一条，替换式更新，不追加）
// 过期为被动判断（读取时比较expires_at），expires_at索引仅作清理兜底
type AnalysisCache struct {
	ID             uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Slug           string         `gorm:"column:slug;type:varchar(128);uniqueIndex;not null;comment:事件slug"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb;not null;comment:分析结果"`
	TTLMinutes     int            `gorm:"column:ttl_minutes;type:int;not null;comment:本次TTL分钟数"`
	HitCount       int64          `gorm:"column:hit_count;type:bigint;default:0;comment:命中次数"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:timestamp;default:now();comment:创建时间"`
	ExpiresAt      time.Time      `gorm:"column:expires_at;type:timestamp;index;not null;comment:过期时间"`
	LastAccessedAt time.Time      `gorm:"column:last_accessed_at;type:timestamp;default:now();comment:最近访问时间"`
}

func (AnalysisCache) TableName() string { return "analysis_caches" }

// Fresh 判断缓存在now时刻是否仍然有效
func (c *AnalysisCache) Fresh(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

// AgeMinutes 缓存已存在的分钟数
func (c *AnalysisCache) AgeMinutes(now time.Time) int {
	if now.Before(c.CreatedAt) {
		return 0
	}
	return int(now.Sub(c.CreatedAt).Minutes())
}

// RefreshInMinutes 距离允许刷新还剩的分钟数（已过期为0）
func (c *AnalysisCache) RefreshInMinutes(now time.Time) int {
	if !now.Before(c.ExpiresAt) {
		return 0
	}
	return int(c.ExpiresAt.Sub(now).Minutes())
}
