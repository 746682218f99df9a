package service

import (
	"math"

	"FairOdds/internal/model"
)

// TTL钳位区间（分钟）
const (
	ttlFloorMinutes = 10
	ttlCeilMinutes  = 360
)

// ttlStep 距结算小时数 → 基础TTL分钟数（单调不减的阶梯函数）
type ttlStep struct {
	maxHours    float64
	baseMinutes float64
}

var ttlSteps = []ttlStep{
	{1, 10},
	{3, 20},
	{6, 30},
	{24, 60},
	{72, 90},
	{168, 120},
	{720, 180},
}

const ttlBaseBeyondSteps = 240.0

// 事件类型 → TTL倍率（波动快的类型刷得更勤）
var ttlMultipliers = map[model.EventType]float64{
	model.EventTypeCrypto:   0.5,
	model.EventTypeSports:   0.7,
	model.EventTypePolitics: 1.5,
	model.EventTypePop:      1.0,
	model.EventTypeOther:    1.0,
}

// TTLMinutes 自适应TTL：基础阶梯 × 类型倍率，钳位[10,360]
// 纯函数，只依赖距结算时间与事件类型
func TTLMinutes(hoursToResolution float64, eventType model.EventType) int {
	base := ttlBaseBeyondSteps
	for _, step := range ttlSteps {
		if hoursToResolution < step.maxHours {
			base = step.baseMinutes
			break
		}
	}

	mult, ok := ttlMultipliers[eventType]
	if !ok {
		mult = 1.0
	}

	minutes := math.Round(base * mult)
	if minutes < ttlFloorMinutes {
		minutes = ttlFloorMinutes
	} else if minutes > ttlCeilMinutes {
		minutes = ttlCeilMinutes
	}
	return int(minutes)
}
