package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexFloat 兼容数字/字符串/缺失三种形态的浮点字段
// 上游JSON字段类型不稳定（"0.62"与0.62混用），解析失败一律兜底为0，绝不报错
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) Float64() float64 { return float64(f) }

// GammaEvent Polymarket Gamma API 的事件原始结构（仅保留归一化需要的字段）
type GammaEvent struct {
	ID               string        `json:"id"`
	Slug             string        `json:"slug"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	ResolutionSource string        `json:"resolutionSource"`
	EndDate          string        `json:"endDate"`
	Active           bool          `json:"active"`
	Closed           bool          `json:"closed"`
	Volume           FlexFloat     `json:"volume"`
	Volume24Hr       FlexFloat     `json:"volume24hr"`
	Category         string        `json:"category"`
	Tags             []GammaTag    `json:"tags"`
	Markets          []GammaMarket `json:"markets"`
}

type GammaTag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// GammaMarket 单个盘口
// Outcomes/OutcomePrices/ClobTokenIds 为伪JSON数组字符串（如"[\"Yes\",\"No\"]"），
// OutcomePrices 偶尔也会直接返回数组，解析时两种形态都要兼容
type GammaMarket struct {
	ID                string          `json:"id"`
	Question          string          `json:"question"`
	GroupItemTitle    string          `json:"groupItemTitle"` // 分组市场中的选项名
	Image             string          `json:"image"`
	Outcomes          string          `json:"outcomes"`
	OutcomePrices     json.RawMessage `json:"outcomePrices"`
	ClobTokenIds      string          `json:"clobTokenIds"`
	LastTradePrice    *float64        `json:"lastTradePrice"`
	Price             *float64        `json:"price"`
	VolumeNum         FlexFloat       `json:"volumeNum"`
	Volume24HrNum     FlexFloat       `json:"volume24hr"`
	OneDayPriceChange FlexFloat       `json:"oneDayPriceChange"` // 小数形式（0.05=5%）
	UniqueHolders     int             `json:"uniqueHolders"`
	Active            bool            `json:"active"`
	Closed            bool            `json:"closed"`
}

// RawOrderBook CLOB /book 返回的订单簿（price/size均为字符串）
type RawOrderBook struct {
	Market string      `json:"market"`
	Bids   []BookLevel `json:"bids"`
	Asks   []BookLevel `json:"asks"`
}

type BookLevel struct {
	Price FlexFloat `json:"price"`
	Size  FlexFloat `json:"size"`
}

// ParseStringArray 解析伪JSON数组字符串，空串/null返回空切片
func ParseStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return []string{}
	}
	var res []string
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return []string{}
	}
	return res
}

// ParsePriceArray 解析赔率数组，兼容三种形态：
// 1. 伪JSON数组字符串："[\"0.6\",\"0.4\"]"
// 2. 已解析的数组：["0.6","0.4"] 或 [0.6,0.4]
// 3. 缺失/null：返回空切片
// 单个元素解析失败降级为0，不中断整体
func ParsePriceArray(raw json.RawMessage) []float64 {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || string(data) == "null" {
		return []float64{}
	}
	// 形态1：整体是一个字符串，内容才是数组
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return []float64{}
		}
		data = bytes.TrimSpace([]byte(inner))
		if len(data) == 0 {
			return []float64{}
		}
	}
	var flex []FlexFloat
	if err := json.Unmarshal(data, &flex); err != nil {
		return []float64{}
	}
	res := make([]float64, 0, len(flex))
	for _, f := range flex {
		res = append(res, f.Float64())
	}
	return res
}
