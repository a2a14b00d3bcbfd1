// Package score 计算候选课表的质量分
package score

import (
	"math"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/stats"
)

// Weights 评分权重
type Weights struct {
	Base             float64 `json:"base" mapstructure:"base"`
	ViolationPenalty float64 `json:"violation_penalty" mapstructure:"violation_penalty"` // 每条违反扣分
	WorkloadPenalty  float64 `json:"workload_penalty" mapstructure:"workload_penalty"`   // 教师按天分布方差系数
	RoomBonus        float64 `json:"room_bonus" mapstructure:"room_bonus"`               // 教室利用率加分
	IdleGapPenalty   float64 `json:"idle_gap_penalty" mapstructure:"idle_gap_penalty"`   // 每个长空档扣分
}

// DefaultWeights 默认权重
func DefaultWeights() Weights {
	return Weights{
		Base:             100,
		ViolationPenalty: 10,
		WorkloadPenalty:  2,
		RoomBonus:        10,
		IdleGapPenalty:   2,
	}
}

// Breakdown 分项得分
type Breakdown struct {
	Base             float64 `json:"base"`
	ViolationPenalty float64 `json:"violation_penalty"`
	WorkloadPenalty  float64 `json:"workload_penalty"`
	RoomBonus        float64 `json:"room_bonus"`
	IdleGapPenalty   float64 `json:"idle_gap_penalty"`
	Raw              float64 `json:"raw"`
	Total            float64 `json:"total"`
}

// Calculator 评分器
type Calculator struct {
	weights Weights
}

// NewCalculator 创建评分器
func NewCalculator(w Weights) *Calculator {
	return &Calculator{weights: w}
}

// Calculate 计算一次尝试的得分，结果限制在 [0, 100]
func (c *Calculator) Calculate(entries []model.TimetableEntry, violations, totalRooms int) *Breakdown {
	w := c.weights
	b := &Breakdown{Base: w.Base}

	b.ViolationPenalty = w.ViolationPenalty * float64(violations)

	for _, s := range stats.DailyFacultyStats(entries) {
		b.WorkloadPenalty += w.WorkloadPenalty * s.DailyVariance
	}

	b.RoomBonus = w.RoomBonus * stats.RoomUtilization(entries, totalRooms)
	b.IdleGapPenalty = w.IdleGapPenalty * float64(len(stats.IdleGaps(entries)))

	b.Raw = b.Base - b.ViolationPenalty - b.WorkloadPenalty + b.RoomBonus - b.IdleGapPenalty
	b.Total = math.Max(0, math.Min(100, b.Raw))
	return b
}

// Calculate 使用默认权重评分
func Calculate(entries []model.TimetableEntry, violations, totalRooms int) float64 {
	return NewCalculator(DefaultWeights()).Calculate(entries, violations, totalRooms).Total
}
