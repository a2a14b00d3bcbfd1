// Package stats 提供课表统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
)

// WorkloadMetrics 教师工作量指标
type WorkloadMetrics struct {
	SessionGini     float64       `json:"session_gini"`     // 课次基尼系数 (0=完全均衡)
	SessionVariance float64       `json:"session_variance"` // 课次方差
	SessionStdDev   float64       `json:"session_std_dev"`  // 课次标准差
	AvgHours        float64       `json:"avg_hours"`        // 人均课时
	MaxHours        float64       `json:"max_hours"`        // 最大课时
	MinHours        float64       `json:"min_hours"`        // 最小课时
	DailySpread     float64       `json:"daily_spread"`     // 各教师按天分布方差之和
	FacultyStats    []FacultyStat `json:"faculty_stats"`    // 教师统计
	Overloaded      []string      `json:"overloaded"`       // 超出周课时上限的教师
	BalanceScore    float64       `json:"balance_score"`    // 均衡评分 (0-100)
}

// FacultyStat 单个教师的统计
type FacultyStat struct {
	FacultyID       string                `json:"faculty_id"`
	FacultyName     string                `json:"faculty_name"`
	Sessions        int                   `json:"sessions"`
	Hours           float64               `json:"hours"`
	DailySessions   [grid.DaysPerWeek]int `json:"daily_sessions"`
	DailyVariance   float64               `json:"daily_variance"`
	WeeklyLoadLimit int                   `json:"weekly_load_limit"`
	OverLimit       bool                  `json:"over_limit"`
}

// WorkloadAnalyzer 教师工作量分析器
type WorkloadAnalyzer struct{}

// NewWorkloadAnalyzer 创建工作量分析器
func NewWorkloadAnalyzer() *WorkloadAnalyzer {
	return &WorkloadAnalyzer{}
}

// Analyze 统计课表中每位有课教师的工作量
//
// faculties 只用于补充姓名和周课时上限，没有课次的教师不计入统计。
func (w *WorkloadAnalyzer) Analyze(entries []model.TimetableEntry, faculties []*model.Faculty) *WorkloadMetrics {
	if len(entries) == 0 {
		return &WorkloadMetrics{BalanceScore: 100}
	}

	byID := make(map[string]*model.Faculty, len(faculties))
	for _, f := range faculties {
		byID[f.ID] = f
	}

	stats := DailyFacultyStats(entries)
	sessions := make([]float64, len(stats))
	hours := make([]float64, len(stats))
	var overloaded []string
	spread := 0.0

	for i := range stats {
		s := &stats[i]
		if f, ok := byID[s.FacultyID]; ok {
			s.FacultyName = f.Name
			s.WeeklyLoadLimit = f.WeeklyLoadLimit
			if f.WeeklyLoadLimit > 0 && s.Hours > float64(f.WeeklyLoadLimit) {
				s.OverLimit = true
				overloaded = append(overloaded, s.FacultyID)
			}
		}
		sessions[i] = float64(s.Sessions)
		hours[i] = s.Hours
		spread += s.DailyVariance
	}

	variance := Variance(sessions)
	stdDev := math.Sqrt(variance)
	maxHours, minHours := valueRange(hours)
	gini := Gini(sessions)

	return &WorkloadMetrics{
		SessionGini:     gini,
		SessionVariance: variance,
		SessionStdDev:   stdDev,
		AvgHours:        Mean(hours),
		MaxHours:        maxHours,
		MinHours:        minHours,
		DailySpread:     spread,
		FacultyStats:    stats,
		Overloaded:      overloaded,
		BalanceScore:    balanceScore(gini, stdDev, Mean(sessions)),
	}
}

// DailyFacultyStats 按教师汇总每天的课次，结果按教师 ID 排序
func DailyFacultyStats(entries []model.TimetableEntry) []FacultyStat {
	statMap := make(map[string]*FacultyStat)
	for _, e := range entries {
		stat, ok := statMap[e.FacultyID]
		if !ok {
			stat = &FacultyStat{FacultyID: e.FacultyID, FacultyName: e.FacultyID}
			statMap[e.FacultyID] = stat
		}
		stat.Sessions++
		stat.Hours += float64(e.DurationMinutes()) / 60
		if grid.IsWorkingDay(e.DayOfWeek) {
			stat.DailySessions[e.DayOfWeek]++
		}
	}

	result := make([]FacultyStat, 0, len(statMap))
	for _, stat := range statMap {
		daily := make([]float64, grid.DaysPerWeek)
		for d, n := range stat.DailySessions {
			daily[d] = float64(n)
		}
		stat.DailyVariance = Variance(daily)
		result = append(result, *stat)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FacultyID < result[j].FacultyID
	})
	return result
}

// Mean 平均值
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance 总体方差
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// Gini 基尼系数
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}
	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// balanceScore 基尼系数与变异系数加权
func balanceScore(gini, stdDev, avg float64) float64 {
	const (
		giniWeight = 0.7
		cvWeight   = 0.3
	)

	cvScore := 100.0
	if avg > 0 {
		cvScore = math.Max(0, 100-stdDev/avg*200)
	}
	score := giniWeight*(1-gini)*100 + cvWeight*cvScore
	return math.Max(0, math.Min(100, score))
}
