// Package grid 定义每周固定的上课时段网格
package grid

import "github.com/paiban/kebiao/pkg/model"

// Slot 一个网格时段
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Minutes 返回开始和结束的分钟数
func (s Slot) Minutes() (start, end int) {
	return model.MustClock(s.Start), model.MustClock(s.End)
}

// Kind 网格类型
type Kind int

const (
	// KindStandard 一小时标准网格
	KindStandard Kind = iota
	// KindPractical 两小时实践网格
	KindPractical
)

// String 实现 fmt.Stringer
func (k Kind) String() string {
	if k == KindPractical {
		return "practical"
	}
	return "standard"
}

var standard = []Slot{
	{"09:00", "10:00"},
	{"10:00", "11:00"},
	{"11:15", "12:15"},
	{"12:15", "13:15"},
	{"14:00", "15:00"},
	{"15:00", "16:00"},
	{"16:15", "17:15"},
}

var practical = []Slot{
	{"09:00", "11:00"},
	{"11:15", "13:15"},
	{"14:00", "16:00"},
}

var workingDays = []int{model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday}

const (
	// SlotsPerDay 标准网格每天时段数
	SlotsPerDay = 7
	// DaysPerWeek 每周工作日数
	DaysPerWeek = 5
	// WeeklyCapacity 每周标准时段总数
	WeeklyCapacity = SlotsPerDay * DaysPerWeek
)

// Slots 返回指定网格的时段副本
func (k Kind) Slots() []Slot {
	src := standard
	if k == KindPractical {
		src = practical
	}
	out := make([]Slot, len(src))
	copy(out, src)
	return out
}

// WorkingDays 工作日（0=周一 … 4=周五）
func WorkingDays() []int {
	out := make([]int, len(workingDays))
	copy(out, workingDays)
	return out
}

// IsWorkingDay 判断是否为工作日
func IsWorkingDay(day int) bool {
	return day >= model.Monday && day <= model.Friday
}

// Cell 一个候选 (星期, 时段)
type Cell struct {
	Day  int
	Slot Slot
}

// Cells 按 星期×时段 顺序列出网格的全部候选
func (k Kind) Cells() []Cell {
	slots := k.Slots()
	out := make([]Cell, 0, len(workingDays)*len(slots))
	for _, d := range workingDays {
		for _, s := range slots {
			out = append(out, Cell{Day: d, Slot: s})
		}
	}
	return out
}

// Index 返回开始时间在标准网格中的位置，不在网格上返回 -1
func Index(start string) int {
	for i, s := range standard {
		if s.Start == start {
			return i
		}
	}
	return -1
}

// Positions 返回 [start, end) 区间覆盖的标准网格位置
func Positions(start, end string) []int {
	var out []int
	for i, s := range standard {
		if s.Start >= start && s.End <= end {
			out = append(out, i)
		}
	}
	return out
}

// InnerStarts 返回多小时课次内部（不含起始时段）需要一并占用的标准时段开始时间
func InnerStarts(start, end string) []string {
	var out []string
	for _, s := range standard {
		if s.Start >= start && s.End <= end && s.Start != start {
			out = append(out, s.Start)
		}
	}
	return out
}
