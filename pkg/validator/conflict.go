// Package validator 提供课表审计功能
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictBatchOverlap   ConflictType = "batch_overlap"   // 班级时间重叠
	ConflictFacultyOverlap ConflictType = "faculty_overlap" // 教师时间重叠
	ConflictRoomOverlap    ConflictType = "room_overlap"    // 教室时间重叠
	ConflictCapacity       ConflictType = "capacity"        // 教室容量不足
	ConflictDailyCap       ConflictType = "daily_cap"       // 超过每日课次上限
	ConflictConsecutive    ConflictType = "consecutive"     // 同日课次不连续
	ConflictAvailability   ConflictType = "availability"    // 教师不可用
	ConflictWeeklyLoad     ConflictType = "weekly_load"     // 超过周课时上限
)

// Severity 严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type       ConflictType `json:"type"`
	Severity   string       `json:"severity"`
	ResourceID string       `json:"resource_id"`
	DayOfWeek  int          `json:"day_of_week"`
	Message    string       `json:"message"`
	Entries    []int        `json:"entries,omitempty"` // 相关课次在课表中的下标
}

// ConflictDetector 课表冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckAvailability bool // 是否检查教师可用时间
	CheckConsecutive  bool // 是否检查同日连续
	CheckWeeklyLoad   bool // 是否检查周课时上限（仅警告）
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckAvailability: true,
		CheckConsecutive:  true,
		CheckWeeklyLoad:   true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测课表中的所有冲突，snap 提供班级、教师、教室信息
func (d *ConflictDetector) DetectAll(entries []model.TimetableEntry, snap *model.Snapshot) []Conflict {
	batches := make(map[string]*model.Batch)
	rooms := make(map[string]*model.Classroom)
	faculties := make(map[string]*model.Faculty)
	if snap != nil {
		for _, b := range snap.Batches {
			batches[b.ID] = b
		}
		for _, c := range snap.Classrooms {
			rooms[c.ID] = c
		}
		for _, f := range snap.Faculties() {
			faculties[f.ID] = f
		}
	}

	var conflicts []Conflict
	conflicts = append(conflicts, d.detectOverlaps(entries, ConflictBatchOverlap, func(e model.TimetableEntry) string { return e.BatchID })...)
	conflicts = append(conflicts, d.detectOverlaps(entries, ConflictFacultyOverlap, func(e model.TimetableEntry) string { return e.FacultyID })...)
	conflicts = append(conflicts, d.detectOverlaps(entries, ConflictRoomOverlap, func(e model.TimetableEntry) string { return e.ClassroomID })...)
	conflicts = append(conflicts, d.detectCapacity(entries, batches, rooms)...)
	conflicts = append(conflicts, d.detectFacultyRules(entries, faculties)...)
	return conflicts
}

// HasErrors 是否存在错误级别的冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

type resourceDay struct {
	id  string
	day int
}

// group 按 (资源, 星期) 分组，组内按开始时间排序，结果顺序稳定
func group(entries []model.TimetableEntry, key func(model.TimetableEntry) string) ([]resourceDay, map[resourceDay][]int) {
	groups := make(map[resourceDay][]int)
	for i, e := range entries {
		k := resourceDay{key(e), e.DayOfWeek}
		groups[k] = append(groups[k], i)
	}
	keys := make([]resourceDay, 0, len(groups))
	for k, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			return entries[idx[a]].StartTime < entries[idx[b]].StartTime
		})
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].day < keys[j].day
	})
	return keys, groups
}

// detectOverlaps 检测同一资源同一天的时间重叠
func (d *ConflictDetector) detectOverlaps(entries []model.TimetableEntry, typ ConflictType, key func(model.TimetableEntry) string) []Conflict {
	var conflicts []Conflict
	keys, groups := group(entries, key)
	for _, k := range keys {
		idx := groups[k]
		for i := 0; i < len(idx); i++ {
			for j := i + 1; j < len(idx); j++ {
				if overlapping(entries[idx[i]], entries[idx[j]]) {
					conflicts = append(conflicts, Conflict{
						Type:       typ,
						Severity:   SeverityError,
						ResourceID: k.id,
						DayOfWeek:  k.day,
						Message: fmt.Sprintf("%s 在 %s %s 与 %s 的课次重叠", k.id, model.DayName(k.day),
							entries[idx[i]].StartTime, entries[idx[j]].StartTime),
						Entries: []int{idx[i], idx[j]},
					})
				}
			}
		}
	}
	return conflicts
}

// detectCapacity 检测教室容量
func (d *ConflictDetector) detectCapacity(entries []model.TimetableEntry, batches map[string]*model.Batch, rooms map[string]*model.Classroom) []Conflict {
	var conflicts []Conflict
	for i, e := range entries {
		b, room := batches[e.BatchID], rooms[e.ClassroomID]
		if b == nil || room == nil || room.Capacity >= b.BatchSize {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type:       ConflictCapacity,
			Severity:   SeverityError,
			ResourceID: room.ID,
			DayOfWeek:  e.DayOfWeek,
			Message:    fmt.Sprintf("教室 %s 容量 %d 小于班级 %s 人数 %d", room.RoomID, room.Capacity, b.Name, b.BatchSize),
			Entries:    []int{i},
		})
	}
	return conflicts
}

// detectFacultyRules 检测教师可用时间、每日上限、同日连续和周课时
func (d *ConflictDetector) detectFacultyRules(entries []model.TimetableEntry, faculties map[string]*model.Faculty) []Conflict {
	var conflicts []Conflict
	weeklyHours := make(map[string]float64)

	keys, groups := group(entries, func(e model.TimetableEntry) string { return e.FacultyID })
	for _, k := range keys {
		f := faculties[k.id]
		if f == nil {
			continue
		}
		idx := groups[k]

		if f.MaxClassesPerDay > 0 && len(idx) > f.MaxClassesPerDay {
			conflicts = append(conflicts, Conflict{
				Type:       ConflictDailyCap,
				Severity:   SeverityError,
				ResourceID: f.ID,
				DayOfWeek:  k.day,
				Message:    fmt.Sprintf("教师 %s 在 %s 有 %d 节课，上限 %d", f.Name, model.DayName(k.day), len(idx), f.MaxClassesPerDay),
				Entries:    idx,
			})
		}

		if d.config.CheckConsecutive && !contiguous(entries, idx) {
			conflicts = append(conflicts, Conflict{
				Type:       ConflictConsecutive,
				Severity:   SeverityError,
				ResourceID: f.ID,
				DayOfWeek:  k.day,
				Message:    fmt.Sprintf("教师 %s 在 %s 的课次不连续", f.Name, model.DayName(k.day)),
				Entries:    idx,
			})
		}

		for _, i := range idx {
			e := entries[i]
			weeklyHours[f.ID] += float64(e.DurationMinutes()) / 60
			if d.config.CheckAvailability && !f.Availability.Allows(e.DayOfWeek, e.StartTime) {
				conflicts = append(conflicts, Conflict{
					Type:       ConflictAvailability,
					Severity:   SeverityError,
					ResourceID: f.ID,
					DayOfWeek:  e.DayOfWeek,
					Message:    fmt.Sprintf("教师 %s 在 %s %s 不可用", f.Name, model.DayName(e.DayOfWeek), e.StartTime),
					Entries:    []int{i},
				})
			}
		}
	}

	if d.config.CheckWeeklyLoad {
		ids := make([]string, 0, len(weeklyHours))
		for id := range weeklyHours {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			f := faculties[id]
			if f.WeeklyLoadLimit > 0 && weeklyHours[id] > float64(f.WeeklyLoadLimit) {
				conflicts = append(conflicts, Conflict{
					Type:       ConflictWeeklyLoad,
					Severity:   SeverityWarning,
					ResourceID: id,
					DayOfWeek:  -1,
					Message:    fmt.Sprintf("教师 %s 每周 %.1f 课时，超过上限 %d", f.Name, weeklyHours[id], f.WeeklyLoadLimit),
				})
			}
		}
	}
	return conflicts
}

// contiguous 同日课次覆盖的标准网格位置是否连成一段，不在网格上的课次忽略
func contiguous(entries []model.TimetableEntry, idx []int) bool {
	var positions []int
	for _, i := range idx {
		positions = append(positions, grid.Positions(entries[i].StartTime, entries[i].EndTime)...)
	}
	if len(positions) < 2 {
		return true
	}
	sort.Ints(positions)
	for i := 1; i < len(positions); i++ {
		if positions[i] != positions[i-1]+1 {
			return false
		}
	}
	return true
}

func overlapping(a, b model.TimetableEntry) bool {
	as, err1 := model.ParseClock(a.StartTime)
	ae, err2 := model.ParseClock(a.EndTime)
	bs, err3 := model.ParseClock(b.StartTime)
	be, err4 := model.ParseClock(b.EndTime)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return a.StartTime == b.StartTime
	}
	return as < be && bs < ae
}
