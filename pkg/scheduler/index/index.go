// Package index 提供单次排课尝试内的占用冲突表
package index

import (
	"fmt"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
)

// Kind 资源类型
type Kind string

const (
	KindBatch     Kind = "batch"
	KindFaculty   Kind = "faculty"
	KindClassroom Kind = "classroom"
)

type key struct {
	kind  Kind
	id    string
	day   int
	start string
}

// ScheduleIndex 记录 (资源类型, 资源ID, 星期, 开始时间) 是否已被占用
//
// 只增不减，每次尝试新建一个，不做并发保护。
type ScheduleIndex struct {
	occupied map[key]struct{}
}

// New 创建空索引
func New() *ScheduleIndex {
	return &ScheduleIndex{occupied: make(map[key]struct{})}
}

// Occupied 是否已占用
func (x *ScheduleIndex) Occupied(kind Kind, id string, day int, start string) bool {
	_, ok := x.occupied[key{kind, id, day, start}]
	return ok
}

// Reserve 占用一个键，已被占用时返回 false
func (x *ScheduleIndex) Reserve(kind Kind, id string, day int, start string) bool {
	k := key{kind, id, day, start}
	if _, ok := x.occupied[k]; ok {
		return false
	}
	x.occupied[k] = struct{}{}
	return true
}

// Free 资源在 [start, end) 覆盖的所有时段上是否空闲
func (x *ScheduleIndex) Free(kind Kind, id string, day int, start, end string) bool {
	for _, s := range starts(start, end) {
		if x.Occupied(kind, id, day, s) {
			return false
		}
	}
	return true
}

// EntryFree 课次涉及的班级、教师、教室是否全部空闲
func (x *ScheduleIndex) EntryFree(e model.TimetableEntry) bool {
	for _, k := range entryKeys(e) {
		if _, ok := x.occupied[k]; ok {
			return false
		}
	}
	return true
}

// ReserveEntry 占用课次的全部键；任一键冲突时不做任何修改并返回错误
func (x *ScheduleIndex) ReserveEntry(e model.TimetableEntry) error {
	keys := entryKeys(e)
	for _, k := range keys {
		if _, ok := x.occupied[k]; ok {
			return fmt.Errorf("%s %s 在 %s %s 已被占用", k.kind, k.id, model.DayName(k.day), k.start)
		}
	}
	for _, k := range keys {
		x.occupied[k] = struct{}{}
	}
	return nil
}

// Len 已占用键数量
func (x *ScheduleIndex) Len() int {
	return len(x.occupied)
}

func starts(start, end string) []string {
	return append([]string{start}, grid.InnerStarts(start, end)...)
}

func entryKeys(e model.TimetableEntry) []key {
	ss := starts(e.StartTime, e.EndTime)
	keys := make([]key, 0, len(ss)*3)
	for _, s := range ss {
		keys = append(keys,
			key{KindBatch, e.BatchID, e.DayOfWeek, s},
			key{KindFaculty, e.FacultyID, e.DayOfWeek, s},
			key{KindClassroom, e.ClassroomID, e.DayOfWeek, s},
		)
	}
	return keys
}
