// Package resolver 负责候选时段上的教师与教室选择
package resolver

import (
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
	"github.com/paiban/kebiao/pkg/scheduler/index"
)

// Rand 可注入的随机源，*math/rand.Rand 满足该接口
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Resolver 教师、教室解析器，每次尝试一个实例
type Resolver struct {
	classrooms []*model.Classroom
	rng        Rand
}

// New 创建解析器
func New(classrooms []*model.Classroom, rng Rand) *Resolver {
	return &Resolver{classrooms: classrooms, rng: rng}
}

// AvailableFaculty 过滤出在 (day, start) 可用的教师，保持原顺序
func (r *Resolver) AvailableFaculty(list []*model.Faculty, day int, start string) []*model.Faculty {
	var out []*model.Faculty
	for _, f := range list {
		if f != nil && f.Availability.Allows(day, start) {
			out = append(out, f)
		}
	}
	return out
}

// SelectFaculty 在可用教师中随机选择一位，没有可用教师时返回 nil
func (r *Resolver) SelectFaculty(list []*model.Faculty, day int, start string) *model.Faculty {
	available := r.AvailableFaculty(list, day, start)
	if len(available) == 0 {
		return nil
	}
	return available[r.rng.Intn(len(available))]
}

// PinFaculty 为理论加实践课程固定一位教师：
// 候选为可用时间为空或在工作日有窗口的教师，随机选一位
func (r *Resolver) PinFaculty(list []*model.Faculty) *model.Faculty {
	days := grid.WorkingDays()
	var eligible []*model.Faculty
	for _, f := range list {
		if f != nil && f.Availability.CoversAnyDay(days) {
			eligible = append(eligible, f)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	return eligible[r.rng.Intn(len(eligible))]
}

// FindClassroom 查找容量足够、可用且空闲的教室，容量最小者优先
//
// 先按优先类型查找；找不到时忽略类型再查一次，此时 matched 为 false。
func (r *Resolver) FindClassroom(idx *index.ScheduleIndex, batchSize int, preferred model.RoomType, day int, start, end string) (room *model.Classroom, matched bool) {
	if room = r.smallest(idx, batchSize, preferred, day, start, end); room != nil {
		return room, true
	}
	if room = r.smallest(idx, batchSize, "", day, start, end); room != nil {
		return room, false
	}
	return nil, false
}

func (r *Resolver) smallest(idx *index.ScheduleIndex, batchSize int, typ model.RoomType, day int, start, end string) *model.Classroom {
	var best *model.Classroom
	for _, c := range r.classrooms {
		if c.Capacity < batchSize {
			continue
		}
		if typ != "" && c.Type != typ {
			continue
		}
		if !c.Availability.Allows(day, start) {
			continue
		}
		if !idx.Free(index.KindClassroom, c.ID, day, start, end) {
			continue
		}
		if best == nil || c.Capacity < best.Capacity {
			best = c
		}
	}
	return best
}

// ShuffledCells 返回随机顺序的网格候选
func (r *Resolver) ShuffledCells(kind grid.Kind) []grid.Cell {
	cells := kind.Cells()
	r.rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	return cells
}
