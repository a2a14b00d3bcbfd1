// Package constraint 定义排课约束接口、尝试状态和约束管理器
package constraint

import (
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
	"github.com/paiban/kebiao/pkg/scheduler/index"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeResourceConflict    Type = "resource_conflict"
	TypeFacultyAvailability Type = "faculty_availability"
	TypeClassroomFit        Type = "classroom_fit"
	TypeMaxClassesPerDay    Type = "max_classes_per_day"
	TypeConsecutiveSlots    Type = "consecutive_slots"

	// 软约束类型，与违反类型同名
	TypeRoomType = Type(model.ViolationWrongClassroomType)
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束：不满足则拒绝该时段
	CategorySoft Category = "soft" // 软约束：接受课次但记录违反
)

// Verdict 单条约束的检查结果
type Verdict struct {
	OK      bool
	Reason  string
	Details map[string]interface{}
}

// Pass 通过
func Pass() Verdict {
	return Verdict{OK: true}
}

// Fail 不通过
func Fail(reason string, details map[string]interface{}) Verdict {
	return Verdict{Reason: reason, Details: details}
}

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Priority 检查顺序，小的先检查
	Priority() int

	// Check 检查候选课次
	Check(state *State, p *Placement) Verdict
}

// Placement 候选课次
type Placement struct {
	Batch     *model.Batch
	Subject   *model.Subject
	Faculty   *model.Faculty
	Classroom *model.Classroom
	Day       int
	Start     string
	End       string
}

// Entry 转换为课表条目
func (p *Placement) Entry() model.TimetableEntry {
	e := model.TimetableEntry{
		DayOfWeek: p.Day,
		StartTime: p.Start,
		EndTime:   p.End,
	}
	if p.Batch != nil {
		e.BatchID = p.Batch.ID
	}
	if p.Subject != nil {
		e.SubjectID = p.Subject.ID
	}
	if p.Faculty != nil {
		e.FacultyID = p.Faculty.ID
	}
	if p.Classroom != nil {
		e.ClassroomID = p.Classroom.ID
	}
	return e
}

type facultyDay struct {
	facultyID string
	day       int
}

// State 单次排课尝试的状态，只能被一个协程使用
type State struct {
	Index      *index.ScheduleIndex
	Entries    []model.TimetableEntry
	Violations []model.Violation

	attempt    int
	sessions   map[facultyDay][][]int
	batchCount map[string]int
}

// NewState 创建尝试状态
func NewState(attempt int) *State {
	return &State{
		Index:      index.New(),
		Entries:    make([]model.TimetableEntry, 0),
		Violations: make([]model.Violation, 0),
		attempt:    attempt,
		sessions:   make(map[facultyDay][][]int),
		batchCount: make(map[string]int),
	}
}

// Attempt 尝试序号（从 1 开始）
func (s *State) Attempt() int {
	return s.attempt
}

// Commit 接受课次：占用索引并登记
func (s *State) Commit(p *Placement) error {
	e := p.Entry()
	if err := s.Index.ReserveEntry(e); err != nil {
		return err
	}
	s.Entries = append(s.Entries, e)
	k := facultyDay{e.FacultyID, e.DayOfWeek}
	s.sessions[k] = append(s.sessions[k], grid.Positions(e.StartTime, e.EndTime))
	s.batchCount[e.BatchID]++
	return nil
}

// Record 记录违反
func (s *State) Record(v model.Violation) {
	v.Attempt = s.attempt
	s.Violations = append(s.Violations, v)
}

// FacultySessions 教师当天已有课次数
func (s *State) FacultySessions(facultyID string, day int) int {
	return len(s.sessions[facultyDay{facultyID, day}])
}

// FacultySpan 教师当天已占用的标准网格位置范围
func (s *State) FacultySpan(facultyID string, day int) (first, last int, ok bool) {
	first, last = -1, -1
	for _, positions := range s.sessions[facultyDay{facultyID, day}] {
		for _, p := range positions {
			if first < 0 || p < first {
				first = p
			}
			if p > last {
				last = p
			}
		}
	}
	return first, last, first >= 0
}

// BatchSessions 班级已排课次数
func (s *State) BatchSessions(batchID string) int {
	return s.batchCount[batchID]
}
