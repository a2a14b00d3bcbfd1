package solver

import (
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
	"github.com/paiban/kebiao/pkg/scheduler/resolver"
)

// DefaultSemesterWeeks 默认学期周数
const DefaultSemesterWeeks = 16

// Engine 单个 (班级, 课程) 的排课引擎
type Engine struct {
	manager       *constraint.Manager
	resolver      *resolver.Resolver
	logger        *logger.SchedulerLogger
	semesterWeeks int
}

// NewEngine 创建排课引擎
func NewEngine(cm *constraint.Manager, res *resolver.Resolver, log *logger.SchedulerLogger, semesterWeeks int) *Engine {
	if semesterWeeks <= 0 {
		semesterWeeks = DefaultSemesterWeeks
	}
	return &Engine{
		manager:       cm,
		resolver:      res,
		logger:        log,
		semesterWeeks: semesterWeeks,
	}
}

// PlaceSubject 为班级安排一门课程的每周课次，返回成功安排的课次数
func (e *Engine) PlaceSubject(state *constraint.State, batch *model.Batch, subject *model.Subject) int {
	e.checkDuration(state, batch, subject)

	if len(subject.Faculty) == 0 {
		e.record(state, model.NewViolation(model.ViolationNoFacultyAssigned, map[string]interface{}{
			"subject": subject.Name,
			"code":    subject.Code,
			"batch":   batch.Name,
			"type":    string(subject.Type),
		}, "课程 %s 未分配教师", subject.Label()))
		return 0
	}

	// 理论加实践课程全程使用同一位教师
	var pinned *model.Faculty
	if subject.Type == model.SubjectTheoryCumPractical {
		if pinned = e.resolver.PinFaculty(subject.Faculty); pinned == nil {
			e.record(state, model.NewViolation(model.ViolationNoFacultyAvailable, map[string]interface{}{
				"subject":           subject.Name,
				"code":              subject.Code,
				"batch":             batch.Name,
				"faculties_checked": len(subject.Faculty),
			}, "课程 %s 没有可用教师", subject.Label()))
			return 0
		}
	}

	placed := 0
	if fs := subject.FixedSlot; fs != nil {
		if e.placeAt(state, batch, subject, pinned, fs.DayOfWeek, fs.StartTime, fs.EndTime) {
			placed++
		}
	}

	remaining := subject.WeeklyClassesRequired - placed
	switch subject.Type {
	case model.SubjectTheoryCumPractical:
		placed += e.placeSplit(state, batch, subject, pinned, remaining, placed)
	case model.SubjectPractical:
		placed += e.placeSeries(state, batch, subject, grid.KindPractical, remaining, placed)
	default:
		placed += e.placeSeries(state, batch, subject, grid.KindStandard, remaining, placed)
	}
	return placed
}

// placeSeries 依次安排剩余课次，某一节找不到时段即停止
func (e *Engine) placeSeries(state *constraint.State, batch *model.Batch, subject *model.Subject, kind grid.Kind, remaining, already int) int {
	placed := 0
	for i := 0; i < remaining; i++ {
		if !e.placeOne(state, batch, subject, nil, kind) {
			e.record(state, model.NewViolation(model.ViolationInsufficientSlots, map[string]interface{}{
				"batch":     batch.Name,
				"subject":   subject.Name,
				"required":  subject.WeeklyClassesRequired,
				"scheduled": already + placed,
			}, "无法为班级 %s 安排课程 %s 的全部课次", batch.Name, subject.Label()))
			break
		}
		placed++
	}
	return placed
}

// placeSplit 按 1:2 拆分理论与实践课时
func (e *Engine) placeSplit(state *constraint.State, batch *model.Batch, subject *model.Subject, faculty *model.Faculty, remaining, already int) int {
	if remaining < 0 {
		remaining = 0
	}
	totalHours := remaining * subject.SessionHours()
	theoryHours := totalHours / 3
	practicalHours := totalHours - theoryHours
	practicalSessions := (practicalHours + 1) / 2

	placed := 0
	for i := 0; i < theoryHours; i++ {
		if e.placeOne(state, batch, subject, faculty, grid.KindStandard) {
			placed++
		}
	}
	for i := 0; i < practicalSessions; i++ {
		if e.placeOne(state, batch, subject, faculty, grid.KindPractical) {
			placed++
		}
	}

	if already+placed < subject.WeeklyClassesRequired {
		e.record(state, model.NewViolation(model.ViolationIncompleteTheoryCumPractical, map[string]interface{}{
			"subject":         subject.Name,
			"code":            subject.Code,
			"batch":           batch.Name,
			"required":        subject.WeeklyClassesRequired,
			"scheduled":       already + placed,
			"theory_hours":    theoryHours,
			"practical_hours": practicalHours,
			"faculty":         faculty.Name,
		}, "无法为班级 %s 安排课程 %s 的全部理论与实践课次", batch.Name, subject.Label()))
	}
	return placed
}

// placeOne 按随机顺序尝试网格上的每个 (星期, 时段)
func (e *Engine) placeOne(state *constraint.State, batch *model.Batch, subject *model.Subject, faculty *model.Faculty, kind grid.Kind) bool {
	for _, cell := range e.resolver.ShuffledCells(kind) {
		if e.placeAt(state, batch, subject, faculty, cell.Day, cell.Slot.Start, cell.Slot.End) {
			return true
		}
	}
	return false
}

// placeAt 在指定时段尝试安排一节课
func (e *Engine) placeAt(state *constraint.State, batch *model.Batch, subject *model.Subject, faculty *model.Faculty, day int, start, end string) bool {
	if faculty == nil {
		if faculty = e.resolver.SelectFaculty(subject.Faculty, day, start); faculty == nil {
			e.logger.PlacementRejected(batch.ID, subject.ID, day, start, "没有可用教师")
			return false
		}
	}

	room, _ := e.resolver.FindClassroom(state.Index, batch.BatchSize, subject.Type.PreferredRoom(), day, start, end)
	if room == nil {
		e.logger.PlacementRejected(batch.ID, subject.ID, day, start, "没有合适的教室")
		return false
	}

	p := &constraint.Placement{
		Batch:     batch,
		Subject:   subject,
		Faculty:   faculty,
		Classroom: room,
		Day:       day,
		Start:     start,
		End:       end,
	}
	if ok, reason := e.manager.CanAssign(state, p); !ok {
		e.logger.PlacementRejected(batch.ID, subject.ID, day, start, reason)
		return false
	}
	if err := state.Commit(p); err != nil {
		e.logger.PlacementRejected(batch.ID, subject.ID, day, start, err.Error())
		return false
	}

	for _, v := range e.manager.Evaluate(state, p) {
		if v.Details == nil {
			v.Details = make(map[string]interface{})
		}
		v.Details["batch"] = batch.Name
		e.record(state, v)
	}
	return true
}

// checkDuration 检查课程能否在学期内完成
func (e *Engine) checkDuration(state *constraint.State, batch *model.Batch, subject *model.Subject) {
	weeks := subject.CourseDurationWeeks
	if weeks <= 0 {
		weeks = e.semesterWeeks
	}
	maxPossible := subject.WeeklyClassesRequired * weeks
	needed := subject.TotalHoursRequired
	if needed == 0 {
		needed = maxPossible
	}
	if maxPossible < needed {
		e.record(state, model.NewViolation(model.ViolationDurationInsufficient, map[string]interface{}{
			"subject":            subject.Name,
			"batch":              batch.Name,
			"total_hours_needed": needed,
			"max_possible_hours": maxPossible,
			"semester_weeks":     weeks,
		}, "课程 %s 无法在学期内完成", subject.Label()))
	}
}

func (e *Engine) record(state *constraint.State, v model.Violation) {
	state.Record(v)
	e.logger.ConstraintViolation(string(v.Type), v.Message)
}
