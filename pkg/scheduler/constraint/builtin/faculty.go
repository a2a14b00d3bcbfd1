package builtin

import (
	"fmt"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
)

// FacultyAvailabilityConstraint 教师可用时间约束
type FacultyAvailabilityConstraint struct {
	*BaseConstraint
}

// NewFacultyAvailabilityConstraint 创建教师可用时间约束
func NewFacultyAvailabilityConstraint() *FacultyAvailabilityConstraint {
	return &FacultyAvailabilityConstraint{
		BaseConstraint: NewBaseConstraint("教师可用时间", constraint.TypeFacultyAvailability, constraint.CategoryHard, 10),
	}
}

// Check 只校验开始时间是否落在可用窗口内
func (c *FacultyAvailabilityConstraint) Check(_ *constraint.State, p *constraint.Placement) constraint.Verdict {
	if p.Faculty == nil {
		return constraint.Fail("未指定教师", nil)
	}
	if !p.Faculty.Availability.Allows(p.Day, p.Start) {
		return constraint.Fail(fmt.Sprintf("教师 %s 在 %s %s 不可用", p.Faculty.Name, model.DayName(p.Day), p.Start), nil)
	}
	return constraint.Pass()
}

// MaxClassesPerDayConstraint 教师每日最多课次约束
type MaxClassesPerDayConstraint struct {
	*BaseConstraint
}

// NewMaxClassesPerDayConstraint 创建每日最多课次约束
func NewMaxClassesPerDayConstraint() *MaxClassesPerDayConstraint {
	return &MaxClassesPerDayConstraint{
		BaseConstraint: NewBaseConstraint("每日最多课次", constraint.TypeMaxClassesPerDay, constraint.CategoryHard, 20),
	}
}

// Check 当天已有课次达到上限时拒绝
func (c *MaxClassesPerDayConstraint) Check(state *constraint.State, p *constraint.Placement) constraint.Verdict {
	count := state.FacultySessions(p.Faculty.ID, p.Day)
	if count >= p.Faculty.MaxClassesPerDay {
		return constraint.Fail(fmt.Sprintf("教师 %s 在 %s 已有 %d 节课，上限 %d",
			p.Faculty.Name, model.DayName(p.Day), count, p.Faculty.MaxClassesPerDay), nil)
	}
	return constraint.Pass()
}

// ConsecutiveSlotsConstraint 教师同一天课次必须连续
type ConsecutiveSlotsConstraint struct {
	*BaseConstraint
}

// NewConsecutiveSlotsConstraint 创建连续课次约束
func NewConsecutiveSlotsConstraint() *ConsecutiveSlotsConstraint {
	return &ConsecutiveSlotsConstraint{
		BaseConstraint: NewBaseConstraint("教师课次连续", constraint.TypeConsecutiveSlots, constraint.CategoryHard, 30),
	}
}

// Check 新课次必须紧挨当天第一节之前或最后一节之后（按标准网格位置）
//
// 不在标准网格上的课次（例如非常规的固定时段）没有位置，不参与判断。
func (c *ConsecutiveSlotsConstraint) Check(state *constraint.State, p *constraint.Placement) constraint.Verdict {
	first, last, ok := state.FacultySpan(p.Faculty.ID, p.Day)
	if !ok {
		return constraint.Pass()
	}
	positions := grid.Positions(p.Start, p.End)
	if len(positions) == 0 {
		return constraint.Pass()
	}
	newFirst, newLast := positions[0], positions[len(positions)-1]
	if newLast == first-1 || newFirst == last+1 {
		return constraint.Pass()
	}
	return constraint.Fail(fmt.Sprintf("教师 %s 在 %s 的课次不连续", p.Faculty.Name, model.DayName(p.Day)), nil)
}
