package builtin

import (
	"fmt"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// ResourceConflictConstraint 班级、教师、教室不能重复占用
type ResourceConflictConstraint struct {
	*BaseConstraint
}

// NewResourceConflictConstraint 创建资源冲突约束
func NewResourceConflictConstraint() *ResourceConflictConstraint {
	return &ResourceConflictConstraint{
		BaseConstraint: NewBaseConstraint("资源冲突", constraint.TypeResourceConflict, constraint.CategoryHard, 40),
	}
}

// Check 课次覆盖的所有时段上三类资源都必须空闲
func (c *ResourceConflictConstraint) Check(state *constraint.State, p *constraint.Placement) constraint.Verdict {
	if !state.Index.EntryFree(p.Entry()) {
		return constraint.Fail(fmt.Sprintf("%s %s-%s 存在占用冲突", model.DayName(p.Day), p.Start, p.End), nil)
	}
	return constraint.Pass()
}

// ClassroomFitConstraint 教室容量和可用时间
type ClassroomFitConstraint struct {
	*BaseConstraint
}

// NewClassroomFitConstraint 创建教室适配约束
func NewClassroomFitConstraint() *ClassroomFitConstraint {
	return &ClassroomFitConstraint{
		BaseConstraint: NewBaseConstraint("教室容量与可用时间", constraint.TypeClassroomFit, constraint.CategoryHard, 50),
	}
}

// Check 容量不小于班级人数，且开始时间在教室可用窗口内
func (c *ClassroomFitConstraint) Check(_ *constraint.State, p *constraint.Placement) constraint.Verdict {
	if p.Classroom == nil {
		return constraint.Fail("未找到教室", nil)
	}
	if p.Classroom.Capacity < p.Batch.BatchSize {
		return constraint.Fail(fmt.Sprintf("教室 %s 容量 %d 小于班级人数 %d",
			p.Classroom.RoomID, p.Classroom.Capacity, p.Batch.BatchSize), nil)
	}
	if !p.Classroom.Availability.Allows(p.Day, p.Start) {
		return constraint.Fail(fmt.Sprintf("教室 %s 在 %s %s 不可用", p.Classroom.RoomID, model.DayName(p.Day), p.Start), nil)
	}
	return constraint.Pass()
}

// RoomTypeConstraint 教室类型与课程类型匹配（软约束）
type RoomTypeConstraint struct {
	*BaseConstraint
}

// NewRoomTypeConstraint 创建教室类型约束
func NewRoomTypeConstraint() *RoomTypeConstraint {
	return &RoomTypeConstraint{
		BaseConstraint: NewBaseConstraint("教室类型匹配", constraint.TypeRoomType, constraint.CategorySoft, 10),
	}
}

// Check 实践类课程应使用实验室，理论课应使用普通教室
func (c *RoomTypeConstraint) Check(_ *constraint.State, p *constraint.Placement) constraint.Verdict {
	expected := p.Subject.Type.PreferredRoom()
	if p.Classroom.Type == expected {
		return constraint.Pass()
	}
	return constraint.Fail(
		fmt.Sprintf("%s 课程使用了 %s 类型教室 %s", expected, p.Classroom.Type, p.Classroom.RoomID),
		map[string]interface{}{
			"expected_type": string(expected),
			"actual_type":   string(p.Classroom.Type),
			"classroom":     p.Classroom.RoomID,
			"subject":       p.Subject.Label(),
		},
	)
}
