package builtin

import (
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// RegisterDefaultConstraints 注册默认排课约束
func RegisterDefaultConstraints(manager *constraint.Manager) {
	// 硬约束
	manager.Register(NewFacultyAvailabilityConstraint())
	manager.Register(NewMaxClassesPerDayConstraint())
	manager.Register(NewConsecutiveSlotsConstraint())
	manager.Register(NewResourceConflictConstraint())
	manager.Register(NewClassroomFitConstraint())

	// 软约束
	manager.Register(NewRoomTypeConstraint())
}

// NewDefaultManager 创建注册了默认约束的管理器
func NewDefaultManager() *constraint.Manager {
	m := constraint.NewManager()
	RegisterDefaultConstraints(m)
	return m
}
