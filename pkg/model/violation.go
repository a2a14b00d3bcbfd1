package model

import "fmt"

// ViolationType 约束违反类型
type ViolationType string

const (
	ViolationInsufficientSlots            ViolationType = "INSUFFICIENT_SLOTS"
	ViolationDurationInsufficient         ViolationType = "DURATION_INSUFFICIENT"
	ViolationNoFacultyAssigned            ViolationType = "NO_FACULTY_ASSIGNED"
	ViolationNoFacultyAvailable           ViolationType = "NO_FACULTY_AVAILABLE"
	ViolationWrongClassroomType           ViolationType = "WRONG_CLASSROOM_TYPE"
	ViolationIncompleteTheoryCumPractical ViolationType = "INCOMPLETE_THEORY_CUM_PRACTICAL"
	ViolationInsufficientFreePeriods      ViolationType = "INSUFFICIENT_FREE_PERIODS"
)

// Violation 约束违反记录，不会中断排课
type Violation struct {
	Type    ViolationType          `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Attempt int                    `json:"attempt"`
}

// NewViolation 创建违反记录
func NewViolation(t ViolationType, details map[string]interface{}, format string, args ...interface{}) Violation {
	return Violation{
		Type:    t,
		Message: fmt.Sprintf(format, args...),
		Details: details,
	}
}

// CountByType 按类型统计违反次数
func CountByType(vs []Violation) map[ViolationType]int {
	out := make(map[ViolationType]int)
	for _, v := range vs {
		out[v.Type]++
	}
	return out
}
