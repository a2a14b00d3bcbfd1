package model

// SubjectType 课程类型
type SubjectType string

const (
	SubjectTheory             SubjectType = "THEORY"               // 理论课
	SubjectPractical          SubjectType = "PRACTICAL"            // 实践课（两小时一节）
	SubjectTheoryCumPractical SubjectType = "THEORY_CUM_PRACTICAL" // 理论加实践
)

// IsValid 检查课程类型是否有效
func (t SubjectType) IsValid() bool {
	switch t {
	case SubjectTheory, SubjectPractical, SubjectTheoryCumPractical:
		return true
	}
	return false
}

// PreferredRoom 返回该类型课程优先使用的教室类型
func (t SubjectType) PreferredRoom() RoomType {
	if t == SubjectPractical || t == SubjectTheoryCumPractical {
		return RoomLab
	}
	return RoomClassroom
}

// FixedSlot 固定时段
type FixedSlot struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,len=5"`
	EndTime   string `json:"end_time" validate:"required,len=5"`
}

// Subject 课程
type Subject struct {
	ID                    string      `json:"id" db:"id" validate:"required"`
	Code                  string      `json:"code" db:"code"`
	Name                  string      `json:"name" db:"name"`
	Type                  SubjectType `json:"type" db:"type" validate:"oneof=THEORY PRACTICAL THEORY_CUM_PRACTICAL"`
	WeeklyClassesRequired int         `json:"weekly_classes_required" db:"weekly_classes_required" validate:"min=0"`
	HoursPerSession       int         `json:"hours_per_session" db:"hours_per_session" validate:"min=0"`
	TotalHoursRequired    int         `json:"total_hours_required" db:"total_hours_required" validate:"min=0"`
	CourseDurationWeeks   int         `json:"course_duration_weeks" db:"course_duration_weeks" validate:"min=0"`
	FixedSlot             *FixedSlot  `json:"fixed_slot,omitempty" validate:"omitempty"`
	Faculty               []*Faculty  `json:"faculty" validate:"dive"`
}

// SessionHours 每节课时长，未设置时为 1
func (s *Subject) SessionHours() int {
	if s.HoursPerSession <= 0 {
		return 1
	}
	return s.HoursPerSession
}

// Label 用于日志和违规信息的课程名称
func (s *Subject) Label() string {
	if s.Code == "" {
		return s.Name
	}
	return s.Name + " (" + s.Code + ")"
}

// Batch 班级
type Batch struct {
	ID           string     `json:"id" db:"id" validate:"required"`
	Name         string     `json:"name" db:"name"`
	DepartmentID string     `json:"department_id,omitempty" db:"department_id"`
	Semester     int        `json:"semester" db:"semester"`
	BatchSize    int        `json:"batch_size" db:"batch_size" validate:"gt=0"`
	Subjects     []*Subject `json:"subjects" validate:"dive"`
}
