package model

import (
	"time"
)

// TimetableEntry 课表中的一节课
type TimetableEntry struct {
	BatchID     string `json:"batch_id" db:"batch_id" csv:"batch_id"`
	SubjectID   string `json:"subject_id" db:"subject_id" csv:"subject_id"`
	FacultyID   string `json:"faculty_id" db:"faculty_id" csv:"faculty_id"`
	ClassroomID string `json:"classroom_id" db:"classroom_id" csv:"classroom_id"`
	DayOfWeek   int    `json:"day_of_week" db:"day_of_week" csv:"day_of_week"`
	StartTime   string `json:"start_time" db:"start_time" csv:"start_time"`
	EndTime     string `json:"end_time" db:"end_time" csv:"end_time"`
}

// DurationMinutes 课次时长（分钟）
func (e TimetableEntry) DurationMinutes() int {
	start, err1 := ParseClock(e.StartTime)
	end, err2 := ParseClock(e.EndTime)
	if err1 != nil || err2 != nil || end < start {
		return 0
	}
	return end - start
}

// Status 课表状态
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusApproved Status = "APPROVED"
	StatusLocked   Status = "LOCKED"
)

// IsValid 检查状态是否有效
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusApproved || s == StatusLocked
}

// Metadata 课表元数据
type Metadata struct {
	GeneratedAt         time.Time `json:"generated_at"`
	ConstraintsViolated int       `json:"constraints_violated"`
	TotalEntries        int       `json:"total_entries"`
	Attempt             int       `json:"attempt"`
	Seed                int64     `json:"seed"`
	RawScore            float64   `json:"raw_score"` // 限制到 [0, 100] 之前的得分
}

// Timetable 候选课表
type Timetable struct {
	BaseModel
	Name         string           `json:"name" db:"name"`
	Semester     int              `json:"semester" db:"semester"`
	DepartmentID string           `json:"department_id,omitempty" db:"department_id"`
	Status       Status           `json:"status" db:"status"`
	Score        float64          `json:"score" db:"score"`
	Entries      []TimetableEntry `json:"entries"`
	Metadata     Metadata         `json:"metadata"`
	Violations   []Violation      `json:"violations,omitempty"`
	ApprovedAt   *time.Time       `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy   string           `json:"approved_by,omitempty" db:"approved_by"`
}

// IsLocked 是否已锁定
func (t *Timetable) IsLocked() bool {
	return t.Status == StatusLocked
}

// EntriesForBatch 返回某班级的课次
func (t *Timetable) EntriesForBatch(batchID string) []TimetableEntry {
	var out []TimetableEntry
	for _, e := range t.Entries {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out
}
