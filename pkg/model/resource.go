package model

// RoomType 教室类型
type RoomType string

const (
	RoomClassroom RoomType = "CLASSROOM" // 普通教室
	RoomLab       RoomType = "LAB"       // 实验室
)

// IsValid 检查教室类型是否有效
func (t RoomType) IsValid() bool {
	return t == RoomClassroom || t == RoomLab
}

// AvailabilityWindow 可用时间窗口
type AvailabilityWindow struct {
	DayOfWeek int    `json:"day_of_week" db:"day_of_week" csv:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" db:"start_time" csv:"start_time" validate:"required,len=5"`
	EndTime   string `json:"end_time" db:"end_time" csv:"end_time" validate:"required,len=5"`
}

// Availability 可用时间集合，为空表示任意时间可用
type Availability []AvailabilityWindow

// Allows 判断某天某开始时间是否可用
//
// 只比较开始时间是否落在窗口内（字符串比较，两端包含），不校验结束时间。
// 例如窗口 09:00-10:00 允许 10:00 开始、11:00 结束的课次。
func (a Availability) Allows(day int, start string) bool {
	if len(a) == 0 {
		return true
	}
	for _, w := range a {
		if w.DayOfWeek == day && start >= w.StartTime && start <= w.EndTime {
			return true
		}
	}
	return false
}

// CoversAnyDay 是否在给定的某一天有窗口，空集合视为覆盖
func (a Availability) CoversAnyDay(days []int) bool {
	if len(a) == 0 {
		return true
	}
	for _, w := range a {
		for _, d := range days {
			if w.DayOfWeek == d {
				return true
			}
		}
	}
	return false
}

// Classroom 教室
type Classroom struct {
	ID           string       `json:"id" db:"id" validate:"required"`
	RoomID       string       `json:"room_id" db:"room_id" validate:"required"`
	Capacity     int          `json:"capacity" db:"capacity" validate:"gt=0"`
	Type         RoomType     `json:"type" db:"type" validate:"oneof=CLASSROOM LAB"`
	Availability Availability `json:"availability" validate:"dive"`
}

// Faculty 教师
type Faculty struct {
	ID               string       `json:"id" db:"id" validate:"required"`
	Name             string       `json:"name" db:"name"`
	MaxClassesPerDay int          `json:"max_classes_per_day" db:"max_classes_per_day" validate:"min=1"`
	WeeklyLoadLimit  int          `json:"weekly_load_limit" db:"weekly_load_limit" validate:"min=1"`
	Availability     Availability `json:"availability" validate:"dive"`
}
