// Package csvio 从 CSV 目录读取排课数据，并把课表写出为 CSV
package csvio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

// 目录中的文件名
const (
	BatchesFile               = "batches.csv"
	SubjectsFile              = "subjects.csv"
	BatchSubjectsFile         = "batch_subjects.csv"
	SubjectFacultyFile        = "subject_faculty.csv"
	FacultyFile               = "faculty.csv"
	FacultyAvailabilityFile   = "faculty_availability.csv"
	ClassroomsFile            = "classrooms.csv"
	ClassroomAvailabilityFile = "classroom_availability.csv"
)

type batchRecord struct {
	ID           string `csv:"id"`
	Name         string `csv:"name"`
	DepartmentID string `csv:"department_id"`
	Semester     int    `csv:"semester"`
	BatchSize    int    `csv:"batch_size"`
}

type subjectRecord struct {
	ID                    string `csv:"id"`
	Code                  string `csv:"code"`
	Name                  string `csv:"name"`
	Type                  string `csv:"type"`
	WeeklyClassesRequired int    `csv:"weekly_classes_required"`
	HoursPerSession       int    `csv:"hours_per_session"`
	TotalHoursRequired    int    `csv:"total_hours_required"`
	CourseDurationWeeks   int    `csv:"course_duration_weeks"`
	FixedDay              string `csv:"fixed_day"`
	FixedStart            string `csv:"fixed_start"`
	FixedEnd              string `csv:"fixed_end"`
}

type batchSubjectRecord struct {
	BatchID   string `csv:"batch_id"`
	SubjectID string `csv:"subject_id"`
}

type subjectFacultyRecord struct {
	SubjectID string `csv:"subject_id"`
	FacultyID string `csv:"faculty_id"`
}

type facultyRecord struct {
	ID               string `csv:"id"`
	Name             string `csv:"name"`
	MaxClassesPerDay int    `csv:"max_classes_per_day"`
	WeeklyLoadLimit  int    `csv:"weekly_load_limit"`
}

type classroomRecord struct {
	ID       string `csv:"id"`
	RoomID   string `csv:"room_id"`
	Capacity int    `csv:"capacity"`
	Type     string `csv:"type"`
}

// availabilityRecord 教师与教室可用时间共用，按文件只填其中一个 ID 列
type availabilityRecord struct {
	FacultyID   string `csv:"faculty_id"`
	ClassroomID string `csv:"classroom_id"`
	DayOfWeek   int    `csv:"day_of_week"`
	StartTime   string `csv:"start_time"`
	EndTime     string `csv:"end_time"`
}

// LoadSnapshot 读取目录下的 CSV 文件，组装某学期的排课快照
//
// semester 为 0 时读取全部班级。可用时间文件缺失时视为没有限制。
func LoadSnapshot(dir string, semester int, departmentID string) (*model.Snapshot, error) {
	var (
		batchRows     []*batchRecord
		subjectRows   []*subjectRecord
		linkRows      []*batchSubjectRecord
		assignRows    []*subjectFacultyRecord
		facultyRows   []*facultyRecord
		classroomRows []*classroomRecord
		facultyAvail  []*availabilityRecord
		roomAvail     []*availabilityRecord
	)

	required := []struct {
		name string
		dest interface{}
	}{
		{BatchesFile, &batchRows},
		{SubjectsFile, &subjectRows},
		{BatchSubjectsFile, &linkRows},
		{SubjectFacultyFile, &assignRows},
		{FacultyFile, &facultyRows},
		{ClassroomsFile, &classroomRows},
	}
	for _, f := range required {
		if err := readFile(filepath.Join(dir, f.name), f.dest); err != nil {
			return nil, err
		}
	}
	for name, dest := range map[string]interface{}{
		FacultyAvailabilityFile:   &facultyAvail,
		ClassroomAvailabilityFile: &roomAvail,
	} {
		if err := readFile(filepath.Join(dir, name), dest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	faculties := make(map[string]*model.Faculty, len(facultyRows))
	for _, r := range facultyRows {
		faculties[r.ID] = &model.Faculty{
			ID:               r.ID,
			Name:             r.Name,
			MaxClassesPerDay: r.MaxClassesPerDay,
			WeeklyLoadLimit:  r.WeeklyLoadLimit,
		}
	}
	for _, r := range facultyAvail {
		f, ok := faculties[r.FacultyID]
		if !ok {
			return nil, apperrors.InvalidInput(FacultyAvailabilityFile, fmt.Sprintf("未知教师 %s", r.FacultyID))
		}
		f.Availability = append(f.Availability, r.window())
	}

	subjects := make(map[string]*subjectRecord, len(subjectRows))
	for _, r := range subjectRows {
		subjects[r.ID] = r
	}
	assigned := make(map[string][]*model.Faculty)
	for _, r := range assignRows {
		f, ok := faculties[r.FacultyID]
		if !ok {
			return nil, apperrors.InvalidInput(SubjectFacultyFile, fmt.Sprintf("未知教师 %s", r.FacultyID))
		}
		assigned[r.SubjectID] = append(assigned[r.SubjectID], f)
	}

	snap := &model.Snapshot{Semester: semester, DepartmentID: departmentID}
	byID := make(map[string]*model.Batch)
	for _, r := range batchRows {
		if semester > 0 && r.Semester != semester {
			continue
		}
		if departmentID != "" && r.DepartmentID != departmentID {
			continue
		}
		b := &model.Batch{
			ID:           r.ID,
			Name:         r.Name,
			DepartmentID: r.DepartmentID,
			Semester:     r.Semester,
			BatchSize:    r.BatchSize,
		}
		snap.Batches = append(snap.Batches, b)
		byID[b.ID] = b
	}
	if len(snap.Batches) == 0 {
		return nil, apperrors.NotFound("学期班级", strconv.Itoa(semester))
	}

	for _, r := range linkRows {
		b, ok := byID[r.BatchID]
		if !ok {
			continue
		}
		rec, ok := subjects[r.SubjectID]
		if !ok {
			return nil, apperrors.InvalidInput(BatchSubjectsFile, fmt.Sprintf("未知课程 %s", r.SubjectID))
		}
		s, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		s.Faculty = assigned[rec.ID]
		b.Subjects = append(b.Subjects, s)
	}

	rooms := make(map[string]*model.Classroom, len(classroomRows))
	for _, r := range classroomRows {
		c := &model.Classroom{ID: r.ID, RoomID: r.RoomID, Capacity: r.Capacity, Type: model.RoomType(r.Type)}
		snap.Classrooms = append(snap.Classrooms, c)
		rooms[c.ID] = c
	}
	for _, r := range roomAvail {
		c, ok := rooms[r.ClassroomID]
		if !ok {
			return nil, apperrors.InvalidInput(ClassroomAvailabilityFile, fmt.Sprintf("未知教室 %s", r.ClassroomID))
		}
		c.Availability = append(c.Availability, r.window())
	}
	if len(snap.Classrooms) == 0 {
		return nil, apperrors.NotFound("教室", "*")
	}

	return snap, nil
}

// WriteEntries 把课次写出为 CSV
func WriteEntries(w io.Writer, entries []model.TimetableEntry) error {
	rows := make([]*model.TimetableEntry, len(entries))
	for i := range entries {
		rows[i] = &entries[i]
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("写出课次失败: %w", err)
	}
	return nil
}

func readFile(path string, dest interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开 %s 失败: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, dest); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return nil
}

func (r *subjectRecord) toModel() (*model.Subject, error) {
	s := &model.Subject{
		ID:                    r.ID,
		Code:                  r.Code,
		Name:                  r.Name,
		Type:                  model.SubjectType(strings.ToUpper(strings.TrimSpace(r.Type))),
		WeeklyClassesRequired: r.WeeklyClassesRequired,
		HoursPerSession:       r.HoursPerSession,
		TotalHoursRequired:    r.TotalHoursRequired,
		CourseDurationWeeks:   r.CourseDurationWeeks,
	}
	if strings.TrimSpace(r.FixedDay) != "" {
		day, err := strconv.Atoi(strings.TrimSpace(r.FixedDay))
		if err != nil {
			return nil, apperrors.InvalidInput("fixed_day", fmt.Sprintf("课程 %s: %v", r.ID, err))
		}
		s.FixedSlot = &model.FixedSlot{DayOfWeek: day, StartTime: r.FixedStart, EndTime: r.FixedEnd}
	}
	return s, nil
}

func (r *availabilityRecord) window() model.AvailabilityWindow {
	return model.AvailabilityWindow{DayOfWeek: r.DayOfWeek, StartTime: r.StartTime, EndTime: r.EndTime}
}

// Loader 以目录为数据源的快照加载器
type Loader struct {
	Dir string
}

// Load 读取目录下的快照，ctx 仅用于取消检查
func (l Loader) Load(ctx context.Context, semester int, departmentID string) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadSnapshot(l.Dir, semester, departmentID)
}
