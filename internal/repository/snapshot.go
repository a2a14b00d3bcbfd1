package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

// SnapshotRepository 从数据库读取排课所需的全部数据
type SnapshotRepository struct {
	db sqlx.QueryerContext
}

// NewSnapshotRepository 创建快照仓储
func NewSnapshotRepository(db sqlx.QueryerContext) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

type batchRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	DepartmentID string `db:"department_id"`
	Semester     int    `db:"semester"`
	BatchSize    int    `db:"batch_size"`
}

type subjectRow struct {
	BatchID               string         `db:"batch_id"`
	ID                    string         `db:"id"`
	Code                  string         `db:"code"`
	Name                  string         `db:"name"`
	Type                  string         `db:"type"`
	WeeklyClassesRequired int            `db:"weekly_classes_required"`
	HoursPerSession       int            `db:"hours_per_session"`
	TotalHoursRequired    int            `db:"total_hours_required"`
	CourseDurationWeeks   int            `db:"course_duration_weeks"`
	FixedDay              sql.NullInt64  `db:"fixed_day"`
	FixedStart            sql.NullString `db:"fixed_start"`
	FixedEnd              sql.NullString `db:"fixed_end"`
}

type facultyRow struct {
	SubjectID        string `db:"subject_id"`
	ID               string `db:"id"`
	Name             string `db:"name"`
	MaxClassesPerDay int    `db:"max_classes_per_day"`
	WeeklyLoadLimit  int    `db:"weekly_load_limit"`
}

type classroomRow struct {
	ID       string `db:"id"`
	RoomID   string `db:"room_id"`
	Capacity int    `db:"capacity"`
	Type     string `db:"type"`
}

type availabilityRow struct {
	OwnerID   string `db:"owner_id"`
	DayOfWeek int    `db:"day_of_week"`
	StartTime string `db:"start_time"`
	EndTime   string `db:"end_time"`
}

const (
	batchesQuery = `SELECT id, name, COALESCE(department_id, '') AS department_id, semester, batch_size
FROM batches WHERE ($1 = 0 OR semester = $1) ORDER BY name`
	batchesByDepartmentQuery = `SELECT id, name, COALESCE(department_id, '') AS department_id, semester, batch_size
FROM batches WHERE ($1 = 0 OR semester = $1) AND department_id = $2 ORDER BY name`
	subjectsQuery = `SELECT bs.batch_id, s.id, s.code, s.name, s.type, s.weekly_classes_required, s.hours_per_session,
s.total_hours_required, s.course_duration_weeks, s.fixed_day, s.fixed_start, s.fixed_end
FROM batch_subjects bs JOIN subjects s ON s.id = bs.subject_id
WHERE bs.batch_id = ANY($1) ORDER BY bs.batch_id, bs.position`
	facultyQuery = `SELECT sf.subject_id, f.id, f.name, f.max_classes_per_day, f.weekly_load_limit
FROM subject_faculty sf JOIN faculty f ON f.id = sf.faculty_id
WHERE sf.subject_id = ANY($1) ORDER BY sf.subject_id, sf.position`
	facultyAvailabilityQuery = `SELECT faculty_id AS owner_id, day_of_week, start_time, end_time
FROM faculty_availability WHERE faculty_id = ANY($1) ORDER BY faculty_id, position`
	classroomsQuery            = `SELECT id, room_id, capacity, type FROM classrooms ORDER BY room_id`
	classroomAvailabilityQuery = `SELECT classroom_id AS owner_id, day_of_week, start_time, end_time
FROM classroom_availability ORDER BY classroom_id, position`
)

// Load 读取某学期（可选院系）的班级及其课程、教师、可用时间，以及全部教室
//
// semester 为 0 时读取全部学期的班级。
func (r *SnapshotRepository) Load(ctx context.Context, semester int, departmentID string) (*model.Snapshot, error) {
	var batchRows []batchRow
	var err error
	if departmentID == "" {
		err = sqlx.SelectContext(ctx, r.db, &batchRows, batchesQuery, semester)
	} else {
		err = sqlx.SelectContext(ctx, r.db, &batchRows, batchesByDepartmentQuery, semester, departmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("查询班级失败: %w", err)
	}
	if len(batchRows) == 0 {
		return nil, apperrors.NotFound("学期班级", strconv.Itoa(semester))
	}

	batches, err := r.loadBatches(ctx, batchRows)
	if err != nil {
		return nil, err
	}

	classrooms, err := r.loadClassrooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(classrooms) == 0 {
		return nil, apperrors.NotFound("教室", "*")
	}

	return &model.Snapshot{
		Semester:     semester,
		DepartmentID: departmentID,
		Batches:      batches,
		Classrooms:   classrooms,
	}, nil
}

func (r *SnapshotRepository) loadBatches(ctx context.Context, rows []batchRow) ([]*model.Batch, error) {
	batches := make([]*model.Batch, 0, len(rows))
	byID := make(map[string]*model.Batch, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		b := &model.Batch{
			ID:           row.ID,
			Name:         row.Name,
			DepartmentID: row.DepartmentID,
			Semester:     row.Semester,
			BatchSize:    row.BatchSize,
		}
		batches = append(batches, b)
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	var subjectRows []subjectRow
	if err := sqlx.SelectContext(ctx, r.db, &subjectRows, subjectsQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("查询班级课程失败: %w", err)
	}

	subjectsByID := make(map[string][]*model.Subject)
	var subjectIDs []string
	for _, row := range subjectRows {
		s := &model.Subject{
			ID:                    row.ID,
			Code:                  row.Code,
			Name:                  row.Name,
			Type:                  model.SubjectType(row.Type),
			WeeklyClassesRequired: row.WeeklyClassesRequired,
			HoursPerSession:       row.HoursPerSession,
			TotalHoursRequired:    row.TotalHoursRequired,
			CourseDurationWeeks:   row.CourseDurationWeeks,
		}
		if row.FixedDay.Valid && row.FixedStart.Valid && row.FixedEnd.Valid {
			s.FixedSlot = &model.FixedSlot{
				DayOfWeek: int(row.FixedDay.Int64),
				StartTime: row.FixedStart.String,
				EndTime:   row.FixedEnd.String,
			}
		}
		if b := byID[row.BatchID]; b != nil {
			b.Subjects = append(b.Subjects, s)
		}
		if _, seen := subjectsByID[s.ID]; !seen {
			subjectIDs = append(subjectIDs, s.ID)
		}
		subjectsByID[s.ID] = append(subjectsByID[s.ID], s)
	}
	if len(subjectIDs) == 0 {
		return batches, nil
	}

	var facultyRows []facultyRow
	if err := sqlx.SelectContext(ctx, r.db, &facultyRows, facultyQuery, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("查询课程教师失败: %w", err)
	}

	// 同一教师在所有课程间共享同一个对象
	faculties := make(map[string]*model.Faculty)
	var facultyIDs []string
	for _, row := range facultyRows {
		f, ok := faculties[row.ID]
		if !ok {
			f = &model.Faculty{
				ID:               row.ID,
				Name:             row.Name,
				MaxClassesPerDay: row.MaxClassesPerDay,
				WeeklyLoadLimit:  row.WeeklyLoadLimit,
			}
			faculties[row.ID] = f
			facultyIDs = append(facultyIDs, row.ID)
		}
		for _, s := range subjectsByID[row.SubjectID] {
			s.Faculty = append(s.Faculty, f)
		}
	}
	if len(facultyIDs) == 0 {
		return batches, nil
	}

	var availRows []availabilityRow
	if err := sqlx.SelectContext(ctx, r.db, &availRows, facultyAvailabilityQuery, pq.Array(facultyIDs)); err != nil {
		return nil, fmt.Errorf("查询教师可用时间失败: %w", err)
	}
	for _, row := range availRows {
		if f := faculties[row.OwnerID]; f != nil {
			f.Availability = append(f.Availability, row.window())
		}
	}
	return batches, nil
}

func (r *SnapshotRepository) loadClassrooms(ctx context.Context) ([]*model.Classroom, error) {
	var rows []classroomRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, classroomsQuery); err != nil {
		return nil, fmt.Errorf("查询教室失败: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	classrooms := make([]*model.Classroom, 0, len(rows))
	byID := make(map[string]*model.Classroom, len(rows))
	for _, row := range rows {
		c := &model.Classroom{ID: row.ID, RoomID: row.RoomID, Capacity: row.Capacity, Type: model.RoomType(row.Type)}
		classrooms = append(classrooms, c)
		byID[c.ID] = c
	}

	var availRows []availabilityRow
	if err := sqlx.SelectContext(ctx, r.db, &availRows, classroomAvailabilityQuery); err != nil {
		return nil, fmt.Errorf("查询教室可用时间失败: %w", err)
	}
	for _, row := range availRows {
		if c := byID[row.OwnerID]; c != nil {
			c.Availability = append(c.Availability, row.window())
		}
	}
	return classrooms, nil
}

func (row availabilityRow) window() model.AvailabilityWindow {
	return model.AvailabilityWindow{DayOfWeek: row.DayOfWeek, StartTime: row.StartTime, EndTime: row.EndTime}
}
