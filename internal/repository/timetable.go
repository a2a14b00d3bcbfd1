package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/paiban/kebiao/internal/database"
	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

// TimetableRepository 候选课表仓储
type TimetableRepository struct {
	db *database.DB
}

// NewTimetableRepository 创建课表仓储
func NewTimetableRepository(db *database.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

type timetableRow struct {
	ID           uuid.UUID      `db:"id"`
	Name         string         `db:"name"`
	Semester     int            `db:"semester"`
	DepartmentID string         `db:"department_id"`
	Status       string         `db:"status"`
	Score        float64        `db:"score"`
	Metadata     types.JSONText `db:"metadata"`
	Violations   types.JSONText `db:"violations"`
	ApprovedAt   sql.NullTime   `db:"approved_at"`
	ApprovedBy   sql.NullString `db:"approved_by"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

const (
	insertTimetableQuery = `INSERT INTO timetables (id, name, semester, department_id, status, score, metadata, violations,
approved_at, approved_by, created_at, updated_at)
VALUES (:id, :name, :semester, :department_id, :status, :score, :metadata, :violations,
:approved_at, :approved_by, :created_at, :updated_at)`
	insertEntryQuery = `INSERT INTO timetable_entries (timetable_id, batch_id, subject_id, faculty_id, classroom_id,
day_of_week, start_time, end_time) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	selectTimetableColumns = `SELECT id, name, semester, COALESCE(department_id, '') AS department_id, status, score,
metadata, violations, approved_at, approved_by, created_at, updated_at FROM timetables`
	selectEntriesQuery = `SELECT batch_id, subject_id, faculty_id, classroom_id, day_of_week, start_time, end_time
FROM timetable_entries WHERE timetable_id = $1 ORDER BY day_of_week, start_time, batch_id`
	updateStatusQuery    = `UPDATE timetables SET status = $1, approved_at = $2, approved_by = $3, updated_at = $4 WHERE id = $5`
	deleteEntriesQuery   = `DELETE FROM timetable_entries WHERE timetable_id = $1`
	deleteTimetableQuery = `DELETE FROM timetables WHERE id = $1`
)

// Create 在一个事务内保存课表及其全部课次
func (r *TimetableRepository) Create(ctx context.Context, tt *model.Timetable) error {
	row, err := toRow(tt)
	if err != nil {
		return err
	}

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertTimetableQuery, row); err != nil {
			return fmt.Errorf("保存课表失败: %w", err)
		}
		for _, e := range tt.Entries {
			if _, err := tx.ExecContext(ctx, insertEntryQuery,
				tt.ID, e.BatchID, e.SubjectID, e.FacultyID, e.ClassroomID, e.DayOfWeek, e.StartTime, e.EndTime,
			); err != nil {
				return fmt.Errorf("保存课次失败: %w", err)
			}
		}
		return nil
	})
}

// GetByID 根据ID获取课表（含课次）
func (r *TimetableRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Timetable, error) {
	var row timetableRow
	if err := r.db.GetContext(ctx, &row, selectTimetableColumns+" WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("课表", id.String())
		}
		return nil, fmt.Errorf("查询课表失败: %w", err)
	}

	tt, err := row.toModel()
	if err != nil {
		return nil, err
	}

	var entries []model.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, selectEntriesQuery, id); err != nil {
		return nil, fmt.Errorf("查询课次失败: %w", err)
	}
	tt.Entries = entries
	return tt, nil
}

// List 按条件列出课表（不含课次），评分高的在前
func (r *TimetableRepository) List(ctx context.Context, filter ListFilter) ([]*model.Timetable, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Semester > 0 {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := selectTimetableColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY score DESC, created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []timetableRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("查询课表列表失败: %w", err)
	}

	result := make([]*model.Timetable, 0, len(rows))
	for _, row := range rows {
		tt, err := row.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, tt)
	}
	return result, nil
}

// UpdateStatus 更新课表状态及审批信息
func (r *TimetableRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status, approvedAt *time.Time, approvedBy string) error {
	var approved sql.NullTime
	if approvedAt != nil {
		approved = sql.NullTime{Time: *approvedAt, Valid: true}
	}
	by := sql.NullString{String: approvedBy, Valid: approvedBy != ""}

	res, err := r.db.ExecContext(ctx, updateStatusQuery, string(status), approved, by, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("更新课表状态失败: %w", err)
	}
	return expectAffected(res, id)
}

// Delete 删除课表及其课次
func (r *TimetableRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteEntriesQuery, id); err != nil {
			return fmt.Errorf("删除课次失败: %w", err)
		}
		res, err := tx.ExecContext(ctx, deleteTimetableQuery, id)
		if err != nil {
			return fmt.Errorf("删除课表失败: %w", err)
		}
		return expectAffected(res, id)
	})
}

func expectAffected(res sql.Result, id uuid.UUID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NotFound("课表", id.String())
	}
	return nil
}

func toRow(tt *model.Timetable) (*timetableRow, error) {
	metadata, err := json.Marshal(tt.Metadata)
	if err != nil {
		return nil, fmt.Errorf("序列化课表元数据失败: %w", err)
	}
	violations := tt.Violations
	if violations == nil {
		violations = []model.Violation{}
	}
	violationsJSON, err := json.Marshal(violations)
	if err != nil {
		return nil, fmt.Errorf("序列化冲突记录失败: %w", err)
	}

	row := &timetableRow{
		ID:           tt.ID,
		Name:         tt.Name,
		Semester:     tt.Semester,
		DepartmentID: tt.DepartmentID,
		Status:       string(tt.Status),
		Score:        tt.Score,
		Metadata:     types.JSONText(metadata),
		Violations:   types.JSONText(violationsJSON),
		ApprovedBy:   sql.NullString{String: tt.ApprovedBy, Valid: tt.ApprovedBy != ""},
		CreatedAt:    tt.CreatedAt,
		UpdatedAt:    tt.UpdatedAt,
	}
	if tt.ApprovedAt != nil {
		row.ApprovedAt = sql.NullTime{Time: *tt.ApprovedAt, Valid: true}
	}
	return row, nil
}

func (row *timetableRow) toModel() (*model.Timetable, error) {
	tt := &model.Timetable{
		BaseModel: model.BaseModel{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		Name:         row.Name,
		Semester:     row.Semester,
		DepartmentID: row.DepartmentID,
		Status:       model.Status(row.Status),
		Score:        row.Score,
		ApprovedBy:   row.ApprovedBy.String,
	}
	if row.ApprovedAt.Valid {
		at := row.ApprovedAt.Time
		tt.ApprovedAt = &at
	}
	if len(row.Metadata) > 0 {
		if err := row.Metadata.Unmarshal(&tt.Metadata); err != nil {
			return nil, fmt.Errorf("解析课表元数据失败: %w", err)
		}
	}
	if len(row.Violations) > 0 {
		if err := row.Violations.Unmarshal(&tt.Violations); err != nil {
			return nil, fmt.Errorf("解析冲突记录失败: %w", err)
		}
	}
	return tt, nil
}
