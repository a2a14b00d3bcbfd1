package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

func TestSnapshotRepository_Load(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM batches WHERE ($1 = 0 OR semester = $1) AND department_id = $2 ORDER BY name")).
		WithArgs(3, "cse").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department_id", "semester", "batch_size"}).
			AddRow("b1", "CSE-A", "cse", 3, 60).
			AddRow("b2", "CSE-B", "cse", 3, 55))

	mock.ExpectQuery(regexp.QuoteMeta("FROM batch_subjects bs JOIN subjects s")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"batch_id", "id", "code", "name", "type", "weekly_classes_required", "hours_per_session",
			"total_hours_required", "course_duration_weeks", "fixed_day", "fixed_start", "fixed_end",
		}).
			AddRow("b1", "s1", "CS301", "算法", "THEORY", 3, 1, 0, 0, nil, nil, nil).
			AddRow("b1", "s2", "CS302", "网络实验", "PRACTICAL", 2, 2, 0, 0, 4, "14:00", "16:00").
			AddRow("b2", "s1", "CS301", "算法", "THEORY", 3, 1, 0, 0, nil, nil, nil))

	mock.ExpectQuery(regexp.QuoteMeta("FROM subject_faculty sf JOIN faculty f")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"subject_id", "id", "name", "max_classes_per_day", "weekly_load_limit"}).
			AddRow("s1", "f1", "王老师", 4, 18).
			AddRow("s2", "f1", "王老师", 4, 18).
			AddRow("s2", "f2", "李老师", 3, 12))

	mock.ExpectQuery(regexp.QuoteMeta("FROM faculty_availability WHERE faculty_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "day_of_week", "start_time", "end_time"}).
			AddRow("f2", 4, "09:00", "17:00"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, room_id, capacity, type FROM classrooms ORDER BY room_id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "capacity", "type"}).
			AddRow("r1", "A-101", 60, "CLASSROOM").
			AddRow("l1", "L-201", 60, "LAB"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM classroom_availability ORDER BY classroom_id, position")).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "day_of_week", "start_time", "end_time"}).
			AddRow("l1", 4, "14:00", "16:00"))

	snap, err := repo.Load(context.Background(), 3, "cse")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 3, snap.Semester)
	require.Len(t, snap.Batches, 2)
	require.Len(t, snap.Classrooms, 2)

	b1 := snap.Batches[0]
	require.Len(t, b1.Subjects, 2)
	assert.Nil(t, b1.Subjects[0].FixedSlot)
	require.NotNil(t, b1.Subjects[1].FixedSlot)
	assert.Equal(t, model.FixedSlot{DayOfWeek: 4, StartTime: "14:00", EndTime: "16:00"}, *b1.Subjects[1].FixedSlot)
	assert.Equal(t, model.SubjectPractical, b1.Subjects[1].Type)

	// 教师对象在课程之间共享
	require.Len(t, b1.Subjects[1].Faculty, 2)
	assert.Same(t, b1.Subjects[0].Faculty[0], b1.Subjects[1].Faculty[0])
	assert.Same(t, b1.Subjects[0].Faculty[0], snap.Batches[1].Subjects[0].Faculty[0])
	assert.Len(t, b1.Subjects[1].Faculty[1].Availability, 1)
	assert.Empty(t, b1.Subjects[0].Faculty[0].Availability)

	assert.Equal(t, model.RoomLab, snap.Classrooms[1].Type)
	assert.Len(t, snap.Classrooms[1].Availability, 1)
}

func TestSnapshotRepository_LoadNoBatches(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM batches WHERE ($1 = 0 OR semester = $1) ORDER BY name")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department_id", "semester", "batch_size"}))

	_, err := repo.Load(context.Background(), 9, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepository_LoadNoClassrooms(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM batches WHERE ($1 = 0 OR semester = $1) ORDER BY name")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department_id", "semester", "batch_size"}).
			AddRow("b1", "A", "", 1, 30))
	mock.ExpectQuery(regexp.QuoteMeta("FROM batch_subjects bs JOIN subjects s")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM classrooms ORDER BY room_id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "capacity", "type"}))

	_, err := repo.Load(context.Background(), 1, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepository_LoadAllSemesters(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM batches WHERE ($1 = 0 OR semester = $1) ORDER BY name")).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department_id", "semester", "batch_size"}).
			AddRow("b1", "A", "", 1, 30).
			AddRow("b2", "B", "", 2, 40))
	mock.ExpectQuery(regexp.QuoteMeta("FROM batch_subjects bs JOIN subjects s")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM classrooms ORDER BY room_id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "capacity", "type"}).
			AddRow("r1", "A-101", 60, "CLASSROOM"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM classroom_availability")).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "day_of_week", "start_time", "end_time"}))

	snap, err := repo.Load(context.Background(), 0, "")
	require.NoError(t, err)
	require.Len(t, snap.Batches, 2)
	assert.Equal(t, 1, snap.Batches[0].Semester)
	assert.Equal(t, 2, snap.Batches[1].Semester)
	assert.Len(t, snap.Classrooms, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
