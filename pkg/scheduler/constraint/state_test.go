package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/kebiao/pkg/model"
)

func placement(faculty string, day int, start, end string) *Placement {
	return &Placement{
		Batch:     &model.Batch{ID: "b1", BatchSize: 30},
		Subject:   &model.Subject{ID: "s1"},
		Faculty:   &model.Faculty{ID: faculty, MaxClassesPerDay: 4},
		Classroom: &model.Classroom{ID: "r-" + start, Capacity: 40},
		Day:       day,
		Start:     start,
		End:       end,
	}
}

func TestState_CommitTracksFacultyDay(t *testing.T) {
	s := NewState(2)
	require.NoError(t, s.Commit(placement("f1", 0, "10:00", "11:00")))
	require.NoError(t, s.Commit(placement("f1", 0, "14:00", "16:00")))

	assert.Equal(t, 2, s.FacultySessions("f1", 0))
	assert.Equal(t, 0, s.FacultySessions("f1", 1))
	assert.Equal(t, 2, s.BatchSessions("b1"))
	require.Len(t, s.Entries, 2)

	first, last, ok := s.FacultySpan("f1", 0)
	require.True(t, ok)
	assert.Equal(t, 1, first)
	assert.Equal(t, 5, last, "两小时课次覆盖 14:00 和 15:00 两个位置")

	_, _, ok = s.FacultySpan("f1", 3)
	assert.False(t, ok)
}

func TestState_CommitRejectsConflict(t *testing.T) {
	s := NewState(1)
	require.NoError(t, s.Commit(placement("f1", 1, "09:00", "11:00")))

	err := s.Commit(placement("f2", 1, "10:00", "11:00"))
	require.Error(t, err, "同一班级在两小时课次内部时段冲突")
	assert.Len(t, s.Entries, 1)
	assert.Equal(t, 1, s.BatchSessions("b1"))
}

func TestState_RecordStampsAttempt(t *testing.T) {
	s := NewState(3)
	s.Record(model.Violation{Type: model.ViolationInsufficientSlots})
	require.Len(t, s.Violations, 1)
	assert.Equal(t, 3, s.Violations[0].Attempt)
	assert.Equal(t, 3, s.Attempt())
}

func TestPlacement_Entry(t *testing.T) {
	e := placement("f9", 4, "16:15", "17:15").Entry()
	assert.Equal(t, model.TimetableEntry{
		BatchID: "b1", SubjectID: "s1", FacultyID: "f9", ClassroomID: "r-16:15",
		DayOfWeek: 4, StartTime: "16:15", EndTime: "17:15",
	}, e)
	assert.Equal(t, model.TimetableEntry{DayOfWeek: 1}, (&Placement{Day: 1}).Entry())
}
