package resolver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
	"github.com/paiban/kebiao/pkg/scheduler/index"
)

func rooms() []*model.Classroom {
	return []*model.Classroom{
		{ID: "big", RoomID: "A-301", Capacity: 120, Type: model.RoomClassroom},
		{ID: "small", RoomID: "A-101", Capacity: 60, Type: model.RoomClassroom},
		{ID: "mid", RoomID: "A-201", Capacity: 80, Type: model.RoomClassroom},
		{ID: "lab", RoomID: "L-1", Capacity: 70, Type: model.RoomLab},
	}
}

func TestFindClassroom_SmallestMatchingType(t *testing.T) {
	r := New(rooms(), rand.New(rand.NewSource(1)))
	idx := index.New()

	room, matched := r.FindClassroom(idx, 60, model.RoomClassroom, 0, "09:00", "10:00")
	require.NotNil(t, room)
	assert.True(t, matched)
	assert.Equal(t, "small", room.ID)

	room, matched = r.FindClassroom(idx, 61, model.RoomClassroom, 0, "09:00", "10:00")
	require.NotNil(t, room)
	assert.True(t, matched)
	assert.Equal(t, "mid", room.ID)
}

func TestFindClassroom_SkipsOccupied(t *testing.T) {
	r := New(rooms(), rand.New(rand.NewSource(1)))
	idx := index.New()
	idx.Reserve(index.KindClassroom, "small", 0, "10:00")

	room, _ := r.FindClassroom(idx, 50, model.RoomClassroom, 0, "10:00", "11:00")
	require.NotNil(t, room)
	assert.Equal(t, "mid", room.ID)

	// 两小时课次的内部时段被占用同样不可用
	room, _ = r.FindClassroom(idx, 50, model.RoomClassroom, 0, "09:00", "11:00")
	require.NotNil(t, room)
	assert.Equal(t, "mid", room.ID)
}

func TestFindClassroom_FallbackIgnoresType(t *testing.T) {
	labsOnly := []*model.Classroom{
		{ID: "lab2", Capacity: 90, Type: model.RoomLab},
		{ID: "lab1", Capacity: 70, Type: model.RoomLab},
	}
	r := New(labsOnly, rand.New(rand.NewSource(1)))

	room, matched := r.FindClassroom(index.New(), 60, model.RoomClassroom, 1, "09:00", "10:00")
	require.NotNil(t, room)
	assert.False(t, matched)
	assert.Equal(t, "lab1", room.ID)
}

func TestFindClassroom_AvailabilityAndCapacity(t *testing.T) {
	limited := &model.Classroom{
		ID: "limited", Capacity: 60, Type: model.RoomLab,
		Availability: model.Availability{{DayOfWeek: 2, StartTime: "14:00", EndTime: "16:00"}},
	}
	r := New([]*model.Classroom{limited}, rand.New(rand.NewSource(1)))

	room, _ := r.FindClassroom(index.New(), 60, model.RoomLab, 2, "09:00", "11:00")
	assert.Nil(t, room)

	room, matched := r.FindClassroom(index.New(), 60, model.RoomLab, 2, "14:00", "16:00")
	require.NotNil(t, room)
	assert.True(t, matched)

	room, _ = r.FindClassroom(index.New(), 61, model.RoomLab, 2, "14:00", "16:00")
	assert.Nil(t, room, "容量不足")
}

// 教室窗口只比较开始时间，超出窗口结束时刻的课次仍然放行
func TestFindClassroom_WindowChecksStartOnly(t *testing.T) {
	limited := &model.Classroom{
		ID: "limited", Capacity: 60, Type: model.RoomClassroom,
		Availability: model.Availability{{DayOfWeek: 0, StartTime: "09:00", EndTime: "10:00"}},
	}
	r := New([]*model.Classroom{limited}, rand.New(rand.NewSource(1)))

	room, _ := r.FindClassroom(index.New(), 30, model.RoomClassroom, 0, "10:00", "11:00")
	require.NotNil(t, room)
	assert.Equal(t, "limited", room.ID)

	room, _ = r.FindClassroom(index.New(), 30, model.RoomClassroom, 0, "10:01", "11:00")
	assert.Nil(t, room)
}

func TestFindClassroom_TieKeepsInputOrder(t *testing.T) {
	r := New([]*model.Classroom{
		{ID: "first", Capacity: 60, Type: model.RoomClassroom},
		{ID: "second", Capacity: 60, Type: model.RoomClassroom},
	}, rand.New(rand.NewSource(1)))

	room, _ := r.FindClassroom(index.New(), 60, model.RoomClassroom, 0, "09:00", "10:00")
	require.NotNil(t, room)
	assert.Equal(t, "first", room.ID)
}

func TestSelectFaculty(t *testing.T) {
	free := &model.Faculty{ID: "free"}
	monday := &model.Faculty{ID: "monday", Availability: model.Availability{{DayOfWeek: 0, StartTime: "09:00", EndTime: "12:00"}}}
	r := New(nil, rand.New(rand.NewSource(7)))

	assert.Len(t, r.AvailableFaculty([]*model.Faculty{free, monday}, 0, "10:00"), 2)
	assert.Len(t, r.AvailableFaculty([]*model.Faculty{free, monday}, 1, "10:00"), 1)

	assert.Equal(t, "free", r.SelectFaculty([]*model.Faculty{free, monday}, 1, "10:00").ID)
	assert.Nil(t, r.SelectFaculty([]*model.Faculty{monday}, 0, "14:00"))
	assert.Nil(t, r.SelectFaculty(nil, 0, "09:00"))
}

func TestSelectFaculty_UsesRandomSource(t *testing.T) {
	list := []*model.Faculty{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	seen := make(map[string]bool)
	r := New(nil, rand.New(rand.NewSource(42)))
	for i := 0; i < 200; i++ {
		seen[r.SelectFaculty(list, 0, "09:00").ID] = true
	}
	assert.Len(t, seen, 3)

	// 相同种子结果可复现
	r1 := New(nil, rand.New(rand.NewSource(5)))
	r2 := New(nil, rand.New(rand.NewSource(5)))
	for i := 0; i < 20; i++ {
		assert.Equal(t, r1.SelectFaculty(list, 0, "09:00").ID, r2.SelectFaculty(list, 0, "09:00").ID)
	}
}

func TestPinFaculty(t *testing.T) {
	weekendOnly := &model.Faculty{ID: "weekend", Availability: model.Availability{{DayOfWeek: 6, StartTime: "09:00", EndTime: "12:00"}}}
	wed := &model.Faculty{ID: "wed", Availability: model.Availability{{DayOfWeek: 2, StartTime: "09:00", EndTime: "12:00"}}}
	r := New(nil, rand.New(rand.NewSource(3)))

	assert.Nil(t, r.PinFaculty([]*model.Faculty{weekendOnly}))
	assert.Equal(t, "wed", r.PinFaculty([]*model.Faculty{weekendOnly, wed}).ID)
	assert.Nil(t, r.PinFaculty(nil))
}

func TestShuffledCells(t *testing.T) {
	r := New(nil, rand.New(rand.NewSource(11)))
	cells := r.ShuffledCells(grid.KindPractical)
	require.Len(t, cells, 15)

	seen := make(map[grid.Cell]bool)
	for _, c := range cells {
		seen[c] = true
	}
	assert.Len(t, seen, 15, "打乱后仍然覆盖全部候选")
}
