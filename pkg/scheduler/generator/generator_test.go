package generator

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
	"github.com/paiban/kebiao/pkg/scheduler/score"
)

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestGenerator(opts ...Option) *Generator {
	base := []Option{
		WithLogger(logger.NewSchedulerLoggerFrom(zerolog.Nop())),
		WithClock(func() time.Time { return fixedNow }),
	}
	return New(append(base, opts...)...)
}

func department() ([]*model.Batch, []*model.Classroom) {
	f1 := &model.Faculty{ID: "f1", Name: "张老师", MaxClassesPerDay: 4, WeeklyLoadLimit: 20}
	f2 := &model.Faculty{ID: "f2", Name: "刘老师", MaxClassesPerDay: 4, WeeklyLoadLimit: 20}

	var batches []*model.Batch
	for i := 1; i <= 2; i++ {
		batches = append(batches, &model.Batch{
			ID: fmt.Sprintf("b%d", i), Name: fmt.Sprintf("计算机%d班", i), BatchSize: 50,
			Subjects: []*model.Subject{
				{ID: fmt.Sprintf("math-%d", i), Name: "高等数学", Type: model.SubjectTheory, WeeklyClassesRequired: 3, Faculty: []*model.Faculty{f1, f2}},
				{ID: fmt.Sprintf("lab-%d", i), Name: "程序设计实验", Type: model.SubjectPractical, WeeklyClassesRequired: 1, Faculty: []*model.Faculty{f2}},
			},
		})
	}
	rooms := []*model.Classroom{
		{ID: "c1", RoomID: "A-101", Capacity: 60, Type: model.RoomClassroom},
		{ID: "c2", RoomID: "A-102", Capacity: 60, Type: model.RoomClassroom},
		{ID: "l1", RoomID: "L-201", Capacity: 60, Type: model.RoomLab},
		{ID: "l2", RoomID: "L-202", Capacity: 60, Type: model.RoomLab},
	}
	return batches, rooms
}

func TestGenerate_Preconditions(t *testing.T) {
	g := newTestGenerator()
	batches, rooms := department()

	tests := []struct {
		name    string
		batches []*model.Batch
		rooms   []*model.Classroom
	}{
		{"没有班级", nil, rooms},
		{"没有教室", batches, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Generate(context.Background(), tt.batches, tt.rooms, 1, "春季")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
		})
	}
	assert.Empty(t, g.ListViolations())
}

func TestGenerate_RankedCandidates(t *testing.T) {
	batches, rooms := department()
	g := newTestGenerator(WithSeed(42))

	res, err := g.Generate(context.Background(), batches, rooms, 3, "2026 春季")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NoError(t, res.Err())
	require.Len(t, res.Candidates, DefaultAttempts)

	attempts := map[int]bool{}
	for i, c := range res.Candidates {
		assert.Equal(t, fmt.Sprintf("2026 春季 - Option %d", c.Metadata.Attempt), c.Name)
		assert.Equal(t, model.StatusDraft, c.Status)
		assert.Equal(t, 3, c.Semester)
		assert.Equal(t, fixedNow, c.Metadata.GeneratedAt)
		assert.Equal(t, int64(42+c.Metadata.Attempt), c.Metadata.Seed)
		assert.Equal(t, len(c.Entries), c.Metadata.TotalEntries)
		assert.Len(t, c.Entries, 8)
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 100.0)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Candidates[i-1].Score, c.Score)
		}
		attempts[c.Metadata.Attempt] = true
	}
	assert.Len(t, attempts, DefaultAttempts)
	assert.Same(t, res.Candidates[0], res.Best())
}

func TestGenerate_AllAttemptsEmpty(t *testing.T) {
	batches := []*model.Batch{{
		ID: "b1", Name: "b1", BatchSize: 30,
		Subjects: []*model.Subject{{ID: "s1", Name: "无教师课程", Type: model.SubjectTheory, WeeklyClassesRequired: 2}},
	}}
	rooms := []*model.Classroom{{ID: "c1", Capacity: 40, Type: model.RoomClassroom}}
	g := newTestGenerator(WithSeed(1))

	res, err := g.Generate(context.Background(), batches, rooms, 1, "失败")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Candidates)
	assert.Nil(t, res.Best())
	require.Len(t, res.Violations, DefaultAttempts)
	for i, v := range res.Violations {
		assert.Equal(t, model.ViolationNoFacultyAssigned, v.Type)
		assert.Equal(t, i+1, v.Attempt)
	}

	assert.True(t, apperrors.Is(res.Err(), apperrors.CodeNoFeasibleSolution))
	assert.Equal(t, res.Violations, g.ListViolations())
}

func TestGenerate_SequentialMatchesConcurrent(t *testing.T) {
	batches, rooms := department()

	byAttempt := func(res *Result) []*model.Timetable {
		out := append([]*model.Timetable(nil), res.Candidates...)
		sort.Slice(out, func(i, j int) bool { return out[i].Metadata.Attempt < out[j].Metadata.Attempt })
		return out
	}

	seq, err := newTestGenerator(WithSeed(9), WithSequential()).Generate(context.Background(), batches, rooms, 1, "x")
	require.NoError(t, err)
	par, err := newTestGenerator(WithSeed(9)).Generate(context.Background(), batches, rooms, 1, "x")
	require.NoError(t, err)

	s, p := byAttempt(seq), byAttempt(par)
	require.Equal(t, len(s), len(p))
	for i := range s {
		assert.Equal(t, s[i].Entries, p[i].Entries)
		assert.Equal(t, s[i].Score, p[i].Score)
	}
	assert.Equal(t, seq.Violations, par.Violations)
}

func TestGenerate_AttemptsOption(t *testing.T) {
	batches, rooms := department()
	res, err := newTestGenerator(WithSeed(3), WithAttempts(5)).Generate(context.Background(), batches, rooms, 1, "x")
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 5)
}

func TestGenerate_ContextCanceled(t *testing.T) {
	batches, rooms := department()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestGenerator(WithSeed(1)).Generate(ctx, batches, rooms, 1, "x")
	assert.Nil(t, res)
	assert.True(t, apperrors.Is(err, apperrors.CodeCanceled))
}

func TestGenerate_ListViolationsTracksLastRun(t *testing.T) {
	batches, rooms := department()
	g := newTestGenerator(WithSeed(5), WithMinFreePeriods(grid.WeeklyCapacity+1))

	_, err := g.Generate(context.Background(), batches, rooms, 1, "x")
	require.NoError(t, err)
	first := g.ListViolations()
	assert.Len(t, first, 2*DefaultAttempts, "每次尝试每个班级一条空闲时段不足")

	first[0].Message = "modified"
	assert.NotEqual(t, "modified", g.ListViolations()[0].Message)

	g2 := newTestGenerator(WithSeed(5))
	_, err = g2.Generate(context.Background(), batches, rooms, 1, "x")
	require.NoError(t, err)
	assert.Empty(t, g2.ListViolations())
}

func TestRank_Stable(t *testing.T) {
	c := []*model.Timetable{
		{Name: "a", Score: 80},
		{Name: "b", Score: 95},
		{Name: "c", Score: 80},
		{Name: "d", Score: 100},
	}
	Rank(c)
	var names []string
	for _, tt := range c {
		names = append(names, tt.Name)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, names)
}

func TestRank_TieBreaksOnRawScore(t *testing.T) {
	c := []*model.Timetable{
		{Name: "a", Score: 100, Metadata: model.Metadata{RawScore: 104}},
		{Name: "b", Score: 100, Metadata: model.Metadata{RawScore: 108.5}},
		{Name: "c", Score: 90, Metadata: model.Metadata{RawScore: 90}},
		{Name: "d", Score: 100, Metadata: model.Metadata{RawScore: 104}},
	}
	Rank(c)
	var names []string
	for _, tt := range c {
		names = append(names, tt.Name)
	}
	assert.Equal(t, []string{"b", "a", "d", "c"}, names)
}

// 一个 60 人班级、一门每周 3 节的理论课、两位教师、两间普通教室
func TestGenerate_SingleTheorySubject(t *testing.T) {
	f1 := &model.Faculty{ID: "f1", Name: "王老师", MaxClassesPerDay: 4, WeeklyLoadLimit: 20}
	f2 := &model.Faculty{ID: "f2", Name: "李老师", MaxClassesPerDay: 4, WeeklyLoadLimit: 20}
	batches := []*model.Batch{{
		ID: "b1", Name: "软件1班", BatchSize: 60,
		Subjects: []*model.Subject{{
			ID: "s1", Code: "CS101", Name: "数据结构", Type: model.SubjectTheory,
			WeeklyClassesRequired: 3, TotalHoursRequired: 48, Faculty: []*model.Faculty{f1, f2},
		}},
	}}
	rooms := []*model.Classroom{
		{ID: "c60", RoomID: "A-101", Capacity: 60, Type: model.RoomClassroom},
		{ID: "c80", RoomID: "A-201", Capacity: 80, Type: model.RoomClassroom},
	}

	for seed := int64(1); seed <= 5; seed++ {
		res, err := newTestGenerator(WithSeed(seed)).Generate(context.Background(), batches, rooms, 1, "秋季")
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Len(t, res.Candidates, DefaultAttempts)

		for _, c := range res.Candidates {
			assert.Len(t, c.Entries, 3)
			assert.Zero(t, model.CountByType(c.Violations)[model.ViolationDurationInsufficient])
			assert.GreaterOrEqual(t, c.Score, 80.0, "seed %d", seed)
			assert.LessOrEqual(t, c.Score, 100.0, "seed %d", seed)
			assert.Equal(t, c.Score, score.Calculate(c.Entries, len(c.Violations), len(rooms)))
			for _, e := range c.Entries {
				assert.Equal(t, "c60", e.ClassroomID, "容量最小的教室优先")
			}
		}
	}
}

func TestGenerate_CustomWeights(t *testing.T) {
	batches, rooms := department()
	g := newTestGenerator(WithSeed(3), WithWeights(score.Weights{Base: 40}))

	res, err := g.Generate(context.Background(), batches, rooms, 1, "x")
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)
	for _, c := range res.Candidates {
		assert.Equal(t, 40.0, c.Score)
		assert.Equal(t, 40.0, c.Metadata.RawScore)
	}
}
