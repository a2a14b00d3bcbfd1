// Package solver 提供排课求解器
package solver

import (
	"context"
	"time"

	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
	"github.com/paiban/kebiao/pkg/scheduler/resolver"
)

// DefaultMinFreePeriods 每个班级每周至少保留的空闲时段
const DefaultMinFreePeriods = 2

// Solver 求解器接口
type Solver interface {
	// Solve 完成一次独立的排课尝试
	Solve(ctx context.Context, in *Input, rng resolver.Rand) (*Attempt, error)

	// Name 返回求解器名称
	Name() string
}

// Input 一次尝试的输入
type Input struct {
	Batches    []*model.Batch
	Classrooms []*model.Classroom
	Attempt    int
}

// Attempt 一次尝试的结果
type Attempt struct {
	Number     int                    `json:"number"`
	Entries    []model.TimetableEntry `json:"entries"`
	Violations []model.Violation      `json:"violations"`
	Statistics *Statistics            `json:"statistics"`
	Duration   time.Duration          `json:"duration"`
}

// Empty 是否没有安排任何课次
func (a *Attempt) Empty() bool {
	return len(a.Entries) == 0
}

// Statistics 排课统计
type Statistics struct {
	Batches          int     `json:"batches"`
	Subjects         int     `json:"subjects"`
	CompleteSubjects int     `json:"complete_subjects"`
	SessionsRequired int     `json:"sessions_required"`
	SessionsPlaced   int     `json:"sessions_placed"`
	FillRate         float64 `json:"fill_rate"`
}

// GreedySolver 随机贪心求解器
type GreedySolver struct {
	constraintManager *constraint.Manager
	logger            *logger.SchedulerLogger
	semesterWeeks     int
	minFreePeriods    int
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver(cm *constraint.Manager, log *logger.SchedulerLogger) *GreedySolver {
	if log == nil {
		log = logger.NewSchedulerLogger()
	}
	return &GreedySolver{
		constraintManager: cm,
		logger:            log,
		semesterWeeks:     DefaultSemesterWeeks,
		minFreePeriods:    DefaultMinFreePeriods,
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// SetSemesterWeeks 设置学期周数
func (s *GreedySolver) SetSemesterWeeks(weeks int) {
	if weeks > 0 {
		s.semesterWeeks = weeks
	}
}

// SetMinFreePeriods 设置每周最少空闲时段
func (s *GreedySolver) SetMinFreePeriods(n int) {
	if n >= 0 {
		s.minFreePeriods = n
	}
}

// Solve 打乱班级顺序后逐个班级、逐门课程贪心安排
func (s *GreedySolver) Solve(ctx context.Context, in *Input, rng resolver.Rand) (*Attempt, error) {
	startTime := time.Now()

	state := constraint.NewState(in.Attempt)
	res := resolver.New(in.Classrooms, rng)
	engine := NewEngine(s.constraintManager, res, s.logger, s.semesterWeeks)
	stats := &Statistics{Batches: len(in.Batches)}

	batches := make([]*model.Batch, len(in.Batches))
	copy(batches, in.Batches)
	rng.Shuffle(len(batches), func(i, j int) { batches[i], batches[j] = batches[j], batches[i] })

	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, subject := range batch.Subjects {
			placed := engine.PlaceSubject(state, batch, subject)
			stats.Subjects++
			stats.SessionsRequired += subject.WeeklyClassesRequired
			stats.SessionsPlaced += placed
			if placed >= subject.WeeklyClassesRequired {
				stats.CompleteSubjects++
			}
		}

		free := grid.WeeklyCapacity - state.BatchSessions(batch.ID)
		if free < s.minFreePeriods {
			engine.record(state, model.NewViolation(model.ViolationInsufficientFreePeriods, map[string]interface{}{
				"batch":            batch.Name,
				"free_periods":     free,
				"minimum_required": s.minFreePeriods,
			}, "班级 %s 的空闲时段不足", batch.Name))
		}
	}

	if stats.SessionsRequired > 0 {
		stats.FillRate = float64(stats.SessionsPlaced) / float64(stats.SessionsRequired) * 100
	}

	return &Attempt{
		Number:     in.Attempt,
		Entries:    state.Entries,
		Violations: state.Violations,
		Statistics: stats,
		Duration:   time.Since(startTime),
	}, nil
}
