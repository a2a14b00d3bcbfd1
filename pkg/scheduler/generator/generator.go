// Package generator 负责多次独立尝试、评分与排序
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
	"github.com/paiban/kebiao/pkg/scheduler/score"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
)

// DefaultAttempts 默认尝试次数
const DefaultAttempts = 3

// Generator 课表生成器，可复用，ListViolations 返回最近一次运行的违反
type Generator struct {
	manager        *constraint.Manager
	logger         *logger.SchedulerLogger
	weights        score.Weights
	attempts       int
	seed           int64
	seedSet        bool
	sequential     bool
	semesterWeeks  int
	minFreePeriods int
	clock          func() time.Time

	mu             sync.Mutex
	lastViolations []model.Violation
}

// Option 生成器选项
type Option func(*Generator)

// WithSeed 固定随机种子，第 n 次尝试使用 seed+n
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
		g.seedSet = true
	}
}

// WithAttempts 设置尝试次数
func WithAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// WithSequential 依次执行各次尝试
func WithSequential() Option {
	return func(g *Generator) { g.sequential = true }
}

// WithSemesterWeeks 设置学期周数
func WithSemesterWeeks(weeks int) Option {
	return func(g *Generator) { g.semesterWeeks = weeks }
}

// WithMinFreePeriods 设置班级每周最少空闲时段
func WithMinFreePeriods(n int) Option {
	return func(g *Generator) { g.minFreePeriods = n }
}

// WithClock 注入时钟
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) { g.clock = clock }
}

// WithLogger 注入日志
func WithLogger(l *logger.SchedulerLogger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithManager 使用自定义约束管理器
func WithManager(m *constraint.Manager) Option {
	return func(g *Generator) { g.manager = m }
}

// WithWeights 设置评分权重
func WithWeights(w score.Weights) Option {
	return func(g *Generator) { g.weights = w }
}

// New 创建生成器
func New(opts ...Option) *Generator {
	g := &Generator{
		weights:        score.DefaultWeights(),
		attempts:       DefaultAttempts,
		semesterWeeks:  solver.DefaultSemesterWeeks,
		minFreePeriods: solver.DefaultMinFreePeriods,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.manager == nil {
		g.manager = builtin.NewDefaultManager()
	}
	if g.logger == nil {
		g.logger = logger.NewSchedulerLogger()
	}
	return g
}

// Result 一次生成的结果
type Result struct {
	RunID      string             `json:"run_id"`
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Candidates []*model.Timetable `json:"candidates"`
	Violations []model.Violation  `json:"violations"`
	Seed       int64              `json:"seed"`
	Duration   time.Duration      `json:"duration"`
}

// Best 得分最高的候选
func (r *Result) Best() *model.Timetable {
	if len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0]
}

// Err 生成失败时返回无可行解错误
func (r *Result) Err() error {
	if r.Success {
		return nil
	}
	return apperrors.NoFeasibleSolution(r.Message).
		WithField("violations", len(r.Violations)).
		WithField("run_id", r.RunID)
}

// Generate 执行多次独立尝试，返回按得分降序排列的候选课表
//
// 班级或教室为空时在任何尝试之前返回 INVALID_INPUT。所有尝试都没有排出课次时
// Success 为 false，Violations 包含全部尝试的违反记录。
func (g *Generator) Generate(ctx context.Context, batches []*model.Batch, classrooms []*model.Classroom, semester int, name string) (*Result, error) {
	if len(batches) == 0 {
		return nil, apperrors.InvalidInput("batches", "没有可排课的班级")
	}
	if len(classrooms) == 0 {
		return nil, apperrors.InvalidInput("classrooms", "没有可用的教室")
	}

	startTime := time.Now()
	seed := g.seed
	if !g.seedSet {
		seed = time.Now().UnixNano()
	}
	runID := uuid.New().String()
	g.logger.StartGeneration(runID, len(batches), len(classrooms), g.attempts, g.manager.Summary())

	attempts, err := g.runAttempts(ctx, seed, batches, classrooms)
	if err != nil {
		g.logger.GenerationFailed(runID, time.Since(startTime), 0)
		return nil, apperrors.FromContext(err)
	}

	result := &Result{RunID: runID, Seed: seed}
	calc := score.NewCalculator(g.weights)
	for _, a := range attempts {
		result.Violations = append(result.Violations, a.Violations...)
		if a.Empty() {
			g.logger.AttemptDiscarded(runID, a.Number, len(a.Violations))
			continue
		}

		b := calc.Calculate(a.Entries, len(a.Violations), len(classrooms))
		g.logger.AttemptComplete(runID, a.Number, len(a.Entries), len(a.Violations), b.Total)
		result.Candidates = append(result.Candidates, g.candidate(a, name, semester, seed, b))
	}
	Rank(result.Candidates)

	g.mu.Lock()
	g.lastViolations = result.Violations
	g.mu.Unlock()

	result.Duration = time.Since(startTime)
	if len(result.Candidates) == 0 {
		result.Message = fmt.Sprintf("%d 次尝试均未能安排任何课次", len(attempts))
		g.logger.GenerationFailed(runID, result.Duration, len(result.Violations))
		return result, nil
	}

	result.Success = true
	result.Message = fmt.Sprintf("成功生成 %d 个候选课表", len(result.Candidates))
	g.logger.GenerationComplete(runID, result.Duration, len(result.Candidates), result.Best().Score)
	return result, nil
}

// ListViolations 最近一次生成的违反记录（含所有尝试）
func (g *Generator) ListViolations() []model.Violation {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.Violation, len(g.lastViolations))
	copy(out, g.lastViolations)
	return out
}

func (g *Generator) candidate(a *solver.Attempt, name string, semester int, seed int64, b *score.Breakdown) *model.Timetable {
	now := g.clock()
	tt := &model.Timetable{
		BaseModel: model.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:      fmt.Sprintf("%s - Option %d", name, a.Number),
		Semester:  semester,
		Status:    model.StatusDraft,
		Score:     b.Total,
		Entries:   a.Entries,
		Metadata: model.Metadata{
			GeneratedAt:         now,
			ConstraintsViolated: len(a.Violations),
			TotalEntries:        len(a.Entries),
			Attempt:             a.Number,
			Seed:                seed + int64(a.Number),
			RawScore:            b.Raw,
		},
		Violations: a.Violations,
	}
	return tt
}

func (g *Generator) newSolver() *solver.GreedySolver {
	s := solver.NewGreedySolver(g.manager, g.logger)
	s.SetSemesterWeeks(g.semesterWeeks)
	s.SetMinFreePeriods(g.minFreePeriods)
	return s
}

// runAttempts 执行全部尝试，结果按尝试序号排列
func (g *Generator) runAttempts(ctx context.Context, seed int64, batches []*model.Batch, classrooms []*model.Classroom) ([]*solver.Attempt, error) {
	results := make([]*solver.Attempt, g.attempts)
	errs := make([]error, g.attempts)

	run := func(n int) {
		if err := ctx.Err(); err != nil {
			errs[n-1] = err
			return
		}
		rng := rand.New(rand.NewSource(seed + int64(n)))
		in := &solver.Input{Batches: batches, Classrooms: classrooms, Attempt: n}
		results[n-1], errs[n-1] = g.newSolver().Solve(ctx, in, rng)
	}

	if g.sequential {
		for n := 1; n <= g.attempts; n++ {
			run(n)
		}
	} else {
		jobs := make(chan int, g.attempts)
		for n := 1; n <= g.attempts; n++ {
			jobs <- n
		}
		close(jobs)

		var wg sync.WaitGroup
		for i := 0; i < g.attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for n := range jobs {
					run(n)
				}
			}()
		}
		wg.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
