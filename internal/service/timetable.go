// Package service 组合数据加载、课表生成、持久化与缓存
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paiban/kebiao/internal/cache"
	"github.com/paiban/kebiao/internal/repository"
	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/generator"
	"github.com/paiban/kebiao/pkg/stats"
	audit "github.com/paiban/kebiao/pkg/validator"
)

type snapshotLoader interface {
	Load(ctx context.Context, semester int, departmentID string) (*model.Snapshot, error)
}

type timetableStore interface {
	Create(ctx context.Context, tt *model.Timetable) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Timetable, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*model.Timetable, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status, approvedAt *time.Time, approvedBy string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type resultCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

type metricsRecorder interface {
	RecordGeneration(result *generator.Result)
	RecordGenerationError(duration time.Duration)
	RecordTransition(status model.Status)
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Semester     int    `json:"semester" validate:"min=0"`
	DepartmentID string `json:"department_id,omitempty" validate:"max=64"`
	Name         string `json:"name,omitempty" validate:"max=120"`
}

// GenerateResponse 生成结果及最优候选的审计报告
type GenerateResponse struct {
	Result      *generator.Result         `json:"result"`
	Conflicts   []audit.Conflict          `json:"conflicts,omitempty"`
	Workload    *stats.WorkloadMetrics    `json:"workload,omitempty"`
	Utilization *stats.UtilizationMetrics `json:"utilization,omitempty"`
}

// LastRun 缓存的最近一次生成摘要
type LastRun struct {
	RunID      string            `json:"run_id"`
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Candidates []uuid.UUID       `json:"candidates"`
	Violations []model.Violation `json:"violations"`
}

// TimetableService 课表服务
type TimetableService struct {
	snapshots snapshotLoader
	generator *generator.Generator
	store     timetableStore
	cache     resultCache
	metrics   metricsRecorder
	detector  *audit.ConflictDetector
	workload  *stats.WorkloadAnalyzer
	validate  *validator.Validate
	clock     func() time.Time
}

// Option 服务选项
type Option func(*TimetableService)

// WithStore 持久化候选课表
func WithStore(store timetableStore) Option {
	return func(s *TimetableService) { s.store = store }
}

// WithCache 缓存生成摘要与课表
func WithCache(c resultCache) Option {
	return func(s *TimetableService) { s.cache = c }
}

// WithMetrics 记录监控指标
func WithMetrics(m metricsRecorder) Option {
	return func(s *TimetableService) { s.metrics = m }
}

// WithClock 注入时钟
func WithClock(clock func() time.Time) Option {
	return func(s *TimetableService) { s.clock = clock }
}

// NewTimetableService 创建课表服务
func NewTimetableService(snapshots snapshotLoader, gen *generator.Generator, opts ...Option) *TimetableService {
	s := &TimetableService{
		snapshots: snapshots,
		generator: gen,
		detector:  audit.NewConflictDetector(nil),
		workload:  stats.NewWorkloadAnalyzer(),
		validate:  validator.New(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.generator == nil {
		s.generator = generator.New()
	}
	if s.cache == nil {
		s.cache = cache.NewResultCache(nil, 0)
	}
	return s
}

// Generate 加载快照、生成候选课表并保存
//
// 所有尝试都没有排出课次时返回带违反记录的响应以及 NO_FEASIBLE_SOLUTION 错误。
func (s *TimetableService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	log := logger.WithContext(ctx)

	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("第%d学期课表", req.Semester)
	}

	snap, err := s.snapshots.Load(ctx, req.Semester, req.DepartmentID)
	if err != nil {
		return nil, wrapData(err, "加载排课数据失败")
	}
	if err := s.validate.Struct(snap); err != nil {
		return nil, validationError(err)
	}

	startTime := s.clock()
	result, err := s.generator.Generate(ctx, snap.Batches, snap.Classrooms, req.Semester, name)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordGenerationError(s.clock().Sub(startTime))
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordGeneration(result)
	}

	run := &LastRun{RunID: result.RunID, Success: result.Success, Message: result.Message, Violations: result.Violations}
	resp := &GenerateResponse{Result: result}
	if !result.Success {
		s.remember(ctx, req, run)
		return resp, result.Err()
	}

	for _, tt := range result.Candidates {
		tt.DepartmentID = req.DepartmentID
		if s.store != nil {
			if err := s.store.Create(ctx, tt); err != nil {
				return nil, wrapData(err, "保存候选课表失败")
			}
		}
		run.Candidates = append(run.Candidates, tt.ID)
	}
	s.remember(ctx, req, run)

	best := result.Best()
	resp.Conflicts = s.detector.DetectAll(best.Entries, snap)
	resp.Workload = s.workload.Analyze(best.Entries, snap.Faculties())
	resp.Utilization = stats.AnalyzeUtilization(best.Entries, snap.Classrooms)
	if audit.HasErrors(resp.Conflicts) {
		log.Error().
			Str("run_id", result.RunID).
			Int("conflicts", len(resp.Conflicts)).
			Msg("最优课表存在硬冲突")
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("candidates", len(result.Candidates)).
		Float64("best_score", best.Score).
		Bool("persisted", s.store != nil).
		Msg("课表生成完成")
	return resp, nil
}

// Get 获取课表，优先读取缓存
func (s *TimetableService) Get(ctx context.Context, id uuid.UUID) (*model.Timetable, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}

	var tt model.Timetable
	if err := s.cache.Get(ctx, cache.TimetableKey(id), &tt); err == nil {
		return &tt, nil
	}

	found, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapData(err, "查询课表失败")
	}
	if err := s.cache.Set(ctx, cache.TimetableKey(id), found); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Msg("写入课表缓存失败")
	}
	return found, nil
}

// List 列出课表
func (s *TimetableService) List(ctx context.Context, filter repository.ListFilter) ([]*model.Timetable, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.InvalidInput("status", string(filter.Status))
	}
	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, wrapData(err, "查询课表列表失败")
	}
	return list, nil
}

// Approve 审批课表，已锁定的课表不能再审批
func (s *TimetableService) Approve(ctx context.Context, id uuid.UUID, approvedBy string) (*model.Timetable, error) {
	tt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if tt.IsLocked() {
		return nil, apperrors.TimetableLocked(id.String())
	}

	now := s.clock()
	if err := s.store.UpdateStatus(ctx, id, model.StatusApproved, &now, approvedBy); err != nil {
		return nil, wrapData(err, "审批课表失败")
	}
	tt.Status = model.StatusApproved
	tt.ApprovedAt = &now
	tt.ApprovedBy = approvedBy
	tt.UpdatedAt = now
	s.transitioned(ctx, tt)
	return tt, nil
}

// Lock 锁定已审批的课表
func (s *TimetableService) Lock(ctx context.Context, id uuid.UUID) (*model.Timetable, error) {
	tt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch tt.Status {
	case model.StatusLocked:
		return nil, apperrors.TimetableLocked(id.String())
	case model.StatusDraft:
		return nil, apperrors.InvalidInput("status", "只有已审批的课表可以锁定")
	}

	if err := s.store.UpdateStatus(ctx, id, model.StatusLocked, tt.ApprovedAt, tt.ApprovedBy); err != nil {
		return nil, wrapData(err, "锁定课表失败")
	}
	tt.Status = model.StatusLocked
	tt.UpdatedAt = s.clock()
	s.transitioned(ctx, tt)
	return tt, nil
}

// Delete 删除课表，已锁定的课表不能删除
func (s *TimetableService) Delete(ctx context.Context, id uuid.UUID) error {
	tt, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if tt.IsLocked() {
		return apperrors.TimetableLocked(id.String())
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return wrapData(err, "删除课表失败")
	}
	if err := s.cache.Delete(ctx, cache.TimetableKey(id)); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Msg("清理课表缓存失败")
	}
	return nil
}

// LastViolations 最近一次生成的违反记录
//
// 优先读取缓存（可跨进程），缓存未命中时返回本进程生成器的记录。
func (s *TimetableService) LastViolations(ctx context.Context, semester int, departmentID string) ([]model.Violation, error) {
	var run LastRun
	err := s.cache.Get(ctx, cache.GenerationKey(semester, departmentID), &run)
	switch {
	case err == nil:
		return run.Violations, nil
	case errors.Is(err, apperrors.ErrCacheMiss):
		return s.generator.ListViolations(), nil
	default:
		return nil, err
	}
}

func (s *TimetableService) load(ctx context.Context, id uuid.UUID) (*model.Timetable, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	tt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapData(err, "查询课表失败")
	}
	return tt, nil
}

func (s *TimetableService) requireStore() error {
	if s.store == nil {
		return apperrors.New(apperrors.CodeInternal, "未配置课表存储")
	}
	return nil
}

func (s *TimetableService) remember(ctx context.Context, req GenerateRequest, run *LastRun) {
	if err := s.cache.Set(ctx, cache.GenerationKey(req.Semester, req.DepartmentID), run); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Str("run_id", run.RunID).Msg("缓存生成结果失败")
	}
}

func (s *TimetableService) transitioned(ctx context.Context, tt *model.Timetable) {
	if s.metrics != nil {
		s.metrics.RecordTransition(tt.Status)
	}
	if err := s.cache.Delete(ctx, cache.TimetableKey(tt.ID)); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Msg("清理课表缓存失败")
	}
	logger.WithContext(ctx).Info().
		Str("timetable_id", tt.ID.String()).
		Str("status", string(tt.Status)).
		Msg("课表状态已更新")
}

// wrapData 应用错误原样返回，其余包装为数据库错误
func wrapData(err error, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.FromContext(err)
	}
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, message)
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(err, apperrors.CodeValidationFail, "验证失败")
	}
	ve := &apperrors.ValidationErrors{}
	for _, fe := range fieldErrs {
		ve.Add(fe.Namespace(), fmt.Sprintf("%s=%s", fe.Tag(), fe.Param()))
	}
	return ve.ToAppError()
}
