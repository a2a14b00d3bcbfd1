// Package metrics 提供Prometheus监控指标
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/generator"
)

// Registry 指标注册表
type Registry struct {
	reg *prometheus.Registry

	generationTotal    *prometheus.CounterVec
	generationDuration prometheus.Histogram
	violationsTotal    *prometheus.CounterVec
	candidates         prometheus.Gauge
	bestScore          prometheus.Gauge
	timetableStatus    *prometheus.CounterVec
}

var (
	registry *Registry
	once     sync.Once
)

// GetRegistry 获取全局注册表
func GetRegistry() *Registry {
	once.Do(func() {
		registry = NewRegistry()
	})
	return registry
}

// NewRegistry 创建独立的注册表
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		// 课表生成计数器
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kebiao_generation_total",
			Help: "课表生成次数",
		}, []string{"status"}),

		// 课表生成延迟
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kebiao_generation_duration_seconds",
			Help:    "课表生成延迟",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}),

		// 约束违反计数器
		violationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kebiao_constraint_violations_total",
			Help: "约束违反次数",
		}, []string{"type"}),

		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kebiao_candidates",
			Help: "最近一次生成的候选课表数",
		}),

		// 最优课表分数
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kebiao_best_score",
			Help: "最近一次生成的最高分",
		}),

		timetableStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kebiao_timetable_transitions_total",
			Help: "课表状态变更次数",
		}, []string{"status"}),
	}

	r.reg.MustRegister(
		r.generationTotal,
		r.generationDuration,
		r.violationsTotal,
		r.candidates,
		r.bestScore,
		r.timetableStatus,
	)
	return r
}

// Gatherer 返回底层采集器
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// RecordGeneration 记录一次生成的结果
func (r *Registry) RecordGeneration(result *generator.Result) {
	if result == nil {
		return
	}

	status := "success"
	if !result.Success {
		status = "failure"
	}
	r.generationTotal.WithLabelValues(status).Inc()
	r.generationDuration.Observe(result.Duration.Seconds())
	r.candidates.Set(float64(len(result.Candidates)))
	if best := result.Best(); best != nil {
		r.bestScore.Set(best.Score)
	} else {
		r.bestScore.Set(0)
	}
	r.RecordViolations(result.Violations)
}

// RecordGenerationError 记录因超时或取消而中断的生成
func (r *Registry) RecordGenerationError(duration time.Duration) {
	r.generationTotal.WithLabelValues("error").Inc()
	r.generationDuration.Observe(duration.Seconds())
}

// RecordViolations 按类型累计违反次数
func (r *Registry) RecordViolations(violations []model.Violation) {
	for _, v := range violations {
		r.violationsTotal.WithLabelValues(string(v.Type)).Inc()
	}
}

// RecordTransition 记录课表状态变更
func (r *Registry) RecordTransition(status model.Status) {
	r.timetableStatus.WithLabelValues(string(status)).Inc()
}

// WriteTextfile 以 node_exporter textfile 格式写出全部指标
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("写入指标文件失败: %w", err)
	}
	return nil
}
