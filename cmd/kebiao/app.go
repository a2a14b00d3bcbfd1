package main

import (
	"context"

	"github.com/paiban/kebiao/internal/cache"
	"github.com/paiban/kebiao/internal/config"
	"github.com/paiban/kebiao/internal/csvio"
	"github.com/paiban/kebiao/internal/database"
	"github.com/paiban/kebiao/internal/metrics"
	"github.com/paiban/kebiao/internal/repository"
	"github.com/paiban/kebiao/internal/service"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/generator"
)

type snapshotLoader interface {
	Load(ctx context.Context, semester int, departmentID string) (*model.Snapshot, error)
}

// app 命令运行期间的依赖
type app struct {
	cfg     *config.Config
	db      *database.DB
	cache   *cache.ResultCache
	metrics *metrics.Registry
	service *service.TimetableService
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	genOpts := []generator.Option{
		generator.WithAttempts(cfg.Scheduler.Attempts),
		generator.WithSemesterWeeks(cfg.Scheduler.SemesterWeeks),
		generator.WithMinFreePeriods(cfg.Scheduler.MinFreePeriods),
		generator.WithWeights(cfg.Scheduler.Weights),
	}
	if cfg.Scheduler.Seed != 0 {
		genOpts = append(genOpts, generator.WithSeed(cfg.Scheduler.Seed))
	}
	if cfg.Scheduler.Sequential {
		genOpts = append(genOpts, generator.WithSequential())
	}

	var opts []service.Option
	var loader snapshotLoader

	switch cfg.Input.Source {
	case "postgres":
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		loader = repository.NewSnapshotRepository(db)
		opts = append(opts, service.WithStore(repository.NewTimetableRepository(db)))
	default:
		loader = csvio.Loader{Dir: cfg.Input.Dir}
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(&cfg.Redis)
		if err != nil {
			// 缓存不可用时继续运行
			logger.Warn().Err(err).Msg("Redis 不可用，禁用缓存")
		} else {
			a.cache = cache.NewResultCache(client, cfg.Redis.CacheTTL)
			opts = append(opts, service.WithCache(a.cache))
		}
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.GetRegistry()
		opts = append(opts, service.WithMetrics(a.metrics))
	}

	a.service = service.NewTimetableService(loader, generator.New(genOpts...), opts...)
	return a, nil
}

// flushMetrics 配置了 textfile 时写出指标
func (a *app) flushMetrics() {
	if a.metrics == nil || a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		logger.Warn().Err(err).Msg("写出指标失败")
	}
}

// Close 释放连接
func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
