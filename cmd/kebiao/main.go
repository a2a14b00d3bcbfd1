// kebiao 课表生成命令行
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/paiban/kebiao/internal/config"
	"github.com/paiban/kebiao/internal/csvio"
	"github.com/paiban/kebiao/internal/repository"
	"github.com/paiban/kebiao/internal/service"
	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 退出码
const (
	exitOK         = 0
	exitError      = 1
	exitNoSolution = 2
)

const usage = `用法: kebiao <命令> [参数]

命令:
  generate    生成候选课表 (-semester -department -name -format json|csv)
  get         查看课表 (-id)
  list        列出课表 (-semester -department -status -limit -offset)
  approve     审批课表 (-id -by)
  lock        锁定课表 (-id)
  delete      删除课表 (-id)
  violations  最近一次生成的违反记录 (-semester -department)
  version     打印版本
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitError
	}
	command, args := args[0], args[1:]
	if command == "version" {
		fmt.Fprintf(stdout, "kebiao %s (%s, %s)\n", Version, GitCommit, BuildTime)
		return exitOK
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return exitError
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stderr",
	})

	a, err := newApp(cfg)
	if err != nil {
		logger.WithError(err).Msg("初始化失败")
		return exitError
	}
	defer a.Close()

	switch command {
	case "generate":
		return a.generate(ctx, args, stdout, stderr)
	case "get", "approve", "lock", "delete":
		return a.lifecycle(ctx, command, args, stdout, stderr)
	case "list":
		return a.list(ctx, args, stdout, stderr)
	case "violations":
		return a.violations(ctx, args, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "未知命令 %q\n\n%s", command, usage)
		return exitError
	}
}

func (a *app) generate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	semester := fs.Int("semester", 0, "学期（0 表示全部班级）")
	department := fs.String("department", "", "院系ID")
	name := fs.String("name", "", "课表名称")
	format := fs.String("format", "json", "输出格式 json|csv")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *format != "json" && *format != "csv" {
		fmt.Fprintf(stderr, "不支持的输出格式 %q\n", *format)
		return exitError
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Scheduler.Timeout)
	defer cancel()

	resp, err := a.service.Generate(ctx, service.GenerateRequest{
		Semester:     *semester,
		DepartmentID: *department,
		Name:         *name,
	})
	a.flushMetrics()

	if err != nil {
		if apperrors.Is(err, apperrors.CodeNoFeasibleSolution) && resp != nil {
			logger.Error().Str("run_id", resp.Result.RunID).Msg(resp.Result.Message)
			writeJSON(stdout, resp.Result.Violations)
			return exitNoSolution
		}
		logger.WithError(err).Msg("生成课表失败")
		return exitError
	}

	if *format == "csv" {
		if err := csvio.WriteEntries(stdout, resp.Result.Best().Entries); err != nil {
			logger.WithError(err).Msg("输出课表失败")
			return exitError
		}
		return exitOK
	}
	return writeJSON(stdout, resp)
}

func (a *app) lifecycle(ctx context.Context, command string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	rawID := fs.String("id", "", "课表ID")
	by := fs.String("by", "", "审批人")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	id, err := uuid.Parse(*rawID)
	if err != nil {
		fmt.Fprintf(stderr, "无效的课表ID %q\n", *rawID)
		return exitError
	}

	var tt *model.Timetable
	switch command {
	case "get":
		tt, err = a.service.Get(ctx, id)
	case "approve":
		tt, err = a.service.Approve(ctx, id, *by)
	case "lock":
		tt, err = a.service.Lock(ctx, id)
	case "delete":
		err = a.service.Delete(ctx, id)
	}
	a.flushMetrics()
	if err != nil {
		logger.WithError(err).Str("timetable_id", id.String()).Msgf("%s 失败", command)
		return exitError
	}
	if tt == nil {
		return exitOK
	}
	return writeJSON(stdout, tt)
}

func (a *app) list(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	defaults := repository.DefaultListFilter()
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	semester := fs.Int("semester", 0, "学期")
	department := fs.String("department", "", "院系ID")
	status := fs.String("status", "", "状态 DRAFT|APPROVED|LOCKED")
	limit := fs.Int("limit", defaults.Limit, "数量")
	offset := fs.Int("offset", defaults.Offset, "偏移")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	filter := defaults.
		WithSemester(*semester).
		WithDepartment(*department).
		WithStatus(model.Status(*status)).
		WithLimit(*limit).
		WithOffset(*offset)
	list, err := a.service.List(ctx, filter)
	if err != nil {
		logger.WithError(err).Msg("查询课表失败")
		return exitError
	}
	return writeJSON(stdout, list)
}

func (a *app) violations(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("violations", flag.ContinueOnError)
	fs.SetOutput(stderr)
	semester := fs.Int("semester", 0, "学期")
	department := fs.String("department", "", "院系ID")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	violations, err := a.service.LastViolations(ctx, *semester, *department)
	if err != nil {
		logger.WithError(err).Msg("读取违反记录失败")
		return exitError
	}
	return writeJSON(stdout, violations)
}

func writeJSON(w io.Writer, v interface{}) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.WithError(err).Msg("输出失败")
		return exitError
	}
	return exitOK
}
