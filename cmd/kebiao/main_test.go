package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/kebiao/internal/csvio"
	"github.com/paiban/kebiao/pkg/model"
)

func writeDataset(t *testing.T, withFaculty bool) string {
	t.Helper()
	dir := t.TempDir()
	assign := "subject_id,faculty_id\n"
	if withFaculty {
		assign += "s1,f1\ns2,f1\n"
	}
	files := map[string]string{
		csvio.BatchesFile:        "id,name,department_id,semester,batch_size\nb1,CSE-A,cse,3,60\n",
		csvio.SubjectsFile:       "id,code,name,type,weekly_classes_required,hours_per_session,total_hours_required,course_duration_weeks,fixed_day,fixed_start,fixed_end\ns1,CS301,Algorithms,THEORY,3,1,0,0,,,\ns2,CS302,Lab,PRACTICAL,1,2,0,0,,,\n",
		csvio.BatchSubjectsFile:  "batch_id,subject_id\nb1,s1\nb1,s2\n",
		csvio.SubjectFacultyFile: assign,
		csvio.FacultyFile:        "id,name,max_classes_per_day,weekly_load_limit\nf1,Wang,4,18\n",
		csvio.ClassroomsFile:     "id,room_id,capacity,type\nr1,A-101,60,CLASSROOM\nl1,L-201,60,LAB\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func setEnv(t *testing.T, dir string) string {
	t.Helper()
	textfile := filepath.Join(t.TempDir(), "kebiao.prom")
	t.Setenv("INPUT_SOURCE", "csv")
	t.Setenv("INPUT_DIR", dir)
	t.Setenv("SCHEDULER_SEED", "11")
	t.Setenv("APP_LOG_LEVEL", "error")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("METRICS_TEXTFILE", textfile)
	return textfile
}

func TestRun_GenerateJSON(t *testing.T) {
	textfile := setEnv(t, writeDataset(t, true))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"generate", "-semester", "3"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var out struct {
		Result struct {
			Success    bool               `json:"success"`
			Candidates []*model.Timetable `json:"candidates"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.True(t, out.Result.Success)
	require.Len(t, out.Result.Candidates, 3)
	assert.Len(t, out.Result.Candidates[0].Entries, 4)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kebiao_generation_total")
}

func TestRun_GenerateCSV(t *testing.T) {
	setEnv(t, writeDataset(t, true))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"generate", "-semester", "3", "-format", "csv"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "batch_id,subject_id"))
}

func TestRun_NoFeasibleSolution(t *testing.T) {
	setEnv(t, writeDataset(t, false))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"generate", "-semester", "3"}, &stdout, &stderr)
	assert.Equal(t, exitNoSolution, code)

	var violations []model.Violation
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &violations))
	require.NotEmpty(t, violations)
	assert.Equal(t, model.ViolationNoFacultyAssigned, violations[0].Type)
}

func TestRun_Errors(t *testing.T) {
	setEnv(t, writeDataset(t, true))

	tests := []struct {
		name string
		args []string
	}{
		{"没有命令", nil},
		{"未知命令", []string{"export"}},
		{"非法输出格式", []string{"generate", "-format", "pdf"}},
		{"非法课表ID", []string{"approve", "-id", "abc"}},
		{"CSV 数据源没有课表存储", []string{"lock", "-id", "6f1c2a4e-8d3b-4b7a-9c1e-2f5d8a7b6c3d"}},
		{"学期没有班级", []string{"generate", "-semester", "9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, exitError, run(context.Background(), tt.args, &stdout, &stderr))
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	assert.Equal(t, exitOK, run(context.Background(), []string{"version"}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "kebiao dev")
}
