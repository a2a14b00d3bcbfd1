package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/generator"
)

func TestRecordGeneration(t *testing.T) {
	r := NewRegistry()

	r.RecordGeneration(&generator.Result{
		Success: true,
		Candidates: []*model.Timetable{
			{Score: 92.5},
			{Score: 80},
		},
		Violations: []model.Violation{
			{Type: model.ViolationInsufficientSlots},
			{Type: model.ViolationInsufficientSlots},
			{Type: model.ViolationWrongClassroomType},
		},
		Duration: 200 * time.Millisecond,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.generationTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.candidates))
	assert.Equal(t, 92.5, testutil.ToFloat64(r.bestScore))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.violationsTotal.WithLabelValues("INSUFFICIENT_SLOTS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.violationsTotal.WithLabelValues("WRONG_CLASSROOM_TYPE")))

	r.RecordGeneration(&generator.Result{Success: false})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.generationTotal.WithLabelValues("failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.bestScore))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.candidates))

	r.RecordGeneration(nil)
	assert.Equal(t, 2, testutil.CollectAndCount(r.generationTotal))
}

func TestRecordTransitionAndError(t *testing.T) {
	r := NewRegistry()
	r.RecordTransition(model.StatusApproved)
	r.RecordTransition(model.StatusLocked)
	r.RecordTransition(model.StatusLocked)
	r.RecordGenerationError(time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.timetableStatus.WithLabelValues("LOCKED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.generationTotal.WithLabelValues("error")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.RecordGeneration(&generator.Result{Success: true, Candidates: []*model.Timetable{{Score: 70}}})

	path := filepath.Join(t.TempDir(), "kebiao.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `kebiao_generation_total{status="success"} 1`))
	assert.True(t, strings.Contains(out, "kebiao_best_score 70"))
}

func TestGetRegistry(t *testing.T) {
	assert.Same(t, GetRegistry(), GetRegistry())
	assert.NotNil(t, GetRegistry().Gatherer())
}
