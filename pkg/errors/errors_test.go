package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code Code
		want int
	}{
		{"输入无效", CodeInvalidInput, http.StatusBadRequest},
		{"不存在", CodeNotFound, http.StatusNotFound},
		{"已锁定", CodeTimetableLocked, http.StatusConflict},
		{"无可行解", CodeNoFeasibleSolution, http.StatusUnprocessableEntity},
		{"超时", CodeTimeout, http.StatusGatewayTimeout},
		{"未知", Code("whatever"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus)
		})
	}
}

func TestIsAndGetCode(t *testing.T) {
	base := TimetableLocked("tt-1")
	wrapped := fmt.Errorf("approve: %w", base)

	assert.True(t, Is(wrapped, CodeTimetableLocked))
	assert.False(t, Is(wrapped, CodeNotFound))
	assert.Equal(t, CodeTimetableLocked, GetCode(wrapped))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(wrapped))
	assert.Equal(t, CodeUnknown, GetCode(fmt.Errorf("plain")))
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, CodeTimeout, FromContext(context.DeadlineExceeded).Code)
	assert.Equal(t, CodeCanceled, FromContext(context.Canceled).Code)
	assert.Equal(t, CodeInternal, FromContext(fmt.Errorf("boom")).Code)
}

func TestValidationErrors(t *testing.T) {
	var ve ValidationErrors
	assert.False(t, ve.HasErrors())

	ve.Add("batches", "不能为空")
	ve.Add("classrooms", "不能为空")
	require.True(t, ve.HasErrors())
	assert.Contains(t, ve.Error(), "batches")

	appErr := ve.ToAppError()
	assert.Equal(t, CodeValidationFail, appErr.Code)
	assert.Len(t, appErr.Fields, 2)
}
