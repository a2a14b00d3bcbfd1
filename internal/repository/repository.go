// Package repository 提供数据访问层
package repository

import (
	"github.com/paiban/kebiao/pkg/model"
)

// ListFilter 列表查询过滤器
type ListFilter struct {
	Semester     int          `json:"semester,omitempty"`
	DepartmentID string       `json:"department_id,omitempty"`
	Status       model.Status `json:"status,omitempty"`
	Offset       int          `json:"offset"`
	Limit        int          `json:"limit"`
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset: 0,
		Limit:  20,
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithSemester 设置学期
func (f ListFilter) WithSemester(semester int) ListFilter {
	f.Semester = semester
	return f
}

// WithDepartment 设置院系
func (f ListFilter) WithDepartment(departmentID string) ListFilter {
	f.DepartmentID = departmentID
	return f
}

// WithStatus 设置状态过滤
func (f ListFilter) WithStatus(status model.Status) ListFilter {
	f.Status = status
	return f
}
