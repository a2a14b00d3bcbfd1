package model

// Snapshot 排课输入快照，班级下的课程、教师及可用时间均已加载
type Snapshot struct {
	Semester     int          `json:"semester" validate:"min=0"`
	DepartmentID string       `json:"department_id,omitempty"`
	Batches      []*Batch     `json:"batches" validate:"dive"`
	Classrooms   []*Classroom `json:"classrooms" validate:"dive"`
}

// Faculties 返回快照中出现的全部教师（按首次出现顺序去重）
func (s *Snapshot) Faculties() []*Faculty {
	seen := make(map[string]bool)
	var out []*Faculty
	for _, b := range s.Batches {
		for _, sub := range b.Subjects {
			for _, f := range sub.Faculty {
				if f == nil || seen[f.ID] {
					continue
				}
				seen[f.ID] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// FilterDepartment 只保留指定院系的班级，departmentID 为空时返回原快照
func (s *Snapshot) FilterDepartment(departmentID string) *Snapshot {
	if departmentID == "" {
		return s
	}
	out := &Snapshot{
		Semester:     s.Semester,
		DepartmentID: departmentID,
		Classrooms:   s.Classrooms,
	}
	for _, b := range s.Batches {
		if b.DepartmentID == departmentID {
			out.Batches = append(out.Batches, b)
		}
	}
	return out
}
