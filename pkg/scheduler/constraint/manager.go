package constraint

import (
	"fmt"
	"sort"
	"sync"

	"github.com/paiban/kebiao/pkg/model"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
	}
}

// Register 注册约束，同类型约束会被替换
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 硬约束在前，同类别按优先级
	sort.SliceStable(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Priority() < cj.Priority()
	})
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// CanAssign 检查硬约束，返回第一个不满足的原因
func (m *Manager) CanAssign(state *State, p *Placement) (bool, string) {
	for _, c := range m.GetByCategory(CategoryHard) {
		if v := c.Check(state, p); !v.OK {
			return false, fmt.Sprintf("%s: %s", c.Name(), v.Reason)
		}
	}
	return true, ""
}

// Evaluate 检查软约束，返回需要记录的违反
func (m *Manager) Evaluate(state *State, p *Placement) []model.Violation {
	var out []model.Violation
	for _, c := range m.GetByCategory(CategorySoft) {
		v := c.Check(state, p)
		if v.OK {
			continue
		}
		out = append(out, model.Violation{
			Type:    model.ViolationType(c.Type()),
			Message: v.Reason,
			Details: v.Details,
		})
	}
	return out
}

// Summary 返回硬约束、软约束数量摘要
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hard := 0
	soft := 0
	for _, c := range m.constraints {
		if c.Category() == CategoryHard {
			hard++
		} else {
			soft++
		}
	}

	return map[string]interface{}{
		"total": len(m.constraints),
		"hard":  hard,
		"soft":  soft,
	}
}
