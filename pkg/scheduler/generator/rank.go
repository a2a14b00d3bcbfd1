package generator

import (
	"sort"

	"github.com/paiban/kebiao/pkg/model"
)

// Rank 按得分降序排列
//
// 得分相同时比较未截断的原始得分，仍相同则保持尝试顺序。
func Rank(candidates []*model.Timetable) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Metadata.RawScore > b.Metadata.RawScore
	})
}
