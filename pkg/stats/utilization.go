package stats

import (
	"sort"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/grid"
)

// IdleGapThreshold 超过该分钟数的同日空档计为一次空档
const IdleGapThreshold = 60

// UtilizationMetrics 教室与时段利用情况
type UtilizationMetrics struct {
	RoomsTotal      int            `json:"rooms_total"`
	RoomsUsed       int            `json:"rooms_used"`
	RoomUtilization float64        `json:"room_utilization"` // 使用过的教室占比 (0-1)
	RoomSessions    map[string]int `json:"room_sessions"`
	DailySessions   map[int]int    `json:"daily_sessions"`
	SlotOccupancy   float64        `json:"slot_occupancy"` // 教室时段占用率 (%)
	IdleGaps        []IdleGap      `json:"idle_gaps"`
}

// IdleGap 班级同一天两节课之间的长空档
type IdleGap struct {
	BatchID   string `json:"batch_id"`
	DayOfWeek int    `json:"day_of_week"`
	From      string `json:"from"`
	To        string `json:"to"`
	Minutes   int    `json:"minutes"`
}

// AnalyzeUtilization 分析教室利用率和班级空档
func AnalyzeUtilization(entries []model.TimetableEntry, classrooms []*model.Classroom) *UtilizationMetrics {
	m := &UtilizationMetrics{
		RoomsTotal:    len(classrooms),
		RoomSessions:  make(map[string]int),
		DailySessions: make(map[int]int),
	}

	for _, e := range entries {
		m.RoomSessions[e.ClassroomID]++
		m.DailySessions[e.DayOfWeek]++
	}
	m.RoomsUsed = len(m.RoomSessions)
	m.RoomUtilization = RoomUtilization(entries, len(classrooms))

	if len(classrooms) > 0 {
		occupied := 0
		for _, e := range entries {
			occupied += len(grid.Positions(e.StartTime, e.EndTime))
		}
		m.SlotOccupancy = float64(occupied) / float64(len(classrooms)*grid.WeeklyCapacity) * 100
	}

	m.IdleGaps = IdleGaps(entries)
	return m
}

// RoomUtilization 不同教室数 / 教室总数
func RoomUtilization(entries []model.TimetableEntry, totalRooms int) float64 {
	if totalRooms == 0 {
		return 0
	}
	used := make(map[string]struct{})
	for _, e := range entries {
		used[e.ClassroomID] = struct{}{}
	}
	return float64(len(used)) / float64(totalRooms)
}

type batchDay struct {
	batchID string
	day     int
}

// IdleGaps 找出每个班级同一天相邻课次之间超过阈值的空档
func IdleGaps(entries []model.TimetableEntry) []IdleGap {
	groups := make(map[batchDay][]model.TimetableEntry)
	for _, e := range entries {
		k := batchDay{e.BatchID, e.DayOfWeek}
		groups[k] = append(groups[k], e)
	}

	keys := make([]batchDay, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].batchID != keys[j].batchID {
			return keys[i].batchID < keys[j].batchID
		}
		return keys[i].day < keys[j].day
	})

	var gaps []IdleGap
	for _, k := range keys {
		day := groups[k]
		sort.SliceStable(day, func(i, j int) bool {
			return day[i].StartTime < day[j].StartTime
		})
		for i := 1; i < len(day); i++ {
			prevEnd, err1 := model.ParseClock(day[i-1].EndTime)
			nextStart, err2 := model.ParseClock(day[i].StartTime)
			if err1 != nil || err2 != nil {
				continue
			}
			if gap := nextStart - prevEnd; gap > IdleGapThreshold {
				gaps = append(gaps, IdleGap{
					BatchID:   k.batchID,
					DayOfWeek: k.day,
					From:      day[i-1].EndTime,
					To:        day[i].StartTime,
					Minutes:   gap,
				})
			}
		}
	}
	return gaps
}
