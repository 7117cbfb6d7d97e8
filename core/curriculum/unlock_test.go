package curriculum

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seqWeeks(level string, nums ...int) []ProgramWeek {
	weeks := make([]ProgramWeek, 0, len(nums))
	for _, n := range nums {
		weeks = append(weeks, ProgramWeek{
			ID:         fmt.Sprintf("%s-%d", level, n),
			WeekNumber: n,
			Level:      level,
			Title:      fmt.Sprintf("Week %d", n),
		})
	}
	return weeks
}

func TestCurrentWeek(t *testing.T) {
	a1 := seqWeeks("A1", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)

	tests := []struct {
		name      string
		level     string
		weeks     []ProgramWeek
		completed WeekSet
		want      int
	}{
		{"no level", "", a1, NewWeekSet(1, 2), 0},
		{"no weeks for level", "B2", a1, NewWeekSet(), 0},
		{"nothing completed", "A1", a1, NewWeekSet(), 1},
		{"first three completed", "A1", a1, NewWeekSet(1, 2, 3), 4},
		{"gap stays at lowest incomplete", "A1", a1, NewWeekSet(1, 3, 4), 2},
		{"all completed stays at last", "A1", a1, NewWeekSet(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12), 12},
		{"unordered input", "A1", []ProgramWeek{a1[4], a1[0], a1[2], a1[1], a1[3]}, NewWeekSet(1, 2), 3},
		{
			"reinforcement week never affects unlocking",
			"A1",
			append(seqWeeks("A1", 101, 102), a1...),
			NewWeekSet(1, 2, 3, 101),
			4,
		},
		{
			"only reinforcement weeks",
			"A1",
			seqWeeks("A1", 101, 102),
			NewWeekSet(101),
			0,
		},
		{
			"other level weeks ignored",
			"A1",
			append(seqWeeks("B1", 1, 2), a1...),
			NewWeekSet(1, 2, 3),
			4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentWeek(tt.level, tt.weeks, tt.completed))
		})
	}
}

func TestStatusOf(t *testing.T) {
	completed := NewWeekSet(1, 2, 3)
	current := 4

	assert.Equal(t, WeekCompleted, StatusOf(2, current, completed))
	assert.Equal(t, WeekCurrent, StatusOf(4, current, completed))
	assert.Equal(t, WeekLocked, StatusOf(5, current, completed))
	assert.Equal(t, WeekLocked, StatusOf(12, current, completed))

	// a skipped week below current is locked, not implicitly open
	gappy := NewWeekSet(1, 3)
	assert.Equal(t, WeekLocked, StatusOf(4, 2, gappy))
	assert.Equal(t, WeekCurrent, StatusOf(2, 2, gappy))
	assert.Equal(t, WeekCompleted, StatusOf(3, 2, gappy))
}

func TestStatusOfIsThreeState(t *testing.T) {
	completed := NewWeekSet(1, 2)
	for n := 1; n <= 12; n++ {
		status := StatusOf(n, 3, completed)
		assert.Contains(t, []WeekStatus{WeekCompleted, WeekCurrent, WeekLocked}, status)
	}
}

func TestSplitReinforcement(t *testing.T) {
	weeks := append(seqWeeks("A1", 1, 2, 3), seqWeeks("A1", 100, 101)...)
	regular, reinforcement := SplitReinforcement(weeks)

	assert.Len(t, regular, 3)
	assert.Len(t, reinforcement, 2)
	for _, w := range regular {
		assert.False(t, w.IsReinforcement())
	}
	for _, w := range reinforcement {
		assert.True(t, w.IsReinforcement())
	}
}
