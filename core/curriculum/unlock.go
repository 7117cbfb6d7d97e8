package curriculum

import "sort"

// WeekStatus is the unlock state of one sequential week for one student.
type WeekStatus string

const (
	WeekCompleted WeekStatus = "completed"
	WeekCurrent   WeekStatus = "current"
	WeekLocked    WeekStatus = "locked"
)

// WeekSet is a set of completed week numbers.
type WeekSet map[int]struct{}

func NewWeekSet(nums ...int) WeekSet {
	set := make(WeekSet, len(nums))
	for _, n := range nums {
		set[n] = struct{}{}
	}
	return set
}

func (s WeekSet) Has(n int) bool {
	_, ok := s[n]
	return ok
}

// SplitReinforcement partitions weeks into the sequential program and the
// remedial range, preserving order.
func SplitReinforcement(weeks []ProgramWeek) (regular, reinforcement []ProgramWeek) {
	for _, w := range weeks {
		if w.IsReinforcement() {
			reinforcement = append(reinforcement, w)
		} else {
			regular = append(regular, w)
		}
	}
	return regular, reinforcement
}

// CurrentWeek computes the week a student should be working on: the lowest
// week number in the level's sequence that is not completed. A student
// without a level, or a level without sequential weeks, has no current week
// and gets 0. When every week is completed the last week stays current.
// Reinforcement weeks never participate.
func CurrentWeek(level string, weeks []ProgramWeek, completed WeekSet) int {
	if level == "" {
		return 0
	}
	var nums []int
	for _, w := range weeks {
		if w.Level == level && !w.IsReinforcement() {
			nums = append(nums, w.WeekNumber)
		}
	}
	if len(nums) == 0 {
		return 0
	}
	sort.Ints(nums)
	for _, n := range nums {
		if !completed.Has(n) {
			return n
		}
	}
	return nums[len(nums)-1]
}

// StatusOf classifies one sequential week. Completion wins over currency, and
// everything else is locked, including weeks below current that were skipped.
func StatusOf(weekNumber, currentWeek int, completed WeekSet) WeekStatus {
	switch {
	case completed.Has(weekNumber):
		return WeekCompleted
	case weekNumber == currentWeek:
		return WeekCurrent
	default:
		return WeekLocked
	}
}
