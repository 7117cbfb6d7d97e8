package schedule

import "sort"

// Slot addresses one discrete hour cell on the weekly grid.
type Slot struct {
	Day  int `json:"day_of_week"` // 0 (Sunday) - 6
	Hour int `json:"hour"`
}

// SlotSet is a set of selected hour cells, the in-memory shape of an
// availability selection while it is being edited.
type SlotSet map[Slot]struct{}

func NewSlotSet(slots ...Slot) SlotSet {
	set := make(SlotSet, len(slots))
	for _, s := range slots {
		set[s] = struct{}{}
	}
	return set
}

func (set SlotSet) Add(s Slot)       { set[s] = struct{}{} }
func (set SlotSet) Has(s Slot) bool  { _, ok := set[s]; return ok }
func (set SlotSet) Remove(s Slot)    { delete(set, s) }
func (set SlotSet) Toggle(s Slot) {
	if set.Has(s) {
		set.Remove(s)
	} else {
		set.Add(s)
	}
}

func (set SlotSet) Equal(other SlotSet) bool {
	if len(set) != len(other) {
		return false
	}
	for s := range set {
		if !other.Has(s) {
			return false
		}
	}
	return true
}

// Slots returns the set's members ordered by day then hour.
func (set SlotSet) Slots() []Slot {
	slots := make([]Slot, 0, len(set))
	for s := range set {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Day != slots[j].Day {
			return slots[i].Day < slots[j].Day
		}
		return slots[i].Hour < slots[j].Hour
	})
	return slots
}

// TimeRange is one contiguous stretch of time on a single day of the week;
// the persisted unit of availability.
type TimeRange struct {
	Day       int    `json:"day_of_week"`
	StartTime string `json:"start_time"` // "HH:MM"
	EndTime   string `json:"end_time"`   // "HH:MM", exclusive
}

// MergeSlots collapses a selection of discrete hour cells into the minimal
// list of contiguous TimeRanges. Ranges never span days; the result is
// ordered by day then start time and covers exactly the selected hours.
func MergeSlots(selection SlotSet) []TimeRange {
	byDay := make(map[int][]int)
	for s := range selection {
		byDay[s.Day] = append(byDay[s.Day], s.Hour)
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	ranges := make([]TimeRange, 0, len(days))
	for _, day := range days {
		hours := byDay[day]
		sort.Ints(hours)

		runStart := hours[0]
		runEnd := hours[0]
		for _, h := range hours[1:] {
			if h == runEnd+1 {
				runEnd = h
				continue
			}
			ranges = append(ranges, TimeRange{Day: day, StartTime: FormatHour(runStart), EndTime: FormatHour(runEnd + 1)})
			runStart, runEnd = h, h
		}
		ranges = append(ranges, TimeRange{Day: day, StartTime: FormatHour(runStart), EndTime: FormatHour(runEnd + 1)})
	}
	return ranges
}

// ExpandRanges is the inverse of MergeSlots: it expands stored ranges back
// into the discrete hour cells they cover. Minutes are ignored at the hour
// resolution of the availability grid; hours span [start, end).
func ExpandRanges(ranges []TimeRange) (SlotSet, error) {
	set := make(SlotSet)
	for _, r := range ranges {
		startHour, _, err := ParseTimeHM(r.StartTime)
		if err != nil {
			return nil, err
		}
		endHour, _, err := ParseTimeHM(r.EndTime)
		if err != nil {
			return nil, err
		}
		for h := startHour; h < endHour; h++ {
			set.Add(Slot{Day: r.Day, Hour: h})
		}
	}
	return set, nil
}
