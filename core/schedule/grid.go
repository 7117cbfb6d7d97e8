package schedule

import "github.com/lingora/backend/core"

// Grid computes overlay positions for events rendered on the weekly time
// grid. All methods are pure; they run on every pointer move during a drag
// and must stay cheap.
type Grid struct {
	StartHour     int // first hour shown on the grid, e.g. 7
	EndHour       int // last hour shown (exclusive upper bound of selectable cells)
	SlotMinutes   int // grid row granularity, e.g. 30
	DayCount      int // 6 or 7 depending on whether Sunday is shown
	PixelsPerSlot int
}

func NewGrid(conf core.GridConfig) Grid {
	return Grid{
		StartHour:     conf.StartHour,
		EndHour:       conf.EndHour,
		SlotMinutes:   conf.SlotMinutes,
		DayCount:      conf.DayCount,
		PixelsPerSlot: conf.PixelsPerSlot,
	}
}

// ContainsSlot reports whether the cell is selectable on this grid.
func (g Grid) ContainsSlot(s Slot) bool {
	return s.Day >= 0 && s.Day < g.DayCount && s.Hour >= g.StartHour && s.Hour < g.EndHour
}

// TopOffset returns the pixel offset of start from the top of the grid.
// Times before the grid start clamp to 0 rather than producing negative
// offsets that would break absolute positioning.
func (g Grid) TopOffset(start string) (int, error) {
	hour, minute, err := ParseTimeHM(start)
	if err != nil {
		return 0, err
	}
	slots := (hour-g.StartHour)*(60/g.SlotMinutes) + minute/g.SlotMinutes
	if slots < 0 {
		return 0, nil
	}
	return slots * g.PixelsPerSlot, nil
}

// Height returns the rendered pixel height of an event, never less than one
// slot regardless of stored duration (bad data may carry zero or negative
// durations).
func (g Grid) Height(start, end string) (int, error) {
	startMin, err := MinutesOfDay(start)
	if err != nil {
		return 0, err
	}
	endMin, err := MinutesOfDay(end)
	if err != nil {
		return 0, err
	}
	px := (endMin - startMin) * g.PixelsPerSlot / g.SlotMinutes
	if px < g.PixelsPerSlot {
		return g.PixelsPerSlot, nil
	}
	return px, nil
}

// CellsInRectangle returns every cell inside the rectangle spanned by the two
// corners of a drag gesture, both corners inclusive on the day and hour axes.
func (g Grid) CellsInRectangle(anchor, cursor Slot) SlotSet {
	dayLo, dayHi := minMax(anchor.Day, cursor.Day)
	hourLo, hourHi := minMax(anchor.Hour, cursor.Hour)

	set := make(SlotSet, (dayHi-dayLo+1)*(hourHi-hourLo+1))
	for day := dayLo; day <= dayHi; day++ {
		for hour := hourLo; hour <= hourHi; hour++ {
			set.Add(Slot{Day: day, Hour: hour})
		}
	}
	return set
}

func minMax(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
