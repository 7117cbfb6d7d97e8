package schedule

import "testing"

func testGrid() Grid {
	return Grid{
		StartHour:     7,
		EndHour:       21,
		SlotMinutes:   30,
		DayCount:      7,
		PixelsPerSlot: 30,
	}
}

func TestGridTopOffset(t *testing.T) {
	grid := testGrid()

	tests := []struct {
		name    string
		start   string
		want    int
		wantErr bool
	}{
		{name: "grid start", start: "07:00", want: 0},
		{name: "one hour in", start: "08:00", want: 60},
		{name: "half slot precision", start: "08:30", want: 90},
		{name: "minutes floor to slot", start: "08:15", want: 60},
		{name: "before grid start clamps to 0", start: "06:00", want: 0},
		{name: "malformed time", start: "noonish", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := grid.TopOffset(tt.start)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TopOffset() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("TopOffset() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGridHeight(t *testing.T) {
	grid := testGrid()

	tests := []struct {
		name       string
		start, end string
		want       int
		wantErr    bool
	}{
		{name: "90 minutes", start: "09:00", end: "10:30", want: 90},
		{name: "one slot", start: "09:00", end: "09:30", want: 30},
		{name: "zero duration floors to one slot", start: "09:00", end: "09:00", want: 30},
		{name: "negative duration floors to one slot", start: "10:00", end: "09:00", want: 30},
		{name: "malformed end", start: "09:00", end: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := grid.Height(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Height() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Height() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGridCellsInRectangle(t *testing.T) {
	grid := testGrid()

	tests := []struct {
		name           string
		anchor, cursor Slot
		want           SlotSet
	}{
		{
			name:   "degenerate single-cell drag",
			anchor: Slot{1, 9},
			cursor: Slot{1, 9},
			want:   NewSlotSet(Slot{1, 9}),
		},
		{
			name:   "3 days by 3 hours",
			anchor: Slot{1, 9},
			cursor: Slot{3, 11},
			want: NewSlotSet(
				Slot{1, 9}, Slot{1, 10}, Slot{1, 11},
				Slot{2, 9}, Slot{2, 10}, Slot{2, 11},
				Slot{3, 9}, Slot{3, 10}, Slot{3, 11},
			),
		},
		{
			name:   "reversed corners span the same rectangle",
			anchor: Slot{3, 11},
			cursor: Slot{1, 9},
			want: NewSlotSet(
				Slot{1, 9}, Slot{1, 10}, Slot{1, 11},
				Slot{2, 9}, Slot{2, 10}, Slot{2, 11},
				Slot{3, 9}, Slot{3, 10}, Slot{3, 11},
			),
		},
		{
			name:   "single day vertical drag",
			anchor: Slot{4, 8},
			cursor: Slot{4, 10},
			want:   NewSlotSet(Slot{4, 8}, Slot{4, 9}, Slot{4, 10}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := grid.CellsInRectangle(tt.anchor, tt.cursor)
			if !got.Equal(tt.want) {
				t.Errorf("CellsInRectangle() = %v, want %v", got, tt.want)
			}
		})
	}
}
