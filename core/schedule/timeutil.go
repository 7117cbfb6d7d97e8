package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidTimeFormat is returned for wall-clock strings that are not valid
// "HH:MM" (or "HH:MM:SS", as TIME columns come back from the DB).
var ErrInvalidTimeFormat = errors.New("invalid time format, want HH:MM")

// ParseTimeHM parses "HH:MM" or "HH:MM:SS" into hour and minute;
// the seconds component is ignored.
func ParseTimeHM(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, errors.Wrap(ErrInvalidTimeFormat, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, errors.Wrap(ErrInvalidTimeFormat, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, errors.Wrap(ErrInvalidTimeFormat, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, errors.Wrap(ErrInvalidTimeFormat, s)
	}
	return hour, minute, nil
}

// MinutesOfDay converts "HH:MM" to minutes since midnight.
func MinutesOfDay(s string) (int, error) {
	h, m, err := ParseTimeHM(s)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// FormatHour renders a whole hour as "HH:00".
func FormatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}
