package core

// CEFR proficiency levels, ordered from beginner to mastery. A student's
// level gates which curriculum weeks and scheduled classes apply to them.
const (
	LevelA1 = "A1"
	LevelA2 = "A2"
	LevelB1 = "B1"
	LevelB2 = "B2"
	LevelC1 = "C1"
	LevelC2 = "C2"
)

var Levels = []string{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

func IsValidLevel(level string) bool {
	for _, l := range Levels {
		if l == level {
			return true
		}
	}
	return false
}
