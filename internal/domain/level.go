package domain

// Level - уровень аккаунта, зависит только от текущего баланса
type Level string

const (
	LevelBronze   Level = "Bronze"
	LevelSilver   Level = "Silver"
	LevelGold     Level = "Gold"
	LevelPlatinum Level = "Platinum"
	LevelDiamond  Level = "Diamond"
)

// levelThresholds are ascending; a level covers [Min, next.Min).
var levelThresholds = []struct {
	Level Level
	Min   int64
}{
	{LevelBronze, 0},
	{LevelSilver, 100},
	{LevelGold, 300},
	{LevelPlatinum, 600},
	{LevelDiamond, 1000},
}

// LevelForBalance derives the level from the current balance.
func LevelForBalance(balance int64) Level {
	level := LevelBronze
	for _, t := range levelThresholds {
		if balance >= t.Min {
			level = t.Level
		}
	}
	return level
}

// Rank is the ordinal of the level (Bronze = 0). Unknown levels rank -1.
func (l Level) Rank() int {
	for i, t := range levelThresholds {
		if t.Level == l {
			return i
		}
	}
	return -1
}

func (l Level) Valid() bool {
	return l.Rank() >= 0
}

// Next returns the following level and the balance needed to reach it.
// ok is false for Diamond.
func (l Level) Next() (next Level, threshold int64, ok bool) {
	r := l.Rank()
	if r < 0 || r+1 >= len(levelThresholds) {
		return "", 0, false
	}
	t := levelThresholds[r+1]
	return t.Level, t.Min, true
}

// ProgressToNextLevel is balance / nextThreshold * 100, or 100 at Diamond.
func ProgressToNextLevel(balance int64) int {
	_, threshold, ok := LevelForBalance(balance).Next()
	if !ok {
		return 100
	}
	if balance <= 0 {
		return 0
	}
	return int(balance * 100 / threshold)
}
