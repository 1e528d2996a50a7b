package domain

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Period - окно лидерборда
type Period string

const (
	PeriodAll     Period = "all"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodAll:
		return PeriodAll, nil
	case PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	}
	return "", ErrUnknownPeriod
}

// Since is the start of the rolling window, nil for the all-time board
// which ranks by current balance instead of points earned.
func (p Period) Since(now time.Time) *time.Time {
	var since time.Time
	switch p {
	case PeriodWeekly:
		since = now.AddDate(0, 0, -7)
	case PeriodMonthly:
		since = now.AddDate(0, -1, 0)
	default:
		return nil
	}
	return &since
}

// Standing is one account's score for a period.
type Standing struct {
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
	Level     Level     `json:"level"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type RankedStanding struct {
	Rank int `json:"rank"`
	Standing
}

// SortStandings orders by score desc, then earliest account, then id.
func SortStandings(s []Standing) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.Before(s[j].CreatedAt)
		}
		return bytes.Compare(s[i].AccountID[:], s[j].AccountID[:]) < 0
	})
}

// AssignRanks sorts and ranks standings. Equal scores share a rank; the next
// lower score gets its 1-based position, so [500 300 300 100] ranks
// [1 2 2 4]. For a list that starts at the top this equals
// 1 + number of strictly greater scores.
func AssignRanks(standings []Standing) []RankedStanding {
	SortStandings(standings)
	out := make([]RankedStanding, len(standings))
	for i, s := range standings {
		rank := i + 1
		if i > 0 && s.Score == standings[i-1].Score {
			rank = out[i-1].Rank
		}
		out[i] = RankedStanding{Rank: rank, Standing: s}
	}
	return out
}
