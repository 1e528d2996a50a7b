package domain

import "time"

// BadgeRule - правило выдачи значка по текущей статистике
type BadgeRule struct {
	Name        string
	Icon        string
	Description string
	Earned      func(a *Account) bool
}

var BadgeRules = []BadgeRule{
	{
		Name:        "First Resume",
		Icon:        "📄",
		Description: "Created your first resume",
		Earned:      func(a *Account) bool { return a.Stats.ResumesCreated >= 1 },
	},
	{
		Name:        "Resume Master",
		Icon:        "🏆",
		Description: "Created 10 resumes",
		Earned:      func(a *Account) bool { return a.Stats.ResumesCreated >= 10 },
	},
	{
		Name:        "First Download",
		Icon:        "⬇️",
		Description: "Downloaded your first resume",
		Earned:      func(a *Account) bool { return a.Stats.ResumesDownloaded >= 1 },
	},
	{
		Name:        "Download Expert",
		Icon:        "📥",
		Description: "Downloaded 5 resumes",
		Earned:      func(a *Account) bool { return a.Stats.ResumesDownloaded >= 5 },
	},
	{
		Name:        "Social Connector",
		Icon:        "🤝",
		Description: "Followed us on every platform",
		Earned:      func(a *Account) bool { return a.FollowsAll() },
	},
	{
		Name:        "Influencer",
		Icon:        "🌟",
		Description: "Referred 3 friends",
		Earned:      func(a *Account) bool { return len(a.Referrals) >= 3 },
	},
}

// EvaluateBadges appends every badge whose rule holds and which the account
// does not have yet, and returns the newly added ones. Safe to re-run.
func EvaluateBadges(a *Account, now time.Time) []Badge {
	var earned []Badge
	for _, rule := range BadgeRules {
		if a.HasBadge(rule.Name) || !rule.Earned(a) {
			continue
		}
		b := Badge{Name: rule.Name, Icon: rule.Icon, EarnedAt: now}
		a.Badges = append(a.Badges, b)
		earned = append(earned, b)
	}
	return earned
}
