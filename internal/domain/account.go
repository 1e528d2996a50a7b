package domain

import (
	"time"

	"github.com/google/uuid"
)

// SocialPlatform - платформа, за подписку на которую начисляются очки
type SocialPlatform string

const (
	PlatformLinkedIn  SocialPlatform = "linkedin"
	PlatformTwitter   SocialPlatform = "twitter"
	PlatformGitHub    SocialPlatform = "github"
	PlatformInstagram SocialPlatform = "instagram"
)

// SocialPlatforms lists every platform a follow bonus exists for.
var SocialPlatforms = []SocialPlatform{
	PlatformLinkedIn,
	PlatformTwitter,
	PlatformGitHub,
	PlatformInstagram,
}

// ParseSocialPlatform validates a platform name.
func ParseSocialPlatform(s string) (SocialPlatform, error) {
	for _, p := range SocialPlatforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", ErrUnknownPlatform
}

// Account is the economic state of one user.
type Account struct {
	ID            uuid.UUID               `db:"id" json:"id"`
	Name          string                  `db:"name" json:"name"`
	Email         string                  `db:"email" json:"email,omitempty"`
	Balance       int64                   `db:"balance" json:"balance"`
	Level         Level                   `db:"level" json:"level"`
	Badges        []Badge                 `json:"badges"`
	Unlocks       []TemplateUnlock        `json:"unlocked_templates"`
	SocialFollows map[SocialPlatform]bool `db:"social_follows" json:"social_follows"`
	ReferralCode  string                  `db:"referral_code" json:"referral_code,omitempty"`
	ReferredBy    *uuid.UUID              `db:"referred_by" json:"referred_by,omitempty"`
	Referrals     []uuid.UUID             `json:"referrals"`
	Stats         Stats                   `json:"stats"`
	CreatedAt     time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time               `db:"updated_at" json:"updated_at"`
}

// Stats - накопительная статистика аккаунта
type Stats struct {
	ResumesCreated    int        `db:"resumes_created" json:"resumes_created"`
	ResumesDownloaded int        `db:"resumes_downloaded" json:"resumes_downloaded"`
	TotalPointsEarned int64      `db:"total_points_earned" json:"total_points_earned"`
	TotalPointsSpent  int64      `db:"total_points_spent" json:"total_points_spent"`
	ProfileCompleted  bool       `db:"profile_completed" json:"profile_completed"`
	FirstResumeBonus  bool       `db:"first_resume_bonus" json:"first_resume_bonus"`
	SignupBonus       bool       `db:"signup_bonus" json:"signup_bonus"`
	LoginStreak       int        `db:"login_streak" json:"login_streak"`
	LastLoginAt       *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// Badge is a permanent achievement. Name is unique per account.
type Badge struct {
	Name     string    `db:"name" json:"name"`
	Icon     string    `db:"icon" json:"icon"`
	EarnedAt time.Time `db:"earned_at" json:"earned_at"`
}

// TemplateUnlock records a one-time template purchase.
type TemplateUnlock struct {
	TemplateID string    `db:"template_id" json:"template_id"`
	Cost       int64     `db:"cost" json:"cost"`
	UnlockedAt time.Time `db:"unlocked_at" json:"unlocked_at"`
}

// NewAccount returns a fresh Bronze account with zero balance.
func NewAccount(name, email string, now time.Time) *Account {
	return &Account{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		Level:         LevelBronze,
		Badges:        []Badge{},
		Unlocks:       []TemplateUnlock{},
		SocialFollows: map[SocialPlatform]bool{},
		Referrals:     []uuid.UUID{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy, so a mutation plan can work on it without
// touching the stored value.
func (a *Account) Clone() *Account {
	c := *a
	c.Badges = append([]Badge(nil), a.Badges...)
	c.Unlocks = append([]TemplateUnlock(nil), a.Unlocks...)
	c.Referrals = append([]uuid.UUID(nil), a.Referrals...)
	c.SocialFollows = make(map[SocialPlatform]bool, len(a.SocialFollows))
	for k, v := range a.SocialFollows {
		c.SocialFollows[k] = v
	}
	if a.ReferredBy != nil {
		ref := *a.ReferredBy
		c.ReferredBy = &ref
	}
	if a.Stats.LastLoginAt != nil {
		t := *a.Stats.LastLoginAt
		c.Stats.LastLoginAt = &t
	}
	return &c
}

func (a *Account) HasBadge(name string) bool {
	for _, b := range a.Badges {
		if b.Name == name {
			return true
		}
	}
	return false
}

func (a *Account) IsUnlocked(templateID string) bool {
	for _, u := range a.Unlocks {
		if u.TemplateID == templateID {
			return true
		}
	}
	return false
}

// FollowsAll reports whether every known social platform flag is set.
func (a *Account) FollowsAll() bool {
	for _, p := range SocialPlatforms {
		if !a.SocialFollows[p] {
			return false
		}
	}
	return true
}

// ReferralWindow is how long after sign-up an account may apply a code.
const ReferralWindow = 24 * time.Hour

// CanApplyReferral reports whether the account is new enough to be referred.
func (a *Account) CanApplyReferral(now time.Time) bool {
	return a.ReferredBy == nil && now.Sub(a.CreatedAt) < ReferralWindow
}

// Progress returns the percentage towards the next level (100 at Diamond).
func (a *Account) Progress() int {
	return ProgressToNextLevel(a.Balance)
}
