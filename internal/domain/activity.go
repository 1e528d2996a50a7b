package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityKind - тип записи ленты активности
type ActivityKind string

const (
	ActivitySignup           ActivityKind = "signup"
	ActivityProfileComplete  ActivityKind = "profile-complete"
	ActivityResumeCreated    ActivityKind = "resume-created"
	ActivityResumeDownloaded ActivityKind = "resume-downloaded"
	ActivitySocialFollow     ActivityKind = "social-follow"
	ActivityReferral         ActivityKind = "referral"
	ActivityDailyLogin       ActivityKind = "daily-login"
	ActivityLevelUp          ActivityKind = "level-up"
	ActivityBadgeEarned      ActivityKind = "badge-earned"
	ActivityAISuggestion     ActivityKind = "ai-suggestion"
	ActivityTemplateUnlocked ActivityKind = "template-unlocked"
	ActivityPointsAdjusted   ActivityKind = "points-adjusted"
	ActivityPointsRefunded   ActivityKind = "points-refunded"
)

// Activity is a display-oriented feed entry. Append-only.
type Activity struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	AccountID   uuid.UUID      `db:"account_id" json:"account_id"`
	Kind        ActivityKind   `db:"type" json:"type"`
	Points      int64          `db:"points" json:"points"`
	Description string         `db:"description" json:"description"`
	Metadata    map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

func NewActivity(accountID uuid.UUID, kind ActivityKind, points int64, description string, meta map[string]any, now time.Time) Activity {
	return Activity{
		ID:          uuid.New(),
		AccountID:   accountID,
		Kind:        kind,
		Points:      points,
		Description: description,
		Metadata:    meta,
		CreatedAt:   now,
	}
}

// ActivityPage is one page of an account's activity feed.
type ActivityPage struct {
	Activities []Activity `json:"activities"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}
