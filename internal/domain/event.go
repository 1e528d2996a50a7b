package domain

import "github.com/google/uuid"

// LedgerEvent is pushed to an account's live subscribers after a commit.
type LedgerEvent struct {
	Type        string       `json:"type"`
	AccountID   uuid.UUID    `json:"account_id"`
	Balance     int64        `json:"balance"`
	Level       Level        `json:"level"`
	LeveledUp   bool         `json:"leveled_up"`
	NewBadges   []Badge      `json:"new_badges,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

const (
	EventBalanceChanged = "balance_changed"
	EventTemplateUnlock = "template_unlocked"
	EventBadgeEarned    = "badge_earned"
)
