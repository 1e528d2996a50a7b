package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType - тип операции в журнале
type TransactionType string

const (
	TxEarnSignup          TransactionType = "earn-signup"
	TxEarnProfileComplete TransactionType = "earn-profile-complete"
	TxEarnResumeCreated   TransactionType = "earn-resume-created"
	TxEarnSocialFollow    TransactionType = "earn-social-follow"
	TxEarnReferral        TransactionType = "earn-referral"
	TxEarnDailyLogin      TransactionType = "earn-daily-login"
	TxEarnLevelUp         TransactionType = "earn-level-up"
	TxSpendDownload       TransactionType = "spend-download"
	TxSpendAISuggestion   TransactionType = "spend-ai-suggestion"
	TxSpendTemplateUnlock TransactionType = "spend-template-unlock"
	TxPurchase            TransactionType = "purchase"
	TxRefund              TransactionType = "refund"
	TxAdminAdjustment     TransactionType = "admin-adjustment"
)

// IsEarning reports whether the type counts towards period leaderboards.
func (t TransactionType) IsEarning() bool {
	return strings.HasPrefix(string(t), "earn-")
}

// IsSpending reports whether the type is a user spend.
func (t TransactionType) IsSpending() bool {
	return strings.HasPrefix(string(t), "spend-")
}

// TransactionStatus - статус записи журнала
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusRefunded  TransactionStatus = "refunded"
)

// Transaction is an immutable record of one balance mutation.
// BalanceAfter always equals BalanceBefore + Amount.
type Transaction struct {
	ID                   uuid.UUID         `db:"id" json:"id"`
	AccountID            uuid.UUID         `db:"account_id" json:"account_id"`
	Type                 TransactionType   `db:"type" json:"type"`
	Amount               int64             `db:"amount" json:"amount"`
	BalanceBefore        int64             `db:"balance_before" json:"balance_before"`
	BalanceAfter         int64             `db:"balance_after" json:"balance_after"`
	Status               TransactionStatus `db:"status" json:"status"`
	Description          string            `db:"description" json:"description"`
	Metadata             map[string]any    `db:"metadata" json:"metadata,omitempty"`
	RelatedTransactionID *uuid.UUID        `db:"related_transaction_id" json:"related_transaction_id,omitempty"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
}

// NewTransaction builds a completed record for a balance move from
// before to before+amount.
func NewTransaction(accountID uuid.UUID, txType TransactionType, amount, before int64, description string, meta map[string]any, now time.Time) *Transaction {
	return &Transaction{
		ID:            uuid.New(),
		AccountID:     accountID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  before + amount,
		Status:        TxStatusCompleted,
		Description:   description,
		Metadata:      meta,
		CreatedAt:     now,
	}
}

// Balanced checks the before/after invariant.
func (t *Transaction) Balanced() bool {
	return t.BalanceAfter == t.BalanceBefore+t.Amount
}

// ReferralLink connects a referrer to a newly referred account.
type ReferralLink struct {
	ReferrerID uuid.UUID `db:"referrer_id" json:"referrer_id"`
	ReferredID uuid.UUID `db:"referred_id" json:"referred_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Change is everything one atomic ledger unit writes besides the account
// row itself. The store fills Account with the committed state.
type Change struct {
	Account     *Account
	Transaction *Transaction
	Activities  []Activity
	NewBadges   []Badge
	Unlock      *TemplateUnlock
	Referral    *ReferralLink
}

// Reconciliation compares the stored balance with the transaction log.
type Reconciliation struct {
	AccountID        uuid.UUID `json:"account_id"`
	Balance          int64     `json:"balance"`
	TransactionSum   int64     `json:"transaction_sum"`
	TransactionCount int       `json:"transaction_count"`
	Balanced         bool      `json:"balanced"`
}
