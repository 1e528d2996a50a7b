package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrAlreadyClaimed      = errors.New("already claimed")
	ErrAlreadyUnlocked     = errors.New("template already unlocked")
	ErrAlreadyFree         = errors.New("template is free")
	ErrTemplateLocked      = errors.New("template is locked")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrInvalidCode         = errors.New("invalid referral code")
	ErrAlreadyReferred     = errors.New("account already referred")
	ErrSelfReferral        = errors.New("cannot use own referral code")
	ErrMutualReferral      = errors.New("accounts cannot refer each other")
	ErrReferralClosed      = errors.New("referral codes can only be applied right after sign-up")
	ErrReferralCodeTaken   = errors.New("referral code already taken")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnknownActivity     = errors.New("unknown activity type")
	ErrUnknownPlatform     = errors.New("unknown social platform")
	ErrUnknownPeriod       = errors.New("unknown leaderboard period")
	ErrNotCreditable       = errors.New("activity cannot be requested directly")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotRefundable       = errors.New("transaction is not refundable")
	ErrAlreadyRefunded     = errors.New("transaction already refunded")
	ErrConcurrentUpdate    = errors.New("concurrent update, retries exhausted")
)

// InsufficientPointsError carries what a "not enough points" screen needs.
type InsufficientPointsError struct {
	Balance  int64 `json:"current_balance"`
	Required int64 `json:"required"`
}

func (e *InsufficientPointsError) Shortfall() int64 {
	return e.Required - e.Balance
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: balance %d, required %d, short by %d", e.Balance, e.Required, e.Shortfall())
}

func (e *InsufficientPointsError) Is(target error) bool {
	return target == ErrInsufficientPoints
}
