package service

import (
	"context"
	"errors"
	"strings"

	"resume_rewards/internal/domain"
	"resume_rewards/internal/logger"
	"resume_rewards/internal/repository"

	"github.com/google/uuid"
)

// OnboardingService opens accounts: create, signup bonus, referral code.
type OnboardingService struct {
	store     repository.LedgerStore
	economy   *EconomyService
	referrals *ReferralService
}

func NewOnboardingService(store repository.LedgerStore, economy *EconomyService, referrals *ReferralService) *OnboardingService {
	return &OnboardingService{store: store, economy: economy, referrals: referrals}
}

type OpenAccountResult struct {
	Account       *domain.Account  `json:"account"`
	Signup        *CreditResult    `json:"signup_bonus"`
	SignupPending bool             `json:"signup_pending,omitempty"`
	Referral      *ReferralOutcome `json:"referral,omitempty"`
}

// OpenAccount creates an account, credits the signup bonus and applies an
// optional referral code. An invalid code is reported in the result.
// Creating the account and paying the bonus are separate commits: if the
// bonus fails the account is still returned with SignupPending set, and
// CompleteSignup pays it later.
func (s *OnboardingService) OpenAccount(ctx context.Context, name, email, referralCode string) (*OpenAccountResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}

	acc := domain.NewAccount(name, strings.TrimSpace(email), s.economy.clock())
	err := s.store.CreateAccount(ctx, acc)
	if err != nil {
		return nil, err
	}
	logger.Info("account opened", "account_id", acc.ID)

	res := &OpenAccountResult{}
	if res.Signup, err = s.economy.Credit(ctx, acc.ID, domain.EarnSignup, nil); err != nil {
		logger.Warn("signup bonus deferred", "account_id", acc.ID, "error", err)
		res.SignupPending = true
	}

	if _, err := s.referrals.GenerateCode(ctx, acc.ID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(referralCode) != "" {
		outcome, err := s.referrals.ApplyCode(ctx, acc.ID, referralCode)
		if err != nil {
			return nil, err
		}
		res.Referral = outcome
	}

	if res.Account, err = s.store.GetAccount(ctx, acc.ID); err != nil {
		return nil, err
	}
	return res, nil
}

// CompleteSignup pays a signup bonus that OpenAccount could not commit.
// It returns nil when the bonus was already paid.
func (s *OnboardingService) CompleteSignup(ctx context.Context, accountID uuid.UUID) (*CreditResult, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.Stats.SignupBonus {
		return nil, nil
	}
	res, err := s.economy.Credit(ctx, accountID, domain.EarnSignup, nil)
	if errors.Is(err, domain.ErrAlreadyClaimed) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info("deferred signup bonus paid", "account_id", accountID)
	return res, nil
}
