package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"strings"

	"resume_rewards/internal/domain"
	"resume_rewards/internal/logger"
	"resume_rewards/internal/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	referralSuffixLen  = 6
	referralPrefixLen  = 6
	referralMaxRetries = 5
	referralAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type ReferralService struct {
	store   repository.LedgerStore
	economy *EconomyService
	log     *slog.Logger
}

func NewReferralService(store repository.LedgerStore, economy *EconomyService) *ReferralService {
	return &ReferralService{store: store, economy: economy, log: logger.With("component", "referral")}
}

// GenerateCode returns the account's code, creating it on first use from
// the name plus random characters. Collisions are retried.
func (s *ReferralService) GenerateCode(ctx context.Context, accountID uuid.UUID) (string, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if acc.ReferralCode != "" {
		return acc.ReferralCode, nil
	}

	prefix := referralPrefix(acc.Name)
	for i := 0; i < referralMaxRetries; i++ {
		code := prefix + randomSuffix()
		got, err := s.store.SetReferralCode(ctx, accountID, code)
		if err == nil {
			return got, nil
		}
		if !errors.Is(err, domain.ErrReferralCodeTaken) {
			return "", err
		}
		s.log.Debug("referral code collision", "account_id", accountID, "attempt", i+1)
	}
	return "", domain.ErrReferralCodeTaken
}

// ReferralOutcome is reported rather than returned as an error, since a bad
// code must not block sign-up. Err is the rejection behind Reason.
type ReferralOutcome struct {
	Applied      bool          `json:"applied"`
	ReferrerID   uuid.UUID     `json:"referrer_id,omitempty"`
	ReferrerName string        `json:"referrer_name,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	Credit       *CreditResult `json:"-"`
	Err          error         `json:"-"`
}

func rejected(err error) *ReferralOutcome {
	return &ReferralOutcome{Reason: err.Error(), Err: err}
}

// ApplyCode links newAccountID to the owner of code and credits the
// owner. The account must be inside its sign-up window, and two accounts
// cannot refer each other. Only storage failures are returned as errors.
func (s *ReferralService) ApplyCode(ctx context.Context, newAccountID uuid.UUID, code string) (*ReferralOutcome, error) {
	code = NormalizeReferralCode(code)
	if code == "" {
		return rejected(domain.ErrInvalidCode), nil
	}

	referred, err := s.store.GetAccount(ctx, newAccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return rejected(err), nil
	}
	if err != nil {
		return nil, err
	}
	if referred.ReferredBy != nil {
		return rejected(domain.ErrAlreadyReferred), nil
	}
	if !referred.CanApplyReferral(s.economy.clock()) {
		return rejected(domain.ErrReferralClosed), nil
	}

	referrer, err := s.store.FindByReferralCode(ctx, code)
	if errors.Is(err, domain.ErrInvalidCode) {
		return rejected(domain.ErrInvalidCode), nil
	}
	if err != nil {
		return nil, err
	}

	res, err := s.economy.CreditReferral(ctx, referrer.ID, newAccountID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSelfReferral), errors.Is(err, domain.ErrAlreadyReferred),
		errors.Is(err, domain.ErrMutualReferral), errors.Is(err, domain.ErrAccountNotFound):
		out := rejected(err)
		out.ReferrerID, out.ReferrerName = referrer.ID, referrer.Name
		return out, nil
	default:
		return nil, err
	}

	s.log.Info("referral applied", "referrer_id", referrer.ID, "referred_id", newAccountID)
	return &ReferralOutcome{Applied: true, ReferrerID: referrer.ID, ReferrerName: referrer.Name, Credit: res}, nil
}

func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// referralPrefix keeps the first letters of the name, e.g. "Ann Lee" -> "ANNLEE".
func referralPrefix(name string) string {
	p := strings.ToUpper(strings.ReplaceAll(slug.Make(name), "-", ""))
	if len(p) > referralPrefixLen {
		p = p[:referralPrefixLen]
	}
	if p == "" {
		p = "USER"
	}
	return p
}

func randomSuffix() string {
	var b strings.Builder
	max := big.NewInt(int64(len(referralAlphabet)))
	for i := 0; i < referralSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b.WriteByte(referralAlphabet[n.Int64()])
	}
	return b.String()
}
