package repository

import (
	"context"
	"errors"

	"resume_rewards/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// SetCode stores the code only if the account has none and returns the
// code now in effect. A code owned by another account is ErrReferralCodeTaken.
func (r *ReferralRepository) SetCode(ctx context.Context, accountID uuid.UUID, code string) (string, error) {
	var current string
	err := r.db.QueryRow(ctx,
		`UPDATE accounts SET referral_code = $2
		 WHERE id = $1 AND referral_code IS NULL
		 RETURNING referral_code`,
		accountID, code,
	).Scan(&current)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", mapConstraint(err)
	}

	// Either the account is unknown or it already has a code.
	var existing *string
	err = r.db.QueryRow(ctx, `SELECT referral_code FROM accounts WHERE id = $1`, accountID).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrAccountNotFound
	}
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", domain.ErrConcurrentUpdate
	}
	return *existing, nil
}

// CreateWithTx links referrer and referred inside the caller's transaction.
// The referred account can be linked once and never back to its own referred.
// The referrer row is already locked by the caller, so a crossing link in
// another transaction deadlocks and is retried instead of committing both.
func (r *ReferralRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, link *domain.ReferralLink) error {
	var referrerOf *uuid.UUID
	if err := tx.QueryRow(ctx,
		`SELECT referred_by FROM accounts WHERE id = $1`, link.ReferrerID,
	).Scan(&referrerOf); err != nil {
		return err
	}
	if referrerOf != nil && *referrerOf == link.ReferredID {
		return domain.ErrMutualReferral
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO referrals (referrer_id, referred_id, created_at) VALUES ($1, $2, $3)`,
		link.ReferrerID, link.ReferredID, link.CreatedAt,
	); err != nil {
		return mapConstraint(err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE accounts SET referred_by = $1 WHERE id = $2 AND referred_by IS NULL`,
		link.ReferrerID, link.ReferredID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyReferred
	}
	return nil
}
