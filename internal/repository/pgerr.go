package repository

import (
	"context"
	"errors"
	"time"

	"resume_rewards/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUndefinedTable       = "42P01"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func pgCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isSerializationError(err error) bool {
	code, _ := pgCode(err)
	return code == pgSerializationFailure || code == pgDeadlockDetected
}

// mapConstraint turns known constraint violations into domain errors.
func mapConstraint(err error) error {
	code, constraint := pgCode(err)
	switch code {
	case pgUniqueViolation:
		switch constraint {
		case "template_unlocks_pkey":
			return domain.ErrAlreadyUnlocked
		case "uniq_transactions_refund":
			return domain.ErrAlreadyRefunded
		case "referrals_referred_id_key":
			return domain.ErrAlreadyReferred
		case "accounts_referral_code_key":
			return domain.ErrReferralCodeTaken
		}
	case pgForeignKeyViolation:
		return domain.ErrAccountNotFound
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry reruns fn on serialization failures and deadlocks, backing off
// between attempts. Any other error is returned as is.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := 25 * time.Millisecond
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil || !isSerializationError(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
	return domain.ErrConcurrentUpdate
}
