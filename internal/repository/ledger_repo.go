package repository

import (
	"context"
	"errors"
	"time"

	"resume_rewards/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository is the Postgres LedgerStore. Each Apply is one database
// transaction holding the account row lock.
type LedgerRepository struct {
	db           *pgxpool.Pool
	maxRetries   int
	accounts     *AccountRepository
	transactions *TransactionRepository
	activities   *ActivityRepository
	referrals    *ReferralRepository
}

func NewLedgerRepository(db *pgxpool.Pool, maxRetries int) *LedgerRepository {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &LedgerRepository{
		db:           db,
		maxRetries:   maxRetries,
		accounts:     NewAccountRepository(db),
		transactions: NewTransactionRepository(db),
		activities:   NewActivityRepository(db),
		referrals:    NewReferralRepository(db),
	}
}

var _ LedgerStore = (*LedgerRepository)(nil)

func (r *LedgerRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// SchemaVersion reads the row golang-migrate keeps; a database that was
// never migrated reports 0.
func (r *LedgerRepository) SchemaVersion(ctx context.Context) (uint, bool, error) {
	var (
		version int64
		dirty   bool
	)
	err := r.db.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if code, _ := pgCode(err); code == pgUndefinedTable {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return uint(version), dirty, nil
}

func (r *LedgerRepository) CreateAccount(ctx context.Context, acc *domain.Account) error {
	return r.accounts.Create(ctx, acc)
}

func (r *LedgerRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.accounts.GetByID(ctx, id)
}

func (r *LedgerRepository) FindByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	return r.accounts.GetByReferralCode(ctx, code)
}

func (r *LedgerRepository) SetReferralCode(ctx context.Context, id uuid.UUID, code string) (string, error) {
	return r.referrals.SetCode(ctx, id, code)
}

// Apply locks the account row, runs fn on a copy and writes the result
// together with the journal entry, feed entries, badges, unlock and
// referral link. Serialization failures rerun the whole unit.
func (r *LedgerRepository) Apply(ctx context.Context, id uuid.UUID, fn MutateFunc) (*domain.Change, error) {
	var out *domain.Change
	err := withRetry(ctx, r.maxRetries, func() error {
		ch, err := r.applyOnce(ctx, id, fn)
		out = ch
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LedgerRepository) applyOnce(ctx context.Context, id uuid.UUID, fn MutateFunc) (*domain.Change, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	before, err := loadAccount(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	working := before.Clone()
	ch, err := fn(working)
	if err != nil {
		return nil, err
	}
	if err := Finalize(before, working, ch); err != nil {
		return nil, err
	}

	if err := r.accounts.UpdateWithTx(ctx, tx, working); err != nil {
		return nil, err
	}
	if err := r.accounts.InsertBadgesWithTx(ctx, tx, id, newBadges(before, working)); err != nil {
		return nil, err
	}
	if err := r.accounts.InsertUnlocksWithTx(ctx, tx, id, newUnlocks(before, working)); err != nil {
		return nil, err
	}
	if ch.Referral != nil {
		if err := r.referrals.CreateWithTx(ctx, tx, ch.Referral); err != nil {
			return nil, err
		}
	}
	if ch.Transaction != nil {
		if err := r.transactions.CreateWithTx(ctx, tx, ch.Transaction); err != nil {
			return nil, err
		}
	}
	if err := r.activities.CreateBatchWithTx(ctx, tx, ch.Activities); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	ch.Account = working
	return ch, nil
}

func (r *LedgerRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.transactions.GetByID(ctx, id)
}

func (r *LedgerRepository) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	return r.transactions.GetByAccountID(ctx, accountID, limit, offset)
}

func (r *LedgerRepository) SumTransactions(ctx context.Context, accountID uuid.UUID) (int64, int, error) {
	return r.transactions.SumByAccountID(ctx, accountID)
}

func (r *LedgerRepository) IsRefunded(ctx context.Context, txID uuid.UUID) (bool, error) {
	return r.transactions.IsRefunded(ctx, txID)
}

func (r *LedgerRepository) ListActivities(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Activity, int, error) {
	return r.activities.GetByAccountID(ctx, accountID, limit, offset)
}

func (r *LedgerRepository) Standings(ctx context.Context, since *time.Time, limit int) ([]domain.Standing, error) {
	return r.accounts.GetStandings(ctx, since, limit)
}

func (r *LedgerRepository) RankOf(ctx context.Context, id uuid.UUID, since *time.Time) (domain.RankedStanding, error) {
	return r.accounts.GetRank(ctx, id, since)
}

func (r *LedgerRepository) CountAccounts(ctx context.Context) (int, error) {
	return r.accounts.Count(ctx)
}
