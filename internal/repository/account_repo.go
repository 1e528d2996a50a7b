package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"resume_rewards/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, name, email, balance, level, social_follows, COALESCE(referral_code, ''), referred_by,
	resumes_created, resumes_downloaded, total_points_earned, total_points_spent,
	profile_completed, first_resume_bonus, signup_bonus, login_streak, last_login_at,
	created_at, updated_at`

// Create inserts a new account row
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	follows, _ := json.Marshal(a.SocialFollows)
	var code *string
	if a.ReferralCode != "" {
		code = &a.ReferralCode
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO accounts (id, name, email, balance, level, social_follows, referral_code, referred_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Name, a.Email, a.Balance, a.Level, follows, code, a.ReferredBy, a.CreatedAt, a.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return loadAccount(ctx, r.db, id, false)
}

// GetByReferralCode finds an account by its referral code
func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM accounts WHERE referral_code = $1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}
	return loadAccount(ctx, r.db, id, false)
}

// Update writes the mutable columns. referral_code and referred_by are
// owned by the referral statements and never written here.
func (r *AccountRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	follows, err := json.Marshal(a.SocialFollows)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE accounts SET
			balance = $2, level = $3, social_follows = $4,
			resumes_created = $5, resumes_downloaded = $6,
			total_points_earned = $7, total_points_spent = $8,
			profile_completed = $9, first_resume_bonus = $10, signup_bonus = $11,
			login_streak = $12, last_login_at = $13, updated_at = $14
		 WHERE id = $1`,
		a.ID, a.Balance, a.Level, follows,
		a.Stats.ResumesCreated, a.Stats.ResumesDownloaded,
		a.Stats.TotalPointsEarned, a.Stats.TotalPointsSpent,
		a.Stats.ProfileCompleted, a.Stats.FirstResumeBonus, a.Stats.SignupBonus,
		a.Stats.LoginStreak, a.Stats.LastLoginAt, a.UpdatedAt,
	)
	return err
}

func (r *AccountRepository) InsertBadgesWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, badges []domain.Badge) error {
	for _, b := range badges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO account_badges (account_id, name, icon, earned_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (account_id, name) DO NOTHING`,
			id, b.Name, b.Icon, b.EarnedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *AccountRepository) InsertUnlocksWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, unlocks []domain.TemplateUnlock) error {
	for _, u := range unlocks {
		if _, err := tx.Exec(ctx,
			`INSERT INTO template_unlocks (account_id, template_id, cost, unlocked_at)
			 VALUES ($1, $2, $3, $4)`,
			id, u.TemplateID, u.Cost, u.UnlockedAt,
		); err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

// Count returns the number of accounts
func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

// scoreCTE yields (id, score) for every account. With a window the score
// is the sum of earn-* amounts since $1, otherwise the current balance.
func scoreCTE(since *time.Time) (string, []any) {
	if since == nil {
		return `scores AS (SELECT a.id, a.balance AS score FROM accounts a)`, nil
	}
	return `scores AS (
		SELECT a.id, COALESCE(e.earned, 0) AS score
		FROM accounts a
		LEFT JOIN (
			SELECT account_id, SUM(amount) AS earned
			FROM transactions
			WHERE type LIKE 'earn-%' AND created_at >= $1
			GROUP BY account_id
		) e ON e.account_id = a.id
	)`, []any{*since}
}

// GetStandings returns the top accounts for a window
func (r *AccountRepository) GetStandings(ctx context.Context, since *time.Time, limit int) ([]domain.Standing, error) {
	cte, args := scoreCTE(since)
	args = append(args, limit)
	rows, err := r.db.Query(ctx, `
		WITH `+cte+`
		SELECT a.id, a.name, a.level, s.score, a.created_at
		FROM accounts a
		JOIN scores s ON s.id = a.id
		ORDER BY s.score DESC, a.created_at ASC, a.id ASC
		LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []domain.Standing{}
	for rows.Next() {
		var s domain.Standing
		if err := rows.Scan(&s.AccountID, &s.Name, &s.Level, &s.Score, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// GetRank returns an account's rank in a window
func (r *AccountRepository) GetRank(ctx context.Context, id uuid.UUID, since *time.Time) (domain.RankedStanding, error) {
	cte, args := scoreCTE(since)
	args = append(args, id)
	var rs domain.RankedStanding
	err := r.db.QueryRow(ctx, `
		WITH `+cte+`,
		ranked AS (
			SELECT s.id, s.score, RANK() OVER (ORDER BY s.score DESC) AS rank
			FROM scores s
		)
		SELECT a.id, a.name, a.level, r.score, a.created_at, r.rank
		FROM ranked r
		JOIN accounts a ON a.id = r.id
		WHERE r.id = $`+strconv.Itoa(len(args)), args...,
	).Scan(&rs.AccountID, &rs.Name, &rs.Level, &rs.Score, &rs.CreatedAt, &rs.Rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return rs, domain.ErrAccountNotFound
	}
	return rs, err
}

// loadAccount reads the account row and its child sets. With lock the row
// is held FOR UPDATE until the surrounding transaction ends.
func loadAccount(ctx context.Context, q querier, id uuid.UUID, lock bool) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var (
		a       domain.Account
		follows []byte
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.Email, &a.Balance, &a.Level, &follows, &a.ReferralCode, &a.ReferredBy,
		&a.Stats.ResumesCreated, &a.Stats.ResumesDownloaded, &a.Stats.TotalPointsEarned, &a.Stats.TotalPointsSpent,
		&a.Stats.ProfileCompleted, &a.Stats.FirstResumeBonus, &a.Stats.SignupBonus, &a.Stats.LoginStreak, &a.Stats.LastLoginAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	a.SocialFollows = map[domain.SocialPlatform]bool{}
	if len(follows) > 0 {
		_ = json.Unmarshal(follows, &a.SocialFollows)
	}

	if a.Badges, err = loadBadges(ctx, q, id); err != nil {
		return nil, err
	}
	if a.Unlocks, err = loadUnlocks(ctx, q, id); err != nil {
		return nil, err
	}
	if a.Referrals, err = loadReferrals(ctx, q, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func loadBadges(ctx context.Context, q querier, id uuid.UUID) ([]domain.Badge, error) {
	rows, err := q.Query(ctx,
		`SELECT name, icon, earned_at FROM account_badges WHERE account_id = $1 ORDER BY earned_at, name`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	badges := []domain.Badge{}
	for rows.Next() {
		var b domain.Badge
		if err := rows.Scan(&b.Name, &b.Icon, &b.EarnedAt); err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func loadUnlocks(ctx context.Context, q querier, id uuid.UUID) ([]domain.TemplateUnlock, error) {
	rows, err := q.Query(ctx,
		`SELECT template_id, cost, unlocked_at FROM template_unlocks WHERE account_id = $1 ORDER BY unlocked_at, template_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unlocks := []domain.TemplateUnlock{}
	for rows.Next() {
		var u domain.TemplateUnlock
		if err := rows.Scan(&u.TemplateID, &u.Cost, &u.UnlockedAt); err != nil {
			return nil, err
		}
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}

func loadReferrals(ctx context.Context, q querier, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx,
		`SELECT referred_id FROM referrals WHERE referrer_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var rid uuid.UUID
		if err := rows.Scan(&rid); err != nil {
			return nil, err
		}
		ids = append(ids, rid)
	}
	return ids, rows.Err()
}
