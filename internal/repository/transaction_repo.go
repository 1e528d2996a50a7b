package repository

import (
	"context"
	"encoding/json"
	"errors"

	"resume_rewards/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, account_id, type, amount, balance_before, balance_after,
	status, description, metadata, related_transaction_id, created_at`

// GetByID returns one journal record
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs, err := r.scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, domain.ErrTransactionNotFound
	}
	return txs[0], nil
}

// GetByAccountID returns transactions for an account, newest first
func (r *TransactionRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	limit, offset = clampPage(limit, offset)

	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// SumByAccountID adds up every amount in the account's journal
func (r *TransactionRepository) SumByAccountID(ctx context.Context, accountID uuid.UUID) (int64, int, error) {
	var (
		sum   int64
		count int
	)
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM transactions WHERE account_id = $1`,
		accountID,
	).Scan(&sum, &count)
	return sum, count, err
}

// IsRefunded checks whether a refund references the transaction
func (r *TransactionRepository) IsRefunded(ctx context.Context, txID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE related_transaction_id = $1 AND type = $2)`,
		txID, domain.TxRefund,
	).Scan(&exists)
	return exists, err
}

// CreateWithTx inserts a transaction using an existing database transaction
func (r *TransactionRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, tx *domain.Transaction) error {
	metaJSON, err := json.Marshal(tx.Metadata)
	if err != nil || tx.Metadata == nil {
		metaJSON = []byte("{}")
	}

	_, err = dbTx.Exec(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tx.ID, tx.AccountID, tx.Type, tx.Amount, tx.BalanceBefore, tx.BalanceAfter,
		tx.Status, tx.Description, metaJSON, tx.RelatedTransactionID, tx.CreatedAt,
	)
	return mapConstraint(err)
}

// Helper to scan rows into Transaction slice
func (r *TransactionRepository) scanRows(rows pgx.Rows) ([]*domain.Transaction, error) {
	var result []*domain.Transaction

	for rows.Next() {
		var (
			tx       domain.Transaction
			metaJSON []byte
		)

		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Type, &tx.Amount, &tx.BalanceBefore, &tx.BalanceAfter,
			&tx.Status, &tx.Description, &metaJSON, &tx.RelatedTransactionID, &tx.CreatedAt); err != nil {
			return nil, err
		}

		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &tx.Metadata)
		}

		result = append(result, &tx)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	return result, nil
}
