package repository

import (
	"context"
	"encoding/json"

	"resume_rewards/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityRepository struct {
	db *pgxpool.Pool
}

func NewActivityRepository(db *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// CreateBatchWithTx queues all feed entries in one round trip
func (r *ActivityRepository) CreateBatchWithTx(ctx context.Context, dbTx pgx.Tx, activities []domain.Activity) error {
	if len(activities) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range activities {
		metaJSON, err := json.Marshal(a.Metadata)
		if err != nil || a.Metadata == nil {
			metaJSON = []byte("{}")
		}
		batch.Queue(
			`INSERT INTO activities (id, account_id, type, points, description, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, a.AccountID, a.Kind, a.Points, a.Description, metaJSON, a.CreatedAt,
		)
	}
	return dbTx.SendBatch(ctx, batch).Close()
}

// GetByAccountID returns one page of the feed, newest first, and the total count
func (r *ActivityRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Activity, int, error) {
	limit, offset = clampPage(limit, offset)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM activities WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, account_id, type, points, description, metadata, created_at
		 FROM activities
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	activities := []domain.Activity{}
	for rows.Next() {
		var (
			a        domain.Activity
			metaJSON []byte
		)
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Kind, &a.Points, &a.Description, &metaJSON, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &a.Metadata)
		}
		activities = append(activities, a)
	}
	return activities, total, rows.Err()
}
