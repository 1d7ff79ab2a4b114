package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/complaints-service/internal/domain"
)

type complaintHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintHistoryRepository builds repository.
func NewComplaintHistoryRepository(pool *pgxpool.Pool) ComplaintHistoryRepository {
	return &complaintHistoryRepository{pool: pool}
}

func (r *complaintHistoryRepository) Create(ctx context.Context, entry *domain.ComplaintHistory) error {
	const query = `
        INSERT INTO complaint_history (id, complaint_id, actor_id, actor_role, change_type, old_value, new_value, note, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.ComplaintID,
		entry.ActorID,
		string(entry.ActorRole),
		string(entry.ChangeType),
		entry.OldValue,
		entry.NewValue,
		entry.Note,
		entry.CreatedAt,
	)
	return mapPgError(err)
}

func (r *complaintHistoryRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	const query = `
        SELECT id, complaint_id, actor_id, actor_role, change_type, old_value, new_value, note, created_at
        FROM complaint_history WHERE complaint_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ComplaintHistory
	for rows.Next() {
		var (
			entry      domain.ComplaintHistory
			actorRole  string
			changeType string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.ComplaintID,
			&entry.ActorID,
			&actorRole,
			&changeType,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.ActorRole = domain.Role(actorRole)
		entry.ChangeType = domain.ComplaintChangeType(changeType)
		result = append(result, entry)
	}
	return result, rows.Err()
}
