package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/complaints-service/internal/domain"
)

type complaintResponseRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintResponseRepository builds the repository.
func NewComplaintResponseRepository(pool *pgxpool.Pool) ComplaintResponseRepository {
	return &complaintResponseRepository{pool: pool}
}

func (r *complaintResponseRepository) Create(ctx context.Context, response *domain.ComplaintResponse) error {
	const query = `
        INSERT INTO complaint_responses (id, complaint_id, author_id, author_role, message, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, query,
		response.ID,
		response.ComplaintID,
		response.AuthorID,
		string(response.AuthorRole),
		response.Message,
		response.CreatedAt,
	)
	return mapPgError(err)
}

func (r *complaintResponseRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintResponse, error) {
	const query = `
        SELECT id, complaint_id, author_id, author_role, message, created_at
        FROM complaint_responses WHERE complaint_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ComplaintResponse
	for rows.Next() {
		var (
			response   domain.ComplaintResponse
			authorRole string
		)
		if err := rows.Scan(
			&response.ID,
			&response.ComplaintID,
			&response.AuthorID,
			&authorRole,
			&response.Message,
			&response.CreatedAt,
		); err != nil {
			return nil, err
		}
		response.AuthorRole = domain.Role(authorRole)
		result = append(result, response)
	}
	return result, rows.Err()
}
