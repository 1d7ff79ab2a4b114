package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/complaints-service/internal/domain"
)

const complaintColumns = `id, title, description, category, province, district, sector, priority, status,
        submitter_id, agency_id, attachments, created_at, updated_at, resolved_at`

type attachmentRow struct {
	Handle      string `json:"handle"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (` + complaintColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	attachments := make([]attachmentRow, len(complaint.Attachments))
	for i, ref := range complaint.Attachments {
		attachments[i] = attachmentRow(ref)
	}

	_, err := r.pool.Exec(ctx, query,
		complaint.ID,
		complaint.Title,
		complaint.Description,
		string(complaint.Category),
		complaint.Location.Province,
		complaint.Location.District,
		complaint.Location.Sector,
		int(complaint.Priority),
		string(complaint.Status),
		complaint.SubmitterID,
		complaint.AgencyID,
		attachments,
		complaint.CreatedAt,
		complaint.UpdatedAt,
		complaint.ResolvedAt,
	)
	return mapPgError(err)
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	const query = `SELECT ` + complaintColumns + ` FROM complaints WHERE id=$1`
	return scanComplaint(r.pool.QueryRow(ctx, query, id))
}

func (r *complaintRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) (*domain.Complaint, error) {
	const query = `
        UPDATE complaints SET status=$1, updated_at=$2, resolved_at=COALESCE(resolved_at, $3)
        WHERE id=$4 AND status=$5
        RETURNING ` + complaintColumns

	complaint, err := scanComplaint(r.pool.QueryRow(ctx, query,
		string(change.To),
		change.UpdatedAt,
		change.ResolvedAt,
		id,
		string(change.From),
	))
	if err == ErrNotFound {
		return nil, r.missOrStale(ctx, id)
	}
	return complaint, err
}

// missOrStale tells an absent complaint from a lost compare-and-set.
func (r *complaintRepository) missOrStale(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM complaints WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleStatus
}

func (r *complaintRepository) UpdateAgency(ctx context.Context, id string, agencyID *string, updatedAt time.Time) (*domain.Complaint, error) {
	const query = `
        UPDATE complaints SET agency_id=$1, updated_at=$2
        WHERE id=$3
        RETURNING ` + complaintColumns
	return scanComplaint(r.pool.QueryRow(ctx, query, agencyID, updatedAt, id))
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	where, args := complaintWhere(filter)
	limit, offset := filter.NormalizedWindow()
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s
        ORDER BY updated_at DESC, created_at DESC, id ASC LIMIT %d OFFSET %d`,
		complaintColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Complaint
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *complaint)
	}
	return result, rows.Err()
}

func (r *complaintRepository) Count(ctx context.Context, filter ComplaintFilter) (int, error) {
	where, args := complaintWhere(filter)
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM complaints WHERE `+where, args...).Scan(&total)
	return total, err
}

func complaintWhere(filter ComplaintFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SubmitterID != nil {
		args = append(args, *filter.SubmitterID)
		clauses = append(clauses, fmt.Sprintf("submitter_id=$%d", len(args)))
	}
	if filter.AgencyID != nil {
		args = append(args, *filter.AgencyID)
		clauses = append(clauses, fmt.Sprintf("agency_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, containsPattern(term))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(`(LOWER(title) LIKE %s ESCAPE '\' OR LOWER(description) LIKE %s ESCAPE '\')`, placeholder, placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var (
		complaint   domain.Complaint
		category    string
		status      string
		priority    int
		attachments []attachmentRow
	)
	if err := row.Scan(
		&complaint.ID,
		&complaint.Title,
		&complaint.Description,
		&category,
		&complaint.Location.Province,
		&complaint.Location.District,
		&complaint.Location.Sector,
		&priority,
		&status,
		&complaint.SubmitterID,
		&complaint.AgencyID,
		&attachments,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
		&complaint.ResolvedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	complaint.Category = domain.Category(category)
	complaint.Status = domain.ComplaintStatus(status)
	complaint.Priority = domain.Priority(priority)
	complaint.Attachments = make([]domain.AttachmentRef, len(attachments))
	for i, row := range attachments {
		complaint.Attachments[i] = domain.AttachmentRef(row)
	}
	return &complaint, nil
}
