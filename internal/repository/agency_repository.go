package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/complaints-service/internal/domain"
)

const agencyColumns = `id, name, description, contact_email, contact_phone, admin_id, categories, created_at, updated_at`

type agencyRepository struct {
	pool *pgxpool.Pool
}

// NewAgencyRepository builds the repository.
func NewAgencyRepository(pool *pgxpool.Pool) AgencyRepository {
	return &agencyRepository{pool: pool}
}

func (r *agencyRepository) Create(ctx context.Context, agency *domain.Agency) error {
	const query = `
        INSERT INTO agencies (` + agencyColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.pool.Exec(ctx, query,
		agency.ID,
		agency.Name,
		agency.Description,
		agency.ContactEmail,
		agency.ContactPhone,
		agency.AdminID,
		stringsOf(agency.Categories),
		agency.CreatedAt,
		agency.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *agencyRepository) Update(ctx context.Context, agency *domain.Agency) error {
	const query = `
        UPDATE agencies SET name=$1, description=$2, contact_email=$3, contact_phone=$4,
            admin_id=$5, categories=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		agency.Name,
		agency.Description,
		agency.ContactEmail,
		agency.ContactPhone,
		agency.AdminID,
		stringsOf(agency.Categories),
		agency.UpdatedAt,
		agency.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *agencyRepository) GetByID(ctx context.Context, id string) (*domain.Agency, error) {
	const query = `SELECT ` + agencyColumns + ` FROM agencies WHERE id=$1`
	return scanAgency(r.pool.QueryRow(ctx, query, id))
}

func (r *agencyRepository) GetByAdmin(ctx context.Context, adminID string) (*domain.Agency, error) {
	const query = `SELECT ` + agencyColumns + ` FROM agencies WHERE admin_id=$1 ORDER BY created_at LIMIT 1`
	return scanAgency(r.pool.QueryRow(ctx, query, adminID))
}

func (r *agencyRepository) List(ctx context.Context) ([]domain.Agency, error) {
	const query = `SELECT ` + agencyColumns + ` FROM agencies ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agency
	for rows.Next() {
		agency, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agency)
	}
	return result, rows.Err()
}

func scanAgency(row pgx.Row) (*domain.Agency, error) {
	var (
		agency     domain.Agency
		categories []string
	)
	if err := row.Scan(
		&agency.ID,
		&agency.Name,
		&agency.Description,
		&agency.ContactEmail,
		&agency.ContactPhone,
		&agency.AdminID,
		&categories,
		&agency.CreatedAt,
		&agency.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	agency.Categories = make([]domain.Category, len(categories))
	for i, c := range categories {
		agency.Categories[i] = domain.Category(c)
	}
	return &agency, nil
}
