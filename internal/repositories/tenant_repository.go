package repositories

import (
	"context"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type TenantRepository interface {
	Create(ctx context.Context, t *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type tenantRepo struct {
	db DB
}

func NewTenantRepository(db DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(ctx context.Context, t *models.Tenant) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO tenants (id, first_name, surname, email_address, mobile_number, created_at)
		VALUES ($1,$2,$3,$4,$5, NOW())
		RETURNING created_at
	`, t.ID, t.FirstName, t.Surname, t.EmailAddress, t.MobileNumber).Scan(&t.CreatedAt)
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := r.db.QueryRow(ctx, `
		SELECT id, first_name, surname, email_address, mobile_number, created_at
		FROM tenants WHERE id=$1
	`, id).Scan(&t.ID, &t.FirstName, &t.Surname, &t.EmailAddress, &t.MobileNumber, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
