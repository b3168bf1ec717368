package transfer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TenancyRepository struct {
	db *sqlx.DB
}

func NewTenancyRepository(db *sqlx.DB) *TenancyRepository {
	return &TenancyRepository{db: db}
}

// GetActiveByTenant returns the tenant's current tenancy, which names the
// landlord bill payments route to
func (r *TenancyRepository) GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*Tenancy, error) {
	var t Tenancy
	err := r.db.GetContext(ctx, &t, `
		SELECT * FROM tenancies
		WHERE tenant_user_id = $1 AND is_active = true
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenancyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
