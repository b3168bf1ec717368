package transfer

import (
	"time"

	"github.com/google/uuid"
)

// Tenancy links a tenant to the landlord their bills are paid to.
// Read-only collaborator maintained by the property management service.
type Tenancy struct {
	ID             uuid.UUID `db:"id" json:"id"`
	TenantUserID   uuid.UUID `db:"tenant_user_id" json:"tenant_user_id"`
	LandlordUserID uuid.UUID `db:"landlord_user_id" json:"landlord_user_id"`
	PropertyID     uuid.UUID `db:"property_id" json:"property_id"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
