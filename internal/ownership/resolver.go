package ownership

import (
	"context"

	"github.com/google/uuid"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/identity"
	"gorm.io/gorm"
)

// Visibility controls which owner ids a query on an entity type may reach.
type Visibility int

const (
	// OwnerOnly restricts to records the caller created.
	OwnerOnly Visibility = iota
	// PartnerShared expands to every member of the partner group.
	PartnerShared
	// Global applies no ownership filter at all.
	Global
)

// policy is the single source of truth for per-entity visibility. Clients
// and quotes are deliberately global while the rest is partner-shared; this
// asymmetry is a product decision, not something to generalize away.
var policy = map[string]Visibility{
	models.EntityClient:      Global,
	models.EntityQuote:       Global,
	models.EntityEmployee:    PartnerShared,
	models.EntityService:     PartnerShared,
	models.EntityExpense:     PartnerShared,
	models.EntityCashClosing: PartnerShared,
	models.EntitySettings:    PartnerShared,
}

// VisibilityOf returns the policy for an entity type. Unknown types get
// OwnerOnly, the most restrictive answer.
func VisibilityOf(entityType string) Visibility {
	if v, ok := policy[entityType]; ok {
		return v
	}
	return OwnerOnly
}

// Resolver builds query scopes from the policy table. Every list, get,
// update, and delete for an entity type must go through the same scope.
type Resolver struct {
	partners identity.PartnerGroupPolicy
}

func NewResolver(partners identity.PartnerGroupPolicy) *Resolver {
	return &Resolver{partners: partners}
}

// Scope returns a gorm scope for queries on entityType issued by callerID.
// When the partner group cannot be resolved, shared scopes match nothing:
// callers see "not found" rather than another partner's data.
func (r *Resolver) Scope(ctx context.Context, entityType string, callerID uuid.UUID) func(*gorm.DB) *gorm.DB {
	switch VisibilityOf(entityType) {
	case Global:
		return func(db *gorm.DB) *gorm.DB { return db }
	case PartnerShared:
		ids := r.partners.ResolvePartnerGroupIDs(ctx)
		if len(ids) == 0 {
			return func(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }
		}
		return func(db *gorm.DB) *gorm.DB { return db.Where("user_id IN ?", ids) }
	default:
		return func(db *gorm.DB) *gorm.DB { return db.Where("user_id = ?", callerID) }
	}
}
