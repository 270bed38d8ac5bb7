package settings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jdramirez/servipro/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrStorageUnavailable = errors.New("no persistent store configured")
	// ErrNoPartnerGroup means the partner group could not be resolved, so
	// no settings row is visible and none should be created.
	ErrNoPartnerGroup = errors.New("partner group is empty")
)

const (
	DefaultCompanyName     = "ServiPro"
	DefaultSplitPercentage = 50
)

// Bootstrapper guarantees exactly one effective company-settings record per
// partner group, creating defaults on first access.
type Bootstrapper struct {
	db *gorm.DB
}

func NewBootstrapper(db *gorm.DB) *Bootstrapper {
	return &Bootstrapper{db: db}
}

// Defaults returns the settings a partner group starts with.
func Defaults(ownerID uuid.UUID) models.CompanySettings {
	return models.CompanySettings{
		UserID:          ownerID,
		CompanyName:     DefaultCompanyName,
		SplitPercentage: DefaultSplitPercentage,
	}
}

// GetOrCreate returns the canonical settings record for the group: the
// oldest row with a logo, else the oldest row, else a freshly created
// default owned by the first group member.
//
// Two first-time callers may both attempt the create; the unique index on
// user_id makes one of them fail, and that failure is read as "someone else
// won" followed by a reload.
func (b *Bootstrapper) GetOrCreate(ctx context.Context, groupIDs []uuid.UUID) (*models.CompanySettings, error) {
	if b.db == nil {
		return nil, ErrStorageUnavailable
	}
	if len(groupIDs) == 0 {
		return nil, ErrNoPartnerGroup
	}

	var s models.CompanySettings

	err := b.db.WithContext(ctx).
		Where("user_id IN ?", groupIDs).
		Where("logo_url <> ''").
		Order("created_at ASC").
		First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = b.db.WithContext(ctx).
		Where("user_id IN ?", groupIDs).
		Order("created_at ASC").
		First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	s = Defaults(groupIDs[0])
	if createErr := b.db.WithContext(ctx).Create(&s).Error; createErr != nil {
		// Lost the bootstrap race: the other caller's row is now there.
		var existing models.CompanySettings
		if reloadErr := b.db.WithContext(ctx).
			Where("user_id IN ?", groupIDs).
			Order("created_at ASC").
			First(&existing).Error; reloadErr == nil {
			return &existing, nil
		}
		return nil, createErr
	}

	return &s, nil
}
