package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrUserNotFound means an identifier resolved to a username that does not
// exist in storage. Unlike a storage outage this is a misconfiguration, so
// it propagates as a hard error.
var ErrUserNotFound = errors.New("mapped user not found in storage")

const (
	partnerCacheKey = "servipro:partner_ids"
	partnerCacheTTL = time.Minute
)

// PartnerGroupPolicy yields the storage ids whose records are treated as
// co-owned. An empty result means no shared data is visible (fail closed).
type PartnerGroupPolicy interface {
	ResolvePartnerGroupIDs(ctx context.Context) []uuid.UUID
}

// Mapper translates opaque authentication identifiers into storage user ids
// and resolves the partner group. All lookups are side-effect free.
type Mapper struct {
	db       *gorm.DB
	rdb      *redis.Client // optional, caches partner ids
	aliases  map[string]string
	partners []string
	logger   *slog.Logger
}

func NewMapper(db *gorm.DB, rdb *redis.Client, aliases map[string]string, partners []string, logger *slog.Logger) *Mapper {
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &Mapper{
		db:       db,
		rdb:      rdb,
		aliases:  aliases,
		partners: partners,
		logger:   logger,
	}
}

// PartnerUsernames returns the configured partner list, lowercase.
func (m *Mapper) PartnerUsernames() []string {
	return m.partners
}

// ResolveStorageUserID maps an authentication identifier to a storage user id.
//
// Two distinct fallback paths exist on purpose. Without a store, the raw
// identifier is passed through so degraded-mode callers still get a stable
// identity. With a store, an unmapped uuid-shaped identifier also passes
// through (with a warning, since it may not reference a real user), while
// anything else is treated as a username and must exist.
func (m *Mapper) ResolveStorageUserID(ctx context.Context, authID string) (uuid.UUID, error) {
	if m.db == nil {
		return m.fallbackID(authID), nil
	}

	username, mapped := m.aliases[authID]
	if !mapped {
		if id, err := uuid.Parse(authID); err == nil {
			m.logger.Warn("auth id has no alias mapping, passing raw id through", "auth_id", authID)
			return id, nil
		}
		username = strings.ToLower(strings.TrimSpace(authID))
	}

	var user models.User
	err := m.db.WithContext(ctx).
		Select("id").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ErrUserNotFound
		}
		// Storage outage: degrade rather than fail the caller's mutation.
		m.logger.Warn("identity lookup failed, using fallback id", "username", username, "error", err)
		return m.fallbackID(authID), nil
	}

	return user.ID, nil
}

// ResolvePartnerGroupIDs returns the storage ids of every configured partner
// username. Unresolvable partners are skipped; a storage outage yields an
// empty set, which callers must treat as "no shared data visible".
func (m *Mapper) ResolvePartnerGroupIDs(ctx context.Context) []uuid.UUID {
	if m.db == nil || len(m.partners) == 0 {
		return nil
	}

	if ids := m.cachedPartnerIDs(ctx); ids != nil {
		return ids
	}

	var users []models.User
	err := m.db.WithContext(ctx).
		Select("id").
		Where("username IN ?", m.partners).
		Find(&users).Error
	if err != nil {
		m.logger.Warn("partner group lookup failed", "error", err)
		return nil
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	if len(ids) > 0 {
		m.cachePartnerIDs(ctx, ids)
	}
	return ids
}

func (m *Mapper) fallbackID(authID string) uuid.UUID {
	if id, err := uuid.Parse(authID); err == nil {
		return id
	}
	// Deterministic so the same caller maps to the same identity across
	// requests even without storage.
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(authID))
}

func (m *Mapper) cachedPartnerIDs(ctx context.Context) []uuid.UUID {
	if m.rdb == nil {
		return nil
	}
	raw, err := m.rdb.Get(ctx, partnerCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}

func (m *Mapper) cachePartnerIDs(ctx context.Context, ids []uuid.UUID) {
	if m.rdb == nil {
		return
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := m.rdb.Set(ctx, partnerCacheKey, raw, partnerCacheTTL).Err(); err != nil {
		m.logger.Debug("failed to cache partner ids", "error", err)
	}
}

// Compile-time interface satisfaction check
var _ PartnerGroupPolicy = (*Mapper)(nil)
