package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/eventbus"
	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Projector applies registry events to the local replica tables. Every apply
// is an atomic upsert keyed by the row id, so redelivered events converge
// instead of duplicating.
type Projector struct {
	db        *gorm.DB
	log       *zap.Logger
	userRoles map[string]struct{} // empty means replicate every role
}

// NewProjector builds a projector. roles restricts which user roles are
// replicated; nil or empty replicates all of them.
func NewProjector(db *gorm.DB, log *zap.Logger, roles []string) *Projector {
	p := &Projector{
		db:        db,
		log:       log.Named("projection"),
		userRoles: make(map[string]struct{}, len(roles)),
	}
	for _, r := range roles {
		p.userRoles[r] = struct{}{}
	}
	return p
}

// Migrate creates the replica tables.
func (p *Projector) Migrate() error {
	return p.db.AutoMigrate(&Tenant{}, &User{})
}

// UpsertTenant applies a tenant.created or tenant.updated snapshot.
func (p *Projector) UpsertTenant(ctx context.Context, _ []byte, value []byte) error {
	var snap tenantdomain.TenantSnapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return fmt.Errorf("decode tenant snapshot: %w", err)
	}
	id, err := snowflake.ParseString(snap.ID)
	if err != nil {
		return fmt.Errorf("parse tenant id %q: %w", snap.ID, err)
	}

	row := Tenant{
		ID:        id,
		Name:      snap.Name,
		Domain:    snap.Domain,
		Email:     snap.Email,
		Type:      snap.Type,
		Timezone:  snap.Timezone,
		Currency:  snap.Currency,
		Status:    snap.Status,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert tenant %s: %w", snap.ID, err)
	}

	p.log.Info("tenant replica upserted",
		zap.String("tenant_id", snap.ID),
		zap.String("domain", snap.Domain),
		zap.String("status", snap.Status))
	return nil
}

// DeleteTenant applies a tenant.deleted snapshot. The tenant's replicated
// users go with it.
func (p *Projector) DeleteTenant(ctx context.Context, _ []byte, value []byte) error {
	var snap tenantdomain.TenantSnapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return fmt.Errorf("decode tenant snapshot: %w", err)
	}
	id, err := snowflake.ParseString(snap.ID)
	if err != nil {
		return fmt.Errorf("parse tenant id %q: %w", snap.ID, err)
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&User{}, "tenant_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Tenant{}, "id = ?", id).Error
	})
}

// UpsertUser applies a user.created snapshot, skipping roles outside the
// replication predicate. A skip is a success: the message commits without a
// local row.
func (p *Projector) UpsertUser(ctx context.Context, _ []byte, value []byte) error {
	var snap tenantdomain.UserSnapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return fmt.Errorf("decode user snapshot: %w", err)
	}
	if len(p.userRoles) > 0 {
		if _, ok := p.userRoles[snap.Role]; !ok {
			p.log.Debug("user outside replication predicate, skipped",
				zap.String("user_id", snap.ID),
				zap.String("role", snap.Role))
			return nil
		}
	}

	id, err := snowflake.ParseString(snap.ID)
	if err != nil {
		return fmt.Errorf("parse user id %q: %w", snap.ID, err)
	}

	row := User{
		ID:        id,
		Email:     snap.Email,
		Role:      snap.Role,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.CreatedAt,
	}
	if snap.TenantID != "" {
		tenantID, err := snowflake.ParseString(snap.TenantID)
		if err != nil {
			return fmt.Errorf("parse tenant id %q: %w", snap.TenantID, err)
		}
		row.TenantID = &tenantID
	}

	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", snap.ID, err)
	}
	return nil
}

// TenantExists reports whether the replica currently knows the tenant.
func (p *Projector) TenantExists(ctx context.Context, id snowflake.ID) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&Tenant{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UserExists reports whether the replica currently knows the user.
func (p *Projector) UserExists(ctx context.Context, id snowflake.ID) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// GetTenant returns the replicated tenant row.
func (p *Projector) GetTenant(ctx context.Context, id snowflake.ID) (*Tenant, error) {
	var row Tenant
	if err := p.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Subscriptions wires the projector's handlers to the registry topics.
func (p *Projector) Subscriptions() []eventbus.Subscription {
	return []eventbus.Subscription{
		{Topic: eventbus.TopicTenantCreated, Handler: p.UpsertTenant},
		{Topic: eventbus.TopicTenantUpdated, Handler: p.UpsertTenant},
		{Topic: eventbus.TopicTenantDeleted, Handler: p.DeleteTenant},
		{Topic: eventbus.TopicUserCreated, Handler: p.UpsertUser},
	}
}
