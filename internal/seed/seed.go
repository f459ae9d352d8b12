// Package seed bootstraps the first platform operator so a fresh install
// can sign in and start onboarding tenants.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/config"
	identitydomain "github.com/campusworks/acadia/internal/identity/domain"
	"github.com/campusworks/acadia/internal/identity/password"
	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(EnsureSuperAdmin),
)

// EnsureSuperAdmin creates a verified SUPER_ADMIN credential from the
// bootstrap environment variables. It is a no-op when the email is unset or
// the credential already exists.
func EnsureSuperAdmin(db *gorm.DB, genID *snowflake.Node, cfg config.Config, log *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	if email == "" {
		return nil
	}
	if strings.TrimSpace(cfg.BootstrapAdminPassword) == "" {
		return errors.New("BOOTSTRAP_ADMIN_PASSWORD is required when BOOTSTRAP_ADMIN_EMAIL is set")
	}

	ctx := context.Background()
	var existing identitydomain.Credential
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := password.Hash(cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}

	cred := identitydomain.Credential{
		ID:           genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		Role:         tenantdomain.RoleSuperAdmin,
		Verified:     true,
	}
	if err := db.WithContext(ctx).Create(&cred).Error; err != nil {
		return err
	}

	log.Info("bootstrap super admin created", zap.String("email", email))
	return nil
}
