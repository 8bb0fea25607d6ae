package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"desaweb/models"
	"desaweb/pkg/logger"
	"desaweb/pkg/recordstore"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errUserExists = errors.New("user already exists")

// migrate creates the account tables and the two content tables. Each model
// is migrated on its own so a permission problem on one table does not block
// the others.
func migrate(db *gorm.DB) {
	// roles first so users can reference them
	for _, m := range []struct {
		name  string
		model any
	}{
		{"roles", &models.Role{}},
		{"users", &models.User{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"uploads", &models.Upload{}},
		{"berita", &models.Berita{}},
		{"umkm", &models.Umkm{}},
	} {
		if err := db.AutoMigrate(m.model); err != nil {
			logger.WithField("table", m.name).Warnf("migration warning: %v", err)
		}
	}
}

// seedDB makes sure the roles and the default admin account exist.
func seedDB(db *gorm.DB) {
	for _, r := range models.DefaultRoles {
		role := r
		if err := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err != nil {
			logger.WithField("role", role.Name).Warnf("failed to seed role: %v", err)
		}
	}

	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		if err := createUser(db, "admin", "admin123", models.RoleAdministrator); err != nil {
			logger.Log.Warnf("failed to seed admin user: %v", err)
			return
		}
		logger.Log.Info("Seeded admin user: username=admin, password=admin123")
	}
}

// openRecordStore connects to the record store and, when enabled, migrates
// and seeds it.
func openRecordStore(dsn string, autoMigrate bool) (*recordstore.Gorm, error) {
	store, err := recordstore.OpenPostgres(dsn)
	if err != nil {
		return nil, err
	}
	if autoMigrate {
		migrate(store.DB())
	}
	seedDB(store.DB())
	return store, nil
}

// createUser adds an account with the given role, creating the role when it
// is missing.
func createUser(db *gorm.DB, username, password, roleName string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username required")
	}
	if len(password) < 6 {
		return fmt.Errorf("password too short (min 6)")
	}
	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return errUserExists
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	role := models.Role{Name: roleName}
	if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
		return fmt.Errorf("failed to ensure role %s: %v", roleName, err)
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hashedPassword, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		if recordstore.IsUniqueViolation(err) {
			return errUserExists
		}
		return err
	}
	return nil
}

// resetPassword replaces the password of an existing account and revokes
// its refresh tokens.
func resetPassword(db *gorm.DB, username, password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password too short (min 6)")
	}
	var user models.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		return fmt.Errorf("user not found: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("hashed_password", hash).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Update("revoked", true).Error
	})
}

// pruneTokens deletes refresh tokens that are revoked or expired before now.
func pruneTokens(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Where("revoked = ? OR expires_at < ?", true, now).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
