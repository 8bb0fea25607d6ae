package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"desaweb/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTTL  = 24 * time.Hour
	refreshTTL = 30 * 24 * time.Hour
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidRefresh     = errors.New("invalid or expired refresh token")
)

// principal is the signed-in account as carried in the access token.
type principal struct {
	UserID   uint   `json:"-"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (p principal) isAdmin() bool { return p.Role == models.RoleAdministrator }

// accounts authenticates admin panel users. With a database the users and
// refresh tokens live in Postgres; without one a single admin from the
// environment is accepted and refresh tokens are kept in memory.
type accounts struct {
	db        *gorm.DB
	adminUser string
	adminHash []byte
	secret    []byte
	tokens    *cache.Cache
	now       func() time.Time
}

func newAccounts(db *gorm.DB, secret, adminUser, adminHash string) *accounts {
	return &accounts{
		db:        db,
		adminUser: adminUser,
		adminHash: []byte(adminHash),
		secret:    []byte(secret),
		tokens:    cache.New(refreshTTL, time.Hour),
		now:       time.Now,
	}
}

func (a *accounts) authenticate(username, password string) (principal, error) {
	username = strings.TrimSpace(username)
	if a.db == nil {
		if len(a.adminHash) == 0 || username != a.adminUser {
			return principal{}, errInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)); err != nil {
			return principal{}, errInvalidCredentials
		}
		return principal{Username: username, Role: models.RoleAdministrator}, nil
	}
	var user models.User
	if err := a.db.Preload("Role").Where("username = ?", username).First(&user).Error; err != nil {
		return principal{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return principal{}, errInvalidCredentials
	}
	return principal{UserID: user.ID, Username: user.Username, Role: user.Role.Name}, nil
}

// issueAccess signs an HS256 access token for p.
func (a *accounts) issueAccess(p principal) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": p.Username,
		"role":     p.Role,
		"uid":      p.UserID,
		"exp":      a.now().Add(accessTTL).Unix(),
	})
	return token.SignedString(a.secret)
}

// parseAccess validates an access token and returns its principal.
func (a *accounts) parseAccess(tokenString string) (principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return principal{}, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return principal{}, fmt.Errorf("invalid claims")
	}
	p := principal{}
	p.Username, _ = claims["username"].(string)
	p.Role, _ = claims["role"].(string)
	if uid, ok := claims["uid"].(float64); ok {
		p.UserID = uint(uid)
	}
	if p.Username == "" {
		return principal{}, fmt.Errorf("invalid claims")
	}
	return p, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// issueRefresh generates a random refresh token, stores its hash with expiry
// and returns the raw token string.
func (a *accounts) issueRefresh(p principal) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	th := hashToken(token)
	if a.db == nil {
		a.tokens.Set(th, p, refreshTTL)
		return token, nil
	}
	rt := models.RefreshToken{UserID: p.UserID, TokenHash: th, ExpiresAt: a.now().Add(refreshTTL)}
	if err := a.db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// rotate revokes a refresh token and issues a new one for the same account.
func (a *accounts) rotate(raw string) (principal, string, error) {
	p, err := a.revoke(raw)
	if err != nil {
		return principal{}, "", err
	}
	next, err := a.issueRefresh(p)
	if err != nil {
		return principal{}, "", err
	}
	return p, next, nil
}

// revoke invalidates a refresh token and returns the account it belonged to.
func (a *accounts) revoke(raw string) (principal, error) {
	th := hashToken(raw)
	if a.db == nil {
		v, ok := a.tokens.Get(th)
		if !ok {
			return principal{}, errInvalidRefresh
		}
		a.tokens.Delete(th)
		return v.(principal), nil
	}
	var rt models.RefreshToken
	if err := a.db.Preload("User.Role").Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return principal{}, errInvalidRefresh
	}
	if rt.Revoked || a.now().After(rt.ExpiresAt) {
		return principal{}, errInvalidRefresh
	}
	if err := a.db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true).Error; err != nil {
		return principal{}, err
	}
	return principal{UserID: rt.User.ID, Username: rt.User.Username, Role: rt.User.Role.Name}, nil
}
