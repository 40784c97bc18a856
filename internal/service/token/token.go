// Package token issues and verifies the JWT pair used by the cookie auth
// flow. Access tokens are short-lived and stateless; refresh tokens are
// persisted so they can be revoked.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/roles"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token revoked")
)

type Service struct {
	DB            *gorm.DB
	AccessSecret  []byte
	RefreshSecret []byte
}

func NewService(db *gorm.DB, accessSecret, refreshSecret string) *Service {
	return &Service{
		DB:            db,
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
	}
}

func (s *Service) IssueAccess(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   fmt.Sprint(user.ID),
		"roles": user.Roles,
		"iat":   now.Unix(),
		"exp":   now.Add(AccessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.AccessSecret)
}

func (s *Service) IssueRefresh(ctx context.Context, user *models.User) (string, error) {
	now := time.Now()
	expires := now.Add(RefreshTTL)
	claims := jwt.MapClaims{
		"sub": fmt.Sprint(user.ID),
		"typ": "refresh",
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": expires.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.RefreshSecret)
	if err != nil {
		return "", err
	}

	record := &models.RefreshToken{
		Token:     signed,
		UserID:    user.ID,
		ExpiresAt: expires,
	}
	if err := s.DB.WithContext(ctx).Create(record).Error; err != nil {
		return "", err
	}
	return signed, nil
}

// ParseAccess verifies an access token and returns the subject with the role
// set parsed from the claims. This is the only place the stored role string
// is interpreted.
func (s *Service) ParseAccess(tokenString string) (uint, roles.Set, error) {
	claims, err := s.parse(tokenString, s.AccessSecret)
	if err != nil {
		return 0, nil, err
	}
	if typ, _ := claims["typ"].(string); typ == "refresh" {
		return 0, nil, ErrInvalidToken
	}
	userID, err := subject(claims)
	if err != nil {
		return 0, nil, err
	}
	rawRoles, _ := claims["roles"].(string)
	return userID, roles.Parse(rawRoles), nil
}

// Rotate exchanges a refresh token for a fresh pair. The old token is
// revoked, so each refresh token works exactly once.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (access, refresh string, err error) {
	claims, err := s.parse(refreshToken, s.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return "", "", ErrInvalidToken
	}

	var record models.RefreshToken
	if err := s.DB.WithContext(ctx).
		Where("token = ?", refreshToken).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrInvalidToken
		}
		return "", "", err
	}
	if record.Revoked || time.Now().After(record.ExpiresAt) {
		return "", "", ErrRevoked
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, record.UserID).Error; err != nil {
		return "", "", err
	}

	if err := s.DB.WithContext(ctx).Model(&record).Update("revoked", true).Error; err != nil {
		return "", "", err
	}
	access, err = s.IssueAccess(&user)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.IssueRefresh(ctx, &user)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	return s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", refreshToken).
		Update("revoked", true).Error
}

func (s *Service) RevokeAll(ctx context.Context, userID uint) error {
	return s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Update("revoked", true).Error
}

func (s *Service) parse(tokenString string, secret []byte) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func subject(claims jwt.MapClaims) (uint, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, ErrInvalidToken
	}
	var id uint
	if _, err := fmt.Sscanf(sub, "%d", &id); err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}
