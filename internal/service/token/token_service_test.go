package token

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/models"
)

func newTokenService(t *testing.T) *TokenService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return &TokenService{
		DB:            db,
		JWTSecret:     []byte("test_secret"),
		RefreshSecret: []byte("test_refresh_secret"),
	}
}

func issueRefresh(t *testing.T, s *TokenService, userID uint, role string) string {
	raw, err := SignRefreshToken(userID, role, s.RefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(s.DB, raw, userID, role))
	return raw
}

func TestRotateTokenIssuesAndRevokes(t *testing.T) {
	s := newTokenService(t)
	old := issueRefresh(t, s, 7, "customer")

	access, refresh, claims, err := s.RotateToken(old)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEqual(t, old, refresh)
	require.Equal(t, "customer", claims["role"])

	parsed, err := jwt.Parse(access, func(j *jwt.Token) (interface{}, error) {
		return s.JWTSecret, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	require.EqualValues(t, 7, parsed.Claims.(jwt.MapClaims)["sub"])

	// the old token cannot be replayed
	_, _, _, err = s.RotateToken(old)
	require.Error(t, err)
	require.Contains(t, err.Error(), "revoked")

	// the new one still rotates
	_, _, _, err = s.RotateToken(refresh)
	require.NoError(t, err)
}

func TestRotateTokenRejectsUnknownToken(t *testing.T) {
	s := newTokenService(t)

	raw, err := SignRefreshToken(7, "customer", s.RefreshSecret)
	require.NoError(t, err)

	// signed but never stored
	_, _, _, err = s.RotateToken(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	s := newTokenService(t)

	access, err := SignAccessToken(7, "customer", s.RefreshSecret)
	require.NoError(t, err)

	_, err = ValidateRefresh(access, s.RefreshSecret, s.DB)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a refresh token")
}

func TestValidateRefreshRejectsExpiredRow(t *testing.T) {
	s := newTokenService(t)
	raw := issueRefresh(t, s, 7, "customer")

	require.NoError(t, s.DB.Model(&models.RefreshToken{}).
		Where("token = ?", raw).
		Update("expires_at", time.Now().Add(-time.Hour).Unix()).Error)

	_, err := ValidateRefresh(raw, s.RefreshSecret, s.DB)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expired")
}
