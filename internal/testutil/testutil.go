// Package testutil provides fixtures shared by package tests: an isolated
// in-memory sqlite database, a miniredis-backed cache store and seeded users.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/biolink/internal/config"
	"github.com/zfogg/biolink/internal/database"
	"github.com/zfogg/biolink/internal/models"
	"gorm.io/gorm"
)

// NewTestDB opens a migrated in-memory sqlite database private to the test
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])

	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, "test")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// NewRedis starts a miniredis server and returns a client connected to it
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return mr, client
}

// CreateUser inserts a user with default preferences
func CreateUser(t *testing.T, db *gorm.DB, slug string) *models.User {
	t.Helper()

	user := &models.User{
		Email: slug + "@example.com",
		Name:  "Test " + slug,
		Slug:  slug,
	}
	require.NoError(t, db.Create(user).Error)

	prefs := models.DefaultPreferences(user.ID)
	require.NoError(t, db.Create(prefs).Error)
	user.Preferences = prefs
	return user
}

// CreateLink inserts a visible link at the given position
func CreateLink(t *testing.T, db *gorm.DB, userID, title string, order int) *models.Link {
	t.Helper()

	link := &models.Link{
		UserID:    userID,
		URL:       "https://example.com/" + strings.ToLower(title),
		Title:     title,
		Order:     order,
		IsVisible: true,
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

// CreateIcon inserts a visible icon for a supported platform
func CreateIcon(t *testing.T, db *gorm.DB, userID, platform string, order int) *models.Icon {
	t.Helper()

	logo, ok := models.PlatformLogo(platform)
	require.True(t, ok, "unsupported platform %s", platform)

	icon := &models.Icon{
		UserID:    userID,
		URL:       "https://" + platform + ".com/someone",
		Platform:  platform,
		Logo:      logo,
		Order:     order,
		IsVisible: true,
	}
	require.NoError(t, db.Create(icon).Error)
	return icon
}

// CreateLinkClicks inserts n clicks at the given time and bumps the link counter
func CreateLinkClicks(t *testing.T, db *gorm.DB, linkID string, n int, at time.Time) {
	t.Helper()

	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.LinkClick{UserLinkID: linkID, CreatedAt: at}).Error)
	}
	require.NoError(t, db.Model(&models.Link{}).Where("id = ?", linkID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", n)).Error)
}

// CreateIconClicks inserts n clicks at the given time and bumps the icon counter
func CreateIconClicks(t *testing.T, db *gorm.DB, iconID string, n int, at time.Time) {
	t.Helper()

	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.IconClick{UserIconID: iconID, CreatedAt: at}).Error)
	}
	require.NoError(t, db.Model(&models.Icon{}).Where("id = ?", iconID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", n)).Error)
}

// CreatePageViews inserts n page views with the given source at the given time
func CreatePageViews(t *testing.T, db *gorm.DB, userID string, n int, source string, at time.Time) {
	t.Helper()

	for i := 0; i < n; i++ {
		src := source
		require.NoError(t, db.Create(&models.PageView{UserID: userID, Source: &src, CreatedAt: at}).Error)
	}
}

// Day returns midnight UTC of the given date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
