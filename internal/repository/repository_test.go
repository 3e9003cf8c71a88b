package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/testutil"
	"gorm.io/gorm"
)

func clickCount(t *testing.T, db *gorm.DB, model interface{}, id string) int {
	t.Helper()
	var count int
	require.NoError(t, db.Model(model).Where("id = ?", id).Select("click_count").Scan(&count).Error)
	return count
}

func rowCount(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestUserRepository_CreateAddsDefaultPreferences(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Email: "a@example.com", Name: "A", Slug: "Alice"}
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, "alice", user.Slug)

	prefs, err := repo.GetPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, prefs.ShowSocialIcons)
	assert.False(t, prefs.EnableGuestbook)
	assert.Equal(t, "system", prefs.Theme)

	err = repo.Create(ctx, &models.User{Slug: "alice"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestUserRepository_UpdateSlug(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateUser(t, db, "bob")

	t.Run("taken slug is rejected", func(t *testing.T) {
		slug := "bob"
		_, _, err := repo.Update(ctx, alice.ID, UserUpdate{Slug: &slug})
		assert.ErrorIs(t, err, ErrSlugTaken)
	})

	t.Run("new slug returns the old one", func(t *testing.T) {
		slug := "alice-new"
		updated, oldSlug, err := repo.Update(ctx, alice.ID, UserUpdate{Slug: &slug})
		require.NoError(t, err)
		assert.Equal(t, "alice", oldSlug)
		assert.Equal(t, "alice-new", updated.Slug)
	})

	t.Run("unknown user", func(t *testing.T) {
		name := "x"
		_, _, err := repo.Update(ctx, "missing", UserUpdate{Name: &name})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserRepository_GetProfileBySlugOrdersContent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "carol")
	testutil.CreateLink(t, db, user.ID, "Second", 1)
	testutil.CreateLink(t, db, user.ID, "First", 0)
	testutil.CreateIcon(t, db, user.ID, "github", 1)
	testutil.CreateIcon(t, db, user.ID, "twitter", 0)

	profile, err := repo.GetProfileBySlug(ctx, "CAROL")
	require.NoError(t, err)
	require.Len(t, profile.Links, 2)
	assert.Equal(t, "First", profile.Links[0].Title)
	require.Len(t, profile.Icons, 2)
	assert.Equal(t, "twitter", profile.Icons[0].Platform)
	require.NotNil(t, profile.Preferences)

	_, err = repo.GetProfileBySlug(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_DeleteRemovesOwnedRows(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "dave")
	link := testutil.CreateLink(t, db, user.ID, "Blog", 0)
	icon := testutil.CreateIcon(t, db, user.ID, "github", 0)
	now := time.Now().UTC()
	testutil.CreateLinkClicks(t, db, link.ID, 2, now)
	testutil.CreateIconClicks(t, db, icon.ID, 1, now)
	testutil.CreatePageViews(t, db, user.ID, 3, "google", now)
	require.NoError(t, db.Create(&models.Comment{UserID: user.ID, Name: "Eve", Message: "hi"}).Error)

	require.NoError(t, repo.Delete(ctx, user.ID))

	assert.Zero(t, rowCount(t, db, &models.User{}, "id = ?", user.ID))
	assert.Zero(t, rowCount(t, db, &models.Link{}, "user_id = ?", user.ID))
	assert.Zero(t, rowCount(t, db, &models.LinkClick{}, "user_link_id = ?", link.ID))
	assert.Zero(t, rowCount(t, db, &models.IconClick{}, "user_icon_id = ?", icon.ID))
	assert.Zero(t, rowCount(t, db, &models.PageView{}, "user_id = ?", user.ID))
	assert.Zero(t, rowCount(t, db, &models.Comment{}, "user_id = ?", user.ID))
	assert.Zero(t, rowCount(t, db, &models.Preferences{}, "user_id = ?", user.ID))

	assert.ErrorIs(t, repo.Delete(ctx, user.ID), ErrUserNotFound)
}

func TestUserRepository_UpdatePreferencesWritesFalse(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "erin")
	off := false
	theme := "dark"
	prefs, err := repo.UpdatePreferences(ctx, user.ID, PreferencesUpdate{ShowSocialIcons: &off, Theme: &theme})
	require.NoError(t, err)
	assert.False(t, prefs.ShowSocialIcons)

	reloaded, err := repo.GetPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.ShowSocialIcons)
	assert.Equal(t, "dark", reloaded.Theme)
}

func TestLinkRepository_CreateAppendsAndDeleteRemovesClicks(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "frank")

	first := &models.Link{UserID: user.ID, URL: "https://a.example", Title: "A", IsVisible: true}
	require.NoError(t, repo.Create(ctx, first))
	second := &models.Link{UserID: user.ID, URL: "https://b.example", Title: "B", IsVisible: true}
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, 0, first.Order)
	assert.Equal(t, 1, second.Order)

	hidden := false
	updated, err := repo.Update(ctx, first.ID, LinkUpdate{IsVisible: &hidden})
	require.NoError(t, err)
	assert.False(t, updated.IsVisible)

	testutil.CreateLinkClicks(t, db, first.ID, 3, time.Now().UTC())
	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.Zero(t, rowCount(t, db, &models.LinkClick{}, "user_link_id = ?", first.ID))

	_, err = repo.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrLinkNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), ErrLinkNotFound)
}

func TestIconRepository_PlatformConflictAndOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewIconRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "grace")

	gh := &models.Icon{UserID: user.ID, URL: "https://github.com/grace", Platform: "github", IsVisible: true}
	require.NoError(t, repo.Create(ctx, gh))
	assert.Equal(t, 0, gh.Order)
	assert.Equal(t, "simple-icons:github", gh.Logo)

	dup := &models.Icon{UserID: user.ID, URL: "https://github.com/other", Platform: "github", IsVisible: true}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrPlatformTaken)

	tw := &models.Icon{UserID: user.ID, URL: "https://x.com/grace", Platform: "twitter", IsVisible: true}
	require.NoError(t, repo.Create(ctx, tw))
	assert.Equal(t, 1, tw.Order)

	bad := &models.Icon{UserID: user.ID, URL: "https://myspace.com/grace", Platform: "myspace"}
	assert.ErrorIs(t, repo.Create(ctx, bad), ErrInvalidInput)

	order := 5
	updated, err := repo.Update(ctx, tw.ID, IconUpdate{Order: &order})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Order)
	assert.Equal(t, "simple-icons:x", updated.Logo)
}

func TestAnalyticsRepository_RecordClickKeepsCounterInSync(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "heidi")
	link := testutil.CreateLink(t, db, user.ID, "Shop", 0)
	icon := testutil.CreateIcon(t, db, user.ID, "github", 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordLinkClick(ctx, link.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := repo.RecordIconClick(ctx, icon.ID)
	require.NoError(t, err)

	assert.Equal(t, 10, clickCount(t, db, &models.Link{}, link.ID))
	assert.EqualValues(t, 10, rowCount(t, db, &models.LinkClick{}, "user_link_id = ?", link.ID))
	assert.Equal(t, 1, clickCount(t, db, &models.Icon{}, icon.ID))

	_, err = repo.RecordLinkClick(ctx, "missing")
	assert.Error(t, err)
}

func TestAnalyticsRepository_FindTargetScopedToUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "ivan")
	other := testutil.CreateUser(t, db, "judy")
	link := testutil.CreateLink(t, db, owner.ID, "Mine", 0)

	_, err := repo.FindLinkForUser(ctx, link.ID, owner.ID)
	assert.NoError(t, err)
	_, err = repo.FindLinkForUser(ctx, link.ID, other.ID)
	assert.ErrorIs(t, err, ErrLinkNotFound)
	_, err = repo.FindIconForUser(ctx, "missing", owner.ID)
	assert.ErrorIs(t, err, ErrIconNotFound)
}

func TestAnalyticsRepository_ReferrerCounts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "kate")
	now := time.Now().UTC()

	testutil.CreatePageViews(t, db, user.ID, 3, "google", now)
	testutil.CreatePageViews(t, db, user.ID, 1, "twitter", now)
	require.NoError(t, db.Create(&models.PageView{UserID: user.ID}).Error)

	counts, err := repo.ReferrerCounts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, ReferrerCount{Source: "google", Count: 3}, counts[0])
	assert.Equal(t, ReferrerCount{Source: "twitter", Count: 1}, counts[1])
	assert.Equal(t, ReferrerCount{Source: "unknown", Count: 1}, counts[2])
}

func TestAnalyticsRepository_SelectJoinsParentAndFiltersByDate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "leo")
	other := testutil.CreateUser(t, db, "mia")
	link := testutil.CreateLink(t, db, user.ID, "Docs", 0)
	otherLink := testutil.CreateLink(t, db, other.ID, "Theirs", 0)

	testutil.CreateLinkClicks(t, db, link.ID, 2, testutil.Day(2024, time.January, 1))
	testutil.CreateLinkClicks(t, db, link.ID, 3, testutil.Day(2024, time.March, 1))
	testutil.CreateLinkClicks(t, db, otherLink.ID, 4, testutil.Day(2024, time.January, 1))

	all, truncated, err := repo.SelectLinkClicks(ctx, user.ID, DateRange{})
	require.NoError(t, err)
	assert.False(t, truncated)
	require.Len(t, all, 5)
	require.NotNil(t, all[0].LinkTitle)
	assert.Equal(t, "Docs", *all[0].LinkTitle)
	assert.True(t, all[0].CreatedAt.Before(all[4].CreatedAt))

	to := testutil.Day(2024, time.February, 1)
	early, _, err := repo.SelectLinkClicks(ctx, user.ID, DateRange{To: &to})
	require.NoError(t, err)
	assert.Len(t, early, 2)
}

func TestAnalyticsRepository_DateRangeAcrossZones(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "rosa")

	require.NoError(t, repo.CreatePageView(ctx, &models.PageView{UserID: user.ID}))
	assert.Equal(t, time.UTC, db.NowFunc().Location())

	// bounds given in a non-UTC zone still select the row stamped by the database
	zone := time.FixedZone("UTC-5", -5*60*60)
	from := time.Now().In(zone).Add(-time.Hour)
	to := time.Now().In(zone).Add(time.Hour)
	rows, _, err := repo.SelectPageViews(ctx, user.ID, DateRange{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	past := time.Now().In(zone).Add(-2 * time.Hour)
	rows, _, err = repo.SelectPageViews(ctx, user.ID, DateRange{To: &past})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAnalyticsRepository_DeleteArchived(t *testing.T) {
	ctx := context.Background()

	t.Run("full wipe zeroes every counter", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		repo := NewAnalyticsRepository(db)
		user := testutil.CreateUser(t, db, "nina")
		link := testutil.CreateLink(t, db, user.ID, "A", 0)
		icon := testutil.CreateIcon(t, db, user.ID, "github", 0)
		testutil.CreateLinkClicks(t, db, link.ID, 4, testutil.Day(2024, time.January, 5))
		testutil.CreateIconClicks(t, db, icon.ID, 2, testutil.Day(2024, time.January, 5))
		testutil.CreatePageViews(t, db, user.ID, 3, "google", testutil.Day(2024, time.January, 5))

		sel := &ArchiveSelection{}
		var err error
		sel.PageViews, _, err = repo.SelectPageViews(ctx, user.ID, DateRange{})
		require.NoError(t, err)
		sel.LinkClicks, _, err = repo.SelectLinkClicks(ctx, user.ID, DateRange{})
		require.NoError(t, err)
		sel.IconClicks, _, err = repo.SelectIconClicks(ctx, user.ID, DateRange{})
		require.NoError(t, err)

		counts, err := repo.DeleteArchived(ctx, user.ID, sel, false)
		require.NoError(t, err)
		assert.EqualValues(t, 9, counts.Total())
		assert.Zero(t, clickCount(t, db, &models.Link{}, link.ID))
		assert.Zero(t, clickCount(t, db, &models.Icon{}, icon.ID))
		assert.Zero(t, rowCount(t, db, &models.PageView{}, "user_id = ?", user.ID))
	})

	t.Run("date filtered run recomputes affected parents", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		repo := NewAnalyticsRepository(db)
		user := testutil.CreateUser(t, db, "oscar")
		a := testutil.CreateLink(t, db, user.ID, "A", 0)
		b := testutil.CreateLink(t, db, user.ID, "B", 1)
		testutil.CreateLinkClicks(t, db, a.ID, 2, testutil.Day(2024, time.January, 1))
		testutil.CreateLinkClicks(t, db, a.ID, 3, testutil.Day(2024, time.June, 1))
		testutil.CreateLinkClicks(t, db, b.ID, 1, testutil.Day(2024, time.June, 1))

		to := testutil.Day(2024, time.February, 1)
		rng := DateRange{To: &to}
		sel := &ArchiveSelection{}
		var err error
		sel.LinkClicks, sel.LinkClicksTruncated, err = repo.SelectLinkClicks(ctx, user.ID, rng)
		require.NoError(t, err)

		counts, err := repo.DeleteArchived(ctx, user.ID, sel, rng.Filtered())
		require.NoError(t, err)
		assert.EqualValues(t, 2, counts.LinkClicks)
		assert.Equal(t, 3, clickCount(t, db, &models.Link{}, a.ID))
		assert.Equal(t, 1, clickCount(t, db, &models.Link{}, b.ID))
	})

	t.Run("truncated selection recomputes instead of zeroing", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		repo := NewAnalyticsRepository(db)
		user := testutil.CreateUser(t, db, "peggy")
		a := testutil.CreateLink(t, db, user.ID, "A", 0)
		testutil.CreateLinkClicks(t, db, a.ID, 3, testutil.Day(2024, time.January, 1))

		all, _, err := repo.SelectLinkClicks(ctx, user.ID, DateRange{})
		require.NoError(t, err)
		// Pretend the cap cut the batch after the first row
		sel := &ArchiveSelection{LinkClicks: all[:1], LinkClicksTruncated: true}

		_, err = repo.DeleteArchived(ctx, user.ID, sel, false)
		require.NoError(t, err)
		assert.Equal(t, 2, clickCount(t, db, &models.Link{}, a.ID))
	})

	t.Run("full wipe keeps clicks recorded after selection", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		repo := NewAnalyticsRepository(db)
		user := testutil.CreateUser(t, db, "quinn")
		link := testutil.CreateLink(t, db, user.ID, "A", 0)
		icon := testutil.CreateIcon(t, db, user.ID, "github", 0)
		testutil.CreateLinkClicks(t, db, link.ID, 3, testutil.Day(2024, time.January, 5))
		testutil.CreateIconClicks(t, db, icon.ID, 2, testutil.Day(2024, time.January, 5))

		sel := &ArchiveSelection{}
		var err error
		sel.LinkClicks, _, err = repo.SelectLinkClicks(ctx, user.ID, DateRange{})
		require.NoError(t, err)
		sel.IconClicks, _, err = repo.SelectIconClicks(ctx, user.ID, DateRange{})
		require.NoError(t, err)

		// arrives between select and delete
		_, err = repo.RecordLinkClick(ctx, link.ID)
		require.NoError(t, err)
		_, err = repo.RecordIconClick(ctx, icon.ID)
		require.NoError(t, err)

		counts, err := repo.DeleteArchived(ctx, user.ID, sel, false)
		require.NoError(t, err)
		assert.EqualValues(t, 5, counts.Total())
		assert.Equal(t, 1, clickCount(t, db, &models.Link{}, link.ID))
		assert.Equal(t, 1, clickCount(t, db, &models.Icon{}, icon.ID))
		assert.EqualValues(t, 1, rowCount(t, db, &models.LinkClick{}, "user_link_id = ?", link.ID))
		assert.EqualValues(t, 1, rowCount(t, db, &models.IconClick{}, "user_icon_id = ?", icon.ID))
	})

	t.Run("empty selection is a no-op", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		repo := NewAnalyticsRepository(db)
		counts, err := repo.DeleteArchived(ctx, "anyone", &ArchiveSelection{}, false)
		require.NoError(t, err)
		assert.Zero(t, counts.Total())
	})
}

func TestDeleteByIDs_Chunks(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "quinn")
	testutil.CreatePageViews(t, db, user.ID, deleteChunkSize+7, "google", time.Now().UTC())

	var ids []string
	require.NoError(t, db.Model(&models.PageView{}).Where("user_id = ?", user.ID).Pluck("id", &ids).Error)

	n, err := deleteByIDs(db, &models.PageView{}, ids)
	require.NoError(t, err)
	assert.EqualValues(t, deleteChunkSize+7, n)
}
