package analytics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/biolink/internal/cache"
	apierrors "github.com/zfogg/biolink/internal/errors"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/repository"
	"github.com/zfogg/biolink/internal/storage"
	"github.com/zfogg/biolink/internal/testutil"
	"gorm.io/gorm"
)

// memoryStore records uploads and can be told to fail
type memoryStore struct {
	mu      sync.Mutex
	objects map[string]storage.Object
	failOn  string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string]storage.Object)}
}

func (m *memoryStore) Put(_ context.Context, obj storage.Object, policy storage.UploadPolicy) (*storage.UploadResult, error) {
	if err := policy.Check(obj); err != nil {
		return nil, err
	}
	if m.failOn != "" && strings.Contains(obj.Key, m.failOn) {
		return nil, errors.New("bucket unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.Key] = obj
	return &storage.UploadResult{Key: obj.Key, URL: "https://cdn.example/" + obj.Key, Size: int64(len(obj.Body))}, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) KeyFromURL(url string) (string, bool) {
	return strings.CutPrefix(url, "https://cdn.example/")
}

func (m *memoryStore) find(t *testing.T, stem string) storage.Object {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, obj := range m.objects {
		if strings.Contains(key, "/"+stem+"_archive_") {
			return obj
		}
	}
	t.Fatalf("no %s archive uploaded", stem)
	return storage.Object{}
}

func readRows[T any](t *testing.T, obj storage.Object) []T {
	t.Helper()
	rows, err := parquet.Read[T](bytes.NewReader(obj.Body), int64(len(obj.Body)))
	require.NoError(t, err)
	return rows
}

type archiveFixture struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	store    *memoryStore
	archiver *Archiver
	owner    *models.User
	batch    time.Time
}

func newArchiveFixture(t *testing.T) *archiveFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	mr, client := testutil.NewRedis(t)
	store := newMemoryStore()

	a := NewArchiver(
		repository.NewUserRepository(db),
		repository.NewAnalyticsRepository(db),
		store,
		cache.New(cache.WrapRedisClient(client), 0, 0),
	)
	batch := time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return batch }

	return &archiveFixture{db: db, mr: mr, store: store, archiver: a, owner: testutil.CreateUser(t, db, "archivist"), batch: batch}
}

func (f *archiveFixture) clickCount(t *testing.T, model interface{}, id string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Model(model).Where("id = ?", id).Select("click_count").Scan(&n).Error)
	return n
}

func TestArchive_EmptyTouchesNothing(t *testing.T) {
	f := newArchiveFixture(t)
	require.NoError(t, f.mr.Set(cache.AnalyticsKey(f.owner.ID), "cached"))

	res, err := f.archiver.Archive(context.Background(), f.owner.ID, ArchiveOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "No analytics data found to delete", res.Message)
	assert.Empty(t, f.store.objects)
	assert.True(t, f.mr.Exists(cache.AnalyticsKey(f.owner.ID)))
}

func TestArchive_FullWipe(t *testing.T) {
	f := newArchiveFixture(t)
	day := testutil.Day(2024, time.March, 3)
	link := testutil.CreateLink(t, f.db, f.owner.ID, "Docs", 0)
	icon := testutil.CreateIcon(t, f.db, f.owner.ID, "github", 0)
	testutil.CreatePageViews(t, f.db, f.owner.ID, 2, "twitter", day)
	testutil.CreateLinkClicks(t, f.db, link.ID, 3, day)
	testutil.CreateIconClicks(t, f.db, icon.ID, 1, day)
	for _, k := range []string{cache.AnalyticsKey(f.owner.ID), cache.LinksKey(f.owner.ID), cache.IconsKey(f.owner.ID), cache.ProfileKey(f.owner.Slug)} {
		require.NoError(t, f.mr.Set(k, "cached"))
	}

	res, err := f.archiver.Archive(context.Background(), f.owner.ID, ArchiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Successfully deleted 6 analytics records", res.Message)
	assert.Len(t, res.Files, 3)
	assert.Contains(t, res.Files, ArchiveKey(f.owner.ID, CategoryLinkClick, f.batch))
	assert.Equal(t, "archive/user_"+f.owner.ID+"/linkclicks_archive_1719835200000.parquet",
		ArchiveKey(f.owner.ID, CategoryLinkClick, f.batch))

	views := readRows[PageViewRow](t, f.store.find(t, "pageviews"))
	require.Len(t, views, 2)
	assert.Equal(t, "twitter", *views[0].Source)
	assert.True(t, views[0].CreatedAt.Equal(day))

	clicks := readRows[LinkClickRow](t, f.store.find(t, "linkclicks"))
	require.Len(t, clicks, 3)
	assert.Equal(t, "Docs", *clicks[0].LinkTitle)

	icons := readRows[IconClickRow](t, f.store.find(t, "iconclicks"))
	require.Len(t, icons, 1)
	assert.Equal(t, "simple-icons:github", *icons[0].IconLogo)
	assert.Equal(t, storage.ParquetContentType, f.store.find(t, "iconclicks").ContentType)

	assert.Zero(t, f.clickCount(t, &models.Link{}, link.ID))
	assert.Zero(t, f.clickCount(t, &models.Icon{}, icon.ID))
	for _, k := range []string{cache.AnalyticsKey(f.owner.ID), cache.LinksKey(f.owner.ID), cache.IconsKey(f.owner.ID), cache.ProfileKey(f.owner.Slug)} {
		assert.False(t, f.mr.Exists(k), k)
	}
}

func TestArchive_DateFilteredKeepsCountersExact(t *testing.T) {
	f := newArchiveFixture(t)
	a := testutil.CreateLink(t, f.db, f.owner.ID, "A", 0)
	b := testutil.CreateLink(t, f.db, f.owner.ID, "B", 1)
	testutil.CreateLinkClicks(t, f.db, a.ID, 2, testutil.Day(2024, time.January, 10))
	testutil.CreateLinkClicks(t, f.db, a.ID, 4, testutil.Day(2024, time.May, 10))
	testutil.CreateLinkClicks(t, f.db, b.ID, 1, testutil.Day(2024, time.January, 20))
	testutil.CreatePageViews(t, f.db, f.owner.ID, 5, "google", testutil.Day(2024, time.January, 15))

	from := testutil.Day(2024, time.January, 1)
	to := testutil.Day(2024, time.February, 1)
	res, err := f.archiver.Archive(context.Background(), f.owner.ID, ArchiveOptions{
		Type:     CategoryLinkClick,
		DateFrom: &from,
		DateTo:   &to,
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully deleted 3 analytics records", res.Message)
	assert.Len(t, res.Files, 1)

	// (a) only rows in range are gone, (b) counters match remaining rows,
	// (c) links outside the range keep theirs, (d) other categories are untouched
	assert.Equal(t, 4, f.clickCount(t, &models.Link{}, a.ID))
	assert.Equal(t, 0, f.clickCount(t, &models.Link{}, b.ID))
	var remaining, views int64
	f.db.Model(&models.LinkClick{}).Count(&remaining)
	f.db.Model(&models.PageView{}).Count(&views)
	assert.EqualValues(t, 4, remaining)
	assert.EqualValues(t, 5, views)
}

func TestArchive_DateFilteredAllCategories(t *testing.T) {
	f := newArchiveFixture(t)
	link := testutil.CreateLink(t, f.db, f.owner.ID, "A", 0)
	icon := testutil.CreateIcon(t, f.db, f.owner.ID, "github", 0)
	inRange := testutil.Day(2024, time.January, 15)
	later := testutil.Day(2024, time.May, 15)
	testutil.CreatePageViews(t, f.db, f.owner.ID, 3, "google", inRange)
	testutil.CreatePageViews(t, f.db, f.owner.ID, 2, "direct", later)
	testutil.CreateLinkClicks(t, f.db, link.ID, 2, inRange)
	testutil.CreateLinkClicks(t, f.db, link.ID, 1, later)
	testutil.CreateIconClicks(t, f.db, icon.ID, 4, later)
	keys := []string{cache.AnalyticsKey(f.owner.ID), cache.LinksKey(f.owner.ID), cache.IconsKey(f.owner.ID), cache.ProfileKey(f.owner.Slug)}
	for _, k := range keys {
		require.NoError(t, f.mr.Set(k, "cached"))
	}

	from := testutil.Day(2024, time.January, 1)
	to := testutil.Day(2024, time.February, 1)
	res, err := f.archiver.Archive(context.Background(), f.owner.ID, ArchiveOptions{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	assert.Equal(t, "Successfully deleted 5 analytics records", res.Message)

	// icon clicks are all outside the range, so no icon file
	assert.Len(t, res.Files, 2)
	assert.Len(t, f.store.objects, 2)
	assert.Len(t, readRows[PageViewRow](t, f.store.find(t, "pageviews")), 3)
	assert.Len(t, readRows[LinkClickRow](t, f.store.find(t, "linkclicks")), 2)

	var views []models.PageView
	require.NoError(t, f.db.Where("user_id = ?", f.owner.ID).Find(&views).Error)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.True(t, v.CreatedAt.Equal(later))
	}
	var clicks, iconClicks int64
	f.db.Model(&models.LinkClick{}).Count(&clicks)
	f.db.Model(&models.IconClick{}).Count(&iconClicks)
	assert.EqualValues(t, 1, clicks)
	assert.EqualValues(t, 4, iconClicks)
	assert.Equal(t, 1, f.clickCount(t, &models.Link{}, link.ID))
	assert.Equal(t, 4, f.clickCount(t, &models.Icon{}, icon.ID))

	for _, k := range keys {
		assert.False(t, f.mr.Exists(k), k)
	}
}

func TestArchive_SingleRecordMessage(t *testing.T) {
	f := newArchiveFixture(t)
	testutil.CreatePageViews(t, f.db, f.owner.ID, 1, "direct", testutil.Day(2024, time.January, 1))

	res, err := f.archiver.Archive(context.Background(), f.owner.ID, ArchiveOptions{Type: CategoryPageView})
	require.NoError(t, err)
	assert.Equal(t, "Successfully deleted 1 analytics record", res.Message)
}

func TestArchive_UploadFailureDeletesNothing(t *testing.T) {
	f := newArchiveFixture(t)
	link := testutil.CreateLink(t, f.db, f.owner.ID, "A", 0)
	day := testutil.Day(2024, time.January, 1)
	testutil.CreatePageViews(t, f.db, f.owner.ID, 2, "google", day)
	testutil.CreateLinkClicks(t, f.db, link.ID, 2, day)
	f.store.failOn = "linkclicks"

	_, err := f.archiver.Archive(context.Background(), f.owner.ID, ArchiveOptions{})
	require.Error(t, err)
	apiErr, ok := apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 502, apiErr.Status)
	assert.Equal(t, "Failed to upload analytics archive", apiErr.Message)

	var views, clicks int64
	f.db.Model(&models.PageView{}).Count(&views)
	f.db.Model(&models.LinkClick{}).Count(&clicks)
	assert.EqualValues(t, 2, views)
	assert.EqualValues(t, 2, clicks)
	assert.Equal(t, 2, f.clickCount(t, &models.Link{}, link.ID))
	// the page view file uploaded before the failure stays
	f.store.find(t, "pageviews")
}

func TestArchive_InvalidType(t *testing.T) {
	f := newArchiveFixture(t)
	_, err := f.archiver.Archive(context.Background(), f.owner.ID, ArchiveOptions{Type: "link"})
	require.Error(t, err)
	assert.True(t, apierrors.HasCode(err, apierrors.ErrBadRequest))
}

func TestArchive_NoStorageConfigured(t *testing.T) {
	f := newArchiveFixture(t)
	f.archiver.store = nil
	testutil.CreatePageViews(t, f.db, f.owner.ID, 1, "google", testutil.Day(2024, time.January, 1))

	_, err := f.archiver.Archive(context.Background(), f.owner.ID, ArchiveOptions{})
	assert.True(t, apierrors.HasCode(err, apierrors.ErrServiceUnavail))
}

func TestValidCategory(t *testing.T) {
	for _, c := range []string{"", "pageView", "linkClick", "iconClick"} {
		assert.True(t, ValidCategory(c), c)
	}
	for _, c := range []string{"link", "icon", "PAGEVIEW"} {
		assert.False(t, ValidCategory(c), c)
	}
}
