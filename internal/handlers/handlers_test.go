package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/biolink/internal/cache"
	"github.com/zfogg/biolink/internal/container"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/storage"
	"github.com/zfogg/biolink/internal/testutil"
	"github.com/zfogg/biolink/internal/util"
	"gorm.io/gorm"
)

const testBaseURL = "https://bio.example"

// fakeStore keeps uploaded objects in memory
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]storage.Object
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]storage.Object)}
}

func (f *fakeStore) Put(_ context.Context, obj storage.Object, policy storage.UploadPolicy) (*storage.UploadResult, error) {
	if err := policy.Check(obj); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[obj.Key] = obj
	return &storage.UploadResult{Key: obj.Key, URL: "https://cdn.example/" + obj.Key, Size: int64(len(obj.Body))}, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) KeyFromURL(url string) (string, bool) {
	return strings.CutPrefix(url, "https://cdn.example/")
}

func (f *fakeStore) keys(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// HandlersTestSuite runs handlers against sqlite, miniredis and an in-memory object store
type HandlersTestSuite struct {
	suite.Suite
	db     *gorm.DB
	mr     *miniredis.Miniredis
	store  *fakeStore
	router *gin.Engine
	owner  *models.User
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (s *HandlersTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.db = testutil.NewTestDB(s.T())
	mr, client := testutil.NewRedis(s.T())
	s.mr = mr
	s.store = newFakeStore()

	c := container.NewMock().
		WithMockDB(s.db).
		WithMockRedis(client).
		WithMockStorage(s.store).
		WithBaseURL(testBaseURL).
		Build()

	s.router = gin.New()
	// X-User-ID stands in for the session cookie
	s.router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User-ID"); id != "" {
			c.Set(util.ContextUserIDKey, id)
		}
		c.Next()
	})
	NewHandlers(c).RegisterRoutes(s.router)

	s.owner = testutil.CreateUser(s.T(), s.db, "owner")
}

func (s *HandlersTestSuite) do(method, path, userID string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *HandlersTestSuite) enableGuestbook(userID string) {
	s.Require().NoError(s.db.Model(&models.Preferences{}).
		Where("user_id = ?", userID).
		Update("enable_guestbook", true).Error)
}

func (s *HandlersTestSuite) TestAuthRequired() {
	w := s.do(http.MethodGet, "/api/user", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestCreateComment() {
	s.enableGuestbook(s.owner.ID)

	w := s.do(http.MethodPost, "/api/analytics/comments", "", gin.H{
		"userId":  s.owner.ID,
		"name":    "  Visitor  ",
		"email":   "",
		"message": "Nice page",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	comment := s.decode(w)["comment"].(map[string]interface{})
	s.Equal("Visitor", comment["name"])
	s.Nil(comment["email"])

	var count int64
	s.db.Model(&models.Comment{}).Where("user_id = ?", s.owner.ID).Count(&count)
	s.EqualValues(1, count)
}

func (s *HandlersTestSuite) TestCreateComment_GuestbookDisabled() {
	body := gin.H{"userId": s.owner.ID, "name": "Visitor", "message": "hi"}

	w := s.do(http.MethodPost, "/api/analytics/comments", "", body)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("Guestbook is disabled for this user", s.decode(w)["message"])

	// users without a preferences row get the defaults
	s.Require().NoError(s.db.Where("user_id = ?", s.owner.ID).Delete(&models.Preferences{}).Error)
	w = s.do(http.MethodPost, "/api/analytics/comments", "", body)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlersTestSuite) TestCreateComment_Validation() {
	tests := []struct {
		name   string
		body   gin.H
		status int
	}{
		{"unknown user", gin.H{"userId": "missing", "name": "a", "message": "b"}, http.StatusNotFound},
		{"blank name", gin.H{"userId": s.owner.ID, "name": "   ", "message": "b"}, http.StatusBadRequest},
		{"bad email", gin.H{"userId": s.owner.ID, "name": "a", "email": "nope", "message": "b"}, http.StatusBadRequest},
		{"long message", gin.H{"userId": s.owner.ID, "name": "a", "message": strings.Repeat("x", 501)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, "/api/analytics/comments", "", tt.body)
			s.Equal(tt.status, w.Code, w.Body.String())
		})
	}
}

func (s *HandlersTestSuite) TestCreateComment_RateLimited() {
	body := gin.H{"userId": s.owner.ID, "name": "Visitor", "message": "hi"}
	for i := 0; i < 10; i++ {
		w := s.do(http.MethodPost, "/api/analytics/comments", "", body)
		s.Require().Equal(http.StatusForbidden, w.Code)
	}

	w := s.do(http.MethodPost, "/api/analytics/comments", "", body)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.NotEmpty(w.Header().Get("Retry-After"))
	s.Equal("RATE_LIMITED", s.decode(w)["code"])
}

func (s *HandlersTestSuite) TestGetLinks_CacheAside() {
	testutil.CreateLink(s.T(), s.db, s.owner.ID, "Second", 1)
	testutil.CreateLink(s.T(), s.db, s.owner.ID, "First", 0)

	w := s.do(http.MethodGet, "/api/links", s.owner.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("MISS", w.Header().Get("X-Cache"))
	links := s.decode(w)["links"].([]interface{})
	s.Require().Len(links, 2)
	s.Equal("First", links[0].(map[string]interface{})["title"])

	w = s.do(http.MethodGet, "/api/links", s.owner.ID, nil)
	s.Equal("HIT", w.Header().Get("X-Cache"))

	w = s.do(http.MethodPost, "/api/links", s.owner.ID, gin.H{"url": "https://example.com/third", "title": "Third"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.False(s.mr.Exists(cache.LinksKey(s.owner.ID)))
}

func (s *HandlersTestSuite) TestCreateLink_RejectsNonHTTP() {
	w := s.do(http.MethodPost, "/api/links", s.owner.ID, gin.H{"url": "javascript:alert(1)", "title": "x"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestUpdateLink_Ownership() {
	other := testutil.CreateUser(s.T(), s.db, "other")
	link := testutil.CreateLink(s.T(), s.db, other.ID, "Theirs", 0)

	w := s.do(http.MethodPut, "/api/links/"+link.ID, s.owner.ID, gin.H{"title": "Mine now"})
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("You don't have permission to update this link", s.decode(w)["message"])

	w = s.do(http.MethodDelete, "/api/links/missing", s.owner.ID, nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Link not found", s.decode(w)["message"])
}

func (s *HandlersTestSuite) TestDeleteLink_RemovesClicks() {
	link := testutil.CreateLink(s.T(), s.db, s.owner.ID, "Gone", 0)
	testutil.CreateLinkClicks(s.T(), s.db, link.ID, 3, testutil.Day(2024, 1, 1))

	w := s.do(http.MethodDelete, "/api/links/"+link.ID, s.owner.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Link deleted successfully", s.decode(w)["message"])

	var clicks int64
	s.db.Model(&models.LinkClick{}).Where("user_link_id = ?", link.ID).Count(&clicks)
	s.Zero(clicks)
}

func (s *HandlersTestSuite) TestCreateIcon() {
	w := s.do(http.MethodPost, "/api/social-icons", s.owner.ID, gin.H{"url": "https://github.com/owner", "platform": "GitHub"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	icon := s.decode(w)["icon"].(map[string]interface{})
	s.Equal("github", icon["platform"])

	w = s.do(http.MethodPost, "/api/social-icons", s.owner.ID, gin.H{"url": "https://github.com/again", "platform": "github"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("Social icon for this platform already exists", s.decode(w)["message"])

	w = s.do(http.MethodPost, "/api/social-icons", s.owner.ID, gin.H{"url": "https://myspace.com/x", "platform": "myspace"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestIcons_LegacyPath() {
	icon := testutil.CreateIcon(s.T(), s.db, s.owner.ID, "twitter", 0)

	w := s.do(http.MethodGet, "/api/icons", s.owner.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["icons"].([]interface{}), 1)

	w = s.do(http.MethodDelete, "/api/icons/"+icon.ID, s.owner.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Social icon deleted successfully", s.decode(w)["message"])
}

func (s *HandlersTestSuite) TestUpdateIcon_Ownership() {
	other := testutil.CreateUser(s.T(), s.db, "other")
	icon := testutil.CreateIcon(s.T(), s.db, other.ID, "youtube", 0)

	w := s.do(http.MethodPut, "/api/social-icons/"+icon.ID, s.owner.ID, gin.H{"isVisible": false})
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("You don't have permission to update this icon", s.decode(w)["message"])
}

func (s *HandlersTestSuite) TestGetUserProfile() {
	testutil.CreateLink(s.T(), s.db, s.owner.ID, "Blog", 0)

	w := s.do(http.MethodGet, "/api/user/OWNER", "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("MISS", w.Header().Get("X-Cache"))
	profile := s.decode(w)["userProfile"].(map[string]interface{})
	s.Equal("owner", profile["slug"])
	s.NotContains(profile, "email")
	s.Len(profile["links"].([]interface{}), 1)

	w = s.do(http.MethodGet, "/api/user/owner", "", nil)
	s.Equal("HIT", w.Header().Get("X-Cache"))

	w = s.do(http.MethodGet, "/api/user/nobody", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("User 'nobody' not found", s.decode(w)["message"])
}

func (s *HandlersTestSuite) TestUpdateUser_Slug() {
	testutil.CreateUser(s.T(), s.db, "taken")

	// warm the profile cache
	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/api/user/owner", "", nil).Code)
	s.True(s.mr.Exists(cache.ProfileKey("owner")))
	// left over from an earlier owner of the slug
	s.Require().NoError(s.mr.Set(cache.ProfileKey("new-name"), `{"userProfile":{"slug":"stale"}}`))

	w := s.do(http.MethodPut, "/api/user", s.owner.ID, gin.H{"slug": "Taken"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("This username is already taken. Please choose a different one.", s.decode(w)["message"])

	w = s.do(http.MethodPut, "/api/user", s.owner.ID, gin.H{"slug": "New-Name"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("new-name", s.decode(w)["updatedUser"].(map[string]interface{})["slug"])
	s.False(s.mr.Exists(cache.ProfileKey("owner")))
	s.False(s.mr.Exists(cache.ProfileKey("new-name")))

	w = s.do(http.MethodGet, "/api/user/owner", "", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/user/new-name", "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("MISS", w.Header().Get("X-Cache"))
	s.Equal("new-name", s.decode(w)["userProfile"].(map[string]interface{})["slug"])

	w = s.do(http.MethodPut, "/api/user", s.owner.ID, gin.H{"slug": "no"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestUpdatePreferences() {
	w := s.do(http.MethodPut, "/api/user/preferences", s.owner.ID, gin.H{"enableGuestbook": true, "theme": "dark"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	prefs := s.decode(w)["updatedPreferences"].(map[string]interface{})
	s.Equal(true, prefs["enableGuestbook"])
	s.Equal("dark", prefs["theme"])

	w = s.do(http.MethodPut, "/api/user/preferences", s.owner.ID, gin.H{"theme": "neon"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestRecordAnalytics() {
	w := s.do(http.MethodPost, "/api/analytics", "", gin.H{"type": "pageView", "userId": s.owner.ID},
		"Referer", "https://www.instagram.com/")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("Page view recorded successfully", s.decode(w)["message"])

	// the owner's own views are not stored
	w = s.do(http.MethodPost, "/api/analytics", s.owner.ID, gin.H{"type": "pageView", "userId": s.owner.ID})
	s.Equal(http.StatusNoContent, w.Code)

	var views int64
	s.db.Model(&models.PageView{}).Where("user_id = ?", s.owner.ID).Count(&views)
	s.EqualValues(1, views)

	w = s.do(http.MethodPost, "/api/analytics", "", gin.H{"type": "bogus", "userId": s.owner.ID})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestRecordAnalytics_LinkClick() {
	link := testutil.CreateLink(s.T(), s.db, s.owner.ID, "Shop", 0)

	w := s.do(http.MethodPost, "/api/analytics", "", gin.H{"type": "link", "userId": s.owner.ID, "id": link.ID})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var stored models.Link
	s.Require().NoError(s.db.First(&stored, "id = ?", link.ID).Error)
	s.Equal(1, stored.ClickCount)
}

func (s *HandlersTestSuite) TestGetAnalytics() {
	testutil.CreatePageViews(s.T(), s.db, s.owner.ID, 2, "instagram", testutil.Day(2024, 3, 1))

	w := s.do(http.MethodGet, "/api/analytics", s.owner.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["pageViews"].([]interface{}), 2)

	w = s.do(http.MethodGet, "/api/analytics/referrers", s.owner.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	refs := s.decode(w)["referrers"].([]interface{})
	s.Require().Len(refs, 1)
	s.Equal("instagram", refs[0].(map[string]interface{})["source"])
	s.EqualValues(2, refs[0].(map[string]interface{})["count"])
}

func (s *HandlersTestSuite) TestDeleteAnalytics() {
	testutil.CreatePageViews(s.T(), s.db, s.owner.ID, 3, "direct", testutil.Day(2024, 3, 1))

	w := s.do(http.MethodDelete, "/api/analytics?type=pageView", s.owner.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := s.decode(w)
	s.Equal(true, body["success"])
	s.Equal("Successfully deleted 3 analytics records", body["message"])
	s.Len(s.store.keys("archive/user_"+s.owner.ID+"/"), 1)

	var views int64
	s.db.Model(&models.PageView{}).Where("user_id = ?", s.owner.ID).Count(&views)
	s.Zero(views)

	w = s.do(http.MethodDelete, "/api/analytics", s.owner.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("No analytics data found to delete", s.decode(w)["message"])
}

func (s *HandlersTestSuite) TestDeleteAnalytics_BadParams() {
	tests := map[string]string{
		"unknown type":  "/api/analytics?type=bogus",
		"bad date":      "/api/analytics?dateFrom=yesterday",
		"reversed span": "/api/analytics?dateFrom=2024-05-01&dateTo=2024-04-01",
	}
	for name, path := range tests {
		s.Run(name, func() {
			w := s.do(http.MethodDelete, path, s.owner.ID, nil)
			s.Equal(http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func (s *HandlersTestSuite) uploadAvatar(data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "avatar.png")
	s.Require().NoError(err)
	_, err = part.Write(data)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/user/image-upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", s.owner.ID)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersTestSuite) TestUploadImage() {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	prefix := "avatars/user_" + s.owner.ID + "/"

	w := s.uploadAvatar(png)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	first := s.store.keys(prefix)
	s.Require().Len(first, 1)
	s.True(strings.HasSuffix(first[0], ".png"))

	// the previous avatar is replaced
	w = s.uploadAvatar(png)
	s.Require().Equal(http.StatusOK, w.Code)
	second := s.store.keys(prefix)
	s.Require().Len(second, 1)
	s.NotEqual(first[0], second[0])

	w = s.uploadAvatar([]byte("plain text is not an image"))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestDeleteUser() {
	s.Require().NoError(s.db.Model(s.owner).Update("image", "https://cdn.example/avatars/user_"+s.owner.ID+"/a.png").Error)
	s.store.objects["avatars/user_"+s.owner.ID+"/a.png"] = storage.Object{}
	testutil.CreateLink(s.T(), s.db, s.owner.ID, "Blog", 0)

	w := s.do(http.MethodDelete, "/api/user", s.owner.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("User deleted successfully", s.decode(w)["message"])

	var users, links int64
	s.db.Model(&models.User{}).Where("id = ?", s.owner.ID).Count(&users)
	s.db.Model(&models.Link{}).Where("user_id = ?", s.owner.ID).Count(&links)
	s.Zero(users)
	s.Zero(links)
	s.Empty(s.store.keys("avatars/"))
}

func (s *HandlersTestSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	checks := s.decode(w)["checks"].(map[string]interface{})
	s.Equal("ok", checks["database"])
	s.Equal("ok", checks["redis"])
	s.Equal("configured", checks["storage"])
}
