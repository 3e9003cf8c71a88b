package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/referrer"
	"github.com/zfogg/biolink/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// seedEmailDomain marks rows created by the seeder so Clean can find them
const seedEmailDomain = "@seed.biolink.dev"

var slugUnsafe = regexp.MustCompile(`[^a-z0-9-]+`)

// sample referrers, classified the same way live traffic is
var sampleReferrers = []string{
	"",
	"https://www.instagram.com/",
	"https://t.co/abc123",
	"https://www.google.com/search?q=links",
	"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	"https://www.tiktok.com/@someone",
	"https://www.reddit.com/r/webdev",
	"https://l.facebook.com/l.php",
	"https://github.com/trending",
	"https://duckduckgo.com/",
	"https://newsletter.example.net/issue/12",
}

// Seeder handles database seeding operations
type Seeder struct {
	db         *gorm.DB
	users      *repository.UserRepository
	links      *repository.LinkRepository
	icons      *repository.IconRepository
	classifier *referrer.Classifier
}

// NewSeeder creates a new seeder instance. baseURL is the public site origin;
// referrers from it count as direct traffic.
func NewSeeder(db *gorm.DB, baseURL string) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:         db,
		users:      repository.NewUserRepository(db),
		links:      repository.NewLinkRepository(db),
		icons:      repository.NewIconRepository(db),
		classifier: referrer.NewClassifier(baseURL),
	}
}

// Stats counts what a seed run created
type Stats struct {
	Users      int
	Links      int
	Icons      int
	PageViews  int
	LinkClicks int
	IconClicks int
	Comments   int
}

// SeedDev seeds count users with realistic profiles and a few weeks of traffic
func (s *Seeder) SeedDev(ctx context.Context, count int) (*Stats, error) {
	stats := &Stats{}

	logger.Log.Info("Creating users...", zap.Int("count", count))
	users, err := s.seedUsers(ctx, count)
	if err != nil {
		return stats, fmt.Errorf("failed to seed users: %w", err)
	}
	stats.Users = len(users)

	for _, user := range users {
		if err := s.seedProfile(ctx, user, stats); err != nil {
			return stats, fmt.Errorf("failed to seed profile %s: %w", user.Slug, err)
		}
	}

	logger.Log.Info("Seed complete",
		zap.Int("users", stats.Users),
		zap.Int("links", stats.Links),
		zap.Int("icons", stats.Icons),
		zap.Int("page_views", stats.PageViews),
		zap.Int("link_clicks", stats.LinkClicks),
		zap.Int("icon_clicks", stats.IconClicks),
		zap.Int("comments", stats.Comments),
	)
	return stats, nil
}

// SeedTest seeds a small fixed set of users for e2e runs. Existing users are reused.
func (s *Seeder) SeedTest(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	fixtures := []struct{ slug, name string }{
		{"alice", "Alice Smith"},
		{"bob", "Bob Johnson"},
		{"charlie", "Charlie Brown"},
	}

	for _, f := range fixtures {
		var existing models.User
		err := s.db.WithContext(ctx).Where("slug = ?", f.slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return stats, err
		}

		user := &models.User{
			Email:       f.slug + seedEmailDomain,
			Name:        f.name,
			Slug:        f.slug,
			Description: "Test profile",
			Preferences: &models.Preferences{
				EnableGuestbook: true,
				ShowClickCounts: true,
				ShowSocialIcons: true,
				Theme:           "system",
			},
		}
		if err := s.users.Create(ctx, user); err != nil {
			return stats, fmt.Errorf("failed to create test user %s: %w", f.slug, err)
		}
		stats.Users++
		if err := s.seedProfile(ctx, user, stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Clean removes every user created by the seeder together with everything they own
func (s *Seeder) Clean(ctx context.Context) (int, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email LIKE ?", "%"+seedEmailDomain).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.users.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("failed to delete user %s: %w", id, err)
		}
	}
	return len(ids), nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	themes := models.Themes

	for len(users) < count {
		slug := uniqueSlugCandidate(gofakeit.Username())
		if slug == "" {
			continue
		}

		user := &models.User{
			Email:       slug + seedEmailDomain,
			Name:        truncate(gofakeit.Name(), 50),
			Slug:        slug,
			Description: truncate(gofakeit.HipsterSentence(), 300),
			Image:       fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", slug),
			Preferences: &models.Preferences{
				EnableGuestbook: rand.Float32() < 0.6,
				ShowClickCounts: rand.Float32() < 0.5,
				ShowSocialIcons: rand.Float32() < 0.9,
				Theme:           themes[rand.Intn(len(themes))],
			},
		}

		err := s.users.Create(ctx, user)
		if errors.Is(err, repository.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// seedProfile adds links, icons, traffic and guestbook entries for one user
func (s *Seeder) seedProfile(ctx context.Context, user *models.User, stats *Stats) error {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -45)

	links := make([]*models.Link, 0, 6)
	for i := 0; i < rand.Intn(5)+2; i++ {
		word := gofakeit.Word()
		link := &models.Link{
			UserID:    user.ID,
			URL:       fmt.Sprintf("https://%s.example.com/%s", user.Slug, strings.ToLower(word)),
			Title:     truncate(capitalize(word)+" "+gofakeit.Word(), 100),
			IsVisible: rand.Float32() < 0.9,
		}
		if err := s.links.Create(ctx, link); err != nil {
			return err
		}
		links = append(links, link)
	}
	stats.Links += len(links)

	platforms := models.Platforms()
	rand.Shuffle(len(platforms), func(i, j int) { platforms[i], platforms[j] = platforms[j], platforms[i] })
	icons := make([]*models.Icon, 0, 4)
	for _, platform := range platforms[:rand.Intn(4)+1] {
		logo, _ := models.PlatformLogo(platform)
		icon := &models.Icon{
			UserID:    user.ID,
			URL:       fmt.Sprintf("https://%s.com/%s", platform, user.Slug),
			Platform:  platform,
			Logo:      logo,
			IsVisible: true,
		}
		if err := s.icons.Create(ctx, icon); err != nil {
			return err
		}
		icons = append(icons, icon)
	}
	stats.Icons += len(icons)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		views := make([]models.PageView, rand.Intn(200)+10)
		for i := range views {
			ref := sampleReferrers[rand.Intn(len(sampleReferrers))]
			var refPtr *string
			if ref != "" {
				refPtr = &ref
			}
			source := string(s.classifier.ClassifyPtr(refPtr))
			views[i] = models.PageView{
				UserID:    user.ID,
				Referrer:  refPtr,
				Source:    &source,
				CreatedAt: gofakeit.DateRange(since, now),
			}
		}
		if err := tx.CreateInBatches(views, 500).Error; err != nil {
			return err
		}
		stats.PageViews += len(views)

		// click counters must equal the number of click rows
		for _, link := range links {
			n := rand.Intn(len(views)/2 + 1)
			if n == 0 {
				continue
			}
			clicks := make([]models.LinkClick, n)
			for i := range clicks {
				clicks[i] = models.LinkClick{UserLinkID: link.ID, CreatedAt: gofakeit.DateRange(since, now)}
			}
			if err := tx.CreateInBatches(clicks, 500).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Link{}).Where("id = ?", link.ID).
				UpdateColumn("click_count", n).Error; err != nil {
				return err
			}
			stats.LinkClicks += n
		}
		for _, icon := range icons {
			n := rand.Intn(len(views)/4 + 1)
			if n == 0 {
				continue
			}
			clicks := make([]models.IconClick, n)
			for i := range clicks {
				clicks[i] = models.IconClick{UserIconID: icon.ID, CreatedAt: gofakeit.DateRange(since, now)}
			}
			if err := tx.CreateInBatches(clicks, 500).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Icon{}).Where("id = ?", icon.ID).
				UpdateColumn("click_count", n).Error; err != nil {
				return err
			}
			stats.IconClicks += n
		}

		if user.Preferences == nil || !user.Preferences.EnableGuestbook {
			return nil
		}
		for i := 0; i < rand.Intn(6); i++ {
			comment := models.Comment{
				UserID:    user.ID,
				Name:      truncate(gofakeit.Name(), 100),
				Message:   truncate(gofakeit.HipsterSentence(), 500),
				CreatedAt: gofakeit.DateRange(since, now),
			}
			if rand.Float32() < 0.5 {
				email := gofakeit.Email()
				comment.Email = &email
			}
			if err := tx.Create(&comment).Error; err != nil {
				return err
			}
			stats.Comments++
		}
		return nil
	})
}

// uniqueSlugCandidate turns a fake username into a valid slug, or "" if too short
func uniqueSlugCandidate(username string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(username), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return ""
	}
	slug = truncate(fmt.Sprintf("%s-%d", slug, rand.Intn(1000)), 30)
	if len(slug) < 3 {
		return ""
	}
	return slug
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
