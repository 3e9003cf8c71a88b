package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zfogg/biolink/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deleteChunkSize keeps IN lists under the sqlite/postgres bind parameter limits
const deleteChunkSize = 500

// DateRange is an optional inclusive created_at window
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Filtered reports whether either bound is set
func (d DateRange) Filtered() bool {
	return d.From != nil || d.To != nil
}

func (d DateRange) apply(q *gorm.DB, column string) *gorm.DB {
	if d.From != nil {
		q = q.Where(column+" >= ?", d.From.UTC())
	}
	if d.To != nil {
		q = q.Where(column+" <= ?", d.To.UTC())
	}
	return q
}

// LinkClickRecord is a link click joined to its parent link
type LinkClickRecord struct {
	ID         string    `gorm:"column:id"`
	UserLinkID string    `gorm:"column:user_link_id"`
	LinkURL    *string   `gorm:"column:link_url"`
	LinkTitle  *string   `gorm:"column:link_title"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// IconClickRecord is an icon click joined to its parent icon
type IconClickRecord struct {
	ID           string    `gorm:"column:id"`
	UserIconID   string    `gorm:"column:user_icon_id"`
	IconURL      *string   `gorm:"column:icon_url"`
	IconPlatform *string   `gorm:"column:icon_platform"`
	IconLogo     *string   `gorm:"column:icon_logo"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// ArchiveSelection is the set of rows chosen for one archive run, oldest first.
// A Truncated flag means the category had more rows than MaxEventRows.
type ArchiveSelection struct {
	PageViews           []models.PageView
	LinkClicks          []LinkClickRecord
	IconClicks          []IconClickRecord
	PageViewsTruncated  bool
	LinkClicksTruncated bool
	IconClicksTruncated bool
}

// Total returns the number of selected rows across categories
func (s *ArchiveSelection) Total() int {
	return len(s.PageViews) + len(s.LinkClicks) + len(s.IconClicks)
}

// DeleteCounts reports rows removed per category
type DeleteCounts struct {
	PageViews  int64
	LinkClicks int64
	IconClicks int64
}

// Total returns the number of deleted rows across categories
func (d DeleteCounts) Total() int64 {
	return d.PageViews + d.LinkClicks + d.IconClicks
}

// ReferrerCount is one row of the per-source page view breakdown
type ReferrerCount struct {
	Source string `gorm:"column:source"`
	Count  int64  `gorm:"column:count"`
}

// Dashboard is the owner's analytics payload
type Dashboard struct {
	PageViews  []models.PageView
	LinkClicks []models.LinkClick
	IconClicks []models.IconClick
}

// AnalyticsRepository handles the analytics event log and the derived click counters
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CreatePageView inserts a page view
func (r *AnalyticsRepository) CreatePageView(ctx context.Context, view *models.PageView) error {
	if view == nil || view.UserID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(view).Error
}

// FindLinkForUser returns the link only if it belongs to userID
func (r *AnalyticsRepository) FindLinkForUser(ctx context.Context, linkID, userID string) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", linkID, userID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// FindIconForUser returns the icon only if it belongs to userID
func (r *AnalyticsRepository) FindIconForUser(ctx context.Context, iconID, userID string) (*models.Icon, error) {
	var icon models.Icon
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", iconID, userID).First(&icon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIconNotFound
	}
	if err != nil {
		return nil, err
	}
	return &icon, nil
}

// RecordLinkClick inserts a click and increments the link's counter atomically
func (r *AnalyticsRepository) RecordLinkClick(ctx context.Context, linkID string) (*models.LinkClick, error) {
	click := &models.LinkClick{UserLinkID: linkID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(click).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Link{}).
			Where("id = ?", linkID).
			UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLinkNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return click, nil
}

// RecordIconClick inserts a click and increments the icon's counter atomically
func (r *AnalyticsRepository) RecordIconClick(ctx context.Context, iconID string) (*models.IconClick, error) {
	click := &models.IconClick{UserIconID: iconID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(click).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Icon{}).
			Where("id = ?", iconID).
			UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrIconNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return click, nil
}

// Dashboard returns the user's events newest first, each category capped at MaxEventRows
func (r *AnalyticsRepository) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	db := r.db.WithContext(ctx)
	out := &Dashboard{
		PageViews:  []models.PageView{},
		LinkClicks: []models.LinkClick{},
		IconClicks: []models.IconClick{},
	}

	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(MaxEventRows).
		Find(&out.PageViews).Error; err != nil {
		return nil, err
	}

	linkIDs := db.Model(&models.Link{}).Select("id").Where("user_id = ?", userID)
	if err := db.Preload("UserLink").
		Where("user_link_id IN (?)", linkIDs).
		Order("created_at DESC").
		Limit(MaxEventRows).
		Find(&out.LinkClicks).Error; err != nil {
		return nil, err
	}

	iconIDs := db.Model(&models.Icon{}).Select("id").Where("user_id = ?", userID)
	if err := db.Preload("UserIcon").
		Where("user_icon_id IN (?)", iconIDs).
		Order("created_at DESC").
		Limit(MaxEventRows).
		Find(&out.IconClicks).Error; err != nil {
		return nil, err
	}

	return out, nil
}

// ReferrerCounts groups the user's page views by source, most frequent first.
// Rows recorded before sources were classified count as unknown.
func (r *AnalyticsRepository) ReferrerCounts(ctx context.Context, userID string) ([]ReferrerCount, error) {
	rows := []ReferrerCount{}
	err := r.db.WithContext(ctx).
		Model(&models.PageView{}).
		Select("COALESCE(source, 'unknown') AS source, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("COALESCE(source, 'unknown')").
		Order("count DESC").
		Order("source ASC").
		Scan(&rows).Error
	return rows, err
}

// SelectPageViews returns up to MaxEventRows page views in range, oldest first
func (r *AnalyticsRepository) SelectPageViews(ctx context.Context, userID string, rng DateRange) ([]models.PageView, bool, error) {
	rows := []models.PageView{}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	q = rng.apply(q, "created_at")
	if err := q.Order("created_at ASC").Limit(MaxEventRows + 1).Find(&rows).Error; err != nil {
		return nil, false, err
	}
	if len(rows) > MaxEventRows {
		return rows[:MaxEventRows], true, nil
	}
	return rows, false, nil
}

// SelectLinkClicks returns up to MaxEventRows of the user's link clicks in range, oldest first
func (r *AnalyticsRepository) SelectLinkClicks(ctx context.Context, userID string, rng DateRange) ([]LinkClickRecord, bool, error) {
	rows := []LinkClickRecord{}
	q := r.db.WithContext(ctx).
		Table("link_clicks").
		Select("link_clicks.id AS id, link_clicks.user_link_id AS user_link_id, " +
			"user_links.url AS link_url, user_links.title AS link_title, link_clicks.created_at AS created_at").
		Joins("JOIN user_links ON user_links.id = link_clicks.user_link_id").
		Where("user_links.user_id = ?", userID)
	q = rng.apply(q, "link_clicks.created_at")
	if err := q.Order("link_clicks.created_at ASC").Limit(MaxEventRows + 1).Scan(&rows).Error; err != nil {
		return nil, false, err
	}
	if len(rows) > MaxEventRows {
		return rows[:MaxEventRows], true, nil
	}
	return rows, false, nil
}

// SelectIconClicks returns up to MaxEventRows of the user's icon clicks in range, oldest first
func (r *AnalyticsRepository) SelectIconClicks(ctx context.Context, userID string, rng DateRange) ([]IconClickRecord, bool, error) {
	rows := []IconClickRecord{}
	q := r.db.WithContext(ctx).
		Table("icon_clicks").
		Select("icon_clicks.id AS id, icon_clicks.user_icon_id AS user_icon_id, " +
			"user_icons.url AS icon_url, user_icons.platform AS icon_platform, " +
			"user_icons.logo AS icon_logo, icon_clicks.created_at AS created_at").
		Joins("JOIN user_icons ON user_icons.id = icon_clicks.user_icon_id").
		Where("user_icons.user_id = ?", userID)
	q = rng.apply(q, "icon_clicks.created_at")
	if err := q.Order("icon_clicks.created_at ASC").Limit(MaxEventRows + 1).Scan(&rows).Error; err != nil {
		return nil, false, err
	}
	if len(rows) > MaxEventRows {
		return rows[:MaxEventRows], true, nil
	}
	return rows, false, nil
}

// DeleteArchived removes exactly the selected rows and reconciles click counters
// in one transaction.
//
// Counters are always recomputed from the remaining rows. A date filtered or
// truncated run touches only the parents of deleted clicks; a full run recomputes
// every one of the user's links (icons), which leaves clicks recorded after the
// selection counted.
func (r *AnalyticsRepository) DeleteArchived(ctx context.Context, userID string, sel *ArchiveSelection, filtered bool) (DeleteCounts, error) {
	var counts DeleteCounts
	if sel == nil || sel.Total() == 0 {
		return counts, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		viewIDs := make([]string, len(sel.PageViews))
		for i, v := range sel.PageViews {
			viewIDs[i] = v.ID
		}
		n, err := deleteByIDs(tx, &models.PageView{}, viewIDs)
		if err != nil {
			return err
		}
		counts.PageViews = n

		if len(sel.LinkClicks) > 0 {
			ids := make([]string, len(sel.LinkClicks))
			parents := make([]string, 0, len(sel.LinkClicks))
			seen := make(map[string]struct{})
			for i, c := range sel.LinkClicks {
				ids[i] = c.ID
				if _, ok := seen[c.UserLinkID]; !ok {
					seen[c.UserLinkID] = struct{}{}
					parents = append(parents, c.UserLinkID)
				}
			}
			if counts.LinkClicks, err = deleteByIDs(tx, &models.LinkClick{}, ids); err != nil {
				return err
			}
			if filtered || sel.LinkClicksTruncated {
				err = recomputeCounts(tx, &models.Link{}, "link_clicks", "user_link_id", "user_links", parents)
			} else {
				err = tx.Model(&models.Link{}).Where("user_id = ?", userID).
					UpdateColumn("click_count", clickCountExpr("link_clicks", "user_link_id", "user_links")).Error
			}
			if err != nil {
				return err
			}
		}

		if len(sel.IconClicks) > 0 {
			ids := make([]string, len(sel.IconClicks))
			parents := make([]string, 0, len(sel.IconClicks))
			seen := make(map[string]struct{})
			for i, c := range sel.IconClicks {
				ids[i] = c.ID
				if _, ok := seen[c.UserIconID]; !ok {
					seen[c.UserIconID] = struct{}{}
					parents = append(parents, c.UserIconID)
				}
			}
			if counts.IconClicks, err = deleteByIDs(tx, &models.IconClick{}, ids); err != nil {
				return err
			}
			if filtered || sel.IconClicksTruncated {
				err = recomputeCounts(tx, &models.Icon{}, "icon_clicks", "user_icon_id", "user_icons", parents)
			} else {
				err = tx.Model(&models.Icon{}).Where("user_id = ?", userID).
					UpdateColumn("click_count", clickCountExpr("icon_clicks", "user_icon_id", "user_icons")).Error
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return DeleteCounts{}, err
	}
	return counts, nil
}

func deleteByIDs(tx *gorm.DB, model interface{}, ids []string) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		res := tx.Where("id IN ?", ids[start:end]).Delete(model)
		if res.Error != nil {
			return 0, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

// recomputeCounts sets click_count to the number of remaining click rows for each parent
func recomputeCounts(tx *gorm.DB, model interface{}, clickTable, fkColumn, parentTable string, parentIDs []string) error {
	expr := clickCountExpr(clickTable, fkColumn, parentTable)
	for start := 0; start < len(parentIDs); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(parentIDs) {
			end = len(parentIDs)
		}
		if err := tx.Model(model).Where("id IN ?", parentIDs[start:end]).UpdateColumn("click_count", expr).Error; err != nil {
			return err
		}
	}
	return nil
}

func clickCountExpr(clickTable, fkColumn, parentTable string) clause.Expr {
	return gorm.Expr("(SELECT COUNT(*) FROM " + clickTable + " WHERE " + clickTable + "." + fkColumn + " = " + parentTable + ".id)")
}
