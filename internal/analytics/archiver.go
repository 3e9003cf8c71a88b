package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zfogg/biolink/internal/cache"
	apierrors "github.com/zfogg/biolink/internal/errors"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/metrics"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/repository"
	"github.com/zfogg/biolink/internal/storage"
	"github.com/zfogg/biolink/internal/telemetry"
	"go.uber.org/zap"
)

// Archive categories accepted by ArchiveOptions.Type
const (
	CategoryPageView  = "pageView"
	CategoryLinkClick = "linkClick"
	CategoryIconClick = "iconClick"
)

// file name stems per category
var fileStems = map[string]string{
	CategoryPageView:  "pageviews",
	CategoryLinkClick: "linkclicks",
	CategoryIconClick: "iconclicks",
}

// ArchiveStore selects and deletes archivable events
type ArchiveStore interface {
	SelectPageViews(ctx context.Context, userID string, rng repository.DateRange) ([]models.PageView, bool, error)
	SelectLinkClicks(ctx context.Context, userID string, rng repository.DateRange) ([]repository.LinkClickRecord, bool, error)
	SelectIconClicks(ctx context.Context, userID string, rng repository.DateRange) ([]repository.IconClickRecord, bool, error)
	DeleteArchived(ctx context.Context, userID string, sel *repository.ArchiveSelection, filtered bool) (repository.DeleteCounts, error)
}

// ArchiveOptions narrows an archive run. An empty Type means every category;
// nil dates are unbounded.
type ArchiveOptions struct {
	Type     string
	DateFrom *time.Time
	DateTo   *time.Time
}

// ArchiveResult is the DELETE /api/analytics response body
type ArchiveResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Deleted int64    `json:"-"`
	Files   []string `json:"-"`
}

// Archiver exports a user's events to Parquet in object storage and then deletes them
type Archiver struct {
	users  UserLookup
	events ArchiveStore
	store  storage.ObjectStore
	cache  *cache.Cache
	now    func() time.Time
}

// NewArchiver creates an archiver. store may be nil, in which case runs that
// find data fail with 503. cache may be nil.
func NewArchiver(users UserLookup, events ArchiveStore, store storage.ObjectStore, c *cache.Cache) *Archiver {
	return &Archiver{
		users:  users,
		events: events,
		store:  store,
		cache:  c,
		now:    time.Now,
	}
}

// ValidCategory reports whether t is accepted as ArchiveOptions.Type
func ValidCategory(t string) bool {
	_, ok := fileStems[t]
	return t == "" || ok
}

// ArchiveKey is the object key of one archive file
func ArchiveKey(userID, category string, batch time.Time) string {
	return fmt.Sprintf("archive/user_%s/%s_archive_%d.parquet", userID, fileStems[category], batch.UnixMilli())
}

// Archive runs select, upload, delete and invalidate for userID.
// Upload failures abort before anything is deleted; files already uploaded in the
// same run are left in place.
func (a *Archiver) Archive(ctx context.Context, userID string, opts ArchiveOptions) (*ArchiveResult, error) {
	if !ValidCategory(opts.Type) {
		return nil, apierrors.BadRequest("Invalid analytics type")
	}

	rng := repository.DateRange{From: opts.DateFrom, To: opts.DateTo}
	ctx, span := telemetry.GetBusinessEvents().TraceArchive(ctx, userID, telemetry.ArchiveEventAttrs{
		Category: opts.Type,
		Filtered: rng.Filtered(),
	})
	defer span.End()
	start := time.Now()

	result, err := a.run(ctx, userID, opts.Type, rng)
	metrics.Get().ArchiveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.RecordError(span, err)
		label := "error"
		if apierrors.HasCode(err, apierrors.ErrUpstream) {
			label = "upload_error"
		}
		metrics.Get().ArchiveRunsTotal.WithLabelValues(label).Inc()
		return nil, err
	}
	if result.Deleted == 0 {
		metrics.Get().ArchiveRunsTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.Get().ArchiveRunsTotal.WithLabelValues("ok").Inc()
	}
	return result, nil
}

func (a *Archiver) run(ctx context.Context, userID, category string, rng repository.DateRange) (*ArchiveResult, error) {
	owner, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apierrors.NotFound("User")
		}
		return nil, err
	}

	sel, err := a.selectRows(ctx, userID, category, rng)
	if err != nil {
		return nil, err
	}
	if sel.Total() == 0 {
		return &ArchiveResult{Success: true, Message: "No analytics data found to delete"}, nil
	}

	files, err := a.upload(ctx, userID, sel)
	if err != nil {
		return nil, err
	}

	delCtx, delSpan := telemetry.GetBusinessEvents().TraceArchiveStage(ctx, "delete")
	counts, err := a.events.DeleteArchived(delCtx, userID, sel, rng.Filtered())
	delSpan.End()
	if err != nil {
		logger.Log.Error("Archive uploaded but delete failed",
			logger.WithUserID(userID),
			zap.Strings("files", files),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to delete archived analytics: %w", err)
	}

	metrics.Get().ArchiveRowsTotal.WithLabelValues(CategoryPageView).Add(float64(counts.PageViews))
	metrics.Get().ArchiveRowsTotal.WithLabelValues(CategoryLinkClick).Add(float64(counts.LinkClicks))
	metrics.Get().ArchiveRowsTotal.WithLabelValues(CategoryIconClick).Add(float64(counts.IconClicks))

	keys := append(cache.AnalyticsKeys(userID),
		cache.LinksKey(userID),
		cache.IconsKey(userID),
		cache.ProfileKey(owner.Slug),
		cache.UserKey(userID),
	)
	a.cache.Delete(ctx, keys...)

	total := counts.Total()
	logger.Log.Info("Analytics archived",
		logger.WithUserID(userID),
		zap.Int64("page_views", counts.PageViews),
		zap.Int64("link_clicks", counts.LinkClicks),
		zap.Int64("icon_clicks", counts.IconClicks),
		zap.Strings("files", files),
	)

	return &ArchiveResult{
		Success: true,
		Message: deletedMessage(total),
		Deleted: total,
		Files:   files,
	}, nil
}

func (a *Archiver) selectRows(ctx context.Context, userID, category string, rng repository.DateRange) (*repository.ArchiveSelection, error) {
	ctx, span := telemetry.GetBusinessEvents().TraceArchiveStage(ctx, "select")
	defer span.End()

	sel := &repository.ArchiveSelection{}
	var err error
	if category == "" || category == CategoryPageView {
		if sel.PageViews, sel.PageViewsTruncated, err = a.events.SelectPageViews(ctx, userID, rng); err != nil {
			return nil, err
		}
	}
	if category == "" || category == CategoryLinkClick {
		if sel.LinkClicks, sel.LinkClicksTruncated, err = a.events.SelectLinkClicks(ctx, userID, rng); err != nil {
			return nil, err
		}
	}
	if category == "" || category == CategoryIconClick {
		if sel.IconClicks, sel.IconClicksTruncated, err = a.events.SelectIconClicks(ctx, userID, rng); err != nil {
			return nil, err
		}
	}
	telemetry.RecordArchiveRows(span, len(sel.PageViews), len(sel.LinkClicks), len(sel.IconClicks))
	return sel, nil
}

// upload writes one parquet file per non-empty category, all sharing one batch timestamp
func (a *Archiver) upload(ctx context.Context, userID string, sel *repository.ArchiveSelection) ([]string, error) {
	if a.store == nil {
		return nil, apierrors.ServiceUnavailable("Archive storage")
	}

	ctx, span := telemetry.GetBusinessEvents().TraceArchiveStage(ctx, "upload")
	defer span.End()

	batch := a.now()
	var files []string
	put := func(category string, body []byte, encErr error) error {
		if encErr != nil {
			return encErr
		}
		key := ArchiveKey(userID, category, batch)
		res, err := a.store.Put(ctx, storage.Object{
			Key:         key,
			Body:        body,
			ContentType: storage.ParquetContentType,
			Metadata:    map[string]string{"user-id": userID, "category": category},
		}, storage.ArchivePolicy)
		if err != nil {
			logger.Log.Error("Archive upload failed",
				logger.WithUserID(userID),
				zap.String("key", key),
				zap.Error(err),
			)
			return apierrors.Upstream("Failed to upload analytics archive")
		}
		files = append(files, res.Key)
		return nil
	}

	if len(sel.PageViews) > 0 {
		body, err := encodeParquet(pageViewRows(sel.PageViews))
		if err := put(CategoryPageView, body, err); err != nil {
			telemetry.RecordError(span, err)
			return files, err
		}
	}
	if len(sel.LinkClicks) > 0 {
		body, err := encodeParquet(linkClickRows(sel.LinkClicks))
		if err := put(CategoryLinkClick, body, err); err != nil {
			telemetry.RecordError(span, err)
			return files, err
		}
	}
	if len(sel.IconClicks) > 0 {
		body, err := encodeParquet(iconClickRows(sel.IconClicks))
		if err := put(CategoryIconClick, body, err); err != nil {
			telemetry.RecordError(span, err)
			return files, err
		}
	}
	return files, nil
}

func deletedMessage(n int64) string {
	noun := "records"
	if n == 1 {
		noun = "record"
	}
	return fmt.Sprintf("Successfully deleted %d analytics %s", n, noun)
}
