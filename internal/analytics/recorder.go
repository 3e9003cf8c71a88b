package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/zfogg/biolink/internal/cache"
	apierrors "github.com/zfogg/biolink/internal/errors"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/metrics"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/referrer"
	"github.com/zfogg/biolink/internal/repository"
	"github.com/zfogg/biolink/internal/telemetry"
	"go.uber.org/zap"
)

// UserLookup resolves profile owners
type UserLookup interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// EventStore persists events and their counters
type EventStore interface {
	CreatePageView(ctx context.Context, view *models.PageView) error
	FindLinkForUser(ctx context.Context, linkID, userID string) (*models.Link, error)
	FindIconForUser(ctx context.Context, iconID, userID string) (*models.Icon, error)
	RecordLinkClick(ctx context.Context, linkID string) (*models.LinkClick, error)
	RecordIconClick(ctx context.Context, iconID string) (*models.IconClick, error)
}

// LinkClickReceipt is returned after a link click is recorded
type LinkClickReceipt struct {
	UserLinkID string    `json:"userLinkId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IconClickReceipt is returned after an icon click is recorded
type IconClickReceipt struct {
	UserIconID string    `json:"userIconId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RecordResult is the outcome of Record. Skipped is set for the owner's own
// views and clicks, which are never stored.
type RecordResult struct {
	Skipped   bool              `json:"-"`
	Message   string            `json:"message"`
	LinkClick *LinkClickReceipt `json:"linkClick,omitempty"`
	IconClick *IconClickReceipt `json:"iconClick,omitempty"`
}

// Recorder writes analytics events
type Recorder struct {
	users      UserLookup
	events     EventStore
	cache      *cache.Cache
	classifier *referrer.Classifier
}

// NewRecorder creates a recorder. cache may be nil.
func NewRecorder(users UserLookup, events EventStore, c *cache.Cache, classifier *referrer.Classifier) *Recorder {
	return &Recorder{users: users, events: events, cache: c, classifier: classifier}
}

// Record stores e on behalf of actorID (the session user, or "" when anonymous).
// Checks run in order: owner exists, actor is not the owner, target belongs to the owner.
func (r *Recorder) Record(ctx context.Context, actorID string, e Event) (*RecordResult, error) {
	ctx, span := telemetry.GetBusinessEvents().TraceRecordEvent(ctx, e.Kind(), e.Owner())
	defer span.End()

	owner, err := r.users.GetByID(ctx, e.Owner())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apierrors.NotFound("User")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	if actorID != "" && actorID == owner.ID {
		return &RecordResult{Skipped: true}, nil
	}

	var result *RecordResult
	switch ev := e.(type) {
	case PageView:
		result, err = r.recordPageView(ctx, ev)
	case LinkClick:
		result, err = r.recordLinkClick(ctx, owner, ev)
	case IconClick:
		result, err = r.recordIconClick(ctx, owner, ev)
	default:
		return nil, apierrors.BadRequest("Invalid analytics type")
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

func (r *Recorder) recordPageView(ctx context.Context, ev PageView) (*RecordResult, error) {
	source := string(r.classifier.ClassifyPtr(ev.Referrer))
	view := &models.PageView{
		UserID:   ev.UserID,
		Referrer: ev.Referrer,
		Source:   &source,
	}
	if err := r.events.CreatePageView(ctx, view); err != nil {
		return nil, err
	}
	metrics.Get().AnalyticsEventsTotal.WithLabelValues(TypePageView, source).Inc()

	keys := append(cache.AnalyticsKeys(ev.UserID), cache.UserKey(ev.UserID))
	r.cache.Delete(ctx, keys...)

	return &RecordResult{Message: "Page view recorded successfully"}, nil
}

func (r *Recorder) recordLinkClick(ctx context.Context, owner *models.User, ev LinkClick) (*RecordResult, error) {
	if _, err := r.events.FindLinkForUser(ctx, ev.LinkID, owner.ID); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, apierrors.NotFound("Link")
		}
		return nil, err
	}

	click, err := r.events.RecordLinkClick(ctx, ev.LinkID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, apierrors.NotFound("Link")
		}
		return nil, err
	}
	metrics.Get().AnalyticsEventsTotal.WithLabelValues(TypeLink, "none").Inc()
	logger.Log.Debug("Link click recorded",
		logger.WithUserID(owner.ID),
		zap.String("link_id", ev.LinkID),
	)

	keys := append(cache.AnalyticsKeys(owner.ID), cache.LinksKey(owner.ID), cache.ProfileKey(owner.Slug))
	r.cache.Delete(ctx, keys...)

	return &RecordResult{
		Message:   "Link click recorded successfully",
		LinkClick: &LinkClickReceipt{UserLinkID: click.UserLinkID, CreatedAt: click.CreatedAt},
	}, nil
}

func (r *Recorder) recordIconClick(ctx context.Context, owner *models.User, ev IconClick) (*RecordResult, error) {
	if _, err := r.events.FindIconForUser(ctx, ev.IconID, owner.ID); err != nil {
		if errors.Is(err, repository.ErrIconNotFound) {
			return nil, apierrors.NotFound("Icon")
		}
		return nil, err
	}

	click, err := r.events.RecordIconClick(ctx, ev.IconID)
	if err != nil {
		if errors.Is(err, repository.ErrIconNotFound) {
			return nil, apierrors.NotFound("Icon")
		}
		return nil, err
	}
	metrics.Get().AnalyticsEventsTotal.WithLabelValues(TypeIcon, "none").Inc()
	logger.Log.Debug("Icon click recorded",
		logger.WithUserID(owner.ID),
		zap.String("icon_id", ev.IconID),
	)

	keys := append(cache.AnalyticsKeys(owner.ID), cache.IconsKey(owner.ID), cache.ProfileKey(owner.Slug))
	r.cache.Delete(ctx, keys...)

	return &RecordResult{
		Message:   "Social icon click recorded successfully",
		IconClick: &IconClickReceipt{UserIconID: click.UserIconID, CreatedAt: click.CreatedAt},
	}, nil
}
