package client

import (
	"context"
	"net/http"
	"time"

	"github.com/zfogg/biolink/internal/models"
)

type analyticsState struct {
	analytics *Analytics
	referrers []ReferrerEntry
}

// AnalyticsStore reads the owner's analytics and records visitor events
type AnalyticsStore struct {
	state[analyticsState]
	c *Client
	n Notifier
}

// NewAnalyticsStore creates an analytics store. n may be nil.
func NewAnalyticsStore(c *Client, n Notifier) *AnalyticsStore {
	return &AnalyticsStore{c: c, n: orNop(n)}
}

func (s *AnalyticsStore) fail(err error, fallback string) error {
	s.n.Error(ErrorMessage(err, fallback))
	return err
}

// Analytics returns the last fetched dashboard, or nil
func (s *AnalyticsStore) Analytics() *Analytics { return s.get().analytics }

// Referrers returns the last fetched source breakdown
func (s *AnalyticsStore) Referrers() []ReferrerEntry { return s.get().referrers }

// Fetch loads the session user's analytics
func (s *AnalyticsStore) Fetch(ctx context.Context) (*Analytics, error) {
	var out Analytics
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx), http.MethodGet, "/api/analytics", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to fetch analytics")
	}
	s.update(func(v *analyticsState) { v.analytics = &out })
	return &out, nil
}

// FetchReferrers loads page view counts per traffic source
func (s *AnalyticsStore) FetchReferrers(ctx context.Context) ([]ReferrerEntry, error) {
	var out struct {
		Referrers []ReferrerEntry `json:"referrers"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx), http.MethodGet, "/api/analytics/referrers", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to get referrer stats")
	}
	s.update(func(v *analyticsState) { v.referrers = out.Referrers })
	return out.Referrers, nil
}

func (s *AnalyticsStore) record(ctx context.Context, body map[string]interface{}, fallback string) error {
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetBody(body), http.MethodPost, "/api/analytics", nil)
		return err
	})
	if err != nil {
		return s.fail(err, fallback)
	}
	return nil
}

// RecordPageView records a view of userID's profile
func (s *AnalyticsStore) RecordPageView(ctx context.Context, userID, referrer string) error {
	body := map[string]interface{}{"type": "pageView", "userId": userID}
	if referrer != "" {
		body["referrer"] = referrer
	}
	return s.record(ctx, body, "Failed to record page view")
}

// RecordLinkClick records a click on one of userID's links
func (s *AnalyticsStore) RecordLinkClick(ctx context.Context, userID, linkID string) error {
	return s.record(ctx, map[string]interface{}{"type": "link", "userId": userID, "id": linkID},
		"Failed to record link click")
}

// RecordIconClick records a click on one of userID's social icons
func (s *AnalyticsStore) RecordIconClick(ctx context.Context, userID, iconID string) error {
	return s.record(ctx, map[string]interface{}{"type": "icon", "userId": userID, "id": iconID},
		"Failed to record social icon click")
}

// SubmitComment posts a guestbook entry
func (s *AnalyticsStore) SubmitComment(ctx context.Context, in CommentInput) (*models.Comment, error) {
	var out struct {
		Comment models.Comment `json:"comment"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetBody(in), http.MethodPost, "/api/analytics/comments", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to submit comment")
	}
	return &out.Comment, nil
}

// Delete archives and deletes the session user's analytics
func (s *AnalyticsStore) Delete(ctx context.Context, opts DeleteOptions) (*Result, error) {
	params := map[string]string{}
	if opts.Type != "" {
		params["type"] = opts.Type
	}
	if opts.DateFrom != nil {
		params["dateFrom"] = opts.DateFrom.UTC().Format(time.RFC3339)
	}
	if opts.DateTo != nil {
		params["dateTo"] = opts.DateTo.UTC().Format(time.RFC3339)
	}

	var out Result
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetQueryParams(params), http.MethodDelete, "/api/analytics", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to delete analytics")
	}
	return &out, nil
}
