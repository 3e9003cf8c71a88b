// Package analytics records profile analytics events and archives them to cold storage.
package analytics

import (
	"net/url"
	"strings"

	apierrors "github.com/zfogg/biolink/internal/errors"
)

// Wire values of RecordRequest.Type
const (
	TypePageView = "pageView"
	TypeLink     = "link"
	TypeIcon     = "icon"
)

// RecordRequest is the POST /api/analytics body
type RecordRequest struct {
	Type     string  `json:"type"`
	UserID   string  `json:"userId"`
	ID       string  `json:"id,omitempty"`
	Referrer *string `json:"referrer,omitempty"`
}

// Event is one of PageView, LinkClick or IconClick
type Event interface {
	// Kind is the event's wire type
	Kind() string
	// Owner is the profile owner the event is recorded against
	Owner() string
	isEvent()
}

// PageView is a view of a user's profile page
type PageView struct {
	UserID   string
	Referrer *string
}

// LinkClick is a click on one of the user's links
type LinkClick struct {
	UserID string
	LinkID string
}

// IconClick is a click on one of the user's social icons
type IconClick struct {
	UserID string
	IconID string
}

func (PageView) Kind() string  { return TypePageView }
func (LinkClick) Kind() string { return TypeLink }
func (IconClick) Kind() string { return TypeIcon }

func (e PageView) Owner() string  { return e.UserID }
func (e LinkClick) Owner() string { return e.UserID }
func (e IconClick) Owner() string { return e.UserID }

func (PageView) isEvent()  {}
func (LinkClick) isEvent() {}
func (IconClick) isEvent() {}

// ParseEvent validates a request and returns the event it describes.
// Errors are 400 APIErrors carrying the first violation.
func ParseEvent(req RecordRequest) (Event, error) {
	userID := strings.TrimSpace(req.UserID)
	id := strings.TrimSpace(req.ID)

	switch req.Type {
	case TypePageView, TypeLink, TypeIcon:
	default:
		return nil, apierrors.BadRequest("Invalid analytics type")
	}
	if userID == "" {
		return nil, apierrors.ValidationError("userId", "Invalid user ID")
	}

	switch req.Type {
	case TypeLink:
		if id == "" {
			return nil, apierrors.ValidationError("id", "Link ID is required")
		}
		return LinkClick{UserID: userID, LinkID: id}, nil
	case TypeIcon:
		if id == "" {
			return nil, apierrors.ValidationError("id", "Icon ID is required")
		}
		return IconClick{UserID: userID, IconID: id}, nil
	default:
		return PageView{UserID: userID, Referrer: NormalizeReferrer(req.Referrer)}, nil
	}
}

// WithHeaderReferrer fills a page view's missing referrer from the Referer header
func WithHeaderReferrer(e Event, header string) Event {
	pv, ok := e.(PageView)
	if !ok || pv.Referrer != nil {
		return e
	}
	if header = strings.TrimSpace(header); header != "" {
		pv.Referrer = &header
	}
	return pv
}

// NormalizeReferrer cleans a client-supplied referrer. Blank values become nil;
// bare tokens without "://" or "." (e.g. "newsletter") are kept; anything else
// must be an absolute URL or it is dropped.
func NormalizeReferrer(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := strings.TrimSpace(*ref)
	if v == "" {
		return nil
	}
	if !strings.Contains(v, "://") && !strings.Contains(v, ".") {
		return &v
	}
	u, err := url.Parse(v)
	if err != nil || !u.IsAbs() {
		return nil
	}
	return &v
}
