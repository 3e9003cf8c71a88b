// Package ratelimit implements fixed-window request quotas keyed by action and
// principal (user id or client IP).
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLimitExceeded is returned by Enforce once the window's quota is spent
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Limiter counts hits per key in fixed windows. The window starts at the first
// hit and resets once it has elapsed.
type Limiter interface {
	// Enforce records one hit for key and returns a *LimitError wrapping
	// ErrLimitExceeded when the count exceeds limit within window.
	Enforce(ctx context.Context, key string, limit int, window time.Duration) error
}

// LimitError carries how long until the window resets
type LimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Key, e.RetryAfter.Round(time.Second))
}

func (e *LimitError) Unwrap() error {
	return ErrLimitExceeded
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1
func (e *LimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Quota is a named limit applied per principal
type Quota struct {
	Action string
	Limit  int
	Window time.Duration
}

// Key composes the counter key for a principal
func (q Quota) Key(principal string) string {
	return q.Action + ":" + principal
}

// Enforce applies q to principal using l
func (q Quota) Enforce(ctx context.Context, l Limiter, principal string) error {
	return l.Enforce(ctx, q.Key(principal), q.Limit, q.Window)
}

// Quotas for every limited endpoint
var (
	// Anonymous event ingestion, per client IP
	AnalyticsRecord = Quota{Action: "analytics:record", Limit: 120, Window: time.Minute}
	// Archival is expensive and destructive, per user
	AnalyticsDelete = Quota{Action: "analytics:delete", Limit: 5, Window: time.Hour}
	CommentsCreate  = Quota{Action: "comments:create", Limit: 10, Window: time.Hour}
	ProfileView     = Quota{Action: "profile:view", Limit: 300, Window: time.Hour}
	LinksCreate     = Quota{Action: "links:create", Limit: 50, Window: time.Hour}
	LinksUpdate     = Quota{Action: "links:update", Limit: 50, Window: time.Hour}
	LinksDelete     = Quota{Action: "links:delete", Limit: 50, Window: time.Hour}
	IconsGet        = Quota{Action: "icons:get", Limit: 200, Window: time.Hour}
	IconsCreate     = Quota{Action: "icons:create", Limit: 30, Window: time.Hour}
	IconsUpdate     = Quota{Action: "icons:update", Limit: 30, Window: time.Hour}
	IconsDelete     = Quota{Action: "icons:delete", Limit: 30, Window: time.Hour}
	UserUpdate      = Quota{Action: "user:update", Limit: 20, Window: time.Hour}
	UserDelete      = Quota{Action: "user:delete", Limit: 3, Window: time.Hour}
	UserAvatar      = Quota{Action: "user:avatar", Limit: 10, Window: time.Hour}
)
