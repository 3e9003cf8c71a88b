package client

import (
	"context"
	"io"
	"net/http"

	"github.com/zfogg/biolink/internal/models"
)

type userState struct {
	user    *models.User
	profile *models.PublicProfile
}

// UserStore manages the session user and the last viewed public profile
type UserStore struct {
	state[userState]
	c *Client
	n Notifier
}

// NewUserStore creates a user store. n may be nil.
func NewUserStore(c *Client, n Notifier) *UserStore {
	return &UserStore{c: c, n: orNop(n)}
}

func (s *UserStore) fail(err error, fallback string) error {
	s.n.Error(ErrorMessage(err, fallback))
	return err
}

// User returns the last fetched session user, or nil
func (s *UserStore) User() *models.User { return s.get().user }

// Profile returns the last fetched public profile, or nil
func (s *UserStore) Profile() *models.PublicProfile { return s.get().profile }

// Fetch loads the session user with preferences, comments and views
func (s *UserStore) Fetch(ctx context.Context) (*models.User, error) {
	var out struct {
		UserData *models.User `json:"userData"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx), http.MethodGet, "/api/user", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to get user")
	}
	s.update(func(v *userState) { v.user = out.UserData })
	return out.UserData, nil
}

// FetchProfile loads a public profile by slug
func (s *UserStore) FetchProfile(ctx context.Context, slug string) (*models.PublicProfile, error) {
	var out struct {
		UserProfile *models.PublicProfile `json:"userProfile"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetPathParam("slug", slug), http.MethodGet, "/api/user/{slug}", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to get user profile")
	}
	s.update(func(v *userState) { v.profile = out.UserProfile })
	return out.UserProfile, nil
}

// Update edits the session user's profile fields
func (s *UserStore) Update(ctx context.Context, in UserUpdate) (*models.User, error) {
	var out struct {
		UpdatedUser *models.User `json:"updatedUser"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetBody(in), http.MethodPut, "/api/user", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to update user")
	}
	s.update(func(v *userState) { v.user = mergeUser(v.user, out.UpdatedUser) })
	return out.UpdatedUser, nil
}

// UploadImage replaces the avatar with the image read from r
func (s *UserStore) UploadImage(ctx context.Context, filename string, r io.Reader) (*models.User, error) {
	var out struct {
		UpdatedUser *models.User `json:"updatedUser"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		req := s.c.request(ctx).SetFileReader("file", filename, r)
		_, err := s.c.do(req, http.MethodPut, "/api/user/image-upload", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to update user image")
	}
	s.update(func(v *userState) {
		if v.user != nil && out.UpdatedUser != nil {
			v.user.Image = out.UpdatedUser.Image
		}
	})
	return out.UpdatedUser, nil
}

// UpdatePreferences edits the session user's preferences
func (s *UserStore) UpdatePreferences(ctx context.Context, in PreferencesUpdate) (*models.Preferences, error) {
	var out struct {
		UpdatedPreferences *models.Preferences `json:"updatedPreferences"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetBody(in), http.MethodPut, "/api/user/preferences", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to update preferences")
	}
	s.update(func(v *userState) {
		if v.user != nil {
			v.user.Preferences = out.UpdatedPreferences
		}
	})
	return out.UpdatedPreferences, nil
}

// Delete removes the session user's account
func (s *UserStore) Delete(ctx context.Context) error {
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx), http.MethodDelete, "/api/user", nil)
		return err
	})
	if err != nil {
		return s.fail(err, "Failed to delete user")
	}
	s.update(func(v *userState) { v.user = nil })
	return nil
}

// mergeUser keeps the loaded associations of prev when next carries only the row
func mergeUser(prev, next *models.User) *models.User {
	if next == nil || prev == nil {
		return next
	}
	merged := *next
	if merged.Preferences == nil {
		merged.Preferences = prev.Preferences
	}
	if merged.Comments == nil {
		merged.Comments = prev.Comments
	}
	if merged.Views == nil {
		merged.Views = prev.Views
	}
	return &merged
}
