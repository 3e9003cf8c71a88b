package client

import (
	"context"
	"net/http"

	"github.com/zfogg/biolink/internal/models"
)

// Icon store operations, used as keys of IconsStore.Errors
const (
	OpGetIcons   = "getIcons"
	OpCreateIcon = "createIcon"
	OpUpdateIcon = "updateIcon"
	OpDeleteIcon = "deleteIcon"
)

type iconsState struct {
	icons  []models.Icon
	errors map[string]string
}

// IconsStore manages the session user's social icons. Unlike the other stores
// it keeps the last error per operation for inline display and only notifies
// when a Notifier is set.
type IconsStore struct {
	state[iconsState]
	c *Client
	n Notifier
}

// NewIconsStore creates an icons store. n may be nil.
func NewIconsStore(c *Client, n Notifier) *IconsStore {
	s := &IconsStore{c: c, n: orNop(n)}
	s.value.errors = map[string]string{}
	return s
}

// Icons returns a copy of the last known icons
func (s *IconsStore) Icons() []models.Icon {
	return append([]models.Icon(nil), s.get().icons...)
}

// Errors returns the last error message per operation; successful operations clear theirs
func (s *IconsStore) Errors() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.value.errors))
	for k, v := range s.value.errors {
		out[k] = v
	}
	return out
}

func (s *IconsStore) run(ctx context.Context, op, fallback string, fn func(context.Context) error) error {
	s.update(func(v *iconsState) { delete(v.errors, op) })
	err := s.track(ctx, fn)
	if err != nil {
		msg := ErrorMessage(err, fallback)
		s.update(func(v *iconsState) { v.errors[op] = msg })
		s.n.Error(msg)
	}
	return err
}

// Fetch loads all icons in display order
func (s *IconsStore) Fetch(ctx context.Context) ([]models.Icon, error) {
	var out struct {
		Icons []models.Icon `json:"icons"`
	}
	err := s.run(ctx, OpGetIcons, "Failed to get icons", func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx), http.MethodGet, "/api/social-icons", &out)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.update(func(v *iconsState) { v.icons = out.Icons })
	return out.Icons, nil
}

// Create adds an icon for a platform
func (s *IconsStore) Create(ctx context.Context, in IconInput) (*models.Icon, error) {
	var out struct {
		Icon models.Icon `json:"icon"`
	}
	err := s.run(ctx, OpCreateIcon, "Failed to create icon", func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetBody(in), http.MethodPost, "/api/social-icons", &out)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.update(func(v *iconsState) { v.icons = append(v.icons, out.Icon) })
	return &out.Icon, nil
}

// Update changes an icon's position or visibility
func (s *IconsStore) Update(ctx context.Context, id string, in IconUpdate) (*models.Icon, error) {
	var out struct {
		Icon models.Icon `json:"icon"`
	}
	err := s.run(ctx, OpUpdateIcon, "Failed to update icon", func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetBody(in).SetPathParam("id", id), http.MethodPut, "/api/social-icons/{id}", &out)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.update(func(v *iconsState) {
		for i := range v.icons {
			if v.icons[i].ID == id {
				v.icons[i] = out.Icon
			}
		}
	})
	return &out.Icon, nil
}

// Delete removes an icon
func (s *IconsStore) Delete(ctx context.Context, id string) error {
	err := s.run(ctx, OpDeleteIcon, "Failed to delete icon", func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetPathParam("id", id), http.MethodDelete, "/api/social-icons/{id}", nil)
		return err
	})
	if err != nil {
		return err
	}
	s.update(func(v *iconsState) {
		kept := v.icons[:0]
		for _, icon := range v.icons {
			if icon.ID != id {
				kept = append(kept, icon)
			}
		}
		v.icons = kept
	})
	return nil
}
