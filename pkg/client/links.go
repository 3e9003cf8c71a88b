package client

import (
	"context"
	"net/http"

	"github.com/zfogg/biolink/internal/models"
)

// LinksStore manages the session user's links
type LinksStore struct {
	state[[]models.Link]
	c *Client
	n Notifier
}

// NewLinksStore creates a links store. n may be nil.
func NewLinksStore(c *Client, n Notifier) *LinksStore {
	return &LinksStore{c: c, n: orNop(n)}
}

func (s *LinksStore) fail(err error, fallback string) error {
	s.n.Error(ErrorMessage(err, fallback))
	return err
}

// Links returns a copy of the last known links
func (s *LinksStore) Links() []models.Link {
	return append([]models.Link(nil), s.get()...)
}

// Fetch loads all links in display order
func (s *LinksStore) Fetch(ctx context.Context) ([]models.Link, error) {
	var out struct {
		Links []models.Link `json:"links"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx), http.MethodGet, "/api/links", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to get links")
	}
	s.update(func(v *[]models.Link) { *v = out.Links })
	return out.Links, nil
}

// Create adds a link at the end of the list
func (s *LinksStore) Create(ctx context.Context, in LinkInput) (*models.Link, error) {
	var out struct {
		Link models.Link `json:"link"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetBody(in), http.MethodPost, "/api/links", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to create link")
	}
	s.update(func(v *[]models.Link) { *v = append(*v, out.Link) })
	return &out.Link, nil
}

// Update edits a link
func (s *LinksStore) Update(ctx context.Context, id string, in LinkUpdate) (*models.Link, error) {
	var out struct {
		Link models.Link `json:"link"`
	}
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetBody(in).SetPathParam("id", id), http.MethodPut, "/api/links/{id}", &out)
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Failed to update link")
	}
	s.update(func(v *[]models.Link) {
		for i := range *v {
			if (*v)[i].ID == id {
				(*v)[i] = out.Link
			}
		}
	})
	return &out.Link, nil
}

// Delete removes a link
func (s *LinksStore) Delete(ctx context.Context, id string) error {
	err := s.track(ctx, func(ctx context.Context) error {
		_, err := s.c.do(s.c.request(ctx).SetPathParam("id", id), http.MethodDelete, "/api/links/{id}", nil)
		return err
	})
	if err != nil {
		return s.fail(err, "Failed to delete link")
	}
	s.update(func(v *[]models.Link) {
		kept := (*v)[:0]
		for _, l := range *v {
			if l.ID != id {
				kept = append(kept, l)
			}
		}
		*v = kept
	})
	return nil
}
