package chat

import (
	"context"
	"time"

	"leukemia-care-portal/internal/platform/session"
)

type Repository interface {
	Get(ctx context.Context, viewer string) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
	Delete(ctx context.Context, viewer string) error
}

type sessionRepo struct {
	store session.Store
	ttl   time.Duration
}

// NewRepository keeps conversations in the session store, refreshing the
// TTL on every save.
func NewRepository(store session.Store, ttl time.Duration) Repository {
	return &sessionRepo{store: store, ttl: ttl}
}

func key(viewer string) string {
	return "chat:" + viewer
}

// Get returns nil without error when the viewer has no conversation yet.
func (r *sessionRepo) Get(ctx context.Context, viewer string) (*Conversation, error) {
	var c Conversation
	ok, err := session.GetJSON(ctx, r.store, key(viewer), &c)
	if err != nil || !ok {
		return nil, err
	}
	c.Viewer = viewer
	return &c, nil
}

func (r *sessionRepo) Save(ctx context.Context, c *Conversation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	return session.SetJSON(ctx, r.store, key(c.Viewer), c, r.ttl)
}

func (r *sessionRepo) Delete(ctx context.Context, viewer string) error {
	return r.store.Delete(ctx, key(viewer))
}
