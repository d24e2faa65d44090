package post

import (
	"context"
	"time"
)

// Repository stores posts. Implementations run on the current session of
// ctx when one is set.
type Repository interface {
	Create(ctx context.Context, post Post) (Post, error)
	Get(ctx context.Context, id int64) (Post, error)
	List(ctx context.Context, limit, offset int) ([]Post, error)
	Update(ctx context.Context, post Post) (Post, error)
	Delete(ctx context.Context, id int64) error
	// DeleteUpdatedBefore removes posts last updated before t and returns
	// their number.
	DeleteUpdatedBefore(ctx context.Context, t time.Time) (int64, error)
}
