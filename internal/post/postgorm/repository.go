// Package postgorm implements post.Repository with gorm on the current
// gormsession.Session.
package postgorm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/openkcm/txsession/internal/post"
	"github.com/openkcm/txsession/internal/serviceerr"
	"github.com/openkcm/txsession/pkg/txsession"
	"github.com/openkcm/txsession/pkg/txsession/gormsession"
)

type record struct {
	ID        int64 `gorm:"primaryKey"`
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (record) TableName() string { return "posts" }

func (r record) toPost() post.Post {
	return post.Post(r)
}

type Repository struct {
	manager *txsession.Manager
}

// NewRepository returns a repository running on the gorm session of the
// context. Without a current session every call runs as its own unit of work
// on manager, or on the registered manager when manager is nil. The manager
// must produce gormsession sessions.
func NewRepository(manager *txsession.Manager) *Repository {
	return &Repository{
		manager: manager,
	}
}

var _ = post.Repository(&Repository{})

func (r *Repository) run(ctx context.Context, fn func(db *gorm.DB) error) error {
	inTx := func(ctx context.Context) error {
		sess, ok := txsession.CurrentAs[*gormsession.Session](ctx)
		if !ok {
			return ErrNotGormSession
		}

		db, err := sess.DB(ctx)
		if err != nil {
			return err
		}

		return fn(db)
	}

	if txsession.Current(ctx) != nil {
		return inTx(ctx)
	}
	if r.manager != nil {
		return r.manager.RunInTransaction(ctx, inTx)
	}
	return txsession.RunInTransaction(ctx, inTx)
}

func (r *Repository) Create(ctx context.Context, p post.Post) (post.Post, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "create_post_gorm")
	defer span.End()

	rec := record{Title: p.Title, Content: p.Content}
	err := r.run(ctx, func(db *gorm.DB) error {
		if err := db.Create(&rec).Error; err != nil {
			if err, ok := handleError(err); ok {
				return err
			}
			return fmt.Errorf("inserting into posts: %w", err)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return post.Post{}, err
	}

	return rec.toPost(), nil
}

func (r *Repository) Get(ctx context.Context, id int64) (post.Post, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "get_post_gorm")
	defer span.End()

	var rec record
	err := r.run(ctx, func(db *gorm.DB) error {
		return find(db, id, &rec)
	})
	if err != nil {
		span.RecordError(err)
		return post.Post{}, err
	}

	return rec.toPost(), nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]post.Post, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "list_posts_gorm")
	defer span.End()

	var recs []record
	err := r.run(ctx, func(db *gorm.DB) error {
		if err := db.Order("id").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
			return fmt.Errorf("listing posts: %w", err)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	posts := make([]post.Post, 0, len(recs))
	for _, rec := range recs {
		posts = append(posts, rec.toPost())
	}

	return posts, nil
}

func (r *Repository) Update(ctx context.Context, p post.Post) (post.Post, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "update_post_gorm")
	defer span.End()

	var rec record
	err := r.run(ctx, func(db *gorm.DB) error {
		res := db.Model(&record{}).Where("id = ?", p.ID).Updates(map[string]any{
			"title":      p.Title,
			"content":    p.Content,
			"updated_at": gorm.Expr("now()"),
		})
		if res.Error != nil {
			if err, ok := handleError(res.Error); ok {
				return err
			}
			return fmt.Errorf("updating posts: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return serviceerr.ErrNotFound
		}

		return find(db, p.ID, &rec)
	})
	if err != nil {
		span.RecordError(err)
		return post.Post{}, err
	}

	return rec.toPost(), nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "delete_post_gorm")
	defer span.End()

	err := r.run(ctx, func(db *gorm.DB) error {
		res := db.Delete(&record{}, id)
		if res.Error != nil {
			return fmt.Errorf("deleting post: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return serviceerr.ErrNotFound
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func (r *Repository) DeleteUpdatedBefore(ctx context.Context, t time.Time) (int64, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "delete_posts_updated_before_gorm")
	defer span.End()

	var affected int64
	err := r.run(ctx, func(db *gorm.DB) error {
		res := db.Where("updated_at < ?", t).Delete(&record{})
		if res.Error != nil {
			return fmt.Errorf("deleting posts: %w", res.Error)
		}
		affected = res.RowsAffected

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	return affected, nil
}

func find(db *gorm.DB, id int64, rec *record) error {
	if err := db.First(rec, id).Error; err != nil {
		if err, ok := handleError(err); ok {
			return err
		}
		return fmt.Errorf("getting post: %w", err)
	}

	return nil
}
