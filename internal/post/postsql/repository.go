// Package postsql implements post.Repository with plain SQL statements on the
// current txsession.Session. Statements use PostgreSQL placeholders.
package postsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/openkcm/txsession/internal/post"
	"github.com/openkcm/txsession/internal/serviceerr"
	"github.com/openkcm/txsession/pkg/txsession"
)

const postColumns = `id, title, content, created_at, updated_at`

type Repository struct {
	manager *txsession.Manager
}

// NewRepository returns a repository running on the current session of the
// context. Without a current session every call runs as its own unit of work
// on manager, or on the registered manager when manager is nil.
func NewRepository(manager *txsession.Manager) *Repository {
	return &Repository{
		manager: manager,
	}
}

var _ = post.Repository(&Repository{})

func (r *Repository) run(ctx context.Context, fn func(ctx context.Context, sess txsession.Session) error) error {
	if sess := txsession.Current(ctx); sess != nil {
		return fn(ctx, sess)
	}

	inTx := func(ctx context.Context) error {
		return fn(ctx, txsession.Current(ctx))
	}
	if r.manager != nil {
		return r.manager.RunInTransaction(ctx, inTx)
	}
	return txsession.RunInTransaction(ctx, inTx)
}

func (r *Repository) Create(ctx context.Context, p post.Post) (post.Post, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "create_post_sql")
	defer span.End()

	var created post.Post
	err := r.run(ctx, func(ctx context.Context, sess txsession.Session) error {
		row := sess.QueryRow(ctx,
			`INSERT INTO posts (title, content) VALUES ($1, $2) RETURNING `+postColumns+`;`,
			p.Title, p.Content,
		)

		var err error
		created, err = scanPost(row)
		if err != nil {
			if err, ok := handlePgError(err); ok {
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

	return created, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (post.Post, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "get_post_sql")
	defer span.End()

	var found post.Post
	err := r.run(ctx, func(ctx context.Context, sess txsession.Session) error {
		row := sess.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1;`, id)

		var err error
		found, err = scanPost(row)
		if err != nil {
			if isNoRows(err) {
				return serviceerr.ErrNotFound
			}
			return fmt.Errorf("scanning rows: %w", err)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return post.Post{}, err
	}

	return found, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]post.Post, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "list_posts_sql")
	defer span.End()

	posts := make([]post.Post, 0, limit)
	err := r.run(ctx, func(ctx context.Context, sess txsession.Session) error {
		rows, err := sess.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY id LIMIT $1 OFFSET $2;`, limit, offset)
		if err != nil {
			return fmt.Errorf("executing sql query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				return fmt.Errorf("scanning rows: %w", err)
			}
			posts = append(posts, p)
		}

		return rows.Err()
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return posts, nil
}

func (r *Repository) Update(ctx context.Context, p post.Post) (post.Post, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "update_post_sql")
	defer span.End()

	var updated post.Post
	err := r.run(ctx, func(ctx context.Context, sess txsession.Session) error {
		row := sess.QueryRow(ctx,
			`UPDATE posts SET title = $1, content = $2, updated_at = now()
			 WHERE id = $3 RETURNING `+postColumns+`;`,
			p.Title, p.Content, p.ID,
		)

		var err error
		updated, err = scanPost(row)
		if err != nil {
			if isNoRows(err) {
				return serviceerr.ErrNotFound
			}
			if err, ok := handlePgError(err); ok {
				return err
			}
			return fmt.Errorf("updating posts: %w", err)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return post.Post{}, err
	}

	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "delete_post_sql")
	defer span.End()

	err := r.run(ctx, func(ctx context.Context, sess txsession.Session) error {
		affected, err := sess.Exec(ctx, `DELETE FROM posts WHERE id = $1;`, id)
		if err != nil {
			return fmt.Errorf("executing sql query: %w", err)
		}

		if affected == 0 {
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
	ctx, span := tracer.Tracer("").Start(ctx, "delete_posts_updated_before_sql")
	defer span.End()

	var affected int64
	err := r.run(ctx, func(ctx context.Context, sess txsession.Session) error {
		var err error
		affected, err = sess.Exec(ctx, `DELETE FROM posts WHERE updated_at < $1;`, t)
		if err != nil {
			return fmt.Errorf("executing sql query: %w", err)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	return affected, nil
}

func scanPost(row txsession.Row) (post.Post, error) {
	var p post.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return post.Post{}, err
	}

	return p, nil
}

// isNoRows reports a missing row for both the pgx and the database/sql
// backends.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
