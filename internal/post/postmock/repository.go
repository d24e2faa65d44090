package postmock

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/openkcm/txsession/internal/post"
	"github.com/openkcm/txsession/internal/serviceerr"
)

type RepositoryOption func(*Repository)

type Repository struct {
	mu     sync.Mutex
	posts  map[int64]post.Post
	nextID int64

	createErr, getErr, listErr, updateErr, deleteErr error
}

func WithPost(p post.Post) RepositoryOption {
	return func(r *Repository) { r.add(p) }
}
func WithCreateError(err error) RepositoryOption {
	return func(r *Repository) { r.createErr = err }
}
func WithGetError(err error) RepositoryOption {
	return func(r *Repository) { r.getErr = err }
}
func WithListError(err error) RepositoryOption {
	return func(r *Repository) { r.listErr = err }
}
func WithUpdateError(err error) RepositoryOption {
	return func(r *Repository) { r.updateErr = err }
}
func WithDeleteError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}

var _ = post.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		posts: make(map[int64]post.Post),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// TGet is a helper method for tests to get a post.
func (r *Repository) TGet(id int64) (post.Post, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	return p, ok
}

func (r *Repository) add(p post.Post) post.Post {
	if p.ID == 0 {
		r.nextID++
		p.ID = r.nextID
	} else if p.ID > r.nextID {
		r.nextID = p.ID
	}
	r.posts[p.ID] = p
	return p
}

func (r *Repository) Create(_ context.Context, p post.Post) (post.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return post.Post{}, r.createErr
	}
	for _, existing := range r.posts {
		if existing.Title == p.Title {
			return post.Post{}, serviceerr.ErrConflict
		}
	}

	now := time.Now()
	p.ID = 0
	p.CreatedAt, p.UpdatedAt = now, now

	return r.add(p), nil
}

func (r *Repository) Get(_ context.Context, id int64) (post.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return post.Post{}, r.getErr
	}
	p, ok := r.posts[id]
	if !ok {
		return post.Post{}, serviceerr.ErrNotFound
	}
	return p, nil
}

func (r *Repository) List(_ context.Context, limit, offset int) ([]post.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}

	posts := make([]post.Post, 0, len(r.posts))
	for _, p := range r.posts {
		posts = append(posts, p)
	}
	slices.SortFunc(posts, func(a, b post.Post) int { return cmp.Compare(a.ID, b.ID) })

	if offset >= len(posts) {
		return []post.Post{}, nil
	}
	posts = posts[offset:]
	if limit < len(posts) {
		posts = posts[:limit]
	}
	return posts, nil
}

func (r *Repository) Update(_ context.Context, p post.Post) (post.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return post.Post{}, r.updateErr
	}
	existing, ok := r.posts[p.ID]
	if !ok {
		return post.Post{}, serviceerr.ErrNotFound
	}

	existing.Title = p.Title
	existing.Content = p.Content
	existing.UpdatedAt = time.Now()
	r.posts[p.ID] = existing

	return existing, nil
}

func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.posts[id]; !ok {
		return serviceerr.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *Repository) DeleteUpdatedBefore(_ context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteErr != nil {
		return 0, r.deleteErr
	}

	var n int64
	for id, p := range r.posts {
		if p.UpdatedAt.Before(t) {
			delete(r.posts, id)
			n++
		}
	}
	return n, nil
}
