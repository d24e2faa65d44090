package post

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openkcm/txsession/internal/serviceerr"
)

const (
	maxTitleLength   = 255
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Service struct {
	repository Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repository: repo,
	}
}

func (s *Service) Create(ctx context.Context, title, content string) (Post, error) {
	p := Post{
		Title:   strings.TrimSpace(title),
		Content: content,
	}
	if err := validate(p); err != nil {
		return Post{}, err
	}

	created, err := s.repository.Create(ctx, p)
	if err != nil {
		return Post{}, fmt.Errorf("creating post: %w", err)
	}

	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Post, error) {
	p, err := s.repository.Get(ctx, id)
	if err != nil {
		return Post{}, fmt.Errorf("getting post: %w", err)
	}

	return p, nil
}

// List returns a page of posts ordered by id. A zero limit selects the
// default page size.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Post, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 0 || limit > MaxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", serviceerr.ErrInvalidRequest, MaxListLimit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", serviceerr.ErrInvalidRequest)
	}

	posts, err := s.repository.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return posts, nil
}

func (s *Service) Update(ctx context.Context, id int64, title, content string) (Post, error) {
	p := Post{
		ID:      id,
		Title:   strings.TrimSpace(title),
		Content: content,
	}
	if err := validate(p); err != nil {
		return Post{}, err
	}

	updated, err := s.repository.Update(ctx, p)
	if err != nil {
		return Post{}, fmt.Errorf("updating post: %w", err)
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repository.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}

	return nil
}

// Prune deletes the posts not updated within retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", serviceerr.ErrInvalidRequest)
	}

	n, err := s.repository.DeleteUpdatedBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("pruning posts: %w", err)
	}

	return n, nil
}

func validate(p Post) error {
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", serviceerr.ErrInvalidRequest)
	}
	if len(p.Title) > maxTitleLength {
		return fmt.Errorf("%w: title must not exceed %d characters", serviceerr.ErrInvalidRequest, maxTitleLength)
	}
	if p.Content == "" {
		return fmt.Errorf("%w: content is required", serviceerr.ErrInvalidRequest)
	}

	return nil
}
