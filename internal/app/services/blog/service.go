package blog

import (
	"context"
	"strings"

	"github.com/codemart-io/storefront/internal/app/domain/blogpost"
	"github.com/codemart-io/storefront/internal/app/storage"
	apperrors "github.com/codemart-io/storefront/internal/errors"
	"github.com/codemart-io/storefront/pkg/logger"
)

// Service manages blog posts.
type Service struct {
	store storage.PostStore
	log   *logger.Logger
}

// New creates a configured blog service.
func New(store storage.PostStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("blog")
	}
	return &Service{store: store, log: log}
}

// Input carries the writable fields of a post.
type Input struct {
	Title    string
	Excerpt  string
	Content  string
	Category string
	Image    string
	Status   blogpost.Status
}

func (in *Input) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperrors.Validation("title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return apperrors.Validation("content is required")
	}
	if in.Status == "" {
		in.Status = blogpost.StatusDraft
	}
	if !in.Status.Valid() {
		return apperrors.Validation("unsupported status %s", in.Status)
	}
	return nil
}

// Create registers a new post attributed to the given author.
func (s *Service) Create(ctx context.Context, authorID, authorName string, in Input) (blogpost.Post, error) {
	if err := in.validate(); err != nil {
		return blogpost.Post{}, err
	}
	created, err := s.store.CreatePost(ctx, blogpost.Post{
		Title:      in.Title,
		Excerpt:    in.Excerpt,
		Content:    in.Content,
		Category:   in.Category,
		Image:      in.Image,
		Status:     in.Status,
		AuthorID:   authorID,
		AuthorName: authorName,
	})
	if err != nil {
		return blogpost.Post{}, err
	}
	s.log.WithField("post_id", created.ID).Infof("post created: %s", created.Title)
	return created, nil
}

// Update replaces the writable fields of a post. Authorship and view counts
// are preserved by the store.
func (s *Service) Update(ctx context.Context, id string, in Input) (blogpost.Post, error) {
	if strings.TrimSpace(id) == "" {
		return blogpost.Post{}, apperrors.Validation("post id is required")
	}
	if err := in.validate(); err != nil {
		return blogpost.Post{}, err
	}
	return s.store.UpdatePost(ctx, blogpost.Post{
		ID:       id,
		Title:    in.Title,
		Excerpt:  in.Excerpt,
		Content:  in.Content,
		Category: in.Category,
		Image:    in.Image,
		Status:   in.Status,
	})
}

// GetPublished fetches a published post and counts the view. Drafts and
// unknown ids are both NotFound to public readers.
func (s *Service) GetPublished(ctx context.Context, id string) (blogpost.Post, error) {
	if strings.TrimSpace(id) == "" {
		return blogpost.Post{}, apperrors.Validation("post id is required")
	}
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return blogpost.Post{}, err
	}
	if p.Status != blogpost.StatusPublished {
		return blogpost.Post{}, apperrors.NotFound("post %s not found", id).WithCause(storage.ErrNotFound)
	}
	if err := s.store.IncrementViews(ctx, id); err != nil {
		s.log.WithError(err).WithField("post_id", id).Warnf("view counter not updated")
	} else {
		p.Views++
	}
	return p, nil
}

// Get fetches a post regardless of status, without counting a view.
func (s *Service) Get(ctx context.Context, id string) (blogpost.Post, error) {
	if strings.TrimSpace(id) == "" {
		return blogpost.Post{}, apperrors.Validation("post id is required")
	}
	return s.store.GetPost(ctx, id)
}

// ListPublished returns a page of published posts for public readers.
func (s *Service) ListPublished(ctx context.Context, filter storage.PostFilter, page, pageSize int) ([]blogpost.Post, int64, error) {
	filter.PublishedOnly = true
	return s.store.ListPosts(ctx, filter, page, pageSize)
}

// ListAll returns a page of posts in any status.
func (s *Service) ListAll(ctx context.Context, filter storage.PostFilter, page, pageSize int) ([]blogpost.Post, int64, error) {
	return s.store.ListPosts(ctx, filter, page, pageSize)
}

// Delete removes a post.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.Validation("post id is required")
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}
	s.log.WithField("post_id", id).Infof("post deleted")
	return nil
}
