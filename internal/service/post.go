package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tisu1989/auth-project/internal/auth"
	"github.com/tisu1989/auth-project/internal/model"
	"github.com/tisu1989/auth-project/internal/repository"
	"github.com/tisu1989/auth-project/internal/validation"
)

type PostService struct {
	repo repository.PostRepository
}

func NewPostService(repo repository.PostRepository) *PostService {
	return &PostService{repo: repo}
}

func (s *PostService) List(ctx context.Context, page int) ([]*model.Post, error) {
	posts, err := s.repo.Page(ctx, page)
	if err != nil {
		return nil, internal("list posts", err)
	}
	return posts, nil
}

func (s *PostService) Create(ctx context.Context, claims *auth.Claims, title, description string) (*model.Post, error) {
	if claims == nil || claims.UserID == "" {
		return nil, fmt.Errorf("create post: %w", ErrInvalidCredentials)
	}

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	if err := validation.ValidatePost(title, description); err != nil {
		return nil, invalid("post", err)
	}

	post := &model.Post{
		Title:       title,
		Description: description,
		UserID:      claims.UserID,
	}

	err := s.repo.Create(ctx, post)
	if err != nil {
		return nil, internal("create post", err)
	}

	slog.Info("post created", "post_id", post.ID, "user_id", claims.UserID)
	return post, nil
}
