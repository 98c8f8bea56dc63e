package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tisu1989/auth-project/internal/model"
)

// PostsPerPage is the fixed page size of post listings.
const PostsPerPage = 10

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	Page(ctx context.Context, page int) ([]*model.Post, error)
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.UpdatedAt = post.CreatedAt

	query := `INSERT INTO posts (id, title, description, user_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.Title,
		post.Description,
		post.UserID,
		post.CreatedAt,
		post.UpdatedAt,
	)

	return err
}

// Page returns posts newest first with the author's email. Pages start at 1;
// anything lower is treated as the first page.
func (r *postRepository) Page(ctx context.Context, page int) ([]*model.Post, error) {
	if page < 1 {
		page = 1
	}

	posts := []*model.Post{}
	query := `
		SELECT p.id, p.title, p.description, p.user_id, p.created_at, p.updated_at, u.email AS author_email
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1 OFFSET $2
	`

	err := r.db.SelectContext(ctx, &posts, query, PostsPerPage, (page-1)*PostsPerPage)
	if err != nil {
		return nil, err
	}

	return posts, nil
}
