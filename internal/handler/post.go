package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/tisu1989/auth-project/internal/ctxkeys"
	"github.com/tisu1989/auth-project/internal/repository"
	"github.com/tisu1989/auth-project/internal/service"
)

// maxPage keeps the row offset of a page inside an int.
const maxPage = math.MaxInt / repository.PostsPerPage

type PostHandler struct {
	posts *service.PostService
}

func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type createPostRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPage {
			writeFailure(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	posts, err := h.posts.List(r.Context(), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Posts fetched successfully", posts)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.Create(r.Context(), ctxkeys.Claims(r.Context()), req.Title, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Post created successfully", post)
}
