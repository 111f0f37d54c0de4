package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/errandsexpress/backend/internal/middleware"
	"github.com/errandsexpress/backend/internal/models"
	"github.com/errandsexpress/backend/internal/services"
)

// PostStore is the post persistence the lifecycle endpoints need.
type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Accept(ctx context.Context, id, runnerID uuid.UUID) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*models.Post, error)
}

// PostHandler exposes the errand post lifecycle around the payment workflow:
// create, accept, and customer completion confirmation.
type PostHandler struct {
	posts PostStore
	log   *slog.Logger
}

func NewPostHandler(posts PostStore, log *slog.Logger) *PostHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PostHandler{posts: posts, log: log}
}

type createPostRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// CreatePost handles POST /api/v1/posts.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if verr := validateStruct(req); verr != nil {
		writeErr(w, h.log, verr)
		return
	}

	post := &models.Post{
		ID:          uuid.New(),
		CustomerID:  actor.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.PostStatusPending,
	}
	if err := h.posts.Create(r.Context(), post); err != nil {
		writeErr(w, h.log, err)
		return
	}
	h.log.Info("post created", "post_id", post.ID, "customer_id", actor.ID)
	writeJSON(w, http.StatusCreated, post)
}

// GetPost handles GET /api/v1/posts/{id}.
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid post id")
		return
	}
	post, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErr(w, h.log, services.ErrNotFound)
			return
		}
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// ListMyPosts handles GET /api/v1/posts. Customers see their own posts.
func (h *PostHandler) ListMyPosts(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	list, err := h.posts.ListByCustomerID(r.Context(), actor.ID)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": list})
}

// AcceptPost handles POST /api/v1/posts/{id}/accept: a runner claims a
// pending post.
func (h *PostHandler) AcceptPost(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid post id")
		return
	}

	// The claim is a conditional update so two runners racing on the same
	// post cannot both win.
	post, err := h.posts.Accept(r.Context(), postID, actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := h.posts.GetByID(r.Context(), postID); getErr == nil {
				writeErr(w, h.log, services.ErrConflict)
			} else {
				writeErr(w, h.log, services.ErrNotFound)
			}
			return
		}
		writeErr(w, h.log, err)
		return
	}
	h.log.Info("post accepted", "post_id", post.ID, "runner_id", actor.ID)
	writeJSON(w, http.StatusOK, post)
}

// CompletePost handles POST /api/v1/posts/{id}/complete: the customer
// confirms a runner_completed, payment-verified errand, archiving it.
func (h *PostHandler) CompletePost(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid post id")
		return
	}

	post, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErr(w, h.log, services.ErrNotFound)
			return
		}
		writeErr(w, h.log, err)
		return
	}
	if post.CustomerID != actor.ID {
		writeErr(w, h.log, services.ErrForbidden)
		return
	}
	if post.Status != models.PostStatusRunnerCompleted || !post.PaymentVerified {
		writeErr(w, h.log, services.ErrConflict)
		return
	}
	post.Status = models.PostStatusCompleted
	post.Archived = true
	if post.CompletedAt == nil {
		now := timeNow()
		post.CompletedAt = &now
	}
	if err := h.posts.Update(r.Context(), post); err != nil {
		writeErr(w, h.log, err)
		return
	}
	h.log.Info("post completed", "post_id", post.ID, "customer_id", actor.ID)
	writeJSON(w, http.StatusOK, post)
}
