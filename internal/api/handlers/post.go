package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qworpa/qworpa/internal/routing"
	"github.com/qworpa/qworpa/internal/service"
)

// PostHandler serves post creation, lookup, likes and deletion.
type PostHandler struct {
	svc  *service.PostService
	urls routing.Reverser
}

// NewPostHandler creates a new PostHandler. urls builds Location headers.
func NewPostHandler(svc *service.PostService, urls routing.Reverser) *PostHandler {
	return &PostHandler{svc: svc, urls: urls}
}

// CreatePostRequest is the create-post body.
type CreatePostRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

// Create stores a post and points Location at its detail URL.
func (h *PostHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	post, err := h.svc.Create(c.Request.Context(), service.CreatePostRequest{
		Title: req.Title,
		Body:  req.Body,
	}, user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	post.Author = *user

	if location, err := h.urls.URL("post-detail", routing.Params{"url_hex": post.URLHex}); err == nil {
		c.Header("Location", location)
	}
	c.JSON(http.StatusCreated, post)
}

// Get returns a single post.
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.svc.Get(c.Request.Context(), c.Param("url_hex"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ToggleLike likes or unlikes the post for the current user.
func (h *PostHandler) ToggleLike(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	result, err := h.svc.ToggleLike(c.Request.Context(), c.Param("url_hex"), user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete removes a post owned by the current user, or any post for admins.
func (h *PostHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("url_hex"), user.ID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
