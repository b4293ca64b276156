package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spryntr/waitlist/internal/services"
	"github.com/spryntr/waitlist/pkg/response"
)

// BlogHandler serves the blog feed.
type BlogHandler struct {
	service *services.BlogService
}

// NewBlogHandler constructs a BlogHandler.
func NewBlogHandler(service *services.BlogService) (*BlogHandler, error) {
	if service == nil {
		return nil, errors.New("blog handler: service is required")
	}
	return &BlogHandler{service: service}, nil
}

// ListPosts handles GET /api/blog/posts. It never fails; an unreachable CMS
// yields an empty list.
func (h *BlogHandler) ListPosts(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.ListPosts(requestContext(c)))
}
