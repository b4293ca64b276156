package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spryntr/waitlist/internal/models"
	"github.com/spryntr/waitlist/internal/services"
	appErrors "github.com/spryntr/waitlist/pkg/errors"
	"github.com/spryntr/waitlist/pkg/response"
)

// WaitlistHandler exposes the signup intake endpoints.
type WaitlistHandler struct {
	service *services.WaitlistService
}

// NewWaitlistHandler constructs a WaitlistHandler.
func NewWaitlistHandler(service *services.WaitlistService) (*WaitlistHandler, error) {
	if service == nil {
		return nil, errors.New("waitlist handler: service is required")
	}
	return &WaitlistHandler{service: service}, nil
}

type waitlistResponse struct {
	OK                bool                   `json:"ok"`
	AlreadyOnWaitlist bool                   `json:"alreadyOnWaitlist,omitempty"`
	Redirect          string                 `json:"redirect,omitempty"`
	Data              *models.WaitlistSignup `json:"data,omitempty"`
}

// Submit handles POST /waitlist.
//
// 201 with the stored row on first signup, 200 with alreadyOnWaitlist on a
// resubmission, 200 with a redirect when the spam guard drops the request.
func (h *WaitlistHandler) Submit(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	outcome, err := h.service.Submit(requestContext(c), &req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	switch {
	case outcome.Spam:
		c.JSON(http.StatusOK, waitlistResponse{OK: true, Redirect: outcome.Redirect})
	case outcome.Created:
		c.JSON(http.StatusCreated, waitlistResponse{OK: true, Data: outcome.Signup})
	default:
		c.JSON(http.StatusOK, waitlistResponse{OK: true, AlreadyOnWaitlist: true, Data: outcome.Signup})
	}
}

// Status handles GET /waitlist. It has no side effects.
func (h *WaitlistHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": "waitlist is accepting signups",
		"route":   c.FullPath(),
	})
}
