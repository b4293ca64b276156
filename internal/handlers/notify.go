package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spryntr/waitlist/internal/models"
	"github.com/spryntr/waitlist/internal/services"
	"github.com/spryntr/waitlist/pkg/mail"
)

// NotifyHandler exposes the welcome email endpoint.
type NotifyHandler struct {
	service *services.NotificationService
}

// NewNotifyHandler constructs a NotifyHandler.
func NewNotifyHandler(service *services.NotificationService) (*NotifyHandler, error) {
	if service == nil {
		return nil, errors.New("notify handler: service is required")
	}
	return &NotifyHandler{service: service}, nil
}

type notifyResponse struct {
	OK            bool                 `json:"ok"`
	ID            string               `json:"id,omitempty"`
	Stage         string               `json:"stage,omitempty"`
	Error         string               `json:"error,omitempty"`
	ProviderError *mail.ProviderError  `json:"providerError,omitempty"`
	Info          *services.NotifyInfo `json:"info,omitempty"`
}

// Notify handles POST /waitlist/notify. A provider refusal is answered with
// 200 and ok=false; the signup it follows has already been stored.
func (h *NotifyHandler) Notify(c *gin.Context) {
	result, err := h.service.Notify(requestContext(c), decodeNotification(c))
	if err != nil {
		var notifyErr *services.NotifyError
		if !errors.As(err, &notifyErr) {
			c.JSON(http.StatusInternalServerError, notifyResponse{Stage: services.StageServer, Error: "Server error"})
			return
		}
		status := notifyErr.Err.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, notifyResponse{Stage: notifyErr.Stage, Error: notifyErr.Err.Message, Info: notifyErr.Info})
		return
	}

	if !result.Sent() {
		c.JSON(http.StatusOK, notifyResponse{
			Stage:         services.StageProvider,
			ProviderError: result.ProviderError,
			Info:          &result.Info,
		})
		return
	}
	c.JSON(http.StatusOK, notifyResponse{OK: true, ID: result.ID, Info: &result.Info})
}

// decodeNotification reads the body leniently: an empty or malformed body, or
// a non-string field, leaves the field blank so validation reports it.
func decodeNotification(c *gin.Context) models.NotificationRequest {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		return models.NotificationRequest{}
	}
	email, _ := body["email"].(string)
	firstName, _ := body["first_name"].(string)
	return models.NotificationRequest{Email: email, FirstName: firstName}
}
