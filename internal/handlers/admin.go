package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spryntr/waitlist/internal/models"
	"github.com/spryntr/waitlist/internal/monitoring"
	"github.com/spryntr/waitlist/internal/services"
	"github.com/spryntr/waitlist/pkg/logger"
	"github.com/spryntr/waitlist/pkg/response"
)

// AdminHandler serves the operator views of the waitlist.
type AdminHandler struct {
	signups *services.WaitlistService
	events  *services.SignupEventService
	now     func() time.Time
}

// NewAdminHandler constructs an AdminHandler. events may be nil when the
// audit trail is disabled.
func NewAdminHandler(signups *services.WaitlistService, events *services.SignupEventService) (*AdminHandler, error) {
	if signups == nil {
		return nil, errors.New("admin handler: waitlist service is required")
	}
	return &AdminHandler{signups: signups, events: events, now: time.Now}, nil
}

// ListSignups handles GET /api/admin/waitlist?page=&per_page=&q=.
func (h *AdminHandler) ListSignups(c *gin.Context) {
	opts := services.SignupListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "per_page", 50),
		Search:   strings.TrimSpace(c.Query("q")),
	}

	signups, total, err := h.signups.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, perPage := opts.Page, opts.PageSize
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	response.SuccessWithMeta(c, http.StatusOK, signups, response.NewMeta(page, perPage, total))
}

var exportHeader = []string{
	"id", "email", "first_name", "last_name", "org", "sector", "country",
	"org_name", "contact_name", "role", "website", "industry", "size", "use_case",
	"source", "utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"signup_count", "created_at", "last_submitted_at",
}

// ExportSignups handles GET /api/admin/waitlist/export and streams a CSV
// attachment. Once rows are flowing, a failure can only truncate the file.
func (h *AdminHandler) ExportSignups(c *gin.Context) {
	filename := fmt.Sprintf("waitlist-%s.csv", h.now().UTC().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	if err := w.Write(exportHeader); err != nil {
		return
	}

	err := h.signups.Export(requestContext(c), strings.TrimSpace(c.Query("q")), func(s models.WaitlistSignup) error {
		return w.Write(exportRow(s))
	})
	w.Flush()
	if err == nil {
		err = w.Error()
	}
	if err != nil {
		logger.WithModule("admin").Error("waitlist export aborted", zap.Error(err))
	}
}

func exportRow(s models.WaitlistSignup) []string {
	return []string{
		s.ID, s.Email, s.FirstName, s.LastName, deref(s.Org), deref(s.Sector), deref(s.Country),
		deref(s.OrgName), deref(s.ContactName), deref(s.Role), deref(s.Website), deref(s.Industry), deref(s.Size), deref(s.UseCase),
		deref(s.Source), deref(s.UTMSource), deref(s.UTMMedium), deref(s.UTMCampaign), deref(s.UTMTerm), deref(s.UTMContent),
		strconv.Itoa(s.SignupCount), s.CreatedAt.UTC().Format(time.RFC3339), s.LastSubmittedAt.UTC().Format(time.RFC3339),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

type eventQuery struct {
	Page    int    `form:"page" json:"page" validate:"omitempty,min=1"`
	PerPage int    `form:"per_page" json:"per_page" validate:"omitempty,min=1,max=200"`
	Email   string `form:"email" json:"email" validate:"omitempty,simple_email"`
	Outcome string `form:"outcome" json:"outcome" validate:"omitempty,oneof=created duplicate"`
	Since   string `form:"since" json:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Until   string `form:"until" json:"until" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ListEvents handles GET /api/admin/waitlist/events.
func (h *AdminHandler) ListEvents(c *gin.Context) {
	if h.events == nil {
		response.SuccessWithMeta(c, http.StatusOK, []models.SignupEvent{}, response.NewMeta(1, 50, 0))
		return
	}

	var query eventQuery
	if !bindQuery(c, &query) {
		return
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.PerPage == 0 {
		query.PerPage = 50
	}

	filters := services.SignupEventFilters{Email: query.Email, Outcome: query.Outcome}
	if query.Since != "" {
		since, _ := time.Parse(time.RFC3339, query.Since)
		filters.Since = &since
	}
	if query.Until != "" {
		until, _ := time.Parse(time.RFC3339, query.Until)
		filters.Until = &until
	}

	events, total, err := h.events.List(requestContext(c), services.SignupEventListOptions{
		Page:     query.Page,
		PageSize: query.PerPage,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, events, response.NewMeta(query.Page, query.PerPage, total))
}

// Summary handles GET /api/admin/summary.
func (h *AdminHandler) Summary(c *gin.Context) {
	total, err := h.signups.Count(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"signups":    total,
		"monitoring": monitoring.Snapshot(),
	})
}
