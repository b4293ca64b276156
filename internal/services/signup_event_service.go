package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/spryntr/waitlist/internal/models"
	"github.com/spryntr/waitlist/internal/ua"
)

// SignupEventInput captures one accepted submission for the audit trail.
type SignupEventInput struct {
	SignupID  string
	Email     string
	Outcome   string
	Source    string
	Payload   json.RawMessage
	IP        string
	UserAgent string
}

// SignupEventFilters narrows event queries.
type SignupEventFilters struct {
	Email   string
	Outcome string
	Since   *time.Time
	Until   *time.Time
}

// SignupEventListOptions controls pagination and filtering for event queries.
type SignupEventListOptions struct {
	Page     int
	PageSize int
	Filters  SignupEventFilters
}

// SignupEventService appends and reads the signup audit trail.
type SignupEventService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSignupEventService constructs a SignupEventService using the provided database handle.
func NewSignupEventService(db *gorm.DB) (*SignupEventService, error) {
	if db == nil {
		return nil, errors.New("signup event service: db is required")
	}
	return &SignupEventService{db: db, now: time.Now}, nil
}

// Record appends an event. The user agent is parsed into browser, OS and
// device columns so the trail can be filtered without re-parsing.
func (s *SignupEventService) Record(ctx context.Context, in SignupEventInput) (*models.SignupEvent, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(in.Email) == "" {
		return nil, errors.New("signup event service: email is required")
	}
	if strings.TrimSpace(in.Outcome) == "" {
		return nil, errors.New("signup event service: outcome is required")
	}

	payload := datatypes.JSON("{}")
	if len(in.Payload) > 0 {
		if !json.Valid(in.Payload) {
			return nil, errors.New("signup event service: payload is not valid JSON")
		}
		payload = datatypes.JSON(in.Payload)
	}

	agent := ua.Parse(in.UserAgent)
	event := &models.SignupEvent{
		SignupID:   strings.TrimSpace(in.SignupID),
		Email:      models.NormalizeEmail(in.Email),
		Outcome:    strings.TrimSpace(in.Outcome),
		Source:     strings.TrimSpace(in.Source),
		Payload:    payload,
		IP:         strings.TrimSpace(in.IP),
		UserAgent:  truncate(strings.TrimSpace(in.UserAgent), 512),
		Browser:    agent.Browser,
		OS:         agent.OS,
		DeviceType: agent.Device,
		IsBot:      agent.IsBot,
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("signup event service: record: %w", err)
	}
	return event, nil
}

// List returns paginated events ordered by creation time descending.
func (s *SignupEventService) List(ctx context.Context, opts SignupEventListOptions) ([]models.SignupEvent, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := clampPage(opts.Page, opts.PageSize)

	var (
		results []models.SignupEvent
		total   int64
	)

	query := applySignupEventFilters(s.db.WithContext(ctx).Model(&models.SignupEvent{}), opts.Filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("signup event service: count events: %w", err)
	}

	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("signup event service: list events: %w", err)
	}
	return results, total, nil
}

// CleanupOlderThan removes events older than the supplied retention window (in days).
func (s *SignupEventService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("signup event service: retentionDays must be positive")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SignupEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("signup event service: cleanup events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func applySignupEventFilters(query *gorm.DB, filters SignupEventFilters) *gorm.DB {
	if email := models.NormalizeEmail(filters.Email); email != "" {
		query = query.Where("email = ?", email)
	}
	if filters.Outcome != "" {
		query = query.Where("outcome = ?", filters.Outcome)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
