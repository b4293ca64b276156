package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spryntr/waitlist/internal/antispam"
	"github.com/spryntr/waitlist/internal/models"
	apperrors "github.com/spryntr/waitlist/pkg/errors"
	"github.com/spryntr/waitlist/pkg/logger"
	"github.com/spryntr/waitlist/pkg/metrics"
	"github.com/spryntr/waitlist/pkg/validator"
)

// Schema selects which set of required fields a submission must carry.
type Schema string

const (
	SchemaPrimary   Schema = "primary"
	SchemaAlternate Schema = "alternate"
)

// DuplicatePolicy decides what happens when an email is already stored.
type DuplicatePolicy string

const (
	DuplicateUpsert DuplicatePolicy = "upsert"
	DuplicateReject DuplicatePolicy = "reject"
)

// Signup outcome labels used in metrics.
const (
	outcomeInvalid  = "invalid"
	outcomeConflict = "conflict"
	outcomeError    = "error"
	outcomeSpam     = "spam"
)

// WaitlistConfig controls validation and duplicate handling.
type WaitlistConfig struct {
	Schema          Schema
	DuplicatePolicy DuplicatePolicy
	// StrictEmail applies the address shape check to the primary schema too.
	StrictEmail   bool
	SpamRedirect  string
	DefaultSource string
}

// RequestMeta carries request attributes that are stored but not submitted.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// SignupOutcome describes the result of an accepted or silently dropped submission.
type SignupOutcome struct {
	Signup    *models.WaitlistSignup
	Created   bool
	Duplicate bool

	// Spam is set when the guard dropped the submission. Nothing was stored
	// and the caller must answer as if it succeeded.
	Spam     bool
	Redirect string
	Verdict  antispam.Verdict
}

// SignupListOptions controls pagination and search for the admin listing.
type SignupListOptions struct {
	Page     int
	PageSize int
	Search   string
}

// WaitlistOption customises the WaitlistService.
type WaitlistOption func(*WaitlistService)

// WithGuard installs the anti-spam guard. Without one every submission is allowed.
func WithGuard(g *antispam.Guard) WaitlistOption {
	return func(s *WaitlistService) {
		s.guard = g
	}
}

// WithEventRecorder enables the signup audit trail.
func WithEventRecorder(events *SignupEventService) WaitlistOption {
	return func(s *WaitlistService) {
		s.events = events
	}
}

// WithWaitlistClock overrides the clock used for submission timestamps.
func WithWaitlistClock(now func() time.Time) WaitlistOption {
	return func(s *WaitlistService) {
		if now != nil {
			s.now = now
		}
	}
}

// WaitlistService validates and stores waitlist signups.
type WaitlistService struct {
	db     *gorm.DB
	cfg    WaitlistConfig
	guard  *antispam.Guard
	events *SignupEventService
	now    func() time.Time
	log    *zap.Logger
}

// NewWaitlistService constructs a WaitlistService using the provided database handle.
func NewWaitlistService(db *gorm.DB, cfg WaitlistConfig, opts ...WaitlistOption) (*WaitlistService, error) {
	if db == nil {
		return nil, errors.New("waitlist service: db is required")
	}

	switch cfg.Schema {
	case "":
		cfg.Schema = SchemaPrimary
	case SchemaPrimary, SchemaAlternate:
	default:
		return nil, fmt.Errorf("waitlist service: unknown schema %q", cfg.Schema)
	}
	switch cfg.DuplicatePolicy {
	case "":
		cfg.DuplicatePolicy = DuplicateUpsert
	case DuplicateUpsert, DuplicateReject:
	default:
		return nil, fmt.Errorf("waitlist service: unknown duplicate policy %q", cfg.DuplicatePolicy)
	}
	if strings.TrimSpace(cfg.SpamRedirect) == "" {
		cfg.SpamRedirect = "/thanks"
	}

	svc := &WaitlistService{
		db:  db,
		cfg: cfg,
		now: time.Now,
		log: logger.WithModule("waitlist"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Config returns the effective configuration.
func (s *WaitlistService) Config() WaitlistConfig {
	return s.cfg
}

// Submit screens, validates and stores a signup. Validation always runs
// before any database call. Spam is dropped without a write and reported
// through SignupOutcome.Spam rather than an error.
func (s *WaitlistService) Submit(ctx context.Context, req *models.SignupRequest, meta RequestMeta) (*SignupOutcome, error) {
	ctx = ensureContext(ctx)
	if req == nil {
		req = &models.SignupRequest{}
	}

	verdict := s.guard.Evaluate(antispam.Submission{
		Honeypot:           req.Company,
		HoneypotFilled:     req.HoneypotFilled(),
		OpenedAt:           req.OpenedAt,
		MalformedTimestamp: req.TimestampMalformed(),
	})
	if verdict.RejectSilently() {
		metrics.SpamRejections.WithLabelValues(string(verdict.Reason)).Inc()
		metrics.Signups.WithLabelValues(outcomeSpam).Inc()
		s.log.Info("submission dropped by spam guard",
			zap.String("reason", string(verdict.Reason)),
			zap.Duration("elapsed", verdict.Elapsed),
			zap.String("ip", meta.IP),
		)
		return &SignupOutcome{Spam: true, Redirect: s.cfg.SpamRedirect, Verdict: verdict}, nil
	}

	if err := s.validate(req); err != nil {
		metrics.Signups.WithLabelValues(outcomeInvalid).Inc()
		return nil, err
	}

	record := s.buildRecord(req, meta)
	signup, created, err := s.persist(ctx, record)
	if err != nil {
		return nil, s.classify(err, record.Email)
	}

	outcome := &SignupOutcome{Signup: signup, Created: created, Duplicate: !created, Verdict: verdict}
	eventOutcome := models.SignupOutcomeCreated
	if !created {
		eventOutcome = models.SignupOutcomeDuplicate
	}
	metrics.Signups.WithLabelValues(eventOutcome).Inc()
	s.log.Info("waitlist signup stored",
		zap.String("id", signup.ID),
		zap.String("outcome", eventOutcome),
		zap.Int("signup_count", signup.SignupCount),
	)

	s.recordEvent(ctx, signup, eventOutcome, req, meta)
	return outcome, nil
}

func (s *WaitlistService) validate(req *models.SignupRequest) error {
	var required []string
	if s.cfg.Schema == SchemaAlternate {
		required = []string{"org_name", "email"}
	} else {
		required = []string{"first_name", "last_name", "email"}
	}

	for _, field := range required {
		if req.IsInvalid(field) || strings.TrimSpace(req.Value(field)) == "" {
			return apperrors.NewValidation(field, "Missing or invalid field: "+field)
		}
	}

	if s.cfg.Schema == SchemaAlternate || s.cfg.StrictEmail {
		if !validator.IsSimpleEmail(strings.TrimSpace(req.Email)) {
			return apperrors.NewValidation("email", "Invalid email")
		}
	}
	return nil
}

func (s *WaitlistService) buildRecord(req *models.SignupRequest, meta RequestMeta) *models.WaitlistSignup {
	source := req.Source
	if strings.TrimSpace(source) == "" {
		source = s.cfg.DefaultSource
	}

	return &models.WaitlistSignup{
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Email:           req.NormalizedEmail(),
		Org:             models.OptionalString(req.Org),
		Sector:          models.OptionalString(req.Sector),
		Country:         models.OptionalString(req.Country),
		OrgName:         models.OptionalString(req.OrgName),
		ContactName:     models.OptionalString(req.ContactName),
		Role:            models.OptionalString(req.Role),
		Website:         models.OptionalString(req.Website),
		Industry:        models.OptionalString(req.Industry),
		Size:            models.OptionalString(req.Size),
		UseCase:         models.OptionalString(req.UseCase),
		Source:          models.OptionalString(source),
		UTMSource:       models.OptionalString(req.UTMSource),
		UTMMedium:       models.OptionalString(req.UTMMedium),
		UTMCampaign:     models.OptionalString(req.UTMCampaign),
		UTMTerm:         models.OptionalString(req.UTMTerm),
		UTMContent:      models.OptionalString(req.UTMContent),
		IP:              truncate(strings.TrimSpace(meta.IP), 64),
		UserAgent:       truncate(strings.TrimSpace(meta.UserAgent), 512),
		SignupCount:     1,
		LastSubmittedAt: s.now().UTC(),
	}
}

// persist inserts record or, for a known email, applies the duplicate policy.
// A unique violation on insert means a concurrent submission won the race;
// it is resolved the same way as a duplicate found up front.
func (s *WaitlistService) persist(ctx context.Context, record *models.WaitlistSignup) (*models.WaitlistSignup, bool, error) {
	existing, err := s.findByEmail(ctx, record.Email)
	switch {
	case err == nil:
		signup, err := s.resubmit(ctx, existing, record)
		return signup, false, err
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return nil, false, err
		}
		existing, findErr := s.findByEmail(ctx, record.Email)
		if findErr != nil {
			return nil, false, err
		}
		signup, err := s.resubmit(ctx, existing, record)
		return signup, false, err
	}
	return record, true, nil
}

func (s *WaitlistService) resubmit(ctx context.Context, existing, incoming *models.WaitlistSignup) (*models.WaitlistSignup, error) {
	if s.cfg.DuplicatePolicy == DuplicateReject {
		return nil, apperrors.ErrConflict
	}

	updates := map[string]any{
		"signup_count":      gorm.Expr("signup_count + ?", 1),
		"last_submitted_at": incoming.LastSubmittedAt,
		"ip":                incoming.IP,
		"user_agent":        incoming.UserAgent,
	}
	if incoming.FirstName != "" {
		updates["first_name"] = incoming.FirstName
	}
	if incoming.LastName != "" {
		updates["last_name"] = incoming.LastName
	}
	optional := map[string]*string{
		"org":          incoming.Org,
		"sector":       incoming.Sector,
		"country":      incoming.Country,
		"org_name":     incoming.OrgName,
		"contact_name": incoming.ContactName,
		"role":         incoming.Role,
		"website":      incoming.Website,
		"industry":     incoming.Industry,
		"size":         incoming.Size,
		"use_case":     incoming.UseCase,
		"source":       incoming.Source,
		"utm_source":   incoming.UTMSource,
		"utm_medium":   incoming.UTMMedium,
		"utm_campaign": incoming.UTMCampaign,
		"utm_term":     incoming.UTMTerm,
		"utm_content":  incoming.UTMContent,
	}
	for column, value := range optional {
		if value != nil {
			updates[column] = *value
		}
	}

	if err := s.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.findByEmail(ctx, existing.Email)
}

func (s *WaitlistService) findByEmail(ctx context.Context, email string) (*models.WaitlistSignup, error) {
	var signup models.WaitlistSignup
	if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&signup).Error; err != nil {
		return nil, err
	}
	return &signup, nil
}

// classify maps persistence failures onto the error taxonomy: a conflict
// stays a conflict, database errors are provider errors carrying the store
// message, anything else is unexpected.
func (s *WaitlistService) classify(err error, email string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Code == apperrors.CodeConflict {
			metrics.Signups.WithLabelValues(outcomeConflict).Inc()
			s.log.Info("duplicate signup rejected", zap.String("email", email))
		} else {
			metrics.Signups.WithLabelValues(outcomeError).Inc()
		}
		return appErr
	}

	metrics.Signups.WithLabelValues(outcomeError).Inc()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.log.Warn("waitlist signup aborted", zap.Error(err))
		return apperrors.ErrInternalServer.WithInternal(err)
	}
	s.log.Error("waitlist signup failed", zap.String("email", email), zap.Error(err))
	return apperrors.NewProvider(err.Error(), err)
}

func (s *WaitlistService) recordEvent(ctx context.Context, signup *models.WaitlistSignup, outcome string, req *models.SignupRequest, meta RequestMeta) {
	if s.events == nil {
		return
	}
	source := ""
	if signup.Source != nil {
		source = *signup.Source
	}

	// The trail must not be lost because the client went away after the write.
	_, err := s.events.Record(context.WithoutCancel(ctx), SignupEventInput{
		SignupID:  signup.ID,
		Email:     signup.Email,
		Outcome:   outcome,
		Source:    source,
		Payload:   req.Raw(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		s.log.Warn("failed to record signup event", zap.String("signup_id", signup.ID), zap.Error(err))
	}
}

// List returns paginated signups ordered by most recent submission. Search
// matches email, names and organisation.
func (s *WaitlistService) List(ctx context.Context, opts SignupListOptions) ([]models.WaitlistSignup, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := clampPage(opts.Page, opts.PageSize)

	var (
		results []models.WaitlistSignup
		total   int64
	)

	query := s.applySearch(s.db.WithContext(ctx).Model(&models.WaitlistSignup{}), opts.Search)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("waitlist service: count signups: %w", err)
	}
	if err := query.
		Order("last_submitted_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("waitlist service: list signups: %w", err)
	}
	return results, total, nil
}

// Export streams every matching signup to fn in creation order, in batches,
// so large lists never sit in memory at once.
func (s *WaitlistService) Export(ctx context.Context, search string, fn func(models.WaitlistSignup) error) error {
	ctx = ensureContext(ctx)

	var batch []models.WaitlistSignup
	result := s.applySearch(s.db.WithContext(ctx).Model(&models.WaitlistSignup{}), search).
		Order("created_at ASC").
		FindInBatches(&batch, 500, func(tx *gorm.DB, _ int) error {
			for _, signup := range batch {
				if err := fn(signup); err != nil {
					return err
				}
			}
			return nil
		})
	if result.Error != nil {
		return fmt.Errorf("waitlist service: export signups: %w", result.Error)
	}
	return nil
}

// Count returns the number of stored signups.
func (s *WaitlistService) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ensureContext(ctx)).Model(&models.WaitlistSignup{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("waitlist service: count signups: %w", err)
	}
	return total, nil
}

func (s *WaitlistService) applySearch(query *gorm.DB, search string) *gorm.DB {
	if strings.TrimSpace(search) == "" {
		return query
	}
	pattern := likePattern(search)
	return query.Where(
		"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(org) LIKE ? OR LOWER(org_name) LIKE ?",
		pattern, pattern, pattern, pattern, pattern,
	)
}
