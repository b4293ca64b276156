package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spryntr/waitlist/internal/antispam"
	"github.com/spryntr/waitlist/internal/api"
	"github.com/spryntr/waitlist/internal/app"
	"github.com/spryntr/waitlist/internal/app/maintenance"
	"github.com/spryntr/waitlist/internal/cache"
	"github.com/spryntr/waitlist/internal/cms"
	"github.com/spryntr/waitlist/internal/database"
	"github.com/spryntr/waitlist/internal/monitoring"
	"github.com/spryntr/waitlist/internal/monitoring/checks"
	"github.com/spryntr/waitlist/internal/services"
	"github.com/spryntr/waitlist/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Cleaner    *maintenance.Cleaner
	Monitoring *monitoring.Module
	Router     *gin.Engine
}

// bootstrapRuntime opens the database and wires services, background jobs
// and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	var err error
	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	rateStore := cache.Store(dbStore)
	purgers := cache.Purgers{dbStore}
	if strings.EqualFold(cfg.Server.RateLimit.Backend, "memory") {
		memory := cache.NewMemoryStore()
		rateStore = memory
		purgers = append(purgers, memory)
	}

	var events *services.SignupEventService
	if cfg.Waitlist.Events.Enabled {
		if events, err = services.NewSignupEventService(stack.DB); err != nil {
			return nil, fmt.Errorf("initialise signup event service: %w", err)
		}
	}

	waitlist, err := newWaitlistService(stack.DB, cfg, events)
	if err != nil {
		return nil, err
	}

	notifications, err := services.NewNotificationService(notificationConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	blog, err := services.NewBlogService(cms.NewClient(cmsConfig(cfg)), dbStore, cfg.CMS.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("initialise blog service: %w", err)
	}

	stack.Monitoring = monitoring.NewModule()
	monitoring.SetModule(stack.Monitoring)
	health := stack.Monitoring.Health()
	health.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	health.RegisterReadiness(checks.Database(stack.DB, 0))
	health.RegisterReadiness(checks.Email(cfg.Email.ProviderConfigured(), cfg.Email.Provider))

	if cfg.Maintenance.Enabled {
		var pruner maintenance.EventPruner
		if events != nil {
			pruner = events
		}
		stack.Cleaner = maintenance.NewCleaner(purgers, pruner,
			maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
			maintenance.WithEventSchedule(cfg.Maintenance.EventSchedule),
			maintenance.WithEventRetentionDays(cfg.Maintenance.EventRetentionDays),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
		health.RegisterReadiness(checks.Maintenance(0))
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:        cfg,
		Waitlist:      waitlist,
		Events:        events,
		Notifications: notifications,
		Blog:          blog,
		RateStore:     rateStore,
		Monitoring:    stack.Monitoring,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	if !cfg.Email.ProviderConfigured() {
		log.Warn("email provider not configured; welcome emails will fail", zap.String("provider", cfg.Email.Provider))
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown")
		}
		s.Cleaner = nil
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
		s.DB = nil
	}
}

func newWaitlistService(db *gorm.DB, cfg *app.Config, events *services.SignupEventService) (*services.WaitlistService, error) {
	opts := []services.WaitlistOption{}
	if cfg.Waitlist.Spam.Enabled {
		opts = append(opts, services.WithGuard(antispam.NewGuard(antispam.Config{
			Enabled:          true,
			MinFillTime:      cfg.Waitlist.Spam.MinFillTime,
			RequireTimestamp: cfg.Waitlist.Spam.RequireTimestamp,
		})))
	}
	if events != nil {
		opts = append(opts, services.WithEventRecorder(events))
	}

	svc, err := services.NewWaitlistService(db, services.WaitlistConfig{
		Schema:          services.Schema(strings.ToLower(cfg.Waitlist.Schema)),
		DuplicatePolicy: services.DuplicatePolicy(strings.ToLower(cfg.Waitlist.DuplicatePolicy)),
		StrictEmail:     cfg.Waitlist.StrictEmail,
		SpamRedirect:    cfg.Waitlist.SpamRedirect,
		DefaultSource:   cfg.Waitlist.Source,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise waitlist service: %w", err)
	}
	return svc, nil
}

func notificationConfig(cfg *app.Config) services.NotificationConfig {
	missing := "RESEND_API_KEY missing"
	if cfg.Email.UsesSMTP() {
		missing = "SMTP transport not configured"
	}
	return services.NotificationConfig{
		Sender:                 cfg.Email.SenderPolicy(),
		ReplyTo:                cfg.Email.ReplyTo,
		ProviderConfigured:     cfg.Email.ProviderConfigured(),
		MissingProviderMessage: missing,
		DiscordInviteURL:       cfg.Community.DiscordInviteURL,
		SiteURL:                cfg.Site.URL,
		NewMailer:              cfg.Email.NewMailer,
	}
}

func cmsConfig(cfg *app.Config) cms.Config {
	return cms.Config{
		ProjectID:  cfg.CMS.ProjectID,
		Dataset:    cfg.CMS.Dataset,
		APIVersion: cfg.CMS.APIVersion,
		Token:      cfg.CMS.Token,
		UseCDN:     cfg.CMS.UseCDN,
		BaseURL:    cfg.CMS.BaseURL,
		Timeout:    cfg.CMS.Timeout,
	}
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg, err := convertDatabaseConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db.WithContext(ctx)); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

// convertDatabaseConfig maps configuration onto database options. A hosted
// project URL and credential take precedence over the driver settings.
func convertDatabaseConfig(cfg *app.Config) (database.Config, error) {
	var dbCfg database.Config

	if cfg.Database.Hosted.Configured() {
		hosted, err := database.HostedConfig(cfg.Database.Hosted.URL, cfg.Database.Hosted.ServiceRole)
		if err != nil {
			return database.Config{}, err
		}
		dbCfg = hosted
	} else {
		dbCfg = database.Config{
			Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
			Path:   strings.TrimSpace(cfg.Database.Path),
			DSN:    strings.TrimSpace(cfg.Database.DSN),
		}

		var auth app.DBAuthConfig
		switch dbCfg.Driver {
		case "", "sqlite":
			dbCfg.Driver = "sqlite"
		case "postgres", "postgresql":
			dbCfg.Driver = "postgres"
			auth = cfg.Database.Postgres
		case "mysql":
			auth = cfg.Database.MySQL
		}
		dbCfg.Host = strings.TrimSpace(auth.Host)
		dbCfg.Port = auth.Port
		dbCfg.Name = strings.TrimSpace(auth.Database)
		dbCfg.User = strings.TrimSpace(auth.Username)
		dbCfg.Password = auth.Password
		dbCfg.Options = auth.Options
	}

	dbCfg.MaxOpenConns = cfg.Database.MaxOpenConns
	dbCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	dbCfg.LogLevel = cfg.Database.LogLevel
	return dbCfg, nil
}
