package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spryntr/waitlist/internal/app"
	"github.com/spryntr/waitlist/internal/cache"
	"github.com/spryntr/waitlist/internal/handlers"
	"github.com/spryntr/waitlist/internal/middleware"
	"github.com/spryntr/waitlist/internal/monitoring"
	"github.com/spryntr/waitlist/internal/services"
)

// Dependencies carries everything the router mounts. Events, Blog, RateStore
// and Monitoring are optional.
type Dependencies struct {
	Config        *app.Config
	Waitlist      *services.WaitlistService
	Events        *services.SignupEventService
	Notifications *services.NotificationService
	Blog          *services.BlogService
	RateStore     cache.Store
	Monitoring    *monitoring.Module
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	waitlistHandler, err := handlers.NewWaitlistHandler(deps.Waitlist)
	if err != nil {
		return nil, err
	}
	notifyHandler, err := handlers.NewNotifyHandler(deps.Notifications)
	if err != nil {
		return nil, err
	}
	adminHandler, err := handlers.NewAdminHandler(deps.Waitlist, deps.Events)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))

	intake := []gin.HandlerFunc{}
	if cfg.Server.RateLimit.Enabled && deps.RateStore != nil {
		intake = append(intake, middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))
	}

	// The form historically posted to both prefixes.
	registerWaitlistRoutes(r.Group("/", intake...), waitlistHandler, notifyHandler)
	registerWaitlistRoutes(r.Group("/api", intake...), waitlistHandler, notifyHandler)

	api := r.Group("/api")
	api.GET("/_envcheck", handlers.EnvCheck(cfg))
	registerAdminRoutes(api, adminHandler, cfg.Admin.AccessKey)

	if deps.Blog != nil {
		blogHandler, err := handlers.NewBlogHandler(deps.Blog)
		if err != nil {
			return nil, err
		}
		api.GET("/blog/posts", blogHandler.ListPosts)
	}

	registerHealthRoutes(r, cfg, deps.Monitoring)
	registerMetricsRoute(r, cfg, deps.Monitoring)

	r.NoRoute(middleware.NotFoundHandler)
	return r, nil
}

func registerWaitlistRoutes(router gin.IRouter, waitlist *handlers.WaitlistHandler, notify *handlers.NotifyHandler) {
	router.GET("/waitlist", waitlist.Status)
	router.POST("/waitlist", waitlist.Submit)
	router.POST("/waitlist/notify", notify.Notify)
}

func registerAdminRoutes(api *gin.RouterGroup, handler *handlers.AdminHandler, accessKey string) {
	admin := api.Group("/admin", middleware.AdminKey(accessKey))
	admin.GET("/summary", handler.Summary)
	admin.GET("/waitlist", handler.ListSignups)
	admin.GET("/waitlist/export", handler.ExportSignups)
	admin.GET("/waitlist/events", handler.ListEvents)
}

func registerMetricsRoute(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if !cfg.Monitoring.Prometheus.Enabled || mon == nil {
		return
	}
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(mon.Handler()))
}
