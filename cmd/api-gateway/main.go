package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/classmatch-api/api/swagger"
	"github.com/noah-isme/classmatch-api/internal/handler"
	internalmiddleware "github.com/noah-isme/classmatch-api/internal/middleware"
	"github.com/noah-isme/classmatch-api/internal/repository"
	"github.com/noah-isme/classmatch-api/internal/seed"
	"github.com/noah-isme/classmatch-api/internal/service"
	"github.com/noah-isme/classmatch-api/pkg/cache"
	"github.com/noah-isme/classmatch-api/pkg/config"
	"github.com/noah-isme/classmatch-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classmatch-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classmatch-api/pkg/middleware/requestid"
)

// @title ClassMatch API
// @version 1.0.0
// @description Gateway for matching students with classmates and study groups
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.Session.Store == config.SessionStoreRedis {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("redis unavailable", zap.Error(err))
		}
		defer redisClient.Close()
	}

	backend, err := newBackend(ctx, cfg, metrics, logr)
	if err != nil {
		logr.Fatal("failed to init backend", zap.Error(err))
	}

	var sessions service.SessionStore = repository.NewMemorySessionRepository()
	if cfg.Session.Store == config.SessionStoreRedis {
		sessions = repository.NewRedisSessionRepository(redisClient)
	}

	validate := validator.New()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, "classmatch:", logr),
		metrics, cfg.Cache.CatalogTTL, logr, cfg.Cache.Enabled && redisClient != nil,
	)

	authSvc := service.NewAuthService(backend, sessions, validate, logr, service.AuthConfig{SessionTTL: cfg.Session.TTL})
	courseSvc := service.NewCourseService(backend, cacheSvc, cfg.Cache.CatalogTTL, metrics, logr)
	matchSvc := service.NewMatchService(backend, cfg.Matches.Limit, logr)
	groupSvc := service.NewGroupService(backend, matchSvc, validate, metrics, logr, service.GroupConfig{DefaultMaxMembers: cfg.Groups.DefaultMaxMembers})
	notificationSvc := service.NewNotificationService(backend, groupSvc, metrics, logr)
	messageSvc := service.NewMessageService(backend, validate, logr)
	availabilitySvc := service.NewAvailabilityService(backend, validate, logr)

	var pinger cache.Pinger
	if redisClient != nil {
		pinger = redisClient
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, pinger)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), authSvc, routeHandlers{
		auth:          handler.NewAuthHandler(authSvc),
		availability:  handler.NewAvailabilityHandler(availabilitySvc),
		courses:       handler.NewCourseHandler(courseSvc),
		matches:       handler.NewMatchHandler(matchSvc),
		groups:        handler.NewGroupHandler(groupSvc),
		messages:      handler.NewMessageHandler(messageSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newBackend(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (repository.Backend, error) {
	switch cfg.Backend.Mode {
	case config.BackendModeHTTP:
		return repository.NewHTTPBackend(cfg.Backend.BaseURL, cfg.Backend.Timeout, metrics, logr), nil
	case config.BackendModeMemory, "":
		backend := repository.NewMemoryBackend(cfg.MockAuth.TokenSecret, cfg.MockAuth.TokenTTL)
		if cfg.Backend.Seed {
			if err := seed.CreateDefaultData(ctx, backend, logr); err != nil {
				logr.Warn("demo data partially seeded", zap.Error(err))
			}
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown BACKEND_MODE %q", cfg.Backend.Mode)
	}
}

type routeHandlers struct {
	auth          *handler.AuthHandler
	availability  *handler.AvailabilityHandler
	courses       *handler.CourseHandler
	matches       *handler.MatchHandler
	groups        *handler.GroupHandler
	messages      *handler.MessageHandler
	notifications *handler.NotificationHandler
}

func registerRoutes(api *gin.RouterGroup, auth internalmiddleware.Authenticator, h routeHandlers) {
	api.POST("/auth/register", h.auth.Register)
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(internalmiddleware.Session(auth), internalmiddleware.ResponseMeta())

	secured.POST("/auth/logout", h.auth.Logout)
	secured.GET("/me", h.auth.Me)
	secured.PUT("/me", h.auth.UpdateProfile)
	secured.GET("/me/overview", h.auth.Overview)
	secured.GET("/me/availability", h.availability.List)
	secured.POST("/me/availability", h.availability.Add)
	secured.PUT("/me/availability", h.availability.Replace)
	secured.DELETE("/me/availability/:slotId", h.availability.Delete)

	secured.GET("/courses", h.courses.List)
	secured.POST("/courses/:id/enroll", h.courses.Enroll)
	secured.DELETE("/courses/:id/enroll", h.courses.Unenroll)

	secured.GET("/matches", h.matches.List)
	secured.GET("/matches/export", h.matches.Export)

	secured.GET("/groups", h.groups.List)
	secured.POST("/groups", h.groups.Create)
	secured.GET("/groups/:id", h.groups.Get)
	secured.PUT("/groups/:id", h.groups.Update)
	secured.DELETE("/groups/:id", h.groups.Delete)
	secured.POST("/groups/:id/join", h.groups.Join)
	secured.POST("/groups/:id/leave", h.groups.Leave)
	secured.POST("/groups/:id/transfer", h.groups.Transfer)
	secured.POST("/groups/:id/invite", h.groups.Invite)
	secured.GET("/groups/:id/invitees", h.groups.Invitees)
	secured.GET("/groups/:id/messages", h.messages.List)
	secured.POST("/groups/:id/messages", h.messages.Post)

	secured.GET("/notifications", h.notifications.List)
	secured.GET("/notifications/count", h.notifications.Count)
	secured.POST("/notifications/read-all", h.notifications.ReadAll)
	secured.POST("/notifications/:id/accept", h.notifications.Accept)
	secured.POST("/notifications/:id/decline", h.notifications.Decline)
}
