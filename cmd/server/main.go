package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/config"
	"github.com/iliyamo/event-platform/internal/database"
	"github.com/iliyamo/event-platform/internal/handler"
	"github.com/iliyamo/event-platform/internal/logging"
	"github.com/iliyamo/event-platform/internal/metrics"
	"github.com/iliyamo/event-platform/internal/middleware"
	"github.com/iliyamo/event-platform/internal/queue"
	"github.com/iliyamo/event-platform/internal/realtime"
	"github.com/iliyamo/event-platform/internal/repository"
	"github.com/iliyamo/event-platform/internal/router"
	"github.com/iliyamo/event-platform/internal/scheduler"
	"github.com/iliyamo/event-platform/internal/service"
	"github.com/iliyamo/event-platform/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional outside development
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, nil)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if cfg.DBMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	if rdb == nil {
		log.Warn().Msg("redis unreachable; rate limiting and response cache disabled")
	}

	files, err := storage.NewFSStore(cfg.StorageRoot, cfg.StoragePublicURL)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}

	hub := realtime.NewHub(log, cfg.CORSOrigins)
	handlers := queue.Handlers{
		queue.NotificationsChanged: hub.NotificationHandler(),
		queue.BookingChanged:       queue.BookingAuditHandler(cfg.LogDir),
		queue.MailOutbox:           queue.MailOutboxHandler(cfg.LogDir, log),
	}

	ctx, stopConsumer := context.WithCancel(context.Background())
	var pub queue.Publisher
	if cfg.AMQPURL != "" {
		pub = queue.NewAMQPPublisher(cfg.AMQPURL, log)
		go queue.NewConsumer(cfg.AMQPURL, handlers, log).Run(ctx)
	} else {
		log.Info().Msg("no broker configured; dispatching events in-process")
		pub = queue.NewLocalPublisher(handlers, log)
	}

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	suppliers := repository.NewSupplierRepo(db)
	venues := repository.NewVenueRepo(db)
	gallery := repository.NewGalleryRepo(db)
	bookings := repository.NewBookingRepo(db)
	blocks := repository.NewAvailabilityRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	surveys := repository.NewSurveyRepo(db)
	notifications := repository.NewNotificationRepo(db)
	partners := repository.NewPartnerRepo(db)

	// Services
	notifySvc := service.NewNotificationService(notifications, pub, log)
	authSvc := service.NewAuthService(service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		ResetTTLMin:    cfg.ResetTTLMin,
		BcryptCost:     cfg.BcryptCost,

		ResetRedirectURL:   cfg.ResetRedirectURL,
		ResetRedirectAllow: cfg.ResetRedirectAllow,
	}, db, users, tokens, profiles, pub, log)
	profileSvc := service.NewProfileService(profiles, files, cfg.MaxUploadBytes, log)
	dirSvc := service.NewDirectoryService(suppliers, venues, gallery, profiles, profiles, files, cfg.MaxUploadBytes, log)
	bookingSvc := service.NewBookingService(db, bookings, blocks, notifySvc, pub, log)
	calendarSvc := service.NewCalendarService(bookings, blocks, log)
	eventSvc := service.NewEventService(db, events, tickets, notifySvc, log)
	surveySvc := service.NewSurveyService(surveys, events, log)
	partnerSvc := service.NewPartnerService(db, partners, users, files, notifySvc, cfg.MaxUploadBytes, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(logging.RequestLogger(log))
	e.Use(echomw.Recover())
	if cfg.MetricsEnabled {
		e.Use(metrics.Middleware())
	}
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	}
	// Multipart uploads carry the file plus a few form fields.
	e.Use(echomw.BodyLimit(strconv.FormatInt((cfg.MaxUploadBytes>>20)+1, 10) + "M"))

	rl := config.LoadRateLimitConfig()
	e.Use(middleware.NewTokenBucket(rl, rdb, log))
	gd := router.Guards{
		JWTSecret: cfg.JWTSecret,
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log),
		AuthLimit: middleware.NewTokenBucket(rl.WithCapacity(rl.AuthCapacity, rl.Prefix+":auth"), rdb, log),
	}

	bookingH := handler.NewBookingHandler(bookingSvc)
	router.RegisterRoutes(e, db, handler.NewStorageHandler(files), cfg.MetricsEnabled)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), handler.NewProfileHandler(profileSvc), gd)
	router.RegisterDirectory(e, handler.NewDirectoryHandler(dirSvc), bookingH, gd)
	router.RegisterBookings(e, bookingH, handler.NewCalendarHandler(calendarSvc), gd)
	router.RegisterEvents(e, handler.NewEventHandler(eventSvc), handler.NewSurveyHandler(surveySvc), gd)
	router.RegisterInbox(e, handler.NewNotificationHandler(notifySvc), handler.NewRealtimeHandler(hub, log), gd)
	router.RegisterPartners(e, handler.NewPartnerHandler(partnerSvc), gd)

	var sched *scheduler.Scheduler
	if cfg.CronEnabled {
		maint := service.NewMaintenanceService(tokens, eventSvc, cfg.ReminderWindow, log)
		sched, err = scheduler.New(maint, scheduler.Config{
			Reminders: cfg.ReminderSchedule,
			Purge:     cfg.PurgeSchedule,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("scheduler init failed")
		}
		sched.Start()
	}

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdown(e, sched, stopConsumer, hub, db, rdb, log)
}

func shutdown(e *echo.Echo, sched *scheduler.Scheduler, stopConsumer context.CancelFunc, hub *realtime.Hub,
	db *sql.DB, rdb *redis.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if sched != nil {
		sched.Stop(ctx)
	}
	stopConsumer()
	hub.Close()
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("database close")
	}
}
