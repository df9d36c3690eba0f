package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsecrm/backend/config"
	"github.com/pulsecrm/backend/pkg/aihub"
	"github.com/pulsecrm/backend/pkg/api/handlers"
	"github.com/pulsecrm/backend/pkg/attendance"
	"github.com/pulsecrm/backend/pkg/auth"
	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/dailyreports"
	"github.com/pulsecrm/backend/pkg/database"
	"github.com/pulsecrm/backend/pkg/email"
	"github.com/pulsecrm/backend/pkg/export"
	"github.com/pulsecrm/backend/pkg/followups"
	"github.com/pulsecrm/backend/pkg/jobs"
	"github.com/pulsecrm/backend/pkg/leads"
	"github.com/pulsecrm/backend/pkg/logger"
	"github.com/pulsecrm/backend/pkg/marketing"
	"github.com/pulsecrm/backend/pkg/meetings"
	"github.com/pulsecrm/backend/pkg/metrics"
	custommw "github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
	"github.com/pulsecrm/backend/pkg/notify"
	"github.com/pulsecrm/backend/pkg/tickets"
	"github.com/pulsecrm/backend/pkg/todos"
	"github.com/pulsecrm/backend/pkg/users"
	"github.com/pulsecrm/backend/pkg/voicecall"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Structured logger for services
	appLog := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Initialize database
	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Query cache and mutation pipeline shared by all services
	staleTime := time.Duration(cfg.CacheStaleSeconds) * time.Second
	queryCache := cache.NewQueryCache(redisClient, appLog).WithStats(prometheusMetrics)
	notifier := notify.Multi{
		&notify.LogNotifier{Log: appLog},
		notify.NewRedisNotifier(redisClient, appLog),
	}
	pipeline := mutation.New(queryCache, notifier, appLog)

	// Initialize JWT blacklist
	tokenBlacklist := auth.NewTokenBlacklist(redisClient)

	// Initialize services
	userService := users.NewService(users.NewRepository(db), queryCache, pipeline, staleTime)
	leadService := leads.NewService(leads.NewRepository(db), userService, queryCache, pipeline, staleTime)
	followUpService := followups.NewService(followups.NewRepository(db), queryCache, pipeline, staleTime)
	meetingService := meetings.NewService(meetings.NewRepository(db), queryCache, pipeline, staleTime)
	attendanceService := attendance.NewService(attendance.NewRepository(db), queryCache, pipeline, staleTime)
	reportService := dailyreports.NewService(dailyreports.NewRepository(db), queryCache, pipeline, staleTime)
	todoService := todos.NewService(todos.NewRepository(db), queryCache, pipeline, staleTime)

	// AI hub client backs the ticket hub, voice calls and idea generation
	hubClient := aihub.NewClient(cfg.AIHubBaseURL, cfg.AIHubAPIKey, time.Duration(cfg.AIHubTimeoutMs)*time.Millisecond)
	ticketService := tickets.NewService(hubClient, queryCache, pipeline, staleTime)
	log.Printf("✅ AI hub client initialized (%s)", cfg.AIHubBaseURL)

	marketingService := marketing.NewService(
		hubClient,
		marketing.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey),
		cfg.LLMModel,
		queryCache,
		appLog,
		staleTime,
	)

	voiceManager := voicecall.NewManager(hubClient, redisClient, notifier, appLog)

	// Initialize email service
	emailService := email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.SendgridAPIKey)

	// Initialize export service
	exportService := export.NewService(leadService, cfg.ExportLocalPath)

	// Initialize cron manager for scheduled jobs
	cronManager := jobs.NewCronManager(followUpService, userService, marketingService, emailService, log.Default())
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ Failed to setup cron jobs: %v", err)
	}
	cronManager.Start()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokenBlacklist, cfg.JWTSecret, cfg.JWTExpirationHours)
	userHandler := handlers.NewUserHandler(userService)
	leadHandler := handlers.NewLeadHandler(leadService, exportService)
	followUpHandler := handlers.NewFollowUpHandler(followUpService)
	meetingHandler := handlers.NewMeetingHandler(meetingService)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService)
	reportHandler := handlers.NewDailyReportHandler(reportService)
	todoHandler := handlers.NewTodoHandler(todoService)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	marketingHandler := handlers.NewMarketingHandler(marketingService)
	voiceCallHandler := handlers.NewVoiceCallHandler(voiceManager)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Initialize rate limiters
	globalRateLimiter := custommw.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	authRateLimiter := custommw.NewRateLimiter(5, 2)     // 5 req/min for login
	registerRateLimiter := custommw.NewRateLimiter(3, 1) // 3 req/min for register

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Sentry error tracking middleware (if configured)
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	// Prometheus metrics middleware
	e.Use(prometheusMetrics.Middleware())

	// CORS with restricted origins
	e.Use(middleware.CORSWithConfig(custommw.CORSConfig(cfg.CORSAllowedOrigins)))

	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())

	// Global rate limiting
	e.Use(globalRateLimiter.Middleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "PulseCRM API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}

		if _, err := redisClient.Redis.Ping(c.Request().Context()).Result(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"cache":  "down",
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
			"cache":    "up",
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := e.Group("/api/v1")

	jwtAuth := custommw.JWTAuth(cfg.JWTSecret, tokenBlacklist)
	managerOnly := custommw.RequireRole(models.RoleManager, models.RoleSuperAdmin)

	// Authentication routes (public)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register, registerRateLimiter.Middleware())
		authRoutes.POST("/login", authHandler.Login, authRateLimiter.Middleware())
		authRoutes.GET("/me", authHandler.Me, jwtAuth)
		authRoutes.POST("/logout", authHandler.Logout, jwtAuth)
	}

	// Protected routes (require JWT with blacklist validation)
	protected := v1.Group("")
	protected.Use(jwtAuth)
	{
		// User administration (managers and super admins)
		usersGroup := protected.Group("/users", managerOnly)
		{
			usersGroup.GET("", userHandler.List)
			usersGroup.GET("/:id", userHandler.GetByID)
			usersGroup.PATCH("/:id", userHandler.Update)
		}

		// Lead routes
		leadsGroup := protected.Group("/leads")
		{
			leadsGroup.GET("", leadHandler.List)
			leadsGroup.GET("/export", leadHandler.Export)
			leadsGroup.GET("/:id", leadHandler.GetByID)
			leadsGroup.POST("", leadHandler.Create)
			leadsGroup.PATCH("/:id", leadHandler.Update)
		}

		// Follow-up routes
		followUpsGroup := protected.Group("/follow-ups")
		{
			followUpsGroup.GET("", followUpHandler.List)
			followUpsGroup.GET("/:id", followUpHandler.GetByID)
			followUpsGroup.POST("", followUpHandler.Create)
			followUpsGroup.PATCH("/:id", followUpHandler.Update)
			followUpsGroup.DELETE("/:id", followUpHandler.Delete)
		}

		// Meeting routes
		meetingsGroup := protected.Group("/meetings")
		{
			meetingsGroup.GET("", meetingHandler.List)
			meetingsGroup.GET("/:id", meetingHandler.GetByID)
			meetingsGroup.POST("", meetingHandler.Create)
			meetingsGroup.PATCH("/:id", meetingHandler.Update)
			meetingsGroup.POST("/:id/reschedule", meetingHandler.Reschedule)
			meetingsGroup.DELETE("/:id", meetingHandler.Delete)
		}

		// Attendance routes
		attendanceGroup := protected.Group("/attendance")
		{
			attendanceGroup.GET("", attendanceHandler.List)
			attendanceGroup.GET("/today", attendanceHandler.Today)
			attendanceGroup.POST("/check-in", attendanceHandler.CheckIn)
			attendanceGroup.POST("/check-out", attendanceHandler.CheckOut)
			attendanceGroup.POST("/leave", attendanceHandler.MarkLeave, managerOnly)
		}

		// Daily report routes
		reportsGroup := protected.Group("/daily-reports")
		{
			reportsGroup.GET("", reportHandler.List)
			reportsGroup.GET("/:id", reportHandler.GetByID)
			reportsGroup.POST("", reportHandler.Submit)
		}

		// Todo routes
		todosGroup := protected.Group("/todos")
		{
			todosGroup.GET("", todoHandler.List)
			todosGroup.POST("", todoHandler.Create)
			todosGroup.PATCH("/:id", todoHandler.Update)
			todosGroup.DELETE("/:id", todoHandler.Delete)
		}

		// Support ticket routes (proxied through the AI hub)
		ticketsGroup := protected.Group("/tickets")
		{
			ticketsGroup.GET("", ticketHandler.List)
			ticketsGroup.GET("/kb", ticketHandler.SearchKB)
			ticketsGroup.POST("/kb", ticketHandler.CreateKBArticle)
			ticketsGroup.PUT("/kb/:id", ticketHandler.UpdateKBArticle)
			ticketsGroup.DELETE("/kb/:id", ticketHandler.DeleteKBArticle)
			ticketsGroup.POST("/ingest/email", ticketHandler.IngestEmail)
			ticketsGroup.GET("/:id", ticketHandler.GetByID)
			ticketsGroup.POST("", ticketHandler.Create)
			ticketsGroup.PATCH("/:id", ticketHandler.Update)
			ticketsGroup.POST("/:id/answer", ticketHandler.GenerateAnswer)
		}

		// Marketing hub routes
		marketingGroup := protected.Group("/marketing")
		{
			marketingGroup.GET("/campaigns", marketingHandler.Campaigns)
			marketingGroup.GET("/ab-tests", marketingHandler.ABTests)
			marketingGroup.GET("/social-posts", marketingHandler.SocialPosts)
			marketingGroup.POST("/ideas", marketingHandler.GenerateIdeas)
			marketingGroup.POST("/ideas/expand", marketingHandler.ExpandIdea)
		}

		// Voice call routes
		callsGroup := protected.Group("/voice-calls")
		{
			callsGroup.POST("", voiceCallHandler.Start)
			callsGroup.GET("/current", voiceCallHandler.Current)
			callsGroup.POST("/resume", voiceCallHandler.Resume)
			callsGroup.POST("/end", voiceCallHandler.End)
		}
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 PulseCRM API starting on %s", address)
	log.Printf("🔐 JWT expiration: %d hours", cfg.JWTExpirationHours)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d)", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	log.Printf("⏰ Cron jobs: Daily 8AM (follow-up reminders), Daily 3AM (marketing refresh)")

	// Graceful shutdown
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Stop cron jobs
	cronManager.Stop()

	// Stop voice call pollers
	voiceManager.Shutdown()
	log.Println("✅ Background workers stopped")

	// Gracefully shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
