package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/frontdesk-ai/frontdesk/internal/api/router"
	"github.com/frontdesk-ai/frontdesk/internal/booking"
	"github.com/frontdesk-ai/frontdesk/internal/chat"
	appconfig "github.com/frontdesk-ai/frontdesk/internal/config"
	"github.com/frontdesk-ai/frontdesk/internal/gcal"
	"github.com/frontdesk-ai/frontdesk/internal/leads"
	"github.com/frontdesk-ai/frontdesk/internal/notify"
	"github.com/frontdesk-ai/frontdesk/internal/observability/metrics"
	"github.com/frontdesk-ai/frontdesk/internal/payments"
	"github.com/frontdesk-ai/frontdesk/internal/schedule"
	"github.com/frontdesk-ai/frontdesk/internal/tz"
	"github.com/frontdesk-ai/frontdesk/internal/webchat"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting frontdesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.TimeZone,
	)

	ctx := context.Background()

	clock := tz.NewClockInLocation(cfg.Location())
	rules := schedule.ParseRules(cfg.AvailabilityJSON, logger)
	if rules.UsedFallback() && cfg.AvailabilityJSON != "" {
		logger.Warn("availability template fell back to weekday business hours")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedulerMetrics := metrics.NewSchedulerMetrics(reg)
	conversationMetrics := metrics.NewConversationMetrics(reg)
	bookingMetrics := metrics.NewBookingMetrics(reg)
	notifyMetrics := metrics.NewNotifyMetrics(reg)

	// Calendar connection. The server still answers questions without one;
	// slot browsing assumes free and booking is disabled.
	var calClient *gcal.Client
	client, err := gcal.NewClient(ctx, gcal.Config{
		CalendarID:   cfg.CalendarID,
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
		CallTimeout:  cfg.CalendarCallTimeout,
	}, logger)
	switch {
	case err == nil:
		calClient = client
	case errors.Is(err, gcal.ErrNotConnected):
		logger.Warn("google calendar not connected, booking disabled")
	default:
		logger.Error("failed to initialize google calendar client", "error", err)
		os.Exit(1)
	}

	// Lead storage: Postgres when configured, in-memory otherwise.
	var leadRepo leads.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		leadRepo = leads.NewPostgresRepository(pool)
		logger.Info("lead storage: postgres")
	} else {
		leadRepo = leads.NewInMemoryRepository()
		logger.Info("lead storage: in-memory")
	}

	// Booking guard: Redis when configured, per-process otherwise.
	var guard booking.Guard = booking.NewMemoryGuard()
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		guard = booking.NewRedisGuard(rdb)
		logger.Info("booking guard: redis", "addr", cfg.RedisAddr)
	}

	notifier := buildNotifier(ctx, cfg, notifyMetrics, logger)

	var busy schedule.BusyOracle
	if calClient != nil {
		busy = calClient
	}
	generator := schedule.NewGenerator(clock, rules, busy, schedulerMetrics, logger)

	var booker chat.Booker
	if calClient != nil {
		booker = booking.NewCoordinator(
			calClient, calClient, calClient,
			guard, leadRepo, notifier, clock, bookingMetrics, logger,
			booking.Config{
				BusinessName: cfg.BusinessName,
				OwnerEmail:   cfg.OwnerEmail,
				SlotMinutes:  cfg.SlotMinutes,
			},
		)
	}

	var linker chat.PaymentLinker
	switch {
	case cfg.StripeSecretKey != "":
		stripeLinker, err := payments.NewStripeCheckout(payments.StripeConfig{
			SecretKey:    cfg.StripeSecretKey,
			BusinessName: cfg.BusinessName,
			AmountCents:  int64(cfg.DepositAmountCents),
			SuccessURL:   cfg.PublicBaseURL + "/thanks",
			CancelURL:    cfg.PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize stripe checkout", "error", err)
			os.Exit(1)
		}
		linker = stripeLinker
		logger.Info("payments: stripe checkout")
	case cfg.PaymentLinkURL != "":
		staticLinker, err := payments.NewStaticLink(cfg.PaymentLinkURL)
		if err != nil {
			logger.Error("invalid payment link url", "error", err)
			os.Exit(1)
		}
		linker = staticLinker
		logger.Info("payments: static link")
	}

	var smoother chat.Smoother
	if cfg.ToneSmoothingEnabled && cfg.GeminiAPIKey != "" {
		gemini, err := chat.NewGeminiSmoother(ctx, cfg.GeminiAPIKey, "")
		if err != nil {
			logger.Warn("tone smoothing unavailable", "error", err)
		} else {
			defer func() { _ = gemini.Close() }()
			smoother = gemini
			logger.Info("tone smoothing enabled")
		}
	}

	engine := chat.NewEngine(clock, generator, booker, linker, smoother, conversationMetrics, logger, chat.Options{
		BusinessName:     cfg.BusinessName,
		PricingText:      cfg.PricingText,
		SlotsPerPage:     cfg.SlotsPerPage,
		HorizonDays:      cfg.HorizonDays,
		SlotMinutes:      cfg.SlotMinutes,
		LeadTimeHours:    cfg.LeadTimeHours,
		EmptyDayScanDays: cfg.EmptyDayScanDays,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Chat:               webchat.NewHandler(engine, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: 5,
		RateLimitBurst:     10,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildNotifier picks the email provider: SendGrid when a key is present,
// SES when AWS credentials resolve, nothing otherwise.
func buildNotifier(ctx context.Context, cfg *appconfig.Config, m *metrics.NotifyMetrics, logger *logging.Logger) *notify.Service {
	var sender notify.EmailSender

	useSendGrid := cfg.EmailProvider == "sendgrid" || (cfg.EmailProvider == "auto" && cfg.SendGridAPIKey != "")
	if useSendGrid {
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sg != nil {
			sender = sg
			logger.Info("notifications: sendgrid")
		}
	}

	useSES := cfg.EmailProvider == "ses" ||
		(cfg.EmailProvider == "auto" && cfg.SESFromEmail != "")
	if sender == nil && useSES {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Warn("notifications: AWS config unavailable", "error", err)
		} else if ses := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); ses != nil {
			sender = ses
			logger.Info("notifications: ses", "region", cfg.AWSRegion)
		}
	}

	if sender == nil {
		logger.Warn("notifications disabled, no email provider configured")
		return nil
	}
	return notify.NewService(sender, m, logger).WithTimeout(cfg.NotifyTimeout)
}
