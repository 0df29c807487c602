package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"gymflow/internal/billing"
	"gymflow/internal/calendar"
	"gymflow/internal/config"
	"gymflow/internal/dashboard"
	"gymflow/internal/database"
	"gymflow/internal/eventstore"
	"gymflow/internal/httpx"
	"gymflow/internal/logger"
	"gymflow/internal/membership"
	"gymflow/internal/notify"
	"gymflow/internal/plans"
	"gymflow/internal/reminder"
	"gymflow/internal/scheduler"
	"gymflow/internal/settings"
	"gymflow/internal/staff"
	"gymflow/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	loc, err := calendar.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Fatal("Failed to load timezone", zap.Error(err))
	}

	log.Info("Starting gymflow",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", loc.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, cfg.App.Name, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	metrics, err := telemetry.NewBusinessMetrics(otel.Meter("gymflow"))
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	log.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := migrateUp(ctx, cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	clock := calendar.SystemClock{}
	events := eventstore.NewEventStore(db)
	settingsSvc := settings.NewService(db)

	queue := notify.NewQueue(cfg.Notify.QueueSize, cfg.Notify.SendTimeout, log.Named("queue"))
	queue.Start(ctx, 2)

	mailer := notify.NewMailer(cfg.Email, settingsSvc, loc, log.Named("email"), nil)
	transport, closeTransport := whatsAppTransport(ctx, cfg.WhatsApp, log.Named("whatsapp"))
	defer closeTransport()
	whatsApp := notify.NewWhatsApp(transport, settingsSvc, cfg.WhatsApp.DefaultCountryCode, loc, log.Named("whatsapp"))

	memberStore := membership.NewPostgresStore(db, events, loc)
	memberSvc := membership.NewService(membership.Deps{
		Store:    memberStore,
		Events:   events,
		Settings: settingsSvc,
		Welcome:  mailer,
		Queue:    queue,
		Clock:    clock,
		Location: loc,
		Logger:   log.Named("membership"),
	})
	evaluator := membership.NewEvaluator(memberStore, settingsSvc, clock, loc, metrics, log.Named("lifecycle"))

	billingSvc := billing.NewService(billing.Deps{
		Store:         billing.NewPostgresStore(db, events),
		Settings:      settingsSvc,
		Receipts:      mailer,
		Queue:         queue,
		Metrics:       metrics,
		Clock:         clock,
		Location:      loc,
		ReceiptPrefix: cfg.Billing.ReceiptPrefix,
		Logger:        log.Named("billing"),
	})

	dispatcher := reminder.NewDispatcher(reminder.Deps{
		Members:     memberStore,
		Logs:        reminder.NewPostgresLogStore(db),
		Channels:    []notify.ReminderSender{mailer, whatsApp},
		Settings:    settingsSvc,
		Metrics:     metrics,
		Clock:       clock,
		Location:    loc,
		SendTimeout: cfg.Notify.SendTimeout,
		Logger:      log.Named("reminder"),
	})

	staffSvc := staff.NewService(staff.Deps{
		Store:  staff.NewPostgresStore(db),
		Tokens: staff.NewTokenIssuer(cfg.JWT),
		Logger: log.Named("staff"),
	})
	if created, err := staffSvc.EnsureOwner(ctx, "", cfg.Security.OwnerEmail, cfg.Security.OwnerPassword); err != nil {
		log.Fatal("Failed to bootstrap owner account", zap.Error(err))
	} else if created {
		log.Info("Owner account created", zap.String("email", cfg.Security.OwnerEmail))
	}

	plansSvc := plans.NewService(plans.Deps{
		Store:   plans.NewPostgresStore(db),
		Members: memberStore,
		Mailer:  mailer,
		Queue:   queue,
		Logger:  log.Named("plans"),
	})

	dashboardSvc := dashboard.NewService(dashboard.NewPostgresStore(db), clock, loc, log.Named("dashboard"))

	memberHandler := membership.NewHandler(memberSvc, membership.PaymentHistoryFunc(
		func(ctx context.Context, id uuid.UUID, limit int) (any, error) {
			return billingSvc.MemberPayments(ctx, id, limit)
		}), log)
	reminderHandler := reminder.NewHandler(dispatcher, evaluator, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(httpx.CORS(cfg.Security.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			httpx.Error(w, r, log, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		limiter := staff.NewLoginLimiter(cfg.Security.LoginPerMinute, cfg.Security.LoginBurst)
		r.Route("/auth", staff.NewHandler(staffSvc, limiter, log).Routes)

		r.Route("/cron", func(r chi.Router) {
			r.Use(httpx.SharedSecret("X-Cron-Secret", cfg.Security.CronSecret, log))
			reminderHandler.CronRoutes(r)
		})
		r.With(httpx.DeviceKey(cfg.Security.DeviceAPIKey, log)).
			Get("/entry/device/check/{memberId}", memberHandler.HandleEntryCheck)

		r.Group(func(r chi.Router) {
			r.Use(httpx.Authenticate(staffSvc, log))

			r.Route("/members", func(r chi.Router) {
				memberHandler.Routes(r)
				r.Route("/{id}/plans", plans.NewHandler(plansSvc, log).Routes)
			})
			r.Route("/payments", billing.NewHandler(billingSvc, log).Routes)
			r.Route("/dashboard", dashboard.NewHandler(dashboardSvc, log).Routes)
			r.Route("/settings", settings.NewHandler(settingsSvc, mailer, log).Routes)
			r.Get("/entry/check/{memberId}", memberHandler.HandleEntryCheck)
			r.Route("/reminders", func(r chi.Router) {
				reminderHandler.Routes(r)
				r.With(httpx.RequireRole(log, httpx.RoleOwner)).Route("/trigger", reminderHandler.TriggerRoutes)
			})
		})
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(cfg.Scheduler, clock, loc, log.Named("scheduler"),
			scheduler.DailyJobs(cfg.Scheduler,
				func(ctx context.Context) error {
					_, err := dispatcher.SendPaymentReminders(ctx)
					return err
				},
				func(ctx context.Context) error {
					_, err := dispatcher.SendBirthdayWishes(ctx)
					return err
				},
				func(ctx context.Context) error {
					_, err := evaluator.AutoExpireUnpaidMembers(ctx)
					return err
				},
			)...)
		sched.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error("Scheduler did not stop in time", zap.Error(err))
		}
	}
	queue.Close()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateUp applies pending migrations over a dedicated connection, which
// the migrator closes when done.
func migrateUp(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) error {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	m, err := database.NewMigrator(db, log.Named("migrate"))
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()
	return m.Up()
}

// whatsAppTransport builds the configured WhatsApp driver. When the linked
// device session store cannot be opened it falls back to the Cloud API
// client, which skips every send unless its credentials are set.
func whatsAppTransport(ctx context.Context, cfg config.WhatsAppConfig, log *zap.Logger) (notify.TextTransport, func()) {
	if cfg.Driver != "linked-device" {
		return notify.NewCloudAPIClient(cfg, nil), func() {}
	}

	device, err := notify.NewLinkedDevice(ctx, cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to open WhatsApp session store, falling back to Cloud API", zap.Error(err))
		return notify.NewCloudAPIClient(cfg, nil), func() {}
	}
	if err := device.Connect(ctx); err != nil {
		log.Error("Failed to connect WhatsApp linked device", zap.Error(err))
	}
	return device, device.Disconnect
}
