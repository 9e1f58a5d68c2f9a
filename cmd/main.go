package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/casaflow/booking-service/internal/app"
	"github.com/casaflow/booking-service/internal/config"
	"github.com/casaflow/booking-service/internal/controllers"
	"github.com/casaflow/booking-service/internal/events"
	"github.com/casaflow/booking-service/internal/notifications"
	"github.com/casaflow/booking-service/internal/repositories"
	"github.com/casaflow/booking-service/internal/routes"
	"github.com/casaflow/booking-service/internal/services"
	"github.com/casaflow/booking-service/internal/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.InitLogger("booking-service")
		utils.Logger.WithError(err).Fatal("configuration error")
	}
	utils.InitLogger(cfg.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := app.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		utils.Logger.WithError(err).Fatal("could not connect to database")
	}
	defer pool.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			utils.Logger.WithError(err).Warn("event broker unavailable, continuing without events")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	var notifier notifications.Notifier = notifications.NopNotifier{}
	if cfg.SendGridAPIKey != "" || cfg.TwilioAccountSID != "" {
		notifier = notifications.NewNotifier(notifications.Config{
			SendGridAPIKey:   cfg.SendGridAPIKey,
			FromEmail:        cfg.NotifyFrom,
			ToEmail:          cfg.NotifyTo,
			TwilioAccountSID: cfg.TwilioAccountSID,
			TwilioAuthToken:  cfg.TwilioAuthToken,
			TwilioFromNumber: cfg.TwilioFrom,
			TwilioToNumber:   cfg.TwilioTo,
		})
	}

	propRepo := repositories.NewPropertyRepository(pool)
	floorRepo := repositories.NewFloorRepository(pool)
	unitRepo := repositories.NewUnitRepository(pool)
	bookingRepo := repositories.NewBookingRepository(pool)
	requestRepo := repositories.NewTenantRequestRepository(pool)
	invoiceRepo := repositories.NewInvoiceRepository(pool)

	bookingSvc := services.NewBookingService(bookingRepo, propRepo, floorRepo, unitRepo, publisher, notifier)
	requestSvc := services.NewTenantRequestService(requestRepo, bookingRepo, propRepo, floorRepo, unitRepo, publisher, notifier)
	invoiceSvc := services.NewInvoiceService(invoiceRepo, bookingRepo, propRepo, publisher, notifier)
	availabilitySvc := services.NewAvailabilityService(bookingRepo, propRepo, unitRepo)
	reconciler := services.NewOccupancyReconciler(bookingRepo)

	validate := validator.New()
	router := routes.NewRouter(routes.Controllers{
		Bookings:       controllers.NewBookingsController(bookingSvc, validate),
		TenantRequests: controllers.NewTenantRequestsController(requestSvc, validate),
		Invoices:       controllers.NewInvoicesController(invoiceSvc, validate),
		Availability:   controllers.NewAvailabilityController(availabilitySvc),
		Health:         controllers.NewHealthController(pool),
	}, cfg.JWTSecret)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.CronOverdueSpec, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := invoiceSvc.SweepOverdue(jobCtx); err != nil {
			utils.Logger.WithError(err).Error("overdue sweep failed")
		}
	}); err != nil {
		utils.Logger.WithError(err).Fatal("invalid overdue cron spec")
	}
	if _, err := scheduler.AddFunc(cfg.CronReconcileSpec, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := reconciler.Run(jobCtx); err != nil {
			utils.Logger.WithError(err).Error("occupancy reconciliation failed")
		}
	}); err != nil {
		utils.Logger.WithError(err).Fatal("invalid reconcile cron spec")
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Logger.Infof("listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	utils.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Logger.WithError(err).Error("graceful shutdown failed")
	}
}
