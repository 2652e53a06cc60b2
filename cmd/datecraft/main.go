package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"datecraft/internal/app/notify"
	appoutbox "datecraft/internal/app/outbox"
	bookingservice "datecraft/internal/app/services/booking"
	chatservice "datecraft/internal/app/services/chat"
	"datecraft/internal/app/services/payment"
	domainbooking "datecraft/internal/domain/booking"
	domainchat "datecraft/internal/domain/chat"
	domainoffer "datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
	"datecraft/internal/infra/broker/kafka"
	"datecraft/internal/infra/config"
	ginserver "datecraft/internal/infra/http/gin"
	"datecraft/internal/infra/obs"
	infraoutbox "datecraft/internal/infra/outbox"
	"datecraft/internal/infra/storage/memory"
	mongostorage "datecraft/internal/infra/storage/mongo"
	"datecraft/internal/realtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}
	go runSweeper(ctx, app.bookings, cfg.SweepInterval, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if app.producer != nil {
			if err := app.producer.Close(); err != nil {
				logger.Error("kafka producer close failed", "error", err)
			}
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	bookings     *bookingservice.Service
	outboxWorker *infraoutbox.Worker
	producer     *kafka.Producer
	ready        func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		offerRepo   domainoffer.Repository
		bookingRepo domainbooking.Repository
		channelRepo domainchat.Repository
		slotReg     schedule.Registry
		attestStore payment.Store
		outboxStore infraoutbox.Store
		ready       = func() error { return nil }
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongostorage.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, err
		}
		offerRepo = mongostorage.NewOfferRepository(client.DB)
		bookingRepo = mongostorage.NewBookingRepository(client.DB)
		channelRepo = mongostorage.NewChannelRepository(client.DB)
		slotReg = mongostorage.NewSlotRegistry(client.DB)
		attestStore = mongostorage.NewAttestationStore(client.DB)
		outboxStore = infraoutbox.NewMongoStore(client.DB)
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		offerRepo = memory.NewOfferRepository()
		bookingRepo = memory.NewBookingRepository()
		channelRepo = memory.NewChannelRepository()
		slotReg = memory.NewSlotRegistry()
		attestStore = memory.NewAttestationStore()
		outboxStore = infraoutbox.NewMemoryStore()
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	presence := realtime.NewPresenceTracker(rdb, cfg.TypingTTL)
	hub := realtime.NewHub()

	dispatcher := &notify.Dispatcher{
		Notifier: notify.LogNotifier{Logger: logger},
		Outbox:   outboxAdapter{store: outboxStore},
		Logger:   logger,
	}

	chatSvc := &chatservice.Service{
		Channels: channelRepo,
		Hub:      hub,
		Presence: presence,
		Events:   dispatcher,
		Logger:   logger,
	}
	bookingSvc := &bookingservice.Service{
		Bookings:   bookingRepo,
		Offers:     offerRepo,
		Slots:      slotReg,
		Channels:   channelRepo,
		Chat:       chatSvc,
		Payments:   &payment.Tracker{Store: attestStore},
		Events:     dispatcher,
		Logger:     logger,
		PendingTTL: cfg.PendingTTL,
	}

	app := application{
		handlers: ginserver.Handlers{
			Booking:        ginserver.BookingHandler{Service: bookingSvc, Logger: logger},
			Calendar:       ginserver.CalendarHandler{Offers: offerRepo, Slots: slotReg, Logger: logger},
			Chat:           ginserver.ChatHandler{Service: chatSvc, Logger: logger},
			AuthMiddleware: ginserver.AuthMiddleware{}.Handle,
		},
		bookings: bookingSvc,
		ready:    ready,
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, err
		}
		app.producer = producer
		app.outboxWorker = &infraoutbox.Worker{
			Store:       outboxStore,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		logger.Info("outbox worker enabled", "brokers", cfg.KafkaBrokers, "prefix", cfg.KafkaTopicPrefix)
	} else {
		logger.Info("kafka not configured, events stay in the outbox store")
	}

	return app, nil
}

// outboxAdapter narrows the infra store to the dispatcher's Add-only port.
type outboxAdapter struct {
	store infraoutbox.Store
}

func (a outboxAdapter) Add(ctx context.Context, record appoutbox.EventRecord) error {
	return a.store.Add(ctx, record)
}

func runSweeper(ctx context.Context, svc *bookingservice.Service, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.RunSweep(ctx)
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
