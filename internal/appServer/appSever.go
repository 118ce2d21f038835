package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/campusres/config"
	"github.com/ds124wfegd/campusres/internal/database/memory"
	mongostore "github.com/ds124wfegd/campusres/internal/database/mongodb"
	repository "github.com/ds124wfegd/campusres/internal/database/postgres"
	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/internal/service"
	"github.com/ds124wfegd/campusres/internal/transport"
	"github.com/ds124wfegd/campusres/internal/transport/middleware"
	"github.com/ds124wfegd/campusres/internal/worker"

	"github.com/ds124wfegd/campusres/pkg/airquality"
	"github.com/ds124wfegd/campusres/pkg/identity"
	"github.com/ds124wfegd/campusres/pkg/kafka"
	"github.com/ds124wfegd/campusres/pkg/livefeed"
	"github.com/ds124wfegd/campusres/pkg/media"
	"github.com/ds124wfegd/campusres/pkg/mongodb"
	"github.com/ds124wfegd/campusres/pkg/pass"
	"github.com/ds124wfegd/campusres/pkg/postgres"
	"github.com/ds124wfegd/campusres/pkg/queue"
	redisclient "github.com/ds124wfegd/campusres/pkg/redis"
	"github.com/ds124wfegd/campusres/pkg/scheduler"
	"github.com/ds124wfegd/campusres/pkg/telegram"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(logrus.StandardLogger().WriterLevel(logrus.ErrorLevel), "", 0),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// taskQueue is implemented by both queue backends.
type taskQueue interface {
	queue.Queue
	transport.QueueInspector
}

func NewServer(cfg *config.Config) {
	if cfg.Server.Env == "production" {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	repo, closeStore, err := openRepository(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize %s storage: %v", cfg.Storage.Driver, err)
	}
	defer closeStore()

	// Initialize Redis
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logrus.Errorf("Failed to connect to Redis: %v. Continuing with in-process queue and live feed...", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Task queue
	retryManager := queue.NewRetryManager(cfg.Queue.BaseDelay, cfg.Queue.MaxDelay)
	var tasks taskQueue
	if redisClient != nil {
		tasks = queue.NewRedisQueue(redisClient, queue.RedisQueueConfig{
			Name:       cfg.Queue.Name,
			MaxRetries: cfg.Queue.MaxRetries,
		}, retryManager)
		logrus.Info("Redis queue initialized")
	} else {
		tasks = queue.NewMemoryQueue(cfg.Queue.MaxRetries, retryManager)
		logrus.Warn("Using in-process task queue, pending tasks are lost on restart")
	}
	defer tasks.Close()
	taskPublisher := service.NewQueueAdapter(tasks)

	// Live feed
	hub := livefeed.NewHub()
	go hub.Run(ctx)

	var feed livefeed.Publisher = livefeed.NewLocalBroker(hub)
	if redisClient != nil {
		broker := livefeed.NewRedisBroker(redisClient, cfg.Redis.ChangesChannel, hub)
		go func() {
			if err := broker.Listen(ctx); err != nil {
				logrus.Errorf("Live feed listener stopped: %v", err)
			}
		}()
		feed = broker
	}

	var changeSink kafka.Producer
	if cfg.Kafka.Enabled {
		changeSink, err = kafka.NewProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logrus.Errorf("Failed to initialize Kafka producer: %v. Continuing without change export...", err)
			changeSink = nil
		} else {
			defer changeSink.Close()
			logrus.WithField("topic", cfg.Kafka.Topic).Info("Kafka change export enabled")
		}
	}
	changes := service.NewChangePublisher(feed, changeSink)

	// Initialize Telegram bot
	var notifier service.Notifier
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		notifier = telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		logrus.Info("Telegram bot initialized")
	} else {
		logrus.Warn("Telegram bot token not provided, notifications disabled")
	}

	var images media.Store
	if cfg.Cloudinary.Enabled {
		store, err := media.NewCloudinaryStore(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
		if err != nil {
			logrus.Errorf("Failed to initialize Cloudinary: %v. Image uploads disabled", err)
		} else {
			images = store
		}
	}

	passSecret := cfg.Pass.Secret
	if passSecret == "" {
		passSecret = cfg.JWT.Secret
	}

	// Initialize services
	resourceService := service.NewResourceService(repo, changes, taskPublisher, images, cfg.Cloudinary.ThumbWidth)
	bookingService := service.NewBookingService(repo, changes, taskPublisher, notifier, pass.NewIssuer(passSecret, cfg.Pass.Size))
	authService := service.NewAuthService(
		identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.APIKey, cfg.Identity.RequestURI, cfg.Identity.Timeout),
		service.TokenConfig{
			Secret:      cfg.JWT.Secret,
			TTL:         cfg.JWT.Expiration,
			Issuer:      cfg.JWT.Issuer,
			AdminEmails: cfg.Auth.AdminEmails,
		},
	)
	airQualityService := service.NewAirQualityService(
		airquality.NewClient(cfg.AirQuality.BaseURL, cfg.AirQuality.APIKey, cfg.AirQuality.Timeout),
		places(cfg.AirQuality.Places),
	)

	// Background workers
	dispatcher := service.NewTaskDispatcher(resourceService, notifier)
	taskWorker := worker.NewTaskWorker(tasks, dispatcher.Handle)
	go func() {
		if err := taskWorker.Start(ctx); err != nil {
			logrus.Errorf("Queue subscriber error: %v", err)
		}
	}()

	sweeper := worker.NewOrphanSweeper(resourceService)
	jobs := scheduler.NewScheduler()
	if err := jobs.Register("orphan_sweeper", cfg.Worker.SweepSchedule, sweeper.Run); err != nil {
		logrus.Errorf("Orphan sweeper disabled: %v", err)
	}
	go jobs.Start(ctx)

	// Initialize handlers
	handlers := &transport.Handlers{
		Auth:       transport.NewAuthHandler(authService),
		Resources:  transport.NewResourceHandler(resourceService),
		Bookings:   transport.NewBookingHandler(bookingService),
		AirQuality: transport.NewAirQualityHandler(airQualityService),
		Live:       transport.NewLiveHandler(hub),
		Queue:      transport.NewQueueHandler(tasks, sweeper),
	}

	if cfg.Server.Mode == "release" || cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := transport.InitRoutes(handlers, authService, transport.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Version:        cfg.Server.AppVersion,
	})
	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(router)

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"addr":    cfg.Address(),
		"storage": cfg.Storage.Driver,
		"redis":   redisClient != nil,
	}).Info("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
	cancel()
}

func openRepository(ctx context.Context, cfg *config.Config) (*repository.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repository.NewRepository(db), func() { db.Close() }, nil

	case "mongo":
		db, err := mongodb.NewMongoDB(ctx, &cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				logrus.Errorf("Failed to disconnect from MongoDB: %v", err)
			}
		}
		repo, err := mongostore.NewRepository(ctx, db)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil

	case "memory":
		logrus.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewRepository(memory.NewStore()), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func places(cfg []config.PlaceConfig) []entity.Place {
	out := make([]entity.Place, 0, len(cfg))
	for _, p := range cfg {
		out = append(out, entity.Place{Name: p.Name, Lat: p.Lat, Lon: p.Lon})
	}
	return out
}
