package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Chetanya2001/CRM-backend/jobs"
	platformlogging "github.com/Chetanya2001/CRM-backend/platform/logging"
	platformmiddleware "github.com/Chetanya2001/CRM-backend/platform/middleware"
	"github.com/Chetanya2001/CRM-backend/platform/persistence"
	"github.com/Chetanya2001/CRM-backend/platform/tenant"
	tenantmiddleware "github.com/Chetanya2001/CRM-backend/platform/tenant/middleware"
	"github.com/Chetanya2001/CRM-backend/realtime"
)

type config struct {
	Port              string        `env:"PORT" envDefault:"5000"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	MasterDatabaseURL string        `env:"MASTER_DATABASE_URL,required"`
	JWTSecret         string        `env:"JWT_SECRET,required"`
	CORSOrigins       []string      `env:"CORS_ORIGINS" envSeparator:","`
	TenantDialTimeout time.Duration `env:"TENANT_DIAL_TIMEOUT" envDefault:"10s"`
	TenantIdleTTL     time.Duration `env:"TENANT_IDLE_TTL"`
	PresenceSendBuf   int           `env:"PRESENCE_SEND_BUFFER" envDefault:"32"`
	MeetingWindow     time.Duration `env:"MEETING_REMINDER_WINDOW" envDefault:"30m"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "crm-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.MasterDatabaseURL})
	if err != nil {
		logger.Fatal("init master postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	companyStore, err := persistence.NewCompanyStore(pool)
	if err != nil {
		logger.Fatal("init company store", zap.Error(err))
	}
	directory := persistence.NewCompanyDirectory(companyStore)

	manager := tenant.NewManager(tenant.ManagerConfig{
		Directory:   directory,
		DialTimeout: cfg.TenantDialTimeout,
		IdleTTL:     cfg.TenantIdleTTL,
		Logger:      logger,
	})
	defer manager.Close()

	userStore, err := persistence.NewUserStore(manager)
	if err != nil {
		logger.Fatal("init user store", zap.Error(err))
	}
	meetingStore, err := persistence.NewMeetingStore(manager)
	if err != nil {
		logger.Fatal("init meeting store", zap.Error(err))
	}
	followupStore, err := persistence.NewFollowupStore(manager)
	if err != nil {
		logger.Fatal("init followup store", zap.Error(err))
	}
	notificationStore, err := persistence.NewNotificationStore(manager)
	if err != nil {
		logger.Fatal("init notification store", zap.Error(err))
	}

	channel := realtime.NewChannel(realtime.ChannelConfig{
		Hub:        realtime.NewHub(logger),
		Registry:   realtime.NewRegistry(),
		Status:     userStore,
		Logger:     logger,
		SendBuffer: cfg.PresenceSendBuf,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range cfg.CORSOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	})

	scheduler := jobs.NewScheduler(logger,
		jobs.NewMeetingScan(directory, meetingStore, notificationStore, channel, cfg.MeetingWindow, logger),
		jobs.NewFollowupScan(directory, followupStore, notificationStore, channel, logger),
	)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("start notification scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	authMiddleware := buildAuthMiddleware(cfg, logger)
	resolveTenant := tenantmiddleware.ResolveTenant(manager, tenantmiddleware.Config{Logger: logger})

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.CORS(cfg.CORSOrigins),
	)
	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "master database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	rootRouter.Handle("/ws", channel)

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("pong"))
	})
	mountAPIRoutes(apiRouter, apiDeps{
		resolveTenant: resolveTenant,
		notifications: newNotificationHandler(notificationStore, logger),
	})

	rootRouter.Mount("/api", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
