package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	attendancehandler "clubhub/internal/attendance/handler"
	attendanceservice "clubhub/internal/attendance/service"
	attstore "clubhub/internal/attendance/store/attendance"
	"clubhub/internal/attendance/store/qrsession"
	directoryhandler "clubhub/internal/directory/handler"
	directoryservice "clubhub/internal/directory/service"
	clubstore "clubhub/internal/directory/store/club"
	eventstore "clubhub/internal/directory/store/event"
	"clubhub/internal/identity"
	"clubhub/internal/notification"
	"clubhub/internal/platform/config"
	"clubhub/internal/platform/httpserver"
	"clubhub/internal/platform/logger"
	"clubhub/internal/platform/metrics"
	"clubhub/internal/platform/postgres"
	"clubhub/internal/platform/redis"
	"clubhub/internal/policy"
	registrationhandler "clubhub/internal/registration/handler"
	registrationservice "clubhub/internal/registration/service"
	regstore "clubhub/internal/registration/store"
	httptransport "clubhub/internal/transport/http"
)

// registrationStore is the union of what the registration service and the
// attendance recorder need from the registration tables; both store
// implementations satisfy it.
type registrationStore interface {
	registrationservice.Store
	attendanceservice.RegistrationLedger
}

// main wires stores, services, and the HTTP surface. Postgres, redis, and
// kafka are all optional: without them the process runs on in-memory stores
// and a logging notifier, which is enough for development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var clubs directoryservice.ClubStore
	var events directoryservice.EventStore
	var ledger registrationStore
	var attendance attendanceservice.AttendanceStore
	if db != nil {
		clubs = clubstore.NewPostgres(db)
		events = eventstore.NewPostgres(db)
		ledger = regstore.NewPostgres(db)
		attendance = attstore.NewPostgres(db)
	} else {
		clubs = clubstore.NewInMemory()
		events = eventstore.NewInMemory()
		ledger = regstore.NewInMemory()
		attendance = attstore.NewInMemory()
		log.Warn("postgres not configured, using in-memory stores")
	}

	var sessions attendanceservice.QRSessionStore
	if redisClient != nil {
		sessions = qrsession.NewRedis(redisClient)
	} else {
		sessions = qrsession.NewInMemory()
		log.Warn("redis not configured, using in-memory QR sessions")
	}

	var notifier notification.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier, err := notification.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka client failed", "error", err)
			os.Exit(1)
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		notifier = notification.NewLogNotifier(log)
		log.Warn("kafka not configured, logging notifications")
	}

	m := metrics.New()
	jwtService := identity.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	authorizer := policy.New(events, clubs)

	directorySvc := directoryservice.New(clubs, events, directoryservice.WithLogger(log))
	registrationSvc := registrationservice.New(ledger, events,
		registrationservice.WithLogger(log),
		registrationservice.WithNotifier(notifier),
		registrationservice.WithMetrics(m),
	)
	attendanceSvc := attendanceservice.New(attendance, sessions, ledger, authorizer,
		attendanceservice.WithLogger(log),
		attendanceservice.WithMetrics(m),
		attendanceservice.WithSessionTTL(cfg.QRSessionTTL),
	)

	router := httptransport.NewRouter(httptransport.Handlers{
		Registration: registrationhandler.New(registrationSvc, log),
		Attendance:   attendancehandler.New(attendanceSvc, log),
		Directory:    directoryhandler.New(directorySvc, log),
	}, jwtService, log)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting clubhub", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("clubhub stopped")
}
