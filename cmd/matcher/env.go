package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_matching/internal/app"
	"github.com/Freeeeeet/tutor_matching/internal/config"
	"github.com/Freeeeeet/tutor_matching/internal/notify"
	"github.com/Freeeeeet/tutor_matching/internal/repository"
	"github.com/Freeeeeet/tutor_matching/internal/repository/memory"
	"github.com/Freeeeeet/tutor_matching/internal/service"
)

type envOptions struct {
	dryRun  bool
	fixture string
}

// env - собранные зависимости одного запуска CLI
type env struct {
	cfg         *config.Config
	logger      *zap.Logger
	pool        *pgxpool.Pool
	assignments *service.AssignmentService
	repairs     *service.RepairService
	closers     []func()
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func setupEnv(ctx context.Context, opts envOptions) (*env, error) {
	load := config.Load
	if opts.dryRun {
		load = config.LoadOffline
	}
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	e := &env{cfg: cfg, logger: logger}
	e.closers = append(e.closers, func() { _ = logger.Sync() })

	var (
		stores   service.Stores
		locker   service.TutorLocker
		notifier service.Notifier
	)

	if opts.dryRun {
		db, err := loadMemory(opts.fixture)
		if err != nil {
			e.close()
			return nil, err
		}
		logger.Info("Dry run against in-memory store", zap.String("fixture", opts.fixture))
		stores = db.Stores()
		locker = service.NewLocalLocker()
	} else {
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		e.closers = append(e.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			e.close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		e.pool = pool
		stores = postgresStores(pool, logger)

		locker, err = newLocker(ctx, cfg, e)
		if err != nil {
			e.close()
			return nil, err
		}

		notifier, err = newNotifier(cfg, logger)
		if err != nil {
			e.close()
			return nil, err
		}
	}

	meeting := service.MeetingConfig{Host: cfg.MeetingHost, RoomPrefix: cfg.MeetingRoomPrefix}
	resolver := service.NewEnrollmentResolver(stores, locker, meeting, logger)
	students := service.NewStudentResolver(stores, logger)

	e.assignments = service.NewAssignmentService(stores, resolver, students, notifier, logger)
	e.repairs = service.NewRepairService(stores, resolver, students, logger)

	return e, nil
}

func postgresStores(pool *pgxpool.Pool, logger *zap.Logger) service.Stores {
	return service.Stores{
		Users:        repository.NewUserRepository(pool),
		Tutors:       repository.NewTutorRepository(pool, logger),
		Students:     repository.NewStudentRepository(pool),
		Classes:      repository.NewClassRepository(pool, logger),
		Applications: repository.NewApplicationRepository(pool, logger),
	}
}

func loadMemory(path string) (*memory.DB, error) {
	if path == "" {
		return memory.New(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	return memory.LoadFixture(f)
}

// newLocker: Redis, если настроен, иначе блокировка внутри процесса
func newLocker(ctx context.Context, cfg *config.Config, e *env) (service.TutorLocker, error) {
	if cfg.RedisAddr == "" {
		return service.NewLocalLocker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	e.closers = append(e.closers, func() {
		if err := client.Close(); err != nil {
			e.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	e.logger.Info("Using redis tutor locks", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.LockTTL))
	return service.NewRedisLocker(client, cfg.LockTTL), nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (service.Notifier, error) {
	var channels notify.Multi

	if cfg.SendGridAPIKey != "" {
		channels = append(channels, notify.NewMailer(cfg.SendGridAPIKey, cfg.AppName, cfg.MailFrom, logger))
	}

	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, logger)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
	}

	if len(channels) == 0 {
		logger.Info("No notification channels configured")
		return nil, nil
	}
	return channels, nil
}
