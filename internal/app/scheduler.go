package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_matching/internal/service"
	"go.uber.org/zap"
)

// Repairer - проход сверки, который планировщик запускает по таймеру
type Repairer interface {
	Repair(ctx context.Context) (*service.RepairResult, error)
}

// Scheduler периодически запускает сверку данных
type Scheduler struct {
	repairer Repairer
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(repairer Repairer, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		repairer: repairer,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновую задачу
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	go s.runRepairTask(ctx)
}

// Stop останавливает фоновую задачу и ждёт завершения текущего прохода
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
	<-s.done
}

// Done закрывается, когда задача завершилась
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// runRepairTask периодически запускает сверку
func (s *Scheduler) runRepairTask(ctx context.Context) {
	defer close(s.done)

	// Первый запуск сразу при старте
	s.repair(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.repair(ctx)
		case <-s.stopChan:
			s.logger.Info("Repair task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Repair task cancelled")
			return
		}
	}
}

func (s *Scheduler) repair(ctx context.Context) {
	s.logger.Info("Starting scheduled repair")

	result, err := s.repairer.Repair(ctx)
	if err != nil {
		s.logger.Error("Failed to run repair", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled repair completed",
		zap.Int("fixed", result.FixedCount),
		zap.Int("enrolled", result.EnrolledCount),
		zap.Int("rosters", result.RosterFixedCount),
		zap.Int("dangling", result.DanglingCount))
}
