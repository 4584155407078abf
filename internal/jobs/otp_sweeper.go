// Package jobs runs the periodic maintenance tasks of the server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/metrics"
)

// ExpiredOTPClearer removes codes whose expiry is before now
type ExpiredOTPClearer interface {
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// OTPSweeper clears expired OTP codes so stale codes do not linger on accounts
type OTPSweeper struct {
	accounts ExpiredOTPClearer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	timeout  time.Duration
}

// NewOTPSweeper creates a sweeper
func NewOTPSweeper(accounts ExpiredOTPClearer, logger *zap.Logger, m *metrics.Metrics) *OTPSweeper {
	return &OTPSweeper{
		accounts: accounts,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		timeout:  30 * time.Second,
	}
}

// Run clears expired codes once and returns how many were cleared.
func (s *OTPSweeper) Run(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.accounts.ClearExpiredOTPs(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.RecordOTPsCleared(n)
	if n > 0 {
		s.logger.Info("expired otps cleared", zap.Int64("count", n))
	}
	return n, nil
}

// Scheduler runs registered jobs on cron schedules
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler creates a scheduler. Overlapping runs of the same job are skipped.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		logger: logger,
	}
}

// AddOTPSweeper schedules the sweeper with a cron spec such as "@every 15m"
func (s *Scheduler) AddOTPSweeper(spec string, sweeper *OTPSweeper) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := sweeper.Run(context.Background()); err != nil {
			s.logger.Error("otp sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid otp sweep schedule %q: %w", spec, err)
	}
	return nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs up to ctx's deadline
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}
