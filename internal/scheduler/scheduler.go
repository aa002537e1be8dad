package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/service/reporting"
)

// Reporter is the part of the reporting service the end-of-day job uses.
type Reporter interface {
	DailyDigest(ctx context.Context, day time.Time) (string, error)
	ExportAll(ctx context.Context) (int, error)
}

// Messenger delivers the digest. It is nil when WhatsApp is not configured.
type Messenger interface {
	SendText(ctx context.Context, to, body string) ([]string, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	reporter  Reporter
	messenger Messenger
	recipient string
	now       func() time.Time
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance running spec (standard
// five-field cron) in location.
func NewScheduler(spec string, location *time.Location, reporter Reporter, messenger Messenger, recipient string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(location)),
		spec:      spec,
		reporter:  reporter,
		messenger: messenger,
		recipient: recipient,
		now:       time.Now,
		logger:    logger,
	}
}

// Start registers the end-of-day job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.runEndOfDay); err != nil {
		return fmt.Errorf("schedule end-of-day job %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runEndOfDay() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.EndOfDay(ctx); err != nil {
		s.logger.Error("end-of-day job failed", zap.Error(err))
	}
}

// EndOfDay exports closed sales, builds today's digest and sends it to the
// manager. Export failures do not prevent the digest from going out.
func (s *Scheduler) EndOfDay(ctx context.Context) error {
	s.logger.Info("running end-of-day job")

	rows, err := s.reporter.ExportAll(ctx)
	switch {
	case errors.Is(err, reporting.ErrExportDisabled):
	case err != nil:
		s.logger.Error("sales export failed", zap.Error(err))
	default:
		s.logger.Info("sales exported", zap.Int("rows", rows))
	}

	digest, err := s.reporter.DailyDigest(ctx, s.now())
	if err != nil {
		return fmt.Errorf("build daily digest: %w", err)
	}

	if s.messenger == nil {
		s.logger.Info("daily digest", zap.String("digest", digest))
		return nil
	}

	ids, err := s.messenger.SendText(ctx, s.recipient, digest)
	if err != nil {
		return fmt.Errorf("send daily digest: %w", err)
	}
	s.logger.Info("daily digest sent", zap.Strings("message_ids", ids))
	return nil
}
