package infrastructure

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/draftea/flight-booking/booking-service/application"
)

// RecoveryJob is a single recovery pass
type RecoveryJob interface {
	Execute(ctx context.Context) (*application.RecoveryReport, error)
}

// RecoveryScheduler runs the recovery job on a cron schedule. Runs never overlap.
type RecoveryScheduler struct {
	mux      sync.Mutex
	cron     *cron.Cron
	schedule cron.Schedule
	job      RecoveryJob
	logger   zerolog.Logger
	started  bool
}

// NewRecoveryScheduler accepts standard five-field expressions and descriptors such as "@every 1m"
func NewRecoveryScheduler(job RecoveryJob, expression string, log zerolog.Logger) (*RecoveryScheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expression)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid recovery schedule %q", expression)
	}

	cronLogger := zerologCronLogger{logger: log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &RecoveryScheduler{
		cron:     c,
		schedule: schedule,
		job:      job,
		logger:   log,
	}, nil
}

// Start schedules the job. Scheduled runs stop picking up work once ctx is done.
func (s *RecoveryScheduler) Start(ctx context.Context) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.started {
		return
	}
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.RunOnce(ctx)
	}))
	s.cron.Start()
	s.started = true
}

// Stop prevents new runs and returns a context that is done when the running one finishes
func (s *RecoveryScheduler) Stop() context.Context {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.started = false
	return s.cron.Stop()
}

func (s *RecoveryScheduler) RunOnce(ctx context.Context) {
	report, err := s.job.Execute(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("saga recovery run failed")
		return
	}
	if report.Found > 0 {
		s.logger.Info().Int("found", report.Found).Int("errors", report.Errors).Msg("saga recovery run done")
	}
}

// zerologCronLogger routes cron's own logging through zerolog
type zerologCronLogger struct {
	logger zerolog.Logger
}

func (l zerologCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l zerologCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
