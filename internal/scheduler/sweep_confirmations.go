package scheduler

import (
	"github.com/rs/zerolog"
)

// ConfirmationSweeper drops deletion confirmations that have expired
type ConfirmationSweeper interface {
	SweepConfirmations() int
}

// SweepConfirmationsJob expires stale row deletion confirmations
type SweepConfirmationsJob struct {
	log     zerolog.Logger
	sweeper ConfirmationSweeper
}

// NewSweepConfirmationsJob creates a new SweepConfirmationsJob
func NewSweepConfirmationsJob(sweeper ConfirmationSweeper) *SweepConfirmationsJob {
	return &SweepConfirmationsJob{
		log:     zerolog.Nop(),
		sweeper: sweeper,
	}
}

// SetLogger sets the logger for the job
func (j *SweepConfirmationsJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *SweepConfirmationsJob) Name() string {
	return "sweep_confirmations"
}

// Run executes the sweep
func (j *SweepConfirmationsJob) Run() error {
	if j.sweeper == nil {
		j.log.Warn().Msg("No confirmation sweeper configured, skipping")
		return nil
	}

	if dropped := j.sweeper.SweepConfirmations(); dropped > 0 {
		j.log.Info().Int("dropped", dropped).Msg("Expired deletion confirmations dropped")
	}
	return nil
}
