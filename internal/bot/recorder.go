package bot

import (
	"context"
	"time"

	"github.com/alanbriolat/clipbot/internal/stats"
)

// Recorder keeps job statistics. *stats.Store is the real implementation.
type Recorder interface {
	Record(ctx context.Context, job *stats.Job) error
	AverageDuration(ctx context.Context, since time.Time) (time.Duration, error)
	Summary(ctx context.Context, now time.Time) (stats.Summary, error)
}

var _ Recorder = &stats.Store{}

// NilRecorder discards statistics, for when no stats database is configured.
type NilRecorder struct{}

func (NilRecorder) Record(_ context.Context, _ *stats.Job) error {
	return nil
}

func (NilRecorder) AverageDuration(_ context.Context, _ time.Time) (time.Duration, error) {
	return 0, nil
}

func (NilRecorder) Summary(_ context.Context, _ time.Time) (stats.Summary, error) {
	return stats.Summary{}, nil
}
