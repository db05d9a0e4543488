// Package worker runs the background air-quality refresh for the dashboard.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/format"
	"github.com/breatheroute/aqdash/internal/page"
)

// Refresher reloads the air-quality snapshot from its provider.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Notifier shows a banner on the dashboard.
type Notifier interface {
	Show(message string, kind page.Kind)
}

// View re-renders the page parts that show refreshed data.
type View interface {
	Update(ctx context.Context) error
}

// Messages are the banners shown when refresh health changes.
type Messages struct {
	Failed    string
	Recovered string
}

// MessagesFor returns the banners for locale.
func MessagesFor(locale format.Locale) Messages {
	if locale == format.LocaleEnUS {
		return Messages{
			Failed:    "Air quality data could not be refreshed",
			Recovered: "Air quality data is up to date again",
		}
	}
	return Messages{
		Failed:    "空气质量数据刷新失败",
		Recovered: "空气质量数据已恢复",
	}
}

// RefreshJobConfig configures a RefreshJob.
type RefreshJobConfig struct {
	Refresher Refresher
	Notifier  Notifier
	Logger    zerolog.Logger
	Messages  Messages

	// View is updated after every run, also failed ones, so ages shown on
	// the page keep moving. Optional.
	View View

	// Timeout bounds one refresh. Default 30s.
	Timeout time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// RefreshStats summarizes the job's history.
type RefreshStats struct {
	Runs                int64         `json:"runs"`
	Failures            int64         `json:"failures"`
	ConsecutiveFailures int64         `json:"consecutiveFailures"`
	LastRunAt           time.Time     `json:"lastRunAt"`
	LastSuccessAt       time.Time     `json:"lastSuccessAt"`
	LastDuration        time.Duration `json:"lastDuration"`
	LastError           string        `json:"lastError,omitempty"`
}

// RefreshJob refreshes the snapshot and tells the page when refreshing
// starts failing and when it recovers. Repeated failures notify once.
type RefreshJob struct {
	refresher Refresher
	notifier  Notifier
	view      View
	logger    zerolog.Logger
	messages  Messages
	timeout   time.Duration
	now       func() time.Time

	mu    sync.Mutex
	stats RefreshStats
}

// NewRefreshJob creates a RefreshJob.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	messages := cfg.Messages
	if messages == (Messages{}) {
		messages = MessagesFor(format.DefaultLocale)
	}
	return &RefreshJob{
		refresher: cfg.Refresher,
		notifier:  cfg.Notifier,
		view:      cfg.View,
		logger:    cfg.Logger,
		messages:  messages,
		timeout:   timeout,
		now:       now,
	}
}

// Run performs one refresh.
func (j *RefreshJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := j.now()
	err := j.refresher.Refresh(ctx)
	elapsed := j.now().Sub(start)

	j.mu.Lock()
	wasFailing := j.stats.ConsecutiveFailures > 0
	j.stats.Runs++
	j.stats.LastRunAt = start
	j.stats.LastDuration = elapsed
	if err != nil {
		j.stats.Failures++
		j.stats.ConsecutiveFailures++
		j.stats.LastError = err.Error()
	} else {
		j.stats.ConsecutiveFailures = 0
		j.stats.LastSuccessAt = start
		j.stats.LastError = ""
	}
	failures := j.stats.ConsecutiveFailures
	j.mu.Unlock()

	if j.view != nil {
		if viewErr := j.view.Update(ctx); viewErr != nil {
			j.logger.Warn().Err(viewErr).Msg("failed to update dashboard view")
		}
	}

	switch {
	case err != nil:
		j.logger.Warn().Err(err).Int64("consecutive_failures", failures).Dur("duration", elapsed).Msg("air quality refresh failed")
		if !wasFailing {
			j.notify(j.messages.Failed, page.KindError)
		}
	case wasFailing:
		j.logger.Info().Dur("duration", elapsed).Msg("air quality refresh recovered")
		j.notify(j.messages.Recovered, page.KindSuccess)
	default:
		j.logger.Debug().Dur("duration", elapsed).Msg("air quality refreshed")
	}
	return err
}

// Stats returns a copy of the job statistics.
func (j *RefreshJob) Stats() RefreshStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

func (j *RefreshJob) notify(message string, kind page.Kind) {
	if j.notifier != nil {
		j.notifier.Show(message, kind)
	}
}
