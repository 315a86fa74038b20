package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/precifica/internal/jobs"
	"github.com/odyssey-erp/precifica/internal/markup"
	"github.com/odyssey-erp/precifica/internal/shared"
)

// Refresh outcomes reported per profile.
const (
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// ProfileRefresher is the part of the markup service the refresh job drives.
type ProfileRefresher interface {
	ListOpenHistorical(ctx context.Context, period shared.Period) ([]markup.Profile, error)
	RefreshHistorical(ctx context.Context, profile markup.Profile) (bool, error)
}

// CacheBumper invalidates cached historical ratios.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// RefreshSummary counts profiles by outcome.
type RefreshSummary struct {
	Period    shared.Period `json:"period"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
}

// HistoryRefreshJob bumps the ratio cache and re-resolves every OPEN AUTO_HISTORICAL
// profile of a month. One failing profile does not stop the others.
type HistoryRefreshJob struct {
	Service ProfileRefresher
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewHistoryRefreshJob constructs the job handler. cache and metrics may be nil.
func NewHistoryRefreshJob(service ProfileRefresher, cache CacheBumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *HistoryRefreshJob {
	return &HistoryRefreshJob{
		Service: service,
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the refresh for an asynq task.
func (j *HistoryRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("history refresh: dependencies not configured")
	}
	var payload HistoryRefreshPayload
	if body := task.Payload(); len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	period, ok, err := payload.Period()
	if err != nil {
		j.log().Error("invalid refresh payload", slog.Any("error", err))
		return asynq.SkipRetry
	}
	if !ok {
		period = shared.PeriodOf(j.now())
	}
	_, err = j.Run(ctx, period)
	return err
}

// Run refreshes the profiles of period.
func (j *HistoryRefreshJob) Run(ctx context.Context, period shared.Period) (RefreshSummary, error) {
	tracker := j.Metrics.Track(TaskHistoryRefresh)
	var resultErr error
	defer func() {
		_ = tracker.End(resultErr)
	}()

	summary := RefreshSummary{Period: period}
	logger := j.log().With(slog.String("period", period.Key()))
	start := j.now()

	if j.Cache != nil {
		if err := j.Cache.Bump(ctx); err != nil {
			resultErr = err
			logger.Error("bump history cache", slog.Any("error", err))
			return summary, resultErr
		}
	}

	profiles, err := j.Service.ListOpenHistorical(ctx, period)
	if err != nil {
		resultErr = err
		logger.Error("list historical profiles", slog.Any("error", err))
		return summary, resultErr
	}

	for _, profile := range profiles {
		changed, err := j.Service.RefreshHistorical(ctx, profile)
		switch {
		case err == nil && changed:
			summary.Updated++
		case err == nil:
			summary.Unchanged++
		case errors.Is(err, shared.ErrNoReferenceData), errors.Is(err, shared.ErrPeriodClosed):
			summary.Skipped++
			logger.Warn("historical profile skipped",
				slog.Int64("profile_id", profile.ID),
				slog.Int64("company_id", profile.CompanyID),
				slog.Any("error", err),
			)
		default:
			summary.Failed++
			logger.Error("historical profile refresh failed",
				slog.Int64("profile_id", profile.ID),
				slog.Int64("company_id", profile.CompanyID),
				slog.Any("error", err),
			)
		}
	}

	j.Metrics.AddRefreshed(OutcomeUpdated, summary.Updated)
	j.Metrics.AddRefreshed(OutcomeUnchanged, summary.Unchanged)
	j.Metrics.AddRefreshed(OutcomeSkipped, summary.Skipped)
	j.Metrics.AddRefreshed(OutcomeFailed, summary.Failed)

	logger.Info("refreshed historical markup profiles",
		slog.Int("profiles", len(profiles)),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return summary, nil
}

func (j *HistoryRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskHistoryRefresh))
	}
	return slog.Default().With(slog.String("job", TaskHistoryRefresh))
}

func (j *HistoryRefreshJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *HistoryRefreshJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
