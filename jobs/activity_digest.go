package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/registra-gov/registra/internal/activity"
	jobmetrics "github.com/registra-gov/registra/internal/jobs"
)

const (
	// TaskActivityDigest summarises the previous day's audit activity.
	TaskActivityDigest = "activity:digest"
)

// ActivityDigestPayload carries scheduling metadata.
type ActivityDigestPayload struct {
	Day time.Time `json:"day"`
}

// NewActivityDigestTask constructs an Asynq task for the daily digest.
// A zero day means "yesterday relative to the handler's clock".
func NewActivityDigestTask(day time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ActivityDigestPayload{Day: day})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityDigest, body, asynq.Queue(QueueDefault)), nil
}

// ActivityDigestJob aggregates one day of audit trail volume per module
// and logs the summary.
type ActivityDigestJob struct {
	Repo    activity.Repository
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewActivityDigestJob initialises the digest handler.
func NewActivityDigestJob(repo activity.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) *ActivityDigestJob {
	return &ActivityDigestJob{
		Repo:    repo,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the digest.
func (j *ActivityDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("activity digest: handler not configured")
	}
	var payload ActivityDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskActivityDigest)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	day := payload.Day
	if day.IsZero() {
		day = j.clock().AddDate(0, 0, -1)
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	counts, err := j.Repo.CountByModule(ctx, from, to)
	if err != nil {
		resultErr = err
		return resultErr
	}

	logger := j.logger().With(slog.String("day", from.Format("2006-01-02")))
	var total int64
	for _, mc := range counts {
		total += mc.Count
		logger.Info("activity digest", slog.String("module", mc.Module), slog.Int64("count", mc.Count))
	}
	logger.Info("completed activity digest", slog.Int("modules", len(counts)), slog.Int64("total", total))
	return nil
}

func (j *ActivityDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
