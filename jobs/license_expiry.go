package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/registra-gov/registra/internal/jobs"
	"github.com/registra-gov/registra/internal/shared"
)

const (
	// TaskLicenseExpiryScan finds licenses approaching expiry.
	TaskLicenseExpiryScan = "license:expiry_scan"
)

// LicenseExpiryScanPayload carries the scan window.
type LicenseExpiryScanPayload struct {
	WindowDays int `json:"window_days"`
}

// NewLicenseExpiryScanTask constructs an Asynq task for the expiry scan.
func NewLicenseExpiryScanTask(windowDays int) (*asynq.Task, error) {
	body, err := json.Marshal(LicenseExpiryScanPayload{WindowDays: windowDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLicenseExpiryScan, body, asynq.Queue(QueueDefault)), nil
}

type expiringLicense struct {
	Kind      string
	Name      string
	LicenseNo string
	Email     string
	ExpiresAt time.Time
}

// LicenseExpiryScanJob finds company and petition-writer licenses that
// expire inside the window and enqueues notification emails.
type LicenseExpiryScanJob struct {
	Pool    *pgxpool.Pool
	Client  *Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLicenseExpiryScanJob initialises the scan handler.
func NewLicenseExpiryScanJob(pool *pgxpool.Pool, client *Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *LicenseExpiryScanJob {
	return &LicenseExpiryScanJob{
		Pool:    pool,
		Client:  client,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the expiry scan.
func (j *LicenseExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("license expiry scan: handler not configured")
	}
	var payload LicenseExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 30
	}

	tracker := j.Metrics.Track(TaskLicenseExpiryScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := j.clock()
	until := now.AddDate(0, 0, payload.WindowDays)
	logger := j.logger().With(slog.Int("window_days", payload.WindowDays))
	logger.Info("starting license expiry scan")

	companies, err := j.expiringCompanies(ctx, now, until)
	if err != nil {
		resultErr = fmt.Errorf("scan companies: %w", err)
		return resultErr
	}
	writers, err := j.expiringPetitionWriters(ctx, now, until)
	if err != nil {
		resultErr = fmt.Errorf("scan petition writers: %w", err)
		return resultErr
	}

	j.Metrics.SetExpiring("company", len(companies))
	j.Metrics.SetExpiring("petition", len(writers))

	notified := 0
	for _, lic := range append(companies, writers...) {
		if lic.Email == "" {
			continue
		}
		mail := SendEmailPayload{
			To:      lic.Email,
			Subject: fmt.Sprintf("License %s expires on %s", lic.LicenseNo, lic.ExpiresAt.Format("2006-01-02")),
			Body:    fmt.Sprintf("The license %s held by %s expires on %s. Please renew before the expiry date.", lic.LicenseNo, shared.TitleCase(lic.Name), lic.ExpiresAt.Format("2006-01-02")),
		}
		if j.Client != nil {
			if _, err := j.Client.EnqueueSendEmail(ctx, mail); err != nil {
				logger.Warn("enqueue expiry notification", slog.String("license_no", lic.LicenseNo), slog.Any("error", err))
				continue
			}
		}
		notified++
	}

	logger.Info("completed license expiry scan",
		slog.Int("companies", len(companies)),
		slog.Int("petition_writers", len(writers)),
		slog.Int("notified", notified),
	)
	return nil
}

func (j *LicenseExpiryScanJob) expiringCompanies(ctx context.Context, from, until time.Time) ([]expiringLicense, error) {
	rows, err := j.Pool.Query(ctx, `
		SELECT c.name, c.license_no, c.license_expiry, COALESCE(u.email, '')
		FROM companies c
		LEFT JOIN users u ON u.id = c.created_by
		WHERE c.is_active AND c.license_expiry >= $1 AND c.license_expiry < $2
		ORDER BY c.license_expiry`, from, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []expiringLicense
	for rows.Next() {
		lic := expiringLicense{Kind: "company"}
		if err := rows.Scan(&lic.Name, &lic.LicenseNo, &lic.ExpiresAt, &lic.Email); err != nil {
			return nil, err
		}
		out = append(out, lic)
	}
	return out, rows.Err()
}

func (j *LicenseExpiryScanJob) expiringPetitionWriters(ctx context.Context, from, until time.Time) ([]expiringLicense, error) {
	rows, err := j.Pool.Query(ctx, `
		SELECT p.holder_name, p.license_no, p.license_expiry, COALESCE(u.email, '')
		FROM petition_licenses p
		LEFT JOIN users u ON u.id = p.created_by
		WHERE p.is_active AND p.license_expiry >= $1 AND p.license_expiry < $2
		ORDER BY p.license_expiry`, from, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []expiringLicense
	for rows.Next() {
		lic := expiringLicense{Kind: "petition"}
		if err := rows.Scan(&lic.Name, &lic.LicenseNo, &lic.ExpiresAt, &lic.Email); err != nil {
			return nil, err
		}
		out = append(out, lic)
	}
	return out, rows.Err()
}

func (j *LicenseExpiryScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
