package worker

import (
	"context"
	"time"

	"github.com/gabfadel/gab-health/internal/domain/entity"
	"github.com/gabfadel/gab-health/internal/domain/repository"
	"github.com/gabfadel/gab-health/internal/service"
	"github.com/gabfadel/gab-health/pkg/metrics"

	"github.com/sirupsen/logrus"
)

// AppointmentSweeper cancels pending appointments whose date has passed.
// Each run is a single conditional update, so a sweep never overrides a
// confirmation or cancellation that landed first.
type AppointmentSweeper struct {
	log      *logrus.Logger
	repo     repository.AppointmentRepository
	audit    service.AuditService
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
}

// DefaultSweepInterval is used when the configured interval is not positive
const DefaultSweepInterval = 5 * time.Minute

func NewAppointmentSweeper(log *logrus.Logger, repo repository.AppointmentRepository, audit service.AuditService, m *metrics.Metrics, interval time.Duration) *AppointmentSweeper {
	if interval <= 0 {
		log.Warnf("Invalid sweeper interval %s, using %s", interval, DefaultSweepInterval)
		interval = DefaultSweepInterval
	}
	return &AppointmentSweeper{
		log:      log,
		repo:     repo,
		audit:    audit,
		metrics:  m,
		interval: interval,
		now:      time.Now,
	}
}

// Start sweeps once immediately and then on every tick until ctx is done
func (w *AppointmentSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval).Info("Appointment sweeper started")
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Appointment sweeper stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce cancels every overdue pending appointment and returns how many
// rows changed
func (w *AppointmentSweeper) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().UTC()

	rows, err := w.repo.CancelExpired(ctx, cutoff)
	if err != nil {
		w.metrics.SweeperRuns.WithLabelValues("error").Inc()
		w.log.WithField("cutoff", cutoff).Warnf("Failed to cancel expired appointments: %+v", err)
		return 0, err
	}

	w.metrics.SweeperRuns.WithLabelValues("success").Inc()
	w.metrics.AppointmentsExpired.Add(float64(rows))
	if rows > 0 {
		w.log.WithFields(logrus.Fields{
			"cutoff":   cutoff,
			"canceled": rows,
		}).Info("Canceled expired appointments")
		w.audit.LogUpdate(ctx, nil, entity.AuditActionAppointmentExpire, "appointment", "", nil, map[string]interface{}{
			"cutoff":   cutoff,
			"canceled": rows,
		})
	}

	return rows, nil
}
