package repository

import (
	"context"
	"time"

	"github.com/gabfadel/gab-health/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentRepository persists appointments. The transition methods are
// conditional updates that only touch pending rows and report how many rows
// changed, so concurrent callers never both win.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entity.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	FindByDoctorID(ctx context.Context, doctorID uuid.UUID) ([]entity.Appointment, error)
	FindByPatientID(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (int64, error)
	Cancel(ctx context.Context, id uuid.UUID) (int64, error)
	CancelExpired(ctx context.Context, now time.Time) (int64, error)
}
