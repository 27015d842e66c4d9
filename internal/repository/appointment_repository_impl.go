package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gabfadel/gab-health/internal/domain/entity"
	domainRepo "github.com/gabfadel/gab-health/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) domainRepo.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *entity.Appointment) error {
	return r.db.WithContext(ctx).Omit("Patient", "Doctor").Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Where("id = ?", id).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByDoctorID(ctx context.Context, doctorID uuid.UUID) ([]entity.Appointment, error) {
	return r.findBy(ctx, "doctor_id = ?", doctorID)
}

func (r *appointmentRepository) FindByPatientID(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	return r.findBy(ctx, "patient_id = ?", patientID)
}

func (r *appointmentRepository) findBy(ctx context.Context, query string, args ...interface{}) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Where(query, args...).
		Order("date ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// Confirm marks a pending appointment confirmed.
// Returns affected rows: 1 = success, 0 = the row was not pending anymore.
func (r *appointmentRepository) Confirm(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.transition(ctx, id, "is_confirmed")
}

// Cancel marks a pending appointment canceled, same contract as Confirm.
func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.transition(ctx, id, "is_canceled")
}

func (r *appointmentRepository) transition(ctx context.Context, id uuid.UUID, column string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND is_confirmed = ? AND is_canceled = ?", id, false, false).
		Update(column, true)
	return result.RowsAffected, result.Error
}

// CancelExpired cancels every pending appointment scheduled before now in a
// single statement. Confirmed rows are never touched.
func (r *appointmentRepository) CancelExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("date < ? AND is_confirmed = ? AND is_canceled = ?", now, false, false).
		Update("is_canceled", true)
	return result.RowsAffected, result.Error
}
