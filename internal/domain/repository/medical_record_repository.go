package repository

import (
	"context"

	"github.com/gabfadel/gab-health/internal/domain/entity"

	"github.com/google/uuid"
)

type MedicalRecordRepository interface {
	Create(ctx context.Context, record *entity.MedicalRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.MedicalRecord, error)
	FindAll(ctx context.Context, filter entity.MedicalRecordFilter) ([]entity.MedicalRecord, error)
	// Update writes the patient and description. A non-nil medications
	// replaces the linked set in the same transaction.
	Update(ctx context.Context, record *entity.MedicalRecord, medications *[]entity.Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
}
