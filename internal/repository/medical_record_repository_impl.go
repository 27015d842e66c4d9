package repository

import (
	"context"
	"errors"

	"github.com/gabfadel/gab-health/internal/domain/entity"
	domainRepo "github.com/gabfadel/gab-health/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type medicalRecordRepository struct {
	db *gorm.DB
}

func NewMedicalRecordRepository(db *gorm.DB) domainRepo.MedicalRecordRepository {
	return &medicalRecordRepository{db: db}
}

// Create stores the record and its medication links. Medications must already
// exist; they are linked, never upserted.
func (r *medicalRecordRepository) Create(ctx context.Context, record *entity.MedicalRecord) error {
	return r.db.WithContext(ctx).
		Omit("Patient", "Doctor", "Medications.*").
		Create(record).Error
}

func (r *medicalRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.MedicalRecord, error) {
	var record entity.MedicalRecord
	err := r.preloaded(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *medicalRecordRepository) FindAll(ctx context.Context, filter entity.MedicalRecordFilter) ([]entity.MedicalRecord, error) {
	var records []entity.MedicalRecord
	query := r.preloaded(ctx)
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *medicalRecordRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Preload("Medications", func(db *gorm.DB) *gorm.DB {
			return db.Order("medications.name ASC")
		})
}

func (r *medicalRecordRepository) Update(ctx context.Context, record *entity.MedicalRecord, medications *[]entity.Medication) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(record).Updates(map[string]interface{}{
			"patient_id":  record.PatientID,
			"description": record.Description,
		}).Error
		if err != nil {
			return err
		}
		if medications == nil {
			return nil
		}

		association := tx.Model(record).Omit("Medications.*").Association("Medications")
		if err := association.Clear(); err != nil {
			return err
		}
		if len(*medications) == 0 {
			return nil
		}
		return association.Append(*medications)
	})
}

func (r *medicalRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := &entity.MedicalRecord{ID: id}
		if err := tx.Model(record).Association("Medications").Clear(); err != nil {
			return err
		}
		return tx.Delete(record).Error
	})
}
