package repository

import (
	"context"
	"errors"

	"github.com/gabfadel/gab-health/internal/domain/entity"
	domainRepo "github.com/gabfadel/gab-health/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type medicationRepository struct {
	db *gorm.DB
}

func NewMedicationRepository(db *gorm.DB) domainRepo.MedicationRepository {
	return &medicationRepository{db: db}
}

func (r *medicationRepository) FindByName(ctx context.Context, name string) (*entity.Medication, error) {
	var medication entity.Medication
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&medication).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &medication, nil
}

// CreateIfAbsent relies on the unique index on name. When two callers race,
// only one INSERT takes effect and the other reads back the winner's row.
func (r *medicationRepository) CreateIfAbsent(ctx context.Context, medication *entity.Medication) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(medication)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	existing, err := r.FindByName(ctx, medication.Name)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, gorm.ErrRecordNotFound
	}
	*medication = *existing
	return false, nil
}

func (r *medicationRepository) Update(ctx context.Context, medication *entity.Medication) error {
	return r.db.WithContext(ctx).Save(medication).Error
}
