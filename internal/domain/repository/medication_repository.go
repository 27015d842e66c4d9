package repository

import (
	"context"

	"github.com/gabfadel/gab-health/internal/domain/entity"
)

type MedicationRepository interface {
	FindByName(ctx context.Context, name string) (*entity.Medication, error)
	// CreateIfAbsent inserts medication unless an entry with the same name
	// exists. It reports whether this call created the row; medication is
	// populated with the stored row either way.
	CreateIfAbsent(ctx context.Context, medication *entity.Medication) (bool, error)
	Update(ctx context.Context, medication *entity.Medication) error
}
