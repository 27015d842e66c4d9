package service

import (
	"context"
	"fmt"

	"github.com/gabfadel/gab-health/internal/domain/entity"
	"github.com/gabfadel/gab-health/internal/domain/repository"
	"github.com/gabfadel/gab-health/pkg/metrics"

	"github.com/sirupsen/logrus"
)

// MedicationEnricher turns medication names into catalog entries. New entries
// are enriched once from the drug API; a failed lookup leaves them bare.
type MedicationEnricher interface {
	Resolve(ctx context.Context, names []string) ([]entity.Medication, error)
}

type medicationEnricher struct {
	log            *logrus.Logger
	medicationRepo repository.MedicationRepository
	fetcher        MedicationFetcher
	metrics        *metrics.Metrics
}

func NewMedicationEnricher(
	log *logrus.Logger,
	medicationRepo repository.MedicationRepository,
	fetcher MedicationFetcher,
	m *metrics.Metrics,
) MedicationEnricher {
	return &medicationEnricher{
		log:            log,
		medicationRepo: medicationRepo,
		fetcher:        fetcher,
		metrics:        m,
	}
}

// Resolve returns one entry per distinct name, in first-seen order
func (e *medicationEnricher) Resolve(ctx context.Context, names []string) ([]entity.Medication, error) {
	seen := make(map[string]struct{}, len(names))
	medications := make([]entity.Medication, 0, len(names))

	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		medication, err := e.getOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		medications = append(medications, *medication)
	}

	return medications, nil
}

func (e *medicationEnricher) getOrCreate(ctx context.Context, name string) (*entity.Medication, error) {
	existing, err := e.medicationRepo.FindByName(ctx, name)
	if err != nil {
		e.log.Warnf("Failed to find medication %q: %+v", name, err)
		return nil, fmt.Errorf("find medication %q: %w", name, err)
	}
	if existing != nil {
		return existing, nil
	}

	medication := &entity.Medication{Name: name}
	created, err := e.medicationRepo.CreateIfAbsent(ctx, medication)
	if err != nil {
		e.log.Warnf("Failed to create medication %q: %+v", name, err)
		return nil, fmt.Errorf("create medication %q: %w", name, err)
	}
	if created {
		e.enrich(ctx, medication)
	}

	return medication, nil
}

// enrich is best effort. Errors are logged and the entry keeps null fields.
func (e *medicationEnricher) enrich(ctx context.Context, medication *entity.Medication) {
	result, err := e.fetcher.Fetch(ctx, medication.Name)
	if err != nil {
		e.metrics.MedicationEnrichments.WithLabelValues("failed").Inc()
		e.log.WithField("medication", medication.Name).Warnf("Failed to fetch medication data: %+v", err)
		return
	}
	if result == nil || result.Payload == nil || len(result.Payload.RawData) == 0 {
		e.metrics.MedicationEnrichments.WithLabelValues("empty").Inc()
		return
	}

	applyPayload(medication, result.Payload)

	if err := e.medicationRepo.Update(ctx, medication); err != nil {
		e.metrics.MedicationEnrichments.WithLabelValues("failed").Inc()
		e.log.WithField("medication", medication.Name).Warnf("Failed to save medication data: %+v", err)
		return
	}
	e.metrics.MedicationEnrichments.WithLabelValues("enriched").Inc()
}

func applyPayload(medication *entity.Medication, payload *MedicationPayload) {
	info := payload.ExtractedInfo
	medication.ExternalData = entity.JSON(payload.RawData)
	medication.BrandName = firstValue(info.BrandNames)
	medication.GenericName = firstValue(info.GenericNames)
	medication.Manufacturer = firstValue(info.Manufacturers)
	medication.DosageForm = firstValue(info.DosageForms)
	medication.Route = firstValue(info.Routes)
	medication.SubstanceName = firstValue(info.SubstanceNames)
	medication.PharmClass = firstValue(info.PharmClasses)
	medication.KnownReactions = joinedValues(info.Reactions)
}
