package usecase

import (
	"context"
	"strings"

	"github.com/gabfadel/gab-health/internal/converter"
	"github.com/gabfadel/gab-health/internal/delivery/dto"
	"github.com/gabfadel/gab-health/internal/domain/entity"
	"github.com/gabfadel/gab-health/internal/domain/repository"
	"github.com/gabfadel/gab-health/internal/service"
	"github.com/gabfadel/gab-health/pkg/apperror"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrMedicalRecordNotFound  = apperror.NotFound("Medical record not found.")
	ErrRecordCreateForbidden  = apperror.Forbidden("You do not have permission to create a medical record.")
	ErrRecordUpdateForbidden  = apperror.Forbidden("You do not have permission to update a medical record.")
	ErrRecordUpdateNotAuthor  = apperror.Forbidden("You do not have permission to update this medical record.")
	ErrRecordDeleteForbidden  = apperror.Forbidden("You do not have permission to delete a medical record.")
	ErrRecordDeleteNotAuthor  = apperror.Forbidden("You do not have permission to delete this medical record.")
	ErrRecordPatientRequired  = apperror.Validation("patient_id field is required.")
	ErrRecordPatientNotFound  = apperror.Validation("No user found with this ID")
	ErrMedicationNameRequired = apperror.Validation("medication names must not be empty")
	ErrRecordDescriptionBlank = apperror.Validation("description must not be empty")
	ErrMedicationNameTooLong  = apperror.Validation("medication names must be at most 255 characters")
)

const maxMedicationNameLength = 255

type MedicalRecordUsecase interface {
	ListMedicalRecords(ctx context.Context, patientID *uuid.UUID) (*dto.MedicalRecordListResponse, error)
	CreateMedicalRecord(ctx context.Context, req *dto.CreateMedicalRecordRequest) (*dto.MedicalRecordResponse, error)
	GetMedicalRecord(ctx context.Context, id uuid.UUID) (*dto.MedicalRecordResponse, error)
	UpdateMedicalRecord(ctx context.Context, id uuid.UUID, req *dto.UpdateMedicalRecordRequest) (*dto.MedicalRecordResponse, error)
	DeleteMedicalRecord(ctx context.Context, id uuid.UUID) error
	SearchExternal(ctx context.Context, query string) (*service.FetchResult, error)
}

type medicalRecordUsecase struct {
	log          *logrus.Logger
	recordRepo   repository.MedicalRecordRepository
	userRepo     repository.UserRepository
	enricher     service.MedicationEnricher
	fetcher      service.MedicationFetcher
	auditService service.AuditService
}

func NewMedicalRecordUsecase(
	log *logrus.Logger,
	recordRepo repository.MedicalRecordRepository,
	userRepo repository.UserRepository,
	enricher service.MedicationEnricher,
	fetcher service.MedicationFetcher,
	auditService service.AuditService,
) MedicalRecordUsecase {
	return &medicalRecordUsecase{
		log:          log,
		recordRepo:   recordRepo,
		userRepo:     userRepo,
		enricher:     enricher,
		fetcher:      fetcher,
		auditService: auditService,
	}
}

// ListMedicalRecords lets doctors list every record, optionally for one
// patient. Anyone else only sees their own records and the filter is ignored.
func (u *medicalRecordUsecase) ListMedicalRecords(ctx context.Context, patientID *uuid.UUID) (*dto.MedicalRecordListResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	filter := entity.MedicalRecordFilter{PatientID: patientID}
	if !caller.IsDoctor() {
		own := caller.UserID
		filter.PatientID = &own
	}

	records, err := u.recordRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to find medical records: %+v", err)
		return nil, err
	}

	return &dto.MedicalRecordListResponse{
		Records: converter.MedicalRecordsToResponses(records),
		Total:   len(records),
	}, nil
}

func (u *medicalRecordUsecase) CreateMedicalRecord(ctx context.Context, req *dto.CreateMedicalRecordRequest) (*dto.MedicalRecordResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsDoctor() {
		return nil, ErrRecordCreateForbidden
	}

	if req.PatientID == uuid.Nil {
		return nil, ErrRecordPatientRequired
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrRecordDescriptionBlank
	}
	if err := u.ensurePatient(ctx, req.PatientID); err != nil {
		return nil, err
	}

	medications, err := u.resolveMedications(ctx, req.Medications)
	if err != nil {
		return nil, err
	}

	record := &entity.MedicalRecord{
		PatientID:   req.PatientID,
		DoctorID:    caller.UserID,
		Description: req.Description,
		Medications: medications,
	}

	if err := u.recordRepo.Create(ctx, record); err != nil {
		u.log.Warnf("Failed to create medical record: %+v", err)
		return nil, err
	}

	u.auditService.LogCreate(ctx, &caller.UserID, entity.AuditActionMedicalRecordCreate, "medical_record", record.ID.String(), recordAuditValue(record))

	return u.detail(ctx, record), nil
}

// GetMedicalRecord returns a record to doctors and to the record's patient
func (u *medicalRecordUsecase) GetMedicalRecord(ctx context.Context, id uuid.UUID) (*dto.MedicalRecordResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	record, err := u.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsDoctor() && record.PatientID != caller.UserID {
		return nil, ErrMedicalRecordNotFound
	}

	return converter.MedicalRecordToResponse(record), nil
}

// UpdateMedicalRecord applies the present fields. Only the authoring doctor
// may update; a present medications list replaces the set.
func (u *medicalRecordUsecase) UpdateMedicalRecord(ctx context.Context, id uuid.UUID, req *dto.UpdateMedicalRecordRequest) (*dto.MedicalRecordResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsDoctor() {
		return nil, ErrRecordUpdateForbidden
	}

	record, err := u.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.DoctorID != caller.UserID {
		return nil, ErrRecordUpdateNotAuthor
	}

	oldValue := recordAuditValue(record)

	if req.PatientID != nil {
		if err := u.ensurePatient(ctx, *req.PatientID); err != nil {
			return nil, err
		}
		record.PatientID = *req.PatientID
		record.Patient = nil
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, ErrRecordDescriptionBlank
		}
		record.Description = *req.Description
	}

	var medications *[]entity.Medication
	if req.Medications != nil {
		resolved, err := u.resolveMedications(ctx, *req.Medications)
		if err != nil {
			return nil, err
		}
		medications = &resolved
	}

	if err := u.recordRepo.Update(ctx, record, medications); err != nil {
		u.log.Warnf("Failed to update medical record %s: %+v", id, err)
		return nil, err
	}
	if medications != nil {
		record.Medications = *medications
	}

	u.auditService.LogUpdate(ctx, &caller.UserID, entity.AuditActionMedicalRecordUpdate, "medical_record", id.String(), oldValue, recordAuditValue(record))

	return u.detail(ctx, record), nil
}

func (u *medicalRecordUsecase) DeleteMedicalRecord(ctx context.Context, id uuid.UUID) error {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return err
	}
	if !caller.IsDoctor() {
		return ErrRecordDeleteForbidden
	}

	record, err := u.findRecord(ctx, id)
	if err != nil {
		return err
	}
	if record.DoctorID != caller.UserID {
		return ErrRecordDeleteNotAuthor
	}

	if err := u.recordRepo.Delete(ctx, id); err != nil {
		u.log.Warnf("Failed to delete medical record %s: %+v", id, err)
		return err
	}

	u.auditService.LogDelete(ctx, &caller.UserID, entity.AuditActionMedicalRecordDelete, "medical_record", id.String(), recordAuditValue(record))

	return nil
}

// SearchExternal runs an ad-hoc drug API lookup through the cache
func (u *medicalRecordUsecase) SearchExternal(ctx context.Context, query string) (*service.FetchResult, error) {
	if _, err := callerFromContext(ctx); err != nil {
		return nil, err
	}
	return u.fetcher.Fetch(ctx, query)
}

func (u *medicalRecordUsecase) ensurePatient(ctx context.Context, patientID uuid.UUID) error {
	patient, err := u.userRepo.FindByID(ctx, patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", patientID, err)
		return err
	}
	if patient == nil {
		return ErrRecordPatientNotFound
	}
	return nil
}

func (u *medicalRecordUsecase) resolveMedications(ctx context.Context, names []string) ([]entity.Medication, error) {
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, ErrMedicationNameRequired
		}
		if len(name) > maxMedicationNameLength {
			return nil, ErrMedicationNameTooLong
		}
	}
	if len(names) == 0 {
		return []entity.Medication{}, nil
	}
	return u.enricher.Resolve(ctx, names)
}

func (u *medicalRecordUsecase) findRecord(ctx context.Context, id uuid.UUID) (*entity.MedicalRecord, error) {
	record, err := u.recordRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find medical record %s: %+v", id, err)
		return nil, err
	}
	if record == nil {
		return nil, ErrMedicalRecordNotFound
	}
	return record, nil
}

func (u *medicalRecordUsecase) detail(ctx context.Context, record *entity.MedicalRecord) *dto.MedicalRecordResponse {
	full, err := u.recordRepo.FindByID(ctx, record.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload medical record %s: %+v", record.ID, err)
		return converter.MedicalRecordToResponse(record)
	}
	return converter.MedicalRecordToResponse(full)
}

func recordAuditValue(record *entity.MedicalRecord) map[string]interface{} {
	names := make([]string, len(record.Medications))
	for i, m := range record.Medications {
		names[i] = m.Name
	}
	return map[string]interface{}{
		"patient_id":  record.PatientID.String(),
		"description": record.Description,
		"medications": names,
	}
}
