package converter

import (
	"github.com/gabfadel/gab-health/internal/delivery/dto"
	"github.com/gabfadel/gab-health/internal/domain/entity"
)

func MedicationToResponse(medication *entity.Medication) dto.MedicationResponse {
	return dto.MedicationResponse{
		ID:             medication.ID,
		Name:           medication.Name,
		BrandName:      medication.BrandName,
		GenericName:    medication.GenericName,
		Manufacturer:   medication.Manufacturer,
		DosageForm:     medication.DosageForm,
		Route:          medication.Route,
		SubstanceName:  medication.SubstanceName,
		PharmClass:     medication.PharmClass,
		KnownReactions: medication.KnownReactions,
		ExternalData:   medication.ExternalData,
	}
}

// MedicalRecordToResponse converts a MedicalRecord entity to MedicalRecordResponse DTO
func MedicalRecordToResponse(record *entity.MedicalRecord) *dto.MedicalRecordResponse {
	if record == nil {
		return nil
	}

	medications := make([]dto.MedicationResponse, len(record.Medications))
	for i := range record.Medications {
		medications[i] = MedicationToResponse(&record.Medications[i])
	}

	response := &dto.MedicalRecordResponse{
		ID:          record.ID,
		PatientID:   record.PatientID,
		DoctorID:    record.DoctorID,
		Description: record.Description,
		Medications: medications,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}

	if record.Patient != nil {
		response.PatientUsername = record.Patient.Username
	}
	if record.Doctor != nil {
		response.DoctorUsername = record.Doctor.Username
	}

	return response
}

func MedicalRecordsToResponses(records []entity.MedicalRecord) []dto.MedicalRecordResponse {
	responses := make([]dto.MedicalRecordResponse, len(records))
	for i := range records {
		responses[i] = *MedicalRecordToResponse(&records[i])
	}
	return responses
}
