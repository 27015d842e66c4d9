package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateMedicalRecordRequest struct {
	PatientID   uuid.UUID `json:"patient_id" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Medications []string  `json:"medications" validate:"omitempty,dive,required,max=255"`
}

// UpdateMedicalRecordRequest applies only the fields present in the body.
// A present medications list replaces the whole set.
type UpdateMedicalRecordRequest struct {
	PatientID   *uuid.UUID `json:"patient_id"`
	Description *string    `json:"description" validate:"omitempty,min=1"`
	Medications *[]string  `json:"medications"`
}

type ExternalSearchRequest struct {
	Query string `json:"query"`
}

// Response DTOs

type MedicationResponse struct {
	ID             uuid.UUID              `json:"id"`
	Name           string                 `json:"name"`
	BrandName      *string                `json:"brand_name"`
	GenericName    *string                `json:"generic_name"`
	Manufacturer   *string                `json:"manufacturer"`
	DosageForm     *string                `json:"dosage_form"`
	Route          *string                `json:"route"`
	SubstanceName  *string                `json:"substance_name"`
	PharmClass     *string                `json:"pharm_class"`
	KnownReactions *string                `json:"known_reactions"`
	ExternalData   map[string]interface{} `json:"external_data,omitempty"`
}

type MedicalRecordResponse struct {
	ID              uuid.UUID            `json:"id"`
	PatientID       uuid.UUID            `json:"patient"`
	DoctorID        uuid.UUID            `json:"doctor"`
	PatientUsername string               `json:"patient_username,omitempty"`
	DoctorUsername  string               `json:"doctor_username,omitempty"`
	Description     string               `json:"description"`
	Medications     []MedicationResponse `json:"medications"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type MedicalRecordListResponse struct {
	Records []MedicalRecordResponse `json:"records"`
	Total   int                     `json:"total"`
}

type ExternalSearchResponse struct {
	Source string      `json:"source"`
	Data   interface{} `json:"data"`
}
