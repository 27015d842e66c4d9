package entity

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord is a note written by a doctor about a patient, with the
// medications prescribed or discussed.
type MedicalRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patient     *User        `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor      *User        `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Medications []Medication `gorm:"many2many:medical_record_medications;" json:"medications"`
}

func (MedicalRecord) TableName() string {
	return "medical_records"
}

// MedicalRecordFilter narrows a record listing. A nil PatientID lists all.
type MedicalRecordFilter struct {
	PatientID *uuid.UUID
}
