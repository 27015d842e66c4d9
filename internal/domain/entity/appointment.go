package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is derived from the confirmed and canceled flags and is
// never stored.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "Pending"
	AppointmentStatusConfirmed AppointmentStatus = "Confirmed"
	AppointmentStatusCanceled  AppointmentStatus = "Canceled"
)

// Appointment is a visit booked between a patient and a doctor.
// IsConfirmed and IsCanceled are never both true.
type Appointment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	IsConfirmed bool      `gorm:"not null;default:false" json:"is_confirmed"`
	IsCanceled  bool      `gorm:"not null;default:false" json:"is_canceled"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// Status derives the lifecycle state. Canceled wins over confirmed so a
// corrupted row still reads as terminal.
func (a *Appointment) Status() AppointmentStatus {
	switch {
	case a.IsCanceled:
		return AppointmentStatusCanceled
	case a.IsConfirmed:
		return AppointmentStatusConfirmed
	default:
		return AppointmentStatusPending
	}
}

func (a *Appointment) IsPending() bool {
	return a.Status() == AppointmentStatusPending
}

// IsParticipant reports whether userID is the patient or the doctor
func (a *Appointment) IsParticipant(userID uuid.UUID) bool {
	return a.PatientID == userID || a.DoctorID == userID
}
