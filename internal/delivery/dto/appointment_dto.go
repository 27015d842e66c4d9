package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateAppointmentRequest names the other party of the appointment. A doctor
// sets Patient, a patient sets Doctor. Date is RFC 3339.
type CreateAppointmentRequest struct {
	Patient *uuid.UUID `json:"patient"`
	Doctor  *uuid.UUID `json:"doctor"`
	Date    string     `json:"date" validate:"required"`
}

// Response DTOs

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient"`
	DoctorID        uuid.UUID `json:"doctor"`
	PatientUsername string    `json:"patient_username,omitempty"`
	DoctorUsername  string    `json:"doctor_username,omitempty"`
	Date            time.Time `json:"date"`
	IsConfirmed     bool      `json:"is_confirmed"`
	IsCanceled      bool      `json:"is_canceled"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
