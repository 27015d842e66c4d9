package converter

import (
	"github.com/gabfadel/gab-health/internal/delivery/dto"
	"github.com/gabfadel/gab-health/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO.
// Usernames are included when the relations are loaded.
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:          appointment.ID,
		PatientID:   appointment.PatientID,
		DoctorID:    appointment.DoctorID,
		Date:        appointment.Date,
		IsConfirmed: appointment.IsConfirmed,
		IsCanceled:  appointment.IsCanceled,
		Status:      string(appointment.Status()),
		CreatedAt:   appointment.CreatedAt,
		UpdatedAt:   appointment.UpdatedAt,
	}

	if appointment.Patient != nil {
		response.PatientUsername = appointment.Patient.Username
	}
	if appointment.Doctor != nil {
		response.DoctorUsername = appointment.Doctor.Username
	}

	return response
}

func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
