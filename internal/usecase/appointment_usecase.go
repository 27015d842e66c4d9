package usecase

import (
	"context"
	"time"

	"github.com/gabfadel/gab-health/internal/converter"
	"github.com/gabfadel/gab-health/internal/delivery/dto"
	"github.com/gabfadel/gab-health/internal/domain/entity"
	"github.com/gabfadel/gab-health/internal/domain/repository"
	"github.com/gabfadel/gab-health/internal/service"
	"github.com/gabfadel/gab-health/pkg/apperror"
	"github.com/gabfadel/gab-health/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrAppointmentNotFound = apperror.NotFound("Appointment not found.")
	ErrConfirmForbidden    = apperror.Forbidden("You do not have permission to confirm this appointment.")
	ErrCancelForbidden     = apperror.Forbidden("You do not have permission to cancel this appointment.")
	ErrAlreadyConfirmed    = apperror.InvalidState("This appointment is already confirmed.")
	ErrConfirmCanceled     = apperror.InvalidState("This appointment has been canceled and cannot be confirmed.")
	ErrAlreadyCanceled     = apperror.InvalidState("This appointment is already canceled.")
	ErrCancelConfirmed     = apperror.InvalidState("This appointment has been confirmed and cannot be canceled.")
	ErrPatientRequired     = apperror.Validation("patient is required")
	ErrDoctorRequired      = apperror.Validation("doctor is required")
	ErrPatientNotFound     = apperror.Validation("patient does not exist")
	ErrDoctorNotFound      = apperror.Validation("doctor does not exist")
	ErrInvalidDate         = apperror.Validation("date must be an RFC 3339 timestamp")
	ErrConcurrentChange    = apperror.Conflict("appointment was modified concurrently, retry")
)

type AppointmentUsecase interface {
	ListAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	ConfirmAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	userRepo        repository.UserRepository
	auditService    service.AuditService
	metrics         *metrics.Metrics
}

func NewAppointmentUsecase(
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	userRepo repository.UserRepository,
	auditService service.AuditService,
	m *metrics.Metrics,
) AppointmentUsecase {
	return &appointmentUsecase{
		log:             log,
		appointmentRepo: appointmentRepo,
		userRepo:        userRepo,
		auditService:    auditService,
		metrics:         m,
	}
}

// ListAppointments returns the caller's appointments ordered by date. Doctors
// see the ones assigned to them, patients the ones they own.
func (u *appointmentUsecase) ListAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var appointments []entity.Appointment
	if caller.IsDoctor() {
		appointments, err = u.appointmentRepo.FindByDoctorID(ctx, caller.UserID)
	} else {
		appointments, err = u.appointmentRepo.FindByPatientID(ctx, caller.UserID)
	}
	if err != nil {
		u.log.Warnf("Failed to find appointments for user %s: %+v", caller.UserID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// CreateAppointment books a pending appointment. The caller fills their own
// side by role and names the other party in the request.
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	appointment := &entity.Appointment{Date: date.UTC()}

	if caller.IsDoctor() {
		if req.Patient == nil || *req.Patient == uuid.Nil {
			return nil, ErrPatientRequired
		}
		patient, err := u.userRepo.FindByID(ctx, *req.Patient)
		if err != nil {
			u.log.Warnf("Failed to find patient %s: %+v", *req.Patient, err)
			return nil, err
		}
		if patient == nil {
			return nil, ErrPatientNotFound
		}
		appointment.DoctorID = caller.UserID
		appointment.PatientID = patient.ID
	} else {
		if req.Doctor == nil || *req.Doctor == uuid.Nil {
			return nil, ErrDoctorRequired
		}
		doctor, err := u.userRepo.FindByID(ctx, *req.Doctor)
		if err != nil {
			u.log.Warnf("Failed to find doctor %s: %+v", *req.Doctor, err)
			return nil, err
		}
		if doctor == nil || !doctor.IsDoctor() {
			return nil, ErrDoctorNotFound
		}
		appointment.PatientID = caller.UserID
		appointment.DoctorID = doctor.ID
	}

	if err := u.appointmentRepo.Create(ctx, appointment); err != nil {
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.metrics.AppointmentTransitions.WithLabelValues("create", "success").Inc()
	u.auditService.LogCreate(ctx, &caller.UserID, entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), converter.AppointmentToResponse(appointment))

	return u.detail(ctx, appointment), nil
}

// GetAppointment hides appointments the caller takes no part in
func (u *appointmentUsecase) GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	appointment, err := u.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff && !appointment.IsParticipant(caller.UserID) {
		return nil, ErrAppointmentNotFound
	}

	return converter.AppointmentToResponse(appointment), nil
}

type transition struct {
	action      string
	auditAction string
	forbidden   error
	// check reports why the appointment cannot take the transition. The
	// reason naming the attempted transition comes first.
	check func(*entity.Appointment) error
	apply func(ctx context.Context, id uuid.UUID) (int64, error)
}

func (u *appointmentUsecase) ConfirmAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, transition{
		action:      "confirm",
		auditAction: entity.AuditActionAppointmentConfirm,
		forbidden:   ErrConfirmForbidden,
		check:       confirmBlocker,
		apply:       u.appointmentRepo.Confirm,
	})
}

func (u *appointmentUsecase) CancelAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, transition{
		action:      "cancel",
		auditAction: entity.AuditActionAppointmentCancel,
		forbidden:   ErrCancelForbidden,
		check:       cancelBlocker,
		apply:       u.appointmentRepo.Cancel,
	})
}

func confirmBlocker(a *entity.Appointment) error {
	switch {
	case a.IsConfirmed:
		return ErrAlreadyConfirmed
	case a.IsCanceled:
		return ErrConfirmCanceled
	default:
		return nil
	}
}

func cancelBlocker(a *entity.Appointment) error {
	switch {
	case a.IsCanceled:
		return ErrAlreadyCanceled
	case a.IsConfirmed:
		return ErrCancelConfirmed
	default:
		return nil
	}
}

// transition moves a pending appointment to a terminal state. Only staff and
// the assigned doctor may do so. The write only succeeds while the row is
// still pending; losing a race re-reads the row and reports its new state.
func (u *appointmentUsecase) transition(ctx context.Context, id uuid.UUID, t transition) (*dto.AppointmentResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	appointment, err := u.findAppointment(ctx, id)
	if err != nil {
		u.countTransition(t.action, err)
		return nil, err
	}

	if !caller.IsStaff && appointment.DoctorID != caller.UserID {
		u.countTransition(t.action, t.forbidden)
		return nil, t.forbidden
	}

	if err := t.check(appointment); err != nil {
		u.countTransition(t.action, err)
		return nil, err
	}

	oldStatus := appointment.Status()

	rows, err := t.apply(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to %s appointment %s: %+v", t.action, id, err)
		u.countTransition(t.action, err)
		return nil, err
	}
	if rows == 0 {
		err := u.lostRace(ctx, id, t)
		u.countTransition(t.action, err)
		return nil, err
	}

	updated, err := u.appointmentRepo.FindByID(ctx, id)
	if err != nil || updated == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", id, err)
		updated = appointment
		switch t.action {
		case "confirm":
			updated.IsConfirmed = true
		case "cancel":
			updated.IsCanceled = true
		}
	}

	u.countTransition(t.action, nil)
	u.auditService.LogUpdate(ctx, &caller.UserID, t.auditAction, "appointment", id.String(),
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": updated.Status()},
	)

	u.log.Infof("Appointment %s: id=%s, by=%s", t.action, id, caller.UserID)
	return converter.AppointmentToResponse(updated), nil
}

func (u *appointmentUsecase) lostRace(ctx context.Context, id uuid.UUID, t transition) error {
	current, err := u.findAppointment(ctx, id)
	if err != nil {
		return err
	}
	if blocker := t.check(current); blocker != nil {
		return blocker
	}
	return ErrConcurrentChange
}

func (u *appointmentUsecase) findAppointment(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

// detail reloads the appointment with its participants, falling back to the
// given value
func (u *appointmentUsecase) detail(ctx context.Context, appointment *entity.Appointment) *dto.AppointmentResponse {
	full, err := u.appointmentRepo.FindByID(ctx, appointment.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return converter.AppointmentToResponse(appointment)
	}
	return converter.AppointmentToResponse(full)
}

func (u *appointmentUsecase) countTransition(action string, err error) {
	result := "success"
	if err != nil {
		switch apperror.KindOf(err) {
		case apperror.KindNotFound:
			result = "not_found"
		case apperror.KindForbidden:
			result = "forbidden"
		case apperror.KindInvalidState:
			result = "invalid_state"
		case apperror.KindConflict:
			result = "conflict"
		default:
			result = "error"
		}
	}
	u.metrics.AppointmentTransitions.WithLabelValues(action, result).Inc()
}
