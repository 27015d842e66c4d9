package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gabfadel/gab-health/internal/delivery/dto"
	"github.com/gabfadel/gab-health/internal/service"
	"github.com/gabfadel/gab-health/internal/usecase"
	"github.com/gabfadel/gab-health/pkg/response"
	"github.com/gabfadel/gab-health/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type MedicalRecordHandler struct {
	log                  *logrus.Logger
	medicalRecordUsecase usecase.MedicalRecordUsecase
	validator            *validator.CustomValidator
}

func NewMedicalRecordHandler(log *logrus.Logger, medicalRecordUsecase usecase.MedicalRecordUsecase, validator *validator.CustomValidator) *MedicalRecordHandler {
	return &MedicalRecordHandler{
		log:                  log,
		medicalRecordUsecase: medicalRecordUsecase,
		validator:            validator,
	}
}

// ListMedicalRecords accepts an optional ?user=<uuid> filter, honored for
// doctors only
func (h *MedicalRecordHandler) ListMedicalRecords(w http.ResponseWriter, r *http.Request) {
	var patientID *uuid.UUID
	if raw := r.URL.Query().Get("user"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid user ID", nil)
			return
		}
		patientID = &id
	}

	records, err := h.medicalRecordUsecase.ListMedicalRecords(r.Context(), patientID)
	if err != nil {
		writeError(w, r, h.log, err, "Failed to get medical records")
		return
	}

	response.Success(w, http.StatusOK, "Medical records retrieved successfully", records)
}

func (h *MedicalRecordHandler) CreateMedicalRecord(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMedicalRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	// Permission is checked before the body is validated
	record, err := h.medicalRecordUsecase.CreateMedicalRecord(r.Context(), &req)
	if err != nil {
		writeError(w, r, h.log, err, "Failed to create medical record")
		return
	}

	response.Success(w, http.StatusCreated, "Medical record created successfully", record)
}

func (h *MedicalRecordHandler) GetMedicalRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := medicalRecordID(w, r)
	if !ok {
		return
	}

	record, err := h.medicalRecordUsecase.GetMedicalRecord(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err, "Failed to get medical record")
		return
	}

	response.Success(w, http.StatusOK, "Medical record retrieved successfully", record)
}

func (h *MedicalRecordHandler) UpdateMedicalRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := medicalRecordID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateMedicalRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	record, err := h.medicalRecordUsecase.UpdateMedicalRecord(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, h.log, err, "Failed to update medical record")
		return
	}

	response.Success(w, http.StatusOK, "Medical record updated successfully", record)
}

func (h *MedicalRecordHandler) DeleteMedicalRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := medicalRecordID(w, r)
	if !ok {
		return
	}

	if err := h.medicalRecordUsecase.DeleteMedicalRecord(r.Context(), id); err != nil {
		writeError(w, r, h.log, err, "Failed to delete medical record")
		return
	}

	response.NoContent(w)
}

// ExternalSearch looks a medication up in the external drug API
// @Summary Search the external drug API
// @Tags Medical Records
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ExternalSearchRequest true "Search Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /medical-records/external-search [post]
func (h *MedicalRecordHandler) ExternalSearch(w http.ResponseWriter, r *http.Request) {
	var req dto.ExternalSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	result, err := h.medicalRecordUsecase.SearchExternal(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, h.log, err, "Error fetching data from external API")
		return
	}

	message := "Data retrieved from external API"
	if result.Source == service.SourceCache {
		message = "Data retrieved from cache"
	}

	response.Success(w, http.StatusOK, message, dto.ExternalSearchResponse{
		Source: string(result.Source),
		Data:   result.Payload,
	})
}

func medicalRecordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid medical record ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
