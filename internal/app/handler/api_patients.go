package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/parthjod/neuroblock/internal/app/ds"
	"github.com/parthjod/neuroblock/internal/app/middleware"
)

func paramID(ctx *gin.Context) (uint, error) {
	id64, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	return uint(id64), err
}

// canReadPatient checks the visibility + association rule: patients see
// themselves; neurologists need the patient visible and an association.
func (h *Handler) canReadPatient(ctx *gin.Context, patient *ds.Patient) (bool, error) {
	userID, ok := middleware.GetCurrentUserID(ctx)
	if !ok {
		return false, nil
	}
	role, _ := middleware.GetCurrentRole(ctx)

	if role == ds.RolePatient {
		return patient.UserID == userID, nil
	}

	n, err := h.Repository.GetNeurologistByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return h.Repository.IsNeurologistAuthorized(n.ID, patient.ID)
}

// ApiGetPatient returns a patient with sessions (most-recent-first) and
// authorized neurologists.
// GET /api/patient/:id
func (h *Handler) ApiGetPatient(ctx *gin.Context) {
	id, err := paramID(ctx)
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	patient, err := h.Repository.FindPatient(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			return
		}
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	allowed, err := h.canReadPatient(ctx, patient)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}
	if !allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this patient"})
		return
	}

	sessions, err := h.Repository.ListPatientSessions(ctx.Request.Context(), patient.ID)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}
	neurologists, err := h.Repository.GetPatientNeurologists(patient.ID)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	jsonResponse(ctx, gin.H{
		"patient":      patient,
		"sessions":     sessionViews(sessions),
		"neurologists": neurologists,
	}, int64(len(sessions)), gin.H{"id": id})
}

// ApiUpdatePatient updates demographics, visibility and the authorized
// neurologist set.
// PUT /api/patient/:id
func (h *Handler) ApiUpdatePatient(ctx *gin.Context) {
	id, err := paramID(ctx)
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	type requestBody struct {
		Name           *string `json:"name"`
		Age            *int    `json:"age"`
		Condition      *string `json:"condition"`
		Visibility     *bool   `json:"visibility"`
		NeurologistIDs []uint  `json:"neurologist_ids"`
	}
	var body requestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	if _, err := h.Repository.FindPatient(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			return
		}
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	fields := map[string]interface{}{}
	if body.Name != nil {
		fields["name"] = *body.Name
	}
	if body.Age != nil {
		fields["age"] = *body.Age
	}
	if body.Condition != nil {
		fields["condition"] = *body.Condition
	}
	if body.Visibility != nil {
		fields["visibility"] = *body.Visibility
	}
	if len(fields) > 0 {
		if err := h.Repository.UpdatePatientFields(id, fields); err != nil {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
	}

	if body.NeurologistIDs != nil {
		if err := h.Repository.SetPatientNeurologists(id, body.NeurologistIDs); err != nil {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
	}

	patient, _ := h.Repository.FindPatient(ctx.Request.Context(), id)
	jsonResponse(ctx, gin.H{"patient": patient}, 1, gin.H{"id": id})
}

// ApiUploadAvatar stores a patient avatar in MinIO.
// POST /api/patient/:id/avatar
func (h *Handler) ApiUploadAvatar(ctx *gin.Context) {
	id, err := paramID(ctx)
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}
	if h.MinIO == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage not configured"})
		return
	}

	patient, err := h.Repository.FindPatient(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		return
	}

	fileHeader, err := ctx.FormFile("avatar")
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	_, publicURL, err := h.MinIO.UploadAvatar(ctx.Request.Context(), fileHeader, patient.Name)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	if err := h.Repository.UpdatePatientFields(id, map[string]interface{}{"avatar_url": publicURL}); err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	jsonResponse(ctx, gin.H{"avatar_url": publicURL}, 1, gin.H{"id": id})
}

// ApiListNeurologists lists all neurologists with their user records.
// GET /api/neurologists
func (h *Handler) ApiListNeurologists(ctx *gin.Context) {
	neurologists, err := h.Repository.ListNeurologists()
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}
	jsonResponse(ctx, neurologists, int64(len(neurologists)), gin.H{})
}

// ApiListNeurologistPatients lists the visible, associated patients of a
// neurologist.
// GET /api/neurologist/:id/patients
func (h *Handler) ApiListNeurologistPatients(ctx *gin.Context) {
	id, err := paramID(ctx)
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	if _, err := h.Repository.GetNeurologistByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "neurologist not found"})
			return
		}
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	patients, err := h.Repository.ListNeurologistPatients(id)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}
	jsonResponse(ctx, patients, int64(len(patients)), gin.H{"id": id})
}
