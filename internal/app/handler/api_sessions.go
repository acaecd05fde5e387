package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/parthjod/neuroblock/internal/app/ds"
	"github.com/parthjod/neuroblock/internal/app/ledger"
	"github.com/parthjod/neuroblock/internal/app/lifecycle"
)

// sessionView is the persisted record shape returned to the dashboard.
type sessionView struct {
	ID                 uint                `json:"id"`
	PatientID          uint                `json:"patientId"`
	CreatedAt          time.Time           `json:"createdAt"`
	RecoveryTrendScore int                 `json:"recoveryTrendScore"`
	Status             string              `json:"status"`
	IsFlagged          bool                `json:"isFlagged"`
	Exercises          []ds.ExerciseMetric `json:"exercises"`
	RTS                []ds.JointScore     `json:"rts"`
	Blockchain         *ds.AuditRecord     `json:"blockchain"`
}

func newSessionView(s *ds.Session) sessionView {
	return sessionView{
		ID:                 s.ID,
		PatientID:          s.PatientID,
		CreatedAt:          s.CreatedAt,
		RecoveryTrendScore: s.RecoveryTrendScore,
		Status:             s.Status,
		IsFlagged:          s.IsFlagged,
		Exercises:          s.Exercises,
		RTS:                s.Joints,
		Blockchain:         s.Audit(),
	}
}

func sessionViews(sessions []ds.Session) []sessionView {
	out := make([]sessionView, 0, len(sessions))
	for i := range sessions {
		out = append(out, newSessionView(&sessions[i]))
	}
	return out
}

// ApiCreateSession runs a full session attempt for the patient: metric
// capture, trend scoring, audit write and persistence.
// POST /api/session
func (h *Handler) ApiCreateSession(ctx *gin.Context) {
	type requestBody struct {
		PatientID uint `json:"patient_id" binding:"required"`
	}
	var body requestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	session, err := h.Coordinator.Run(ctx.Request.Context(), body.PatientID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		case errors.Is(err, lifecycle.ErrAttemptActive):
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, lifecycle.ErrSensorUnavailable):
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			h.errorHandler(ctx, http.StatusInternalServerError, err)
		}
		return
	}

	jsonResponse(ctx, newSessionView(session), 1, gin.H{"patient_id": body.PatientID})
}

// ApiFlagSession toggles the review flag on a session, audit-first.
// PUT /api/session/:id/flag
func (h *Handler) ApiFlagSession(ctx *gin.Context) {
	id, err := paramID(ctx)
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	type requestBody struct {
		IsFlagged *bool `json:"is_flagged" binding:"required"`
	}
	var body requestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	session, err := h.Repository.GetSessionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	if err := h.Flagger.SetFlag(ctx.Request.Context(), session.PatientID, session.ID, *body.IsFlagged); err != nil {
		if errors.Is(err, ledger.ErrWriteFailed) {
			// The flag state is unchanged; the caller may retry.
			ctx.JSON(http.StatusBadGateway, gin.H{"error": "failed to record flag change on the ledger"})
			return
		}
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	message := "session unflagged"
	if *body.IsFlagged {
		message = "session flagged"
	}
	jsonResponse(ctx, gin.H{"message": message, "is_flagged": *body.IsFlagged}, 1, gin.H{"id": id})
}

// ApiAnalyzeMovement proxies one exercise's metrics to the explanation
// service. Best-effort: a failure is reported, not escalated.
// POST /api/analysis
func (h *Handler) ApiAnalyzeMovement(ctx *gin.Context) {
	type requestBody struct {
		Name          string `json:"name" binding:"required"`
		RangeOfMotion int    `json:"rangeOfMotion" binding:"min=0,max=100"`
		Stability     int    `json:"stability" binding:"min=0,max=100"`
		Accuracy      int    `json:"accuracy" binding:"min=0,max=100"`
	}
	var body requestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	explanation, err := h.AI.ExplainMovement(ctx.Request.Context(), ds.ExerciseMetric{
		Name:          body.Name,
		RangeOfMotion: body.RangeOfMotion,
		Stability:     body.Stability,
		Accuracy:      body.Accuracy,
	})
	if err != nil {
		jsonResponse(ctx, gin.H{"available": false, "error": "analysis unavailable"}, 0, gin.H{})
		return
	}

	jsonResponse(ctx, gin.H{"available": true, "analysis": explanation}, 1, gin.H{})
}

// ApiLedgerHistory returns the audit chain.
// GET /api/ledger
func (h *Handler) ApiLedgerHistory(ctx *gin.Context) {
	entries, err := h.Chain.History(ctx.Request.Context())
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}
	jsonResponse(ctx, entries, int64(len(entries)), gin.H{})
}
