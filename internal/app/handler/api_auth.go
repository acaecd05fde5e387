package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/parthjod/neuroblock/internal/app/ds"
	"github.com/parthjod/neuroblock/internal/app/middleware"
	"github.com/parthjod/neuroblock/internal/app/pkg/auth"
)

// ApiSignup registers a new user and the matching patient or
// neurologist record.
// POST /api/signup
func (h *Handler) ApiSignup(ctx *gin.Context) {
	type requestBody struct {
		Login    string `json:"login" binding:"required,min=3,max=50"`
		Password string `json:"password" binding:"required,min=6"`
		Role     string `json:"role" binding:"required"`
		Name     string `json:"name"`
		Age      int    `json:"age"`
	}

	var body requestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}
	if body.Role != ds.RolePatient && body.Role != ds.RoleNeurologist {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	if existing, _ := h.Repository.GetUserByLogin(body.Login); existing != nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	user := &ds.User{
		Login:    body.Login,
		Password: string(hashedPassword),
		Role:     body.Role,
	}
	if err := h.Repository.CreateUser(user); err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	switch body.Role {
	case ds.RolePatient:
		name := body.Name
		if name == "" {
			name = body.Login
		}
		patient := &ds.Patient{UserID: user.ID, Name: name, Age: body.Age, Visibility: true}
		if err := h.Repository.CreatePatient(patient); err != nil {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
	case ds.RoleNeurologist:
		if err := h.Repository.CreateNeurologist(&ds.Neurologist{UserID: user.ID}); err != nil {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": user})
}

// ApiLogin authenticates a user and opens a cookie session.
// POST /api/users/login
func (h *Handler) ApiLogin(ctx *gin.Context) {
	type requestBody struct {
		Login    string `json:"login" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var body requestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	user, err := h.Repository.GetUserByLogin(body.Login)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.JWTService.Generate(user.ID, user.Login, user.Role)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	sessionID := uuid.New().String()
	sessionData := auth.SessionData{
		UserID: user.ID,
		Login:  user.Login,
		Role:   user.Role,
	}
	if err := h.SessionService.Create(ctx.Request.Context(), sessionID, sessionData); err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.SetCookie("session_id", sessionID, 86400, "/", "", false, true)

	jsonResponse(ctx, gin.H{
		"user":       user,
		"token":      token,
		"session_id": sessionID,
	}, 1, gin.H{})
}

// ApiLogout drops the cookie session.
// POST /api/users/logout
func (h *Handler) ApiLogout(ctx *gin.Context) {
	if sessionID, err := ctx.Cookie("session_id"); err == nil && sessionID != "" {
		_ = h.SessionService.Delete(ctx.Request.Context(), sessionID)
	}

	ctx.SetCookie("session_id", "", -1, "/", "", false, true)

	jsonResponse(ctx, gin.H{"message": "logged out"}, 1, gin.H{})
}

// ApiGetProfile returns the current user with their patient or
// neurologist record.
// GET /api/users/profile
func (h *Handler) ApiGetProfile(ctx *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.Repository.GetUserByID(userID)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	out := gin.H{"user": user}
	switch user.Role {
	case ds.RolePatient:
		if patient, err := h.Repository.GetPatientByUserID(userID); err == nil {
			out["patient"] = patient
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
	case ds.RoleNeurologist:
		if n, err := h.Repository.GetNeurologistByUserID(userID); err == nil {
			out["neurologist"] = n
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
	}

	jsonResponse(ctx, out, 1, gin.H{})
}
