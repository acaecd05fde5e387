package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/parthjod/neuroblock/internal/app/config"
	"github.com/parthjod/neuroblock/internal/app/ledger"
	"github.com/parthjod/neuroblock/internal/app/lifecycle"
	"github.com/parthjod/neuroblock/internal/app/middleware"
	"github.com/parthjod/neuroblock/internal/app/pkg/aiclient"
	"github.com/parthjod/neuroblock/internal/app/pkg/auth"
	"github.com/parthjod/neuroblock/internal/app/pkg/storage"
	"github.com/parthjod/neuroblock/internal/app/repository"
	"github.com/parthjod/neuroblock/internal/app/ws"
)

type Handler struct {
	Repository     *repository.Repository
	Config         *config.Config
	JWTService     *auth.JWTService
	SessionService *auth.SessionService
	MinIO          *storage.MinIO
	Coordinator    *lifecycle.Coordinator
	Flagger        *lifecycle.Flagger
	Chain          ledger.Ledger
	AI             *aiclient.Client
	Hub            *ws.Hub
}

func NewHandler(r *repository.Repository, cfg *config.Config) *Handler {
	return &Handler{
		Repository: r,
		Config:     cfg,
	}
}

// RegisterHandler wires all routes.
func (h *Handler) RegisterHandler(router *gin.Engine) {
	authSvc := &middleware.AuthService{JWT: h.JWTService, Session: h.SessionService}

	router.POST("/api/signup", h.ApiSignup)
	router.POST("/api/users/login", h.ApiLogin)
	router.POST("/api/users/logout", h.ApiLogout)

	router.GET("/ws/sessions", func(ctx *gin.Context) {
		h.Hub.HandleWS(ctx.Writer, ctx.Request)
	})

	authed := router.Group("/api", middleware.AuthMiddleware(authSvc))
	{
		authed.GET("/users/profile", h.ApiGetProfile)

		authed.GET("/patient/:id", h.ApiGetPatient)
		authed.PUT("/patient/:id", h.ApiUpdatePatient)
		authed.POST("/patient/:id/avatar", h.ApiUploadAvatar)

		authed.GET("/neurologists", h.ApiListNeurologists)
		authed.GET("/neurologist/:id/patients", h.ApiListNeurologistPatients)

		clinician := authed.Group("", middleware.RequireNeurologistMiddleware())
		{
			clinician.POST("/session", h.ApiCreateSession)
			clinician.PUT("/session/:id/flag", h.ApiFlagSession)
			clinician.POST("/analysis", h.ApiAnalyzeMovement)
			clinician.GET("/ledger", h.ApiLedgerHistory)
		}
	}
}

// errorHandler renders errors in a uniform envelope.
func (h *Handler) errorHandler(ctx *gin.Context, errorStatusCode int, err error) {
	logrus.Error(err.Error())
	ctx.JSON(errorStatusCode, gin.H{
		"status":      "error",
		"description": err.Error(),
	})
}

func jsonResponse(ctx *gin.Context, data interface{}, count int64, meta gin.H) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"data":   data,
		"count":  count,
		"meta":   meta,
	})
}
