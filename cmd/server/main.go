package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/parthjod/neuroblock/internal/app/config"
	"github.com/parthjod/neuroblock/internal/app/dsn"
	"github.com/parthjod/neuroblock/internal/app/handler"
	"github.com/parthjod/neuroblock/internal/app/ledger"
	"github.com/parthjod/neuroblock/internal/app/lifecycle"
	"github.com/parthjod/neuroblock/internal/app/pkg/aiclient"
	"github.com/parthjod/neuroblock/internal/app/pkg/auth"
	"github.com/parthjod/neuroblock/internal/app/pkg/storage"
	"github.com/parthjod/neuroblock/internal/app/repository"
	"github.com/parthjod/neuroblock/internal/app/ws"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.WithError(err).Fatal("cannot read config")
	}

	repo, err := repository.New(dsn.FromEnv())
	if err != nil {
		log.WithError(err).Fatal("cannot connect to database")
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	sessionService, err := auth.NewSessionService(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Fatal("cannot connect to redis")
	}
	defer sessionService.Close()

	var chain ledger.Ledger
	if cfg.LedgerPath != "" {
		fileLedger, err := ledger.OpenFileLedger(cfg.LedgerPath, cfg.LedgerLatency)
		if err != nil {
			log.WithError(err).Fatal("cannot open ledger")
		}
		defer fileLedger.Close()
		chain = fileLedger
	} else {
		log.Warn("no ledger path configured, audit entries will not survive restarts")
		chain = ledger.NewMemoryLedger(cfg.LedgerLatency)
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.WithError(err).Warn("cannot load exercise catalog, using built-in plan")
		catalog = config.DefaultCatalog()
	}

	source := lifecycle.NewSimulatedSource(time.Now().UnixNano())
	coordinator := lifecycle.NewCoordinator(repo, chain, source, lifecycle.OpenGate{}, catalog, cfg.ExerciseDwell)

	hub := ws.NewHub()
	coordinator.Subscribe(hub.Observe)

	h := handler.NewHandler(repo, cfg)
	h.JWTService = jwtService
	h.SessionService = sessionService
	h.Coordinator = coordinator
	h.Flagger = lifecycle.NewFlagger(repo, chain)
	h.Chain = chain
	h.AI = aiclient.New(cfg.AIServiceURL)
	h.Hub = hub

	// Object storage is optional: avatar uploads 503 without it.
	if accessKey := os.Getenv("MINIO_ACCESS_KEY"); accessKey != "" {
		endpoint := fmt.Sprintf("%s:%s", cfg.MinIOHost, cfg.MinIOPort)
		minioClient, err := storage.NewMinIO(endpoint, accessKey, os.Getenv("MINIO_SECRET_KEY"), "avatars", false, "http://"+endpoint)
		if err != nil {
			log.WithError(err).Fatal("cannot connect to minio")
		}
		h.MinIO = minioClient
	}

	router := gin.Default()
	h.RegisterHandler(router)

	addr := fmt.Sprintf("%s:%d", cfg.ServiceHost, cfg.ServicePort)
	log.WithField("addr", addr).Info("server starting")
	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
