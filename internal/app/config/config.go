package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceHost string
	ServicePort int

	// MinIO object storage for patient avatars.
	MinIOHost string
	MinIOPort string

	// Redis session store.
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	JWTSecret string

	// LedgerPath is the LevelDB directory for the durable audit ledger.
	// Empty means the in-memory adapter (tests, local runs).
	LedgerPath string
	// LedgerLatency models the consensus delay of the simulated chain.
	LedgerLatency time.Duration

	// ExerciseDwell is how long the coordinator tracks each exercise
	// before auto-advancing.
	ExerciseDwell time.Duration

	// CatalogPath points at the yaml exercise catalog.
	CatalogPath string

	// AIServiceURL is the movement-explanation service endpoint.
	// Empty disables AI analysis (it is best-effort anyway).
	AIServiceURL string
}

func NewConfig() (*Config, error) {
	var err error

	configName := "config"
	_ = godotenv.Load()
	if os.Getenv("CONFIG_NAME") != "" {
		configName = os.Getenv("CONFIG_NAME")
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("toml")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetDefault("LedgerLatency", "1500ms")
	viper.SetDefault("ExerciseDwell", "3s")
	viper.SetDefault("CatalogPath", "config/exercises.yaml")
	viper.SetDefault("RedisPort", 6379)
	viper.WatchConfig()

	err = viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = viper.Unmarshal(cfg)
	if err != nil {
		return nil, err
	}

	// MinIO configuration from environment
	cfg.MinIOHost = os.Getenv("MINIO_HOST")
	if cfg.MinIOHost == "" {
		cfg.MinIOHost = "127.0.0.1"
	}
	cfg.MinIOPort = os.Getenv("MINIO_PORT")
	if cfg.MinIOPort == "" {
		cfg.MinIOPort = "9000"
	}

	if cfg.RedisHost == "" {
		cfg.RedisHost = os.Getenv("REDIS_HOST")
		if cfg.RedisHost == "" {
			cfg.RedisHost = "127.0.0.1"
		}
	}
	if s := os.Getenv("JWT_SECRET"); s != "" {
		cfg.JWTSecret = s
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}
	if u := os.Getenv("AI_SERVICE_URL"); u != "" {
		cfg.AIServiceURL = u
	}
	if p := os.Getenv("LEDGER_PATH"); p != "" {
		cfg.LedgerPath = p
	}

	log.Info("config parsed")

	return cfg, nil
}
