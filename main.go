package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"gradecast/db"
	qhttp "gradecast/http"
	"gradecast/logging"
	"gradecast/ml"
	"gradecast/monitoring"
	"gradecast/schema"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		MaxBodyBytes   int64    `yaml:"max_body_bytes"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Model struct {
		Path      string `yaml:"path"`
		Watch     bool   `yaml:"watch"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"model"`
	Log logging.Config `yaml:"log"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	// Artifacts load once, before the listener opens. A bad bundle stops
	// the process here rather than corrupting predictions later.
	service, err := ml.NewService(config.Model.Path, schema.Student(), config.Model.CacheSize, logger)
	if err != nil {
		logger.Fatal("failed to load model artifacts", zap.String("path", config.Model.Path), zap.Error(err))
	}
	defer service.Close()
	bundle := service.Bundle()
	logger.Info("model loaded",
		zap.String("path", config.Model.Path),
		zap.Strings("classes", bundle.Classes),
		zap.Int("columns", len(bundle.FeatureNames)),
		zap.Time("trained_at", bundle.TrainedAt))

	if config.Model.Watch {
		if err := service.Watch(); err != nil {
			logger.Fatal("failed to watch model artifacts", zap.Error(err))
		}
		logger.Info("watching model artifacts for changes")
	}

	hub := monitoring.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	qhttp.SetLogger(logger)
	qhttp.SetPredictionService(service)
	qhttp.SetStream(hub)

	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds != 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if config.Http.MaxBodyBytes != 0 {
		serverConfig.MaxBodyBytes = config.Http.MaxBodyBytes
	}
	if len(config.Http.AllowedOrigins) != 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := qhttp.NewServer(serverConfig, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
