package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recording-orchestrator/internal/engine"
	"recording-orchestrator/internal/platform/config"
	"recording-orchestrator/internal/platform/logger"
	"recording-orchestrator/internal/platform/metrics"
	"recording-orchestrator/internal/processing"
	"recording-orchestrator/internal/storage"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	settings := config.FromEnv()
	log := logger.New(settings.LogLevel, settings.LogFormat)

	if err := settings.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(settings.Region),
	}
	if settings.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.Error("load aws config", "error", err)
		os.Exit(1)
	}

	lister := storage.NewS3Lister(s3.NewFromConfig(awsCfg))
	eng := engine.NewMediaConvertEngine(awsCfg, settings.EngineEndpoint)
	repo := processing.NewDynamoRepository(dynamodb.NewFromConfig(awsCfg), settings.SessionsTable)

	stability := processing.StabilityConfig{
		Strategy:           processing.StabilityStrategy(settings.StabilityStrategy),
		MaxWait:            settings.StabilityMaxWait,
		Threshold:          settings.StabilityThreshold,
		PollInterval:       settings.StabilityPollInterval,
		RequiredIterations: settings.StabilityRequiredIterations,
		ClipExtension:      settings.ClipExtension,
	}
	limits := processing.BatchConfig{
		MaxInputsPerJob: settings.MaxInputsPerJob,
		PollInterval:    settings.BatchPollInterval,
		MaxWait:         settings.MaxBatchWait,
	}
	quality := engine.Quality{
		RoleARN:         settings.EngineRoleARN,
		VideoBitrate:    int32(settings.VideoBitrate),
		VideoWidth:      int32(settings.VideoWidth),
		VideoHeight:     int32(settings.VideoHeight),
		SegmentLength:   int32(settings.HLSSegmentLength),
		AudioBitrate:    int32(settings.AudioBitrate),
		AudioSampleRate: int32(settings.AudioSampleRate),
	}

	met := metrics.New()
	svc := processing.NewService(repo, lister, eng, stability, limits, quality, log, met)
	h := processing.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/metrics", met.Handler().ServeHTTP)
	r.Route("/sessions/{session_id}", func(r chi.Router) {
		r.Post("/processing", h.StartProcessing)
		r.Get("/processing", h.Status)
	})

	addr := ":" + settings.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", settings.Port,
		"region", settings.Region,
		"sessions_table", settings.SessionsTable,
		"max_inputs_per_job", settings.MaxInputsPerJob,
		"log_level", settings.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
