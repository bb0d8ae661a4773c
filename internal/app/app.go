package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"infrascan/internal/apperror"
	"infrascan/internal/config"
	"infrascan/internal/logger"
	"infrascan/internal/repository/sqlite"
	"infrascan/internal/route"
	"infrascan/internal/service/ai"
	"infrascan/internal/service/analysis"
	"infrascan/internal/service/describe"
	"infrascan/internal/service/storage"
	"infrascan/internal/service/websocket"
)

// App owns every long-lived resource of the server.
type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	reports       *sqlite.ReportRepository
	uploads       *storage.UploadStore
	detector      *ai.DetectorService
	pipeline      *analysis.Pipeline
	bufferService *storage.BufferService
	hubService    *websocket.HubService
}

// NewApp loads the model, opens the database and builds the pipeline. Every
// failure here is a startup error and leaves nothing open.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{config: cfg, logger: log}
	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	cfg, log := a.config, a.logger

	var err error

	if a.uploads, err = storage.NewUploadStore(cfg.UploadDir); err != nil {
		return err
	}

	opts := ai.Options{
		ModelPath: cfg.ModelPath,
		Workers:   cfg.DetectorWorkers,
		Threshold: cfg.DetectionThreshold,
	}
	if cfg.LabelsPath != "" {
		if opts.ClassNames, err = ai.LoadClassNames(cfg.LabelsPath); err != nil {
			return apperror.NewStartupError("failed to load class names", err)
		}
	}
	if a.detector, err = ai.NewDetectorService(opts, log); err != nil {
		return err
	}

	describer, err := describe.NewGeminiService(describe.Options{
		APIKey:  cfg.GoogleAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.DescribeTimeout,
	}, log)
	if err != nil {
		return err
	}

	if a.db, err = sqlite.New(cfg.DatabasePath); err != nil {
		return apperror.NewStartupError("failed to open database", err)
	}
	a.reports = sqlite.NewReportRepository(a.db)
	a.hubService = websocket.NewHubService(log)

	var sink analysis.AnnotationSink
	if cfg.AnnotationDirectory != "" {
		a.bufferService = storage.NewBufferService(cfg.AnnotationDirectory, cfg.AnnotationBufferLimit, cfg.AnnotationFlushInterval, log)
		sink = a.bufferService
	}
	a.pipeline = analysis.NewPipeline(a.detector, describer, sink, log)

	return nil
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down gracefully within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.hubService.Run(ctx)
	}()
	if a.bufferService != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.bufferService.Run(ctx)
		}()
	}

	router := route.SetupRoutes(ctx, route.Dependencies{
		Analyzer:      a.pipeline,
		Uploads:       a.uploads,
		Reports:       a.reports,
		Hub:           a.hubService,
		Broadcaster:   a.hubService,
		MaxUploadSize: a.config.MaxUploadSize,
		Logger:        a.logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	a.logger.Info("Infrastructure analysis server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Uploads: %s, model: %s, database: %s", a.config.UploadDir, a.config.ModelPath, a.config.DatabasePath)

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("graceful shutdown: %w", err)
		}
	}

	cancel()
	wg.Wait()
	return serveErr
}

// Close releases the networks and the database.
func (a *App) Close() {
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.logger.Error("Error closing detector: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Error closing database: %v", err)
		}
	}
}
