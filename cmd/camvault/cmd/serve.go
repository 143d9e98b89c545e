package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/camvault/internal/api"
	"github.com/jmylchreest/camvault/internal/appdb"
	"github.com/jmylchreest/camvault/internal/camera"
	"github.com/jmylchreest/camvault/internal/config"
	"github.com/jmylchreest/camvault/internal/database"
	"github.com/jmylchreest/camvault/internal/database/migrations"
	"github.com/jmylchreest/camvault/internal/ingest"
	"github.com/jmylchreest/camvault/internal/libctx"
	"github.com/jmylchreest/camvault/internal/licensing"
	"github.com/jmylchreest/camvault/internal/metadata"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/probe"
	"github.com/jmylchreest/camvault/internal/repository"
	"github.com/jmylchreest/camvault/internal/rescan"
	"github.com/jmylchreest/camvault/internal/scheduler"
	"github.com/jmylchreest/camvault/internal/service/logs"
	"github.com/jmylchreest/camvault/internal/service/progress"
	"github.com/jmylchreest/camvault/internal/version"
	"github.com/jmylchreest/camvault/internal/wipe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the camvault command surface",
	Long: `Start camvault's local command surface: the HTTP API the desktop
shell drives for library management, ingest, rescan/wipe, camera matching,
and licensing/diagnostics.

This is not a public API - it is bound to localhost and exists only so the
desktop frontend has a stable process to talk to.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().Int("port", 0, "Port to listen on (0 = config default)")
	serveCmd.Flags().String("database", "", "Library database file path")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.path", serveCmd.Flags().Lookup("database"))
}

func runServe(_ *cobra.Command, _ []string) error {
	// Wrap the default slog handler so /diagnostics/logs can stream the
	// process's own recent log lines, grounded on the teacher's
	// logs.Service/WrapHandler convention.
	logsService := logs.New()
	slog.SetDefault(slog.New(logsService.WrapHandler(slog.Default().Handler())))
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if host := viper.GetString("server.host"); host != "" {
		cfg.Server.Host = host
	}
	if port := viper.GetInt("server.port"); port != 0 {
		cfg.Server.Port = port
	}
	if path := viper.GetString("database.path"); path != "" {
		cfg.Database.Path = path
	}

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("opening library database: %w", err)
	}
	defer func() { _ = db.Close() }()

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	appDB, err := appdb.Open(config.DatabaseConfig{
		Path:            cfg.Library.AppDBPath,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening app database: %w", err)
	}
	defer func() { _ = appDB.Close() }()

	libraries := repository.NewLibraryRepository(db.DB)
	sessions := repository.NewIngestSessionRepository(db.DB)
	manifests := repository.NewManifestEntryRepository(db.DB)
	assets := repository.NewAssetRepository(db.DB)
	clips := repository.NewClipRepository(db.DB)
	jobs := repository.NewJobRepository(db.DB)
	cameraProfiles := repository.NewCameraProfileRepository(db.DB)
	cameraDevices := repository.NewCameraDeviceRepository(db.DB)

	libs := libctx.New()

	prober := probe.NewProber(cfg.Tools.FFprobePath)
	exifTool := probe.NewExifTool(cfg.Tools.ExifToolPath)
	extractor := metadata.NewExtractor(prober, exifTool)
	matcher := camera.New(cameraProfiles, cameraDevices)

	gate := rescan.New(sessions, manifests)
	wipeExecutor := wipe.New(sessions, manifests)
	pipeline := ingest.New(sessions, manifests, assets, clips, extractor, matcher, logger)

	progressService := progress.NewService(logger)

	executor := scheduler.NewExecutor(jobs, logger).WithProgress(progressService)
	executor.RegisterHandler(models.JobTypeIngest, scheduler.NewIngestHandler(sessions, pipeline, gate, libs, logger))
	executor.RegisterHandler(models.JobTypeRescan, scheduler.NewRescanHandler(sessions, gate))
	executor.RegisterHandler(models.JobTypeRematch, scheduler.NewRematchHandler(libraries, clips, assets, matcher, logger))
	executor.RegisterHandler(models.JobTypeReextract, scheduler.NewReextractHandler(libraries, clips, assets, extractor, logger))

	runner := scheduler.NewRunner(jobs, executor, libs).WithLogger(logger).WithConfig(scheduler.RunnerConfig{
		PollInterval:  cfg.Ingestion.PollInterval,
		LeaseDuration: cfg.Ingestion.LeaseDuration,
	})

	sweeper := scheduler.NewSweeper(jobs, libraries, assets).WithLogger(logger).WithConfig(scheduler.SweepConfig{
		RematchCronSchedule:   cfg.Ingestion.RematchCron,
		ReextractCronSchedule: cfg.Ingestion.ReextractCron,
	})

	licensingService := licensing.New(appDB)
	diagnostics := licensing.NewDiagnostics(appDB, cfg.Logging.Directory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("starting job runner: %w", err)
	}
	defer runner.Stop()

	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("starting sweeper: %w", err)
	}
	defer sweeper.Stop()

	server := api.NewServer(cfg.Server, api.Deps{
		Libraries:       libraries,
		IngestSessions:  sessions,
		ManifestEntries: manifests,
		Clips:           clips,
		Jobs:            jobs,

		Libs:     libs,
		Runner:   runner,
		Progress: progressService,

		RescanGate: gate,
		Wipe:       wipeExecutor,

		Licensing:   licensingService,
		Diagnostics: diagnostics,

		Logger: logger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting camvault command surface",
		slog.String("address", cfg.Server.Address()),
		slog.String("version", version.Short()),
	)

	return server.ListenAndServe(ctx)
}
