package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	geminiadapter "github.com/SaikatGlitchCodes/metrictracker-be/internal/adapter/driven/gemini"
	githubadapter "github.com/SaikatGlitchCodes/metrictracker-be/internal/adapter/driven/github"
	sqliteadapter "github.com/SaikatGlitchCodes/metrictracker-be/internal/adapter/driven/sqlite"
	httphandler "github.com/SaikatGlitchCodes/metrictracker-be/internal/adapter/driving/http"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/application"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/config"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"github_host", cfg.GitHubHost,
		"sync_epoch", cfg.SyncEpoch.Format("2006-01-02"),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire stores.
	userStore := sqliteadapter.NewUserRepo(db)
	prStore := sqliteadapter.NewPRRepo(db)
	commentStore := sqliteadapter.NewCommentRepo(db)
	teamStore := sqliteadapter.NewTeamRepo(db)

	// 5b. Open a second connection pair for the comment pipeline so its batch
	// writes never contend with request-path writes on the same pool.
	pipelineDB, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := pipelineDB.Close(); closeErr != nil {
			slog.Error("error closing pipeline database", "error", closeErr)
		}
	}()

	// 6. Create GitHub client.
	ghClient := githubadapter.NewClient(cfg.GitHubToken, cfg.GitHubHost)
	slog.Info("github client created", "host", cfg.GitHubHost)

	// 6b. Create scoring oracle (nil when no key; analyze endpoint returns 503).
	var scorer driven.Scorer
	if cfg.HasGeminiCredentials() {
		scorer = geminiadapter.NewScorerWithBaseURL(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
		slog.Info("gemini scorer created", "model", cfg.GeminiModel)
	} else {
		slog.Info("no gemini api key configured, comment analysis disabled")
	}

	// 7. Create application services.
	pipeline := application.NewCommentPipeline(
		ghClient,
		sqliteadapter.NewCommentRepo(pipelineDB),
		sqliteadapter.NewUserRepo(pipelineDB),
		nil,
	)
	syncSvc := application.NewSyncService(ghClient, userStore, prStore, teamStore, pipeline, cfg.SyncEpoch)
	userSvc := application.NewUserService(ghClient, userStore)
	teamSvc := application.NewTeamService(teamStore, userStore)
	reportSvc := application.NewReportService(userStore, prStore, commentStore, teamStore)
	analysisSvc := application.NewAnalysisService(prStore, commentStore, scorer)

	// 8. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(userSvc, teamSvc, syncSvc, reportSvc, analysisSvc, db.Reader.PingContext, cfg.IsDevelopment(), slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
