package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	configfile "github.com/custodia-labs/casefile/internal/adapters/driven/config/file"
	"github.com/custodia-labs/casefile/internal/adapters/driven/extract/pdftext"
	"github.com/custodia-labs/casefile/internal/adapters/driven/generation/openai"
	"github.com/custodia-labs/casefile/internal/adapters/driven/mail/gmail"
	"github.com/custodia-labs/casefile/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/casefile/internal/adapters/driving/rest"
	"github.com/custodia-labs/casefile/internal/adapters/driving/watch"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/core/services"
	chatingest "github.com/custodia-labs/casefile/internal/ingest/chat"
	emailingest "github.com/custodia-labs/casefile/internal/ingest/email"
	pdfingest "github.com/custodia-labs/casefile/internal/ingest/pdf"
	"github.com/custodia-labs/casefile/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evidence ingestion service",
	Long: `Starts the HTTP API, the background task workers and, when an intake
directory is configured, the drop-folder watcher.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Debug("Config loaded from %s", cfg.Path())

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()
	logger.Info("Evidence store at %s", store.Path())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Generation collaborator; without an API key generation tasks
	// fail with an explicit error instead of at startup.
	var generator driven.Generator
	if apiKey := cfg.GetString("generation.api_key"); apiKey != "" {
		generator, err = openai.NewGenerator(openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.GetString("generation.base_url"),
			Model:   cfg.GetString("generation.model"),
			Timeout: time.Duration(cfg.GetInt("generation.timeout_seconds")) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("configuring generator: %w", err)
		}
		defer generator.Close()
	} else {
		logger.Warn("No generation API key configured; timeline, analysis and report tasks will be rejected")
	}

	// Mail provider; optional the same way.
	var mail driven.MailProvider
	if token := cfg.GetString("gmail.access_token"); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		mail, err = gmail.NewProvider(ctx, ts)
		if err != nil {
			return fmt.Errorf("configuring gmail provider: %w", err)
		}
	} else {
		logger.Warn("No Gmail token configured; email ingestion will be rejected")
	}

	extractor := pdftext.New()

	ingest := services.NewIngestService(
		store.EvidenceStore(),
		chatingest.New(cfg.GetStringSlice("ingest.chat_layouts")),
		pdfingest.New(),
		emailingest.New(),
		mail,
	)
	timelines := services.NewTimelineBuilder(
		store.EvidenceStore(), store.TimelineStore(), generator,
		cfg.GetInt("generation.batch_size"),
	)
	analyser := services.NewEvidenceAnalyser(
		store.EvidenceStore(), store.RecommendationStore(), generator,
		cfg.GetInt("generation.batch_size"),
		time.Duration(cfg.GetInt("analysis.window_days"))*24*time.Hour,
	)
	reports := services.NewReportAssembler(
		store.TimelineStore(), store.RecommendationStore(), store.ReportStore(), generator,
	)
	records := services.NewRecordsService(store.EvidenceStore())

	orchestrator := services.NewTaskOrchestrator(
		store.TaskStore(), ingest, timelines, analyser, reports,
		cfg.GetInt("tasks.workers"),
	)
	defer orchestrator.Stop()

	uploadDir := cfg.GetString("server.upload_dir")
	if uploadDir == "" {
		uploadDir = filepath.Join(filepath.Dir(store.Path()), "uploads")
	}

	api := rest.NewAPI(
		orchestrator, records, timelines,
		store.TimelineStore(), store.RecommendationStore(), store.ReportStore(),
		extractor, uploadDir,
	)

	addr := cfg.GetString("server.addr")
	if addr == "" {
		addr = ":8080"
	}
	server := rest.NewServer(addr, api)

	if intakeDir := cfg.GetString("intake.dir"); intakeDir != "" {
		intakeCase := cfg.GetString("intake.case_id")
		if intakeCase == "" {
			intakeCase = "default"
		}
		watcher := watch.New(intakeDir, intakeCase, orchestrator, extractor)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Watcher stopped: %v", err)
			}
		}()
	}

	err = server.Run(ctx)
	logger.Info("Shutting down")
	return err
}
