package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"medo-shield/internal/agent"
	"medo-shield/internal/analysis"
	"medo-shield/internal/assessment"
	"medo-shield/internal/chat"
	"medo-shield/internal/config"
	"medo-shield/internal/consultation"
	"medo-shield/internal/fallback"
	"medo-shield/internal/fitness"
	"medo-shield/internal/history"
	"medo-shield/internal/medication"
	"medo-shield/internal/notification"
	"medo-shield/internal/patient"
	"medo-shield/internal/platform/auth"
	"medo-shield/internal/platform/lock"
	"medo-shield/internal/platform/logger"
	"medo-shield/internal/platform/postgres"
	"medo-shield/internal/platform/telegram"
	"medo-shield/internal/report"
	"medo-shield/internal/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medo-shield",
		Short: "Medical monitoring API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := postgres.MigrateUp(cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := postgres.MigrateDown(cfg.DatabaseURL, steps); err != nil {
				return err
			}
			fmt.Printf("rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.DBConnectAttempts, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.MigrateUp(cfg.DatabaseURL); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")

	locker, closeLocker, err := newLocker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	if !cfg.AIEnabled() {
		log.Warn().Msg("GEMINI_API_KEY not set, AI endpoints will answer from fallback payloads")
	}
	gen := agent.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)
	payloads := fallback.Get()

	tg := telegram.NewClient(cfg.TelegramBotToken)
	if tg.Enabled() && cfg.DoctorChatID == 0 {
		log.Warn().Msg("DOCTOR_CHAT_ID is not set, report copies will not be sent to the doctor")
	}

	patients := patient.NewRepository(db)
	access := patient.NewAccess(patients)

	notifySvc := notification.NewService(notification.NewRepository(db), log)

	medRepo := medication.NewRepository(db)
	medSvc := medication.NewService(
		medRepo,
		medication.NewScheduler(medRepo, locker, log),
		medication.NewRecommender(gen, payloads, log),
		notifySvc,
	)

	assessmentSvc := assessment.NewService(assessment.NewRepository(db), notifySvc)
	consultationSvc := consultation.NewService(consultation.NewRepository(db), gen, assessmentSvc, payloads, log)
	analysisSvc := analysis.NewService(gen, analysis.NewPDFExtractor(), payloads, log)
	fitnessSvc := fitness.NewService(fitness.NewRepository(db), gen, payloads, log)
	reportSvc := report.NewService(report.Deps{
		Repo:         report.NewRepository(db),
		Risks:        assessmentSvc,
		Generator:    gen,
		Payloads:     payloads,
		Notifier:     notifySvc,
		Renderer:     report.NewPDFRenderer(),
		Doctor:       tg,
		DoctorChatID: cfg.DoctorChatID,
		Log:          log,
	})
	chatSvc := chat.NewService(chat.NewRepository(db), patients, notifySvc)
	historySvc := history.NewService(reportSvc, medSvc, assessmentSvc, fitnessSvc)

	router := server.NewRouter(server.Config{
		Log:         log,
		Auth:        auth.NewAuthenticator(cfg.JWTSecret, cfg.IsDev()),
		CORSOrigins: cfg.CORSOrigins,
		DB:          db,
		Handlers: server.Handlers{
			Assessment:   assessment.NewHandler(assessmentSvc, access, patients),
			Medication:   medication.NewHandler(medSvc, access),
			Report:       report.NewHandler(reportSvc, access),
			Consultation: consultation.NewHandler(consultationSvc, access, payloads.Disclaimer),
			Analysis:     analysis.NewHandler(analysisSvc, cfg.MaxUploadMB, payloads.Disclaimer),
			Fitness:      fitness.NewHandler(fitnessSvc, access),
			Notification: notification.NewHandler(notifySvc, access),
			History:      history.NewHandler(historySvc, access),
			Chat:         chat.NewHandler(chatSvc, access),
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.AITimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// newLocker uses Redis when REDIS_URL is set so several replicas share
// reminder locks, and an in-process lock otherwise.
func newLocker(ctx context.Context, cfg *config.Config, log zerolog.Logger) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		log.Info().Msg("REDIS_URL not set, using in-process reminder locks")
		return lock.NewMemory(), func() {}, nil
	}
	rdb, err := lock.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("connected to redis")
	return lock.NewRedis(rdb, "medo-shield:lock:", 30*time.Second), func() { _ = rdb.Close() }, nil
}
