package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"waffle-pos-backend/internal/audit"
	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/cashregister"
	"waffle-pos-backend/internal/config"
	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/scheduler"
	"waffle-pos-backend/internal/server"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// no subcommand starts the server, like the old cmd/server binary
	rootCmd.RunE = runServe
	rootCmd.Args = cobra.NoArgs
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Storage.Backend == config.BackendPostgres && cfg.UsesDefaultDSN() {
		logger.Warn("database DSN not set, using local default")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	methods, err := cfg.TrackedMethods()
	if err != nil {
		return err
	}

	auditSvc := audit.NewService(store.Audit)
	shifts := cashregister.NewService(store.Shifts, auditSvc, cashregister.WithTrackedMethods(methods))

	sched, err := scheduler.NewScheduler(shifts, cfg.StaleShiftAfter(), cfg.Ledger.StaleShiftSchedule)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	app := server.NewApp(server.Deps{
		Config:   cfg,
		Store:    store,
		Provider: auth.NewJWTProvider(cfg.Auth.JWTSecret, cfg.TokenTTL()),
		Audit:    auditSvc,
		Shifts:   shifts,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.HTTPPort, "storage", cfg.Storage.Backend)
		errCh <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	return nil
}
