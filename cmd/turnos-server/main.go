package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/consultorio/turnos/internal/config"
	"github.com/consultorio/turnos/internal/platform/backup"
	"github.com/consultorio/turnos/internal/platform/db"
	"github.com/consultorio/turnos/internal/platform/seed"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "turnos-server",
		Short: "Medical appointments API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(restoreCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, newLogger(os.Getenv("ENV"), "info"), err
	}
	logger := newLogger(cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closePool, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closePool()

			count, err := migrator.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closePool, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func openMigrator(cmd *cobra.Command) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	logger := newLogger(cfg.Env, cfg.LogLevel)
	pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL, poolOptions(cfg), logger)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, dir), pool.Close, nil
}

func openBackup(cfg *config.Config, logger zerolog.Logger) (*backup.Service, error) {
	store, err := backup.NewMinio(backup.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return backup.NewService(store, logger), nil
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload the CSV snapshots of DATA_DIR to object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := openBackup(cfg, logger)
			if err != nil {
				return err
			}

			prefix, keys, err := svc.Backup(cmd.Context(), cfg.DataDir, time.Now())
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Printf("Uploaded %d file(s) under %s/%s\n", len(keys), cfg.MinioBucket, prefix)
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Download a backup into DATA_DIR",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, _ := cmd.Flags().GetString("prefix")
			if strings.TrimSpace(prefix) == "" {
				return fmt.Errorf("--prefix is required")
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := openBackup(cfg, logger)
			if err != nil {
				return err
			}

			files, err := svc.Restore(cmd.Context(), cfg.DataDir, prefix)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Printf("Restored %d file(s) into %s\n", len(files), cfg.DataDir)
			return nil
		},
	}
	cmd.Flags().String("prefix", "", "Backup prefix, as printed by the backup command")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill doctors and patients from the seed API",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return runSeed(cmd.Context(), force)
		},
	}
	cmd.Flags().Bool("force", false, "Replace existing snapshots, clearing agenda and appointments")
	return cmd
}

func runSeed(ctx context.Context, force bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	exists, err := a.hasSnapshots(ctx)
	if err != nil {
		return err
	}
	if exists && !force {
		return fmt.Errorf("snapshots already exist, use --force to replace them")
	}

	client := seed.NewClient(cfg.SeedSourceURL, cfg.SeedTimeout, logger)
	ds, err := client.Doctors(ctx, cfg.SeedDoctors)
	if err != nil {
		return err
	}
	ps, err := client.Patients(ctx, cfg.SeedPatients)
	if err != nil {
		return err
	}
	if err := a.reseed(ctx, ds, ps); err != nil {
		return err
	}
	fmt.Printf("Seeded %d doctor(s) and %d patient(s).\n", len(ds), len(ps))
	return nil
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	var seeds *seed.Client
	if cfg.SeedEnabled {
		seeds = seed.NewClient(cfg.SeedSourceURL, cfg.SeedTimeout, logger)
	}
	if err := a.init(ctx, seeds); err != nil {
		logger.Fatal().Err(err).Msg("failed to load data")
	}

	e := a.server()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("storage", cfg.StorageBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
