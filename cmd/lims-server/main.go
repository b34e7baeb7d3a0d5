package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lims/lims/internal/config"
	"github.com/lims/lims/internal/domain/assignment"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/client"
	"github.com/lims/lims/internal/domain/coa"
	"github.com/lims/lims/internal/domain/equipment"
	"github.com/lims/lims/internal/domain/inventory"
	"github.com/lims/lims/internal/domain/qc"
	"github.com/lims/lims/internal/domain/sample"
	"github.com/lims/lims/internal/domain/workflow"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
	"github.com/lims/lims/internal/platform/metrics"
	"github.com/lims/lims/internal/platform/middleware"
	"github.com/lims/lims/internal/platform/notification"
	"github.com/lims/lims/internal/platform/reporting"
)

// clientDirectory adapts client.Service to sample.ClientDirectory, avoiding
// a direct dependency from the sample package on the client package.
type clientDirectory struct {
	svc *client.Service
}

func (d *clientDirectory) Lookup(ctx context.Context, id uuid.UUID) (*sample.ClientInfo, error) {
	cl, err := d.svc.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	return &sample.ClientInfo{
		Code:  cl.ClientID,
		Name:  cl.Name,
		Email: cl.Email,
		Token: cl.Token,
	}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "lims-server",
		Short: "Feed and food testing LIMS API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the LIMS API server",
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			pool, err := openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			pool, err := openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Version", "Name", "Status", "Applied At"})
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				t.AppendRow(table.Row{s.Version, s.Name, status, appliedAt})
			}
			t.Render()
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a backup or write a forward migration that reverses the change.")
			return nil
		},
	})

	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <measure>",
		Short: "Evaluate a reporting measure and print the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"ID", "Name", "Description"})
				for _, m := range reporting.PredefinedMeasures {
					t.AppendRow(table.Row{m.ID, m.Name, m.Description})
				}
				t.Render()
				return nil
			}

			measure := reporting.FindMeasure(args[0])
			if measure == nil {
				return fmt.Errorf("unknown measure %q, run without arguments to list measures", args[0])
			}

			pool, err := openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			rows, err := pool.Query(context.Background(), measure.SQL)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			defer rows.Close()

			fields := rows.FieldDescriptions()
			header := make(table.Row, len(fields))
			for i, fd := range fields {
				header[i] = string(fd.Name)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetTitle(measure.Name)
			t.AppendHeader(header)
			for rows.Next() {
				values, err := rows.Values()
				if err != nil {
					return err
				}
				row := make(table.Row, len(values))
				for i, v := range values {
					row[i] = v
				}
				t.AppendRow(row)
			}
			if err := rows.Err(); err != nil {
				return err
			}
			t.Render()
			return nil
		},
	}
	return cmd
}

func openPool() (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	m := metrics.New()
	e.Use(m.Instrument())

	notifier := notification.NewNotificationManager(
		&notification.MockEmailSender{},
		&notification.MockSMSSender{},
		notification.NewTemplateEngine(),
	)

	// Domain wiring.
	clientSvc := client.NewService(client.NewClientRepoPG(pool))
	clientHandler := client.NewHandler(clientSvc)

	catalogSvc := catalog.NewService(
		catalog.NewGroupRepoPG(pool),
		catalog.NewParameterRepoPG(pool),
		catalog.NewControlSpecRepoPG(pool),
	)
	catalogHandler := catalog.NewHandler(catalogSvc)

	equipmentSvc := equipment.NewService(
		equipment.NewEquipmentRepoPG(pool),
		equipment.NewCalibrationRepoPG(pool),
	)
	equipmentHandler := equipment.NewHandler(equipmentSvc)

	sampleSvc := sample.NewService(
		sample.NewSampleRepoPG(pool),
		sample.NewStatusHistoryRepoPG(pool),
		&clientDirectory{svc: clientSvc},
	)
	sampleSvc.SetNotifier(notifier, cfg.ManagerEmail)
	sampleSvc.SetMetrics(m)
	sampleHandler := sample.NewHandler(sampleSvc)

	assignmentSvc := assignment.NewService(
		assignment.NewAssignmentRepoPG(pool),
		assignment.NewResultRepoPG(pool),
		sampleSvc,
	)
	assignmentSvc.SetNotifier(notifier)
	assignmentHandler := assignment.NewHandler(assignmentSvc)

	qcSvc := qc.NewService(qc.NewMetricsRepoPG(pool), catalogSvc, assignmentSvc)
	qcSvc.SetNotifier(notifier, cfg.ManagerEmail)
	qcSvc.SetMetrics(m)
	qcHandler := qc.NewHandler(qcSvc)

	calc := workflow.NewCalculator(cfg.MEFormula)
	calc.CHOParameter = cfg.DerivedCHOParameter
	calc.MEParameter = cfg.DerivedMEParameter
	workflowSvc := workflow.NewService(
		workflow.PgxTxRunner(pool),
		sampleSvc,
		assignmentSvc,
		qcSvc,
		catalogSvc,
		calc,
		cfg.PromotionScope,
	)
	workflowSvc.SetNotifier(notifier, cfg.ManagerEmail)
	workflowSvc.SetMetrics(m)
	workflowHandler := workflow.NewHandler(workflowSvc)

	inventorySvc := inventory.NewService(
		inventory.NewReagentRepoPG(pool),
		inventory.NewUsageRepoPG(pool),
		inventory.NewRequestRepoPG(pool),
		inventory.NewIssueRepoPG(pool),
		inventory.NewAuditRepoPG(pool),
	)
	inventorySvc.SetNotifier(notifier, cfg.ManagerEmail)
	inventoryHandler := inventory.NewHandler(inventorySvc)

	coaSvc := coa.NewService(
		coa.NewCertificateRepoPG(pool),
		coa.NewInterpretationRepoPG(pool),
		clientSvc,
		sampleSvc,
		assignmentSvc,
	)
	coaSvc.SetNotifier(notifier)
	coaHandler := coa.NewHandler(coaSvc)

	// Unauthenticated surface: liveness, readiness, metrics, and the client
	// tracking token lookup.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", m.Handler())

	public := e.Group("/api/v1")
	clientHandler.RegisterTrackingRoute(public)

	// Authenticated API.
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Secret: []byte(cfg.JWTSecret),
		}))
	}
	apiV1.Use(middleware.Audit(logger))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	clientHandler.RegisterRoutes(apiV1)
	catalogHandler.RegisterRoutes(apiV1)
	equipmentHandler.RegisterRoutes(apiV1)
	sampleHandler.RegisterRoutes(apiV1)
	assignmentHandler.RegisterRoutes(apiV1)
	qcHandler.RegisterRoutes(apiV1)
	workflowHandler.RegisterRoutes(apiV1)
	inventoryHandler.RegisterRoutes(apiV1)
	coaHandler.RegisterRoutes(apiV1)
	reporting.NewHandler(pool).RegisterRoutes(apiV1)
	notification.NewNotificationHandler(notifier).RegisterRoutes(
		apiV1.Group("", auth.RequireRole("admin", "manager")))

	// Serve until interrupted, then drain in-flight requests.
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
