package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shiftmatch/application"
	"shiftmatch/domain"
	"shiftmatch/infrastructure"
	"shiftmatch/interfaces"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// env is filled by the root command before any subcommand runs.
type env struct {
	cfg    *infrastructure.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "shiftmatch",
		Short:        "Care-staff shift matching API, notification worker and scheduler.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := infrastructure.LoadConfig()
			if err != nil {
				return err
			}
			logger, err := infrastructure.NewLogger(cfg.LogLevel, cfg.LogFormat, "shiftmatch-"+cmd.Name())
			if err != nil {
				return err
			}
			e.cfg, e.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	root.AddCommand(
		serveCmd(e),
		workerCmd(e),
		schedulerCmd(e),
		importWagesCmd(e),
		seedCmd(e),
		assignEmergencyCodesCmd(e),
	)
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd(e *env) *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.db != nil && e.cfg.DBSeed {
				if err := infrastructure.SeedDatabase(ctx, a.db, "", "", e.logger); err != nil {
					return err
				}
			}
			if e.cfg.Production() {
				gin.SetMode(gin.ReleaseMode)
			}
			router := interfaces.NewRouter(a.services, interfaces.RouterOptions{
				CronSecret:   e.cfg.CronSecret,
				Production:   e.cfg.Production(),
				SecureCookie: e.cfg.Production(),
				Metrics:      a.metrics,
				Logger:       e.logger,
			})
			srv := &http.Server{
				Addr:              e.cfg.HTTPAddr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			var wg sync.WaitGroup
			if withWorker && a.rabbit != nil {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := a.rabbit.Consume(ctx, 1, a.dispatcher.Handle); err != nil {
						e.logger.Error("notification consumer stopped", zap.Error(err))
					}
				}()
			}
			if e.cfg.SchedulerEnabled {
				sched, err := a.newScheduler()
				if err != nil {
					return err
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					sched.Run(ctx)
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				e.logger.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				stop()
				wg.Wait()
				return err
			case <-ctx.Done():
			}
			e.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = srv.Shutdown(shutdownCtx)
			wg.Wait()
			return err
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "also consume the notification queue in this process")
	return cmd
}

func workerCmd(e *env) *cobra.Command {
	var prefetch int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume the notification email queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.rabbit == nil {
				return errors.New("worker needs RabbitMQ; DB_DRIVER=memory delivers notifications inline")
			}
			e.logger.Info("notification worker started", zap.String("queue", infrastructure.NotificationQueueName))
			return a.rabbit.Consume(ctx, prefetch, a.dispatcher.Handle)
		},
	}
	cmd.Flags().IntVar(&prefetch, "prefetch", 4, "unacked deliveries per consumer")
	return cmd
}

func schedulerCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the periodic jobs on Japan time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			sched, err := a.newScheduler()
			if err != nil {
				return err
			}
			sched.Run(ctx)
			return nil
		},
	}
}

var cliActor = application.Actor{Type: domain.AccountSystemAdmin, Name: "cli"}

func importWagesCmd(e *env) *cobra.Command {
	var file, effectiveFrom string
	cmd := &cobra.Command{
		Use:   "import-wages",
		Short: "Import minimum wages from a CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			effective := domain.StartOfDayJST(time.Now())
			if effectiveFrom != "" {
				if effective, err = domain.ParseJSTDate(effectiveFrom); err != nil {
					return fmt.Errorf("--effective-from must be YYYY-MM-DD: %w", err)
				}
			}

			a, err := newApp(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.services.MinimumWages.Import(ctx, string(data), effective, cliActor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows\n", res.Imported)
			for _, row := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %s (%s)\n", row.Line, row.Reason, row.Content)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file with 都道府県,時給[,適用開始日]")
	cmd.Flags().StringVar(&effectiveFrom, "effective-from", "", "default effective date (YYYY-MM-DD), today when empty")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func seedCmd(e *env) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert notification templates and the first system admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if e.cfg.DBDriver == "memory" {
				return errors.New("seed needs a SQL database")
			}
			var hash string
			if email != "" {
				if len(password) < 8 {
					return errors.New("--admin-password must be at least 8 characters")
				}
				var err error
				if hash, err = application.HashPassword(password); err != nil {
					return err
				}
			}
			a, err := newApp(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return infrastructure.SeedDatabase(ctx, a.db, email, hash, e.logger)
		},
	}
	cmd.Flags().StringVar(&email, "admin-email", os.Getenv("SEED_ADMIN_EMAIL"), "system admin to create when none exists")
	cmd.Flags().StringVar(&password, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "password for --admin-email")
	return cmd
}

func assignEmergencyCodesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "assign-emergency-codes",
		Short: "Give every facility an emergency check-in code and QR token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.services.Attendance.AssignEmergencyCodes(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d facilities, %d failed\n", res.Updated, len(res.Failed))
			return nil
		},
	}
}
