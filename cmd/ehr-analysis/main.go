package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/analysis/internal/config"
	"github.com/ehr/analysis/internal/domain/patient"
	"github.com/ehr/analysis/internal/platform/db"
	"github.com/ehr/analysis/internal/platform/logging"
)

func main() {
	a := newApp()
	if err := newRootCmd(a).Execute(); err != nil {
		a.logger.Error().Err(err).Msg("command failed")
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for bad input and 1 for everything else.
func exitCode(err error) int {
	switch {
	case errors.Is(err, patient.ErrInvalidComparator), errors.Is(err, errUsage):
		return 2
	}
	return 1
}

var errUsage = errors.New("usage")

// app carries the state shared by every subcommand once flags and config are
// resolved.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	asOf   time.Time
}

func newApp() *app {
	return &app{logger: logging.New("info", "console", os.Stderr)}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ehr-analysis",
		Short:         "Query tab-delimited EHR patient and lab exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("patients", "", "Path to the patient export (overrides PATIENT_FILE)")
	flags.String("labs", "", "Path to the lab export (overrides LAB_FILE)")
	flags.String("backend", "", "Dataset backend: memory or postgres (overrides BACKEND)")
	flags.String("as-of", "", "Reference date YYYY-MM-DD for ages (overrides REFERENCE_DATE)")
	flags.String("log-level", "", "Log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(olderThanCmd(a))
	rootCmd.AddCommand(sickCmd(a))
	rootCmd.AddCommand(ageAtAdmissionCmd(a))
	rootCmd.AddCommand(checkLabCmd(a))
	rootCmd.AddCommand(generateCmd(a))
	rootCmd.AddCommand(loadCmd(a))
	rootCmd.AddCommand(migrateCmd(a))
	rootCmd.AddCommand(exportCmd(a))
	rootCmd.AddCommand(reportCmd(a))
	rootCmd.AddCommand(dedupCmd(a))

	return rootCmd
}

// configure loads config, applies flag overrides and builds the logger.
func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	overrides := map[string]*string{
		"patients":  &cfg.PatientFile,
		"labs":      &cfg.LabFile,
		"backend":   &cfg.Backend,
		"as-of":     &cfg.ReferenceDate,
		"log-level": &cfg.LogLevel,
	}
	for name, dst := range overrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	asOf, err := cfg.AsOf()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.asOf = asOf
	a.logger = logging.New(cfg.LogLevel, cfg.ResolvedLogFormat(), cmd.ErrOrStderr())
	return nil
}

// clock returns the service clock: the configured reference date, or nil for
// the current time.
func (a *app) clock() func() time.Time {
	if a.asOf.IsZero() {
		return nil
	}
	asOf := a.asOf
	return func() time.Time { return asOf }
}

func (a *app) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is required", errUsage)
	}
	pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Msg("connected to database")
	return pool, nil
}

// openRepo returns the configured backend and a function releasing it.
func (a *app) openRepo(ctx context.Context) (patient.PatientRepository, func(), error) {
	switch a.cfg.Backend {
	case config.BackendPostgres:
		pool, err := a.connect(ctx)
		if err != nil {
			return nil, nil, err
		}
		return patient.NewPatientRepoPG(pool), pool.Close, nil
	default:
		patients, err := patient.ParseData(a.cfg.PatientFile, a.cfg.LabFile)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Debug().
			Str("patient_file", a.cfg.PatientFile).
			Str("lab_file", a.cfg.LabFile).
			Int("patients", len(patients)).
			Msg("dataset parsed")
		return patient.NewMemoryRepo(patients), func() {}, nil
	}
}

// withService opens the backend, runs fn and releases the backend.
func (a *app) withService(ctx context.Context, fn func(svc *patient.Service) error) error {
	repo, release, err := a.openRepo(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(patient.NewService(repo, a.logger, a.clock()))
}
