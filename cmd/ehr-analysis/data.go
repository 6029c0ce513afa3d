package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehr/analysis/internal/config"
	"github.com/ehr/analysis/internal/domain/patient"
	"github.com/ehr/analysis/internal/platform/fhir"
	"github.com/ehr/analysis/internal/platform/reporting"
	"github.com/ehr/analysis/internal/platform/sandbox"
	"github.com/ehr/analysis/pkg/dedup"
)

func generateCmd(a *app) *cobra.Command {
	defaults := sandbox.DefaultSeedConfig()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic patient and lab exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := sandbox.DefaultSeedConfig()
			cfg.PatientCount, _ = cmd.Flags().GetInt("count")
			cfg.LabsPerPatient, _ = cmd.Flags().GetInt("labs-per-patient")
			cfg.Seed, _ = cmd.Flags().GetUint64("seed")
			outDir, _ := cmd.Flags().GetString("out-dir")

			seeder := sandbox.NewSeeder(cfg)
			result, err := seeder.Generate()
			if err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			patientPath, labPath, err := seeder.WriteFiles(outDir)
			if err != nil {
				return err
			}

			a.logger.Info().
				Int("patients", result.Patients).
				Int("labs", result.Labs).
				Uint64("seed", cfg.Seed).
				Dur("elapsed", result.Duration).
				Msg("synthetic dataset generated")
			fmt.Fprintln(cmd.OutOrStdout(), patientPath)
			fmt.Fprintln(cmd.OutOrStdout(), labPath)
			return nil
		},
	}
	cmd.Flags().Int("count", defaults.PatientCount, "Number of patients")
	cmd.Flags().Int("labs-per-patient", defaults.LabsPerPatient, "Lab results per patient")
	cmd.Flags().Uint64("seed", 0, "Random seed; 0 picks one")
	cmd.Flags().String("out-dir", ".", "Directory for PatientData.txt and LabData.txt")
	return cmd
}

func loadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Replace the PostgreSQL dataset with the patient and lab exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Backend != config.BackendPostgres {
				return fmt.Errorf("%w: load requires --backend postgres", errUsage)
			}
			ctx := cmd.Context()
			pool, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := patient.Import(ctx, patient.NewPatientRepoPG(pool), a.cfg.PatientFile, a.cfg.LabFile, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d patient(s).\n", n)
			return nil
		},
	}
}

// openOutput returns stdout for "" or "-", otherwise a newly created file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dataset as FHIR NDJSON or an XLSX workbook",
	}

	fhirCmd := &cobra.Command{
		Use:   "fhir",
		Short: "Write Patient and Observation resources as NDJSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return a.withService(cmd.Context(), func(svc *patient.Service) error {
				patients, err := svc.Patients(cmd.Context())
				if err != nil {
					return err
				}
				w, closeOut, err := openOutput(cmd, out)
				if err != nil {
					return err
				}
				n, err := writeFHIR(w, patients)
				if err != nil {
					closeOut()
					return err
				}
				if err := closeOut(); err != nil {
					return err
				}
				a.logger.Info().Int("resources", n).Str("out", out).Msg("fhir export written")
				return nil
			})
		},
	}
	fhirCmd.Flags().String("out", "-", "Output file, - for stdout")
	cmd.AddCommand(fhirCmd)

	xlsxCmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Write a patient and lab summary workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return a.withService(cmd.Context(), func(svc *patient.Service) error {
				patients, err := svc.Patients(cmd.Context())
				if err != nil {
					return err
				}
				data, err := reporting.Workbook(patients, svc.Today())
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				a.logger.Info().Int("patients", len(patients)).Str("out", out).Msg("workbook written")
				return nil
			})
		},
	}
	xlsxCmd.Flags().String("out", "ehr-report.xlsx", "Output file")
	cmd.AddCommand(xlsxCmd)

	return cmd
}

// writeFHIR writes every patient followed by its observations.
func writeFHIR(w io.Writer, patients []*patient.Patient) (int, error) {
	nd := fhir.NewNDJSONWriter(w)
	for _, p := range patients {
		if err := nd.WriteResource(p.ToFHIR()); err != nil {
			return nd.Count(), err
		}
		for _, l := range p.Labs {
			if err := nd.WriteResource(l.ToFHIR()); err != nil {
				return nd.Count(), err
			}
		}
	}
	return nd.Count(), nd.Flush()
}

func reportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report [measure-id]",
		Short: "List reporting measures, or evaluate one as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if len(args) == 0 {
				return enc.Encode(reporting.PredefinedMeasures)
			}
			return a.withService(cmd.Context(), func(svc *patient.Service) error {
				patients, err := svc.Patients(cmd.Context())
				if err != nil {
					return err
				}
				report, err := reporting.Evaluate(args[0], patients, svc.Today())
				if err != nil {
					return fmt.Errorf("%w: %v", errUsage, err)
				}
				return enc.Encode(report)
			})
		},
	}
}

func dedupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dedup <file>",
		Short: "Print the distinct lines of a file in first-seen order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			var lines []string
			sc := bufio.NewScanner(f)
			for sc.Scan() {
				lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
			}
			if err := sc.Err(); err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			unique := dedup.Dedup(lines)
			for _, line := range unique {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			a.logger.Debug().Int("lines", len(lines)).Int("unique", len(unique)).Msg("dedup")
			return nil
		},
	}
}
