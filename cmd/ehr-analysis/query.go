package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ehr/analysis/internal/domain/patient"
)

func parseNumber(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", errUsage, name, s)
	}
	return v, nil
}

func olderThanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "older-than <age>",
		Short: "Count patients strictly older than age",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := parseNumber("age", args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd.Context(), func(svc *patient.Service) error {
				n, err := svc.NumOlderThan(cmd.Context(), threshold)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func sickCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sick <lab-name> <'<'|'>'> <value>",
		Short: "List patients with any lab result beyond a threshold",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseNumber("value", args[2])
			if err != nil {
				return err
			}
			return a.withService(cmd.Context(), func(svc *patient.Service) error {
				ids, err := svc.SickPatients(cmd.Context(), args[0], args[1], value)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func ageAtAdmissionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "age-at-admission <patient-id>",
		Short: "Print a patient's age at their earliest lab encounter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), func(svc *patient.Service) error {
				age, err := svc.AgeAtAdmission(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), age)
				return nil
			})
		},
	}
}

func checkLabCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-lab <patient-id> <lab-name> <'<'|'>'> <value>",
		Short: "Report whether one patient has a lab result beyond a threshold",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseNumber("value", args[3])
			if err != nil {
				return err
			}
			return a.withService(cmd.Context(), func(svc *patient.Service) error {
				ok, err := svc.CheckLabValues(cmd.Context(), args[0], args[1], args[2], value)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}
}
