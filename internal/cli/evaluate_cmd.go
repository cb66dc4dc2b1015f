package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newEvaluateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <assessment-id>",
		Short: "Print the compliance summary of an assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(ctx context.Context, s *Session) error {
				sum, err := s.Assessments.Evaluate(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), sum)
			})
		},
	}
}

func newAuditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <assessment-id>",
		Short: "Print the audit trail of an assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(ctx context.Context, s *Session) error {
				events, err := s.Assessments.AuditTrail(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), events)
			})
		},
	}
}
