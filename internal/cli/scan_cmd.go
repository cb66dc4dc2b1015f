package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sglgb/internal/scheduler"
)

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one deadline scan now",
	}
	cmd.AddCommand(
		newScanSubCmd(app, "reminders", "Send due deadline reminders", Scanner.Reminders),
		newScanSubCmd(app, "autosubmit", "Auto-submit drafts past their deadline", Scanner.AutoSubmit),
	)
	return cmd
}

func newScanSubCmd(app *App, use, short string, run func(Scanner, context.Context, time.Time) (scheduler.ScanReport, error)) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := app.Now().UTC()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--now must be RFC3339: %w", err)
				}
				now = parsed
			}
			return withSession(cmd, app, func(ctx context.Context, s *Session) error {
				report, err := run(s.Scanner, ctx, now)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.String())
				if report.Failed > 0 {
					return fmt.Errorf("%d assessments failed", report.Failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "now", "", "Evaluate deadlines as of this RFC3339 instant")
	return cmd
}
