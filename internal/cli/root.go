// Package cli implements sglgbctl, the operator tool for one-off scheduler
// scans, evaluations and catalog checks.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"sglgb/internal/compliance"
	"sglgb/internal/scheduler"
	audit "sglgb/pkg/platform/audit"
)

//go:generate mockgen -source=root.go -destination=mocks/mocks.go -package=mocks Assessments,Scanner

// Assessments is the read side the CLI reports on.
type Assessments interface {
	Evaluate(ctx context.Context, id string) (compliance.Summary, error)
	AuditTrail(ctx context.Context, id string) ([]audit.Event, error)
}

// Scanner runs a single scheduler pass.
type Scanner interface {
	Reminders(ctx context.Context, now time.Time) (scheduler.ScanReport, error)
	AutoSubmit(ctx context.Context, now time.Time) (scheduler.ScanReport, error)
}

// Session is a connected set of backends, released by Close.
type Session struct {
	Assessments Assessments
	Scanner     Scanner
	Close       func() error
}

// App holds what commands need. Connect is only called by commands that
// touch stored assessments.
type App struct {
	Connect func(ctx context.Context) (*Session, error)
	Now     func() time.Time
}

// NewRootCmd creates the top-level "sglgbctl" command.
func NewRootCmd(app *App) *cobra.Command {
	if app.Now == nil {
		app.Now = time.Now
	}
	root := &cobra.Command{
		Use:           "sglgbctl",
		Short:         "Operate the SGLGB assessment service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newScanCmd(app),
		newEvaluateCmd(app),
		newAuditCmd(app),
		newCatalogCmd(),
		newPolicyCmd(),
	)
	return root
}

func withSession(cmd *cobra.Command, app *App, fn func(ctx context.Context, s *Session) error) error {
	ctx := cmd.Context()
	s, err := app.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if s.Close != nil {
			_ = s.Close()
		}
	}()
	return fn(ctx, s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
