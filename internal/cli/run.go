package cli

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stock-alerter/internal/alert"
)

// addRunCommands adds evaluation commands.
func addRunCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newRunsCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Evaluate all active alerts once",
		Long: `Evaluate every active alert against current market data.

Triggered alerts are printed and, when configured, notifications are
dispatched. Alerts that fail to parse or evaluate are reported without
stopping the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			result, err := app.Service.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printRunResult(output, result)
		},
	}
}

func newWatchCmd(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Evaluate alerts on a schedule until interrupted",
		Long: `Run the evaluation loop in the foreground. Alerts are evaluated
immediately and then on every interval tick. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			if interval <= 0 {
				interval = app.Config.Schedule.Interval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			output.Info("Watching alerts every %s, Ctrl-C to stop", interval)
			scheduler := alert.NewScheduler(app.Service, interval, app.Logger)
			if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			output.Println()
			output.Dim("Stopped.")
			return nil
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "evaluation interval (default from config)")
	return cmd
}

func newRunsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent evaluation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			runs, err := app.Service.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("No runs recorded yet.")
				return nil
			}

			table := NewTable(output, "RUN", "STARTED", "DURATION", "CHECKED", "TRIGGERED", "ERRORS")
			for _, r := range runs {
				table.AddRow(
					shortID(r.ID),
					r.StartedAt.Format("2006-01-02 15:04:05"),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
					formatInt(r.AlertsChecked),
					formatInt(r.Notifications),
					formatInt(r.Errors),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "number of runs to show")
	return cmd
}

func printRunResult(output *Output, result *alert.RunResult) error {
	if output.IsJSON() {
		type failure struct {
			AlertID string `json:"alert_id"`
			Error   string `json:"error"`
		}
		payload := struct {
			RunID         string         `json:"run_id"`
			AlertsChecked int            `json:"alerts_checked"`
			Triggered     []alertSummary `json:"triggered"`
			EvalFailures  []failure      `json:"eval_failures,omitempty"`
			SendFailures  []failure      `json:"send_failures,omitempty"`
			Duration      string         `json:"duration"`
		}{
			RunID:         result.RunID,
			AlertsChecked: result.AlertsChecked,
			Duration:      result.FinishedAt.Sub(result.StartedAt).String(),
		}
		for _, n := range result.Notifications {
			payload.Triggered = append(payload.Triggered, alertSummary{
				ID: n.Alert.ID, Name: n.Alert.Name, Expression: n.Alert.Expression,
			})
		}
		for id, err := range result.EvalErrors {
			payload.EvalFailures = append(payload.EvalFailures, failure{AlertID: id, Error: err.Error()})
		}
		for id, err := range result.SendErrors {
			payload.SendFailures = append(payload.SendFailures, failure{AlertID: id, Error: err.Error()})
		}
		return output.JSON(payload)
	}

	output.Printf("Checked %d alerts in %s\n",
		result.AlertsChecked, result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	if len(result.Notifications) == 0 {
		output.Dim("No alerts triggered.")
	}
	for _, n := range result.Notifications {
		output.Success("TRIGGERED  %s  %s", n.Alert.Name, output.DimText(n.Alert.Expression))
	}
	for id, err := range result.EvalErrors {
		output.Warning("FAILED     %s  %v", shortID(id), err)
	}
	for id, err := range result.SendErrors {
		output.Error("SEND ERROR %s  %v", shortID(id), err)
	}
	return nil
}

type alertSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}
