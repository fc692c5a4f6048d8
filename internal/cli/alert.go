package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apperrors "stock-alerter/internal/errors"
	"stock-alerter/internal/expr"
	"stock-alerter/internal/models"
)

// addAlertCommands adds alert management commands.
func addAlertCommands(rootCmd *cobra.Command, app *App) {
	alertCmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage alerts",
		Long:  "Create, list, update and delete alert expressions.",
	}

	alertCmd.AddCommand(newAlertAddCmd(app))
	alertCmd.AddCommand(newAlertListCmd(app))
	alertCmd.AddCommand(newAlertShowCmd(app))
	alertCmd.AddCommand(newAlertRemoveCmd(app))
	alertCmd.AddCommand(newAlertEnableCmd(app, true))
	alertCmd.AddCommand(newAlertEnableCmd(app, false))
	alertCmd.AddCommand(newAlertCheckCmd(app))

	rootCmd.AddCommand(alertCmd)
}

func requireService(app *App) error {
	if app.Service == nil {
		return apperrors.Wrap(apperrors.ErrDatabaseError, "alert store unavailable")
	}
	return nil
}

func newAlertAddCmd(app *App) *cobra.Command {
	var name, description string
	var sendEmail bool

	cmd := &cobra.Command{
		Use:   "add <expression>",
		Short: "Create a new alert",
		Long: `Create a new alert from an expression.

Examples:
  alerter alert add "PRICE(AAPL) > 200" --name "AAPL breakout"
  alerter alert add "EMA(50,MSFT) > EMA(200,MSFT)" --name "MSFT golden cross" --email
  alerter alert add "30 < RSI(14,TSLA) < 70"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			expression := args[0]
			if name == "" {
				name = expression
			}

			created, err := app.Service.CreateAlert(cmd.Context(), name, description, expression, sendEmail)
			if err != nil {
				if apperrors.IsParseError(err) {
					output.Error("Invalid expression: %v", err)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(created)
			}
			output.Success("Alert created: %s", created.ID)
			output.Printf("  Name:       %s\n", created.Name)
			output.Printf("  Expression: %s\n", created.Expression)
			output.Printf("  Email:      %v\n", created.SendEmail)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "alert name (defaults to the expression)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "alert description, used as the notification body")
	cmd.Flags().BoolVarP(&sendEmail, "email", "e", false, "send an email when the alert triggers")
	return cmd
}

func newAlertListCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			alerts, err := app.Service.GetAlerts(cmd.Context(), !all)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(alerts)
			}
			if len(alerts) == 0 {
				output.Dim("No alerts. Create one with 'alerter alert add'.")
				return nil
			}

			table := NewTable(output, "ID", "NAME", "EXPRESSION", "STATUS", "EMAIL")
			for _, a := range alerts {
				email := ""
				if a.SendEmail {
					email = "yes"
				}
				table.AddRow(shortID(a.ID), a.Name, a.Expression, output.StatusText(a.Active), email)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include inactive alerts")
	return cmd
}

func newAlertShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			found, err := resolveAlert(cmd, app, args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(found)
			}
			output.Bold(found.Name)
			output.Printf("  ID:          %s\n", found.ID)
			if found.Description != "" {
				output.Printf("  Description: %s\n", found.Description)
			}
			output.Printf("  Expression:  %s\n", found.Expression)
			output.Printf("  Status:      %s\n", output.StatusText(found.Active))
			output.Printf("  Email:       %v\n", found.SendEmail)
			output.Printf("  Created:     %s\n", found.CreatedAt.Format(time.RFC3339))
			output.Printf("  Updated:     %s\n", found.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newAlertRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete an alert",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			id, err := expandID(cmd, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Service.DeleteAlertByID(cmd.Context(), id); err != nil {
				return err
			}
			output.Success("Alert deleted")
			return nil
		},
	}
}

func newAlertEnableCmd(app *App, enable bool) *cobra.Command {
	use, short := "enable <id>", "Enable an alert"
	if !enable {
		use, short = "disable <id>", "Disable an alert"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			id, err := expandID(cmd, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Service.SetActive(cmd.Context(), id, enable); err != nil {
				return err
			}
			if enable {
				output.Success("Alert enabled")
			} else {
				output.Success("Alert disabled")
			}
			return nil
		},
	}
}

// newAlertCheckCmd validates an expression without storing anything.
func newAlertCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <expression>",
		Short: "Validate an alert expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			tree, err := expr.Parse(args[0])
			if err != nil {
				if output.IsJSON() {
					output.JSON(map[string]interface{}{"valid": false, "error": err.Error()})
					return nil
				}
				output.Error("Invalid: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"valid":      true,
					"normalized": tree.String(),
					"symbols":    tree.Symbols(),
				})
			}
			output.Success("Valid")
			output.Printf("  Normalized: %s\n", tree.String())
			output.Printf("  Symbols:    %v\n", tree.Symbols())
			return nil
		},
	}
}

// resolveAlert finds an alert by full or prefix ID.
func resolveAlert(cmd *cobra.Command, app *App, id string) (*models.Alert, error) {
	fullID, err := expandID(cmd, app, id)
	if err != nil {
		return nil, err
	}
	found, err := app.Service.FindAlert(cmd.Context(), fullID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, apperrors.ErrAlertNotFound
	}
	return found, nil
}

// expandID resolves an ID prefix against the stored alerts so short
// prefixes of the UUID work on the command line.
func expandID(cmd *cobra.Command, app *App, id string) (string, error) {
	alerts, err := app.Service.GetAlerts(cmd.Context(), false)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, a := range alerts {
		if a.ID == id {
			return id, nil
		}
		if len(id) >= 4 && len(id) < len(a.ID) && a.ID[:len(id)] == id {
			matches = append(matches, a.ID)
		}
	}
	switch len(matches) {
	case 0:
		return id, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous alert ID %q matches %d alerts", id, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
