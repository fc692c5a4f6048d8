package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stock-alerter/internal/indicators"
	"stock-alerter/internal/models"
)

// addMarketCommands adds market-data inspection commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newIndicatorCmd(app))
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol> [symbol...]",
		Short: "Show the latest quote for one or more symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var quotes []models.Quote
			for _, symbol := range args {
				q, err := app.Provider.GetLatestQuote(cmd.Context(), strings.ToUpper(symbol))
				if err != nil {
					output.Warning("%s: %v", strings.ToUpper(symbol), err)
					continue
				}
				quotes = append(quotes, q)
			}
			if len(quotes) == 0 {
				return nil
			}

			if output.IsJSON() {
				return output.JSON(quotes)
			}
			table := NewTable(output, "SYMBOL", "PRICE", "VOLUME")
			for _, q := range quotes {
				table.AddRow(q.Symbol, formatPrice(q.Price), formatVolume(q.Volume))
			}
			table.Render()
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "history <symbol>",
		Short: "Show recent daily bars for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])

			history, err := app.Provider.GetHistory(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			if last > 0 && len(history) > last {
				history = history[len(history)-last:]
			}

			if output.IsJSON() {
				return output.JSON(history)
			}
			if len(history) == 0 {
				output.Dim("No history for %s.", symbol)
				return nil
			}

			table := NewTable(output, "DATE", "CLOSE", "VOLUME")
			for _, q := range history {
				table.AddRow(q.Timestamp.Format("2006-01-02"), formatPrice(q.Price), formatVolume(q.Volume))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&last, "last", "l", 20, "number of bars to show (0 for all)")
	return cmd
}

func newIndicatorCmd(app *App) *cobra.Command {
	var emaPeriod, rsiPeriod int

	cmd := &cobra.Command{
		Use:   "indicators <symbol>",
		Short: "Show indicator values for a symbol",
		Long: `Fetch the symbol's daily history and print the same EMA and RSI
values alert evaluation would see.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])

			history, err := app.Provider.GetHistory(cmd.Context(), symbol)
			if err != nil {
				return err
			}

			type value struct {
				Indicator string  `json:"indicator"`
				Value     float64 `json:"value,omitempty"`
				Error     string  `json:"error,omitempty"`
			}
			var values []value
			for _, ind := range []interface {
				Name() string
				Calculate(quotes []models.Quote) (float64, error)
			}{
				indicators.NewEMA(emaPeriod),
				indicators.NewRSI(rsiPeriod),
			} {
				v, err := ind.Calculate(history)
				if err != nil {
					values = append(values, value{Indicator: ind.Name(), Error: err.Error()})
					continue
				}
				values = append(values, value{Indicator: ind.Name(), Value: v})
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol": symbol,
					"bars":   len(history),
					"values": values,
				})
			}

			output.Bold("%s (%d daily bars)", symbol, len(history))
			for _, v := range values {
				if v.Error != "" {
					output.Warning("  %-10s %s", v.Indicator, v.Error)
					continue
				}
				output.Printf("  %-10s %.2f\n", v.Indicator, v.Value)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&emaPeriod, "ema", 50, "EMA period")
	cmd.Flags().IntVar(&rsiPeriod, "rsi", 14, "RSI period")
	return cmd
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

func formatVolume(v int64) string {
	return strconv.FormatInt(v, 10)
}
