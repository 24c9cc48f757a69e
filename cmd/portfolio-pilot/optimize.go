package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/iwvelando/portfolio-pilot/internal/lifecycle"
	"github.com/iwvelando/portfolio-pilot/internal/tickers"
	"github.com/iwvelando/portfolio-pilot/internal/view"
	"github.com/iwvelando/portfolio-pilot/pkg/output"
	"github.com/iwvelando/portfolio-pilot/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrOptimizationFailed wraps the failure message of a submission.
var ErrOptimizationFailed = errors.New("optimization failed")

type optimizeOptions struct {
	tickers      string
	investment   string
	outputFormat string
	svgDir       string
}

func newOptimizeCommand(a *app) *cobra.Command {
	opts := &optimizeOptions{}

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize a set of tickers once and print the portfolios",
		Example: "  portfolio-pilot optimize --tickers AAPL,GOOG,MSFT --investment 10000\n" +
			"  portfolio-pilot optimize --output-format csv --svg-dir charts",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.optimize(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.tickers, "tickers", "", "tickers separated by commas or spaces (default from configuration)")
	f.StringVar(&opts.investment, "investment", "", "amount to allocate (default from configuration)")
	f.StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv, yaml, json")
	f.StringVar(&opts.svgDir, "svg-dir", "", "write one SVG pie chart per portfolio into this directory")
	return cmd
}

func (a *app) optimize(cmd *cobra.Command, opts *optimizeOptions) error {
	outputFormat := a.conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	set := tickers.New(a.conf.Defaults.Tickers...)
	if cmd.Flags().Changed("tickers") {
		set = tickers.Parse(opts.tickers)
	}
	investment := a.conf.Defaults.Investment
	if cmd.Flags().Changed("investment") {
		investment = opts.investment
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.conf.Optimizer.Timeout)
	defer cancel()

	state := a.newController(nil).Submit(ctx, set, investment, func(s lifecycle.State) {
		a.logger.Debug("optimization state",
			zap.String("op", "main.optimize"),
			zap.Stringer("state", s),
		)
	})
	if state.Phase == lifecycle.Failure {
		return fmt.Errorf("%w: %s", ErrOptimizationFailed, state.Message)
	}

	cards := view.Cards(state)
	if opts.svgDir != "" {
		if err := writeCharts(opts.svgDir, cards); err != nil {
			return err
		}
	}
	return output.Write(cmd.OutOrStdout(), outputFormat, cards)
}

// writeCharts writes one <slug>.svg per card.
func writeCharts(dir string, cards []view.Card) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create chart directory %s: %w", dir, err)
	}
	used := make(map[string]int)
	for i, card := range cards {
		name := slug(card.Name)
		if name == "" {
			name = fmt.Sprintf("portfolio-%d", i+1)
		}
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		path := filepath.Join(dir, name+".svg")
		if err := os.WriteFile(path, []byte(card.Chart.SVG+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write chart %s: %w", path, err)
		}
	}
	return nil
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
