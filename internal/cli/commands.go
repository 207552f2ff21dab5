// Package cli provides the command line interface of the intake service.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/portfolio-intake/internal/config"
	"github.com/aristath/portfolio-intake/internal/modules/catalog"
	"github.com/aristath/portfolio-intake/internal/modules/form"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "portfolio-intake",
		Short: "Portfolio optimization intake service",
		Long: `portfolio-intake collects a candidate portfolio, weight bounds and an optimization method,
validates them and hands the assembled request to the optimization backend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: run the HTTP service
			return runServe(cmd.Context(), cfg)
		},
	}

	rootCmd.AddCommand(newServeCmd(&cfg))
	rootCmd.AddCommand(newCheckCSVCmd(&cfg))
	rootCmd.AddCommand(newValidateCmd(&cfg))

	return rootCmd
}

// newServeCmd creates the serve command
func newServeCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfg)
		},
	}
}

// newCheckCSVCmd creates the check-csv command
func newCheckCSVCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check-csv [FILE]",
		Short: "Check a price history CSV the way an upload is checked",
		Long: `Run the upload checks and the CSV parser on a local file and print the resulting
ticker catalog with per-ticker statistics.
Example: portfolio-intake check-csv prices.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckCSV(cmd.Context(), cmd.OutOrStdout(), args[0], (*cfg).MaxUploadBytes)
		},
	}
}

// newValidateCmd creates the validate command
func newValidateCmd(cfg **config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [PAYLOAD.json]",
		Short: "Validate an optimization request payload",
		Long: `Decode a JSON payload and validate it with the rules applied at submission.
Every violation is printed; the command fails when there is at least one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, _ := cmd.Flags().GetBool("draft")
			rules := form.Rules{
				MinPortfolioSize:        (*cfg).MinPortfolioSize,
				EnforceMinPortfolioSize: (*cfg).EnforceMinPortfolioSize,
				UniqueTickers:           (*cfg).UniqueTickers,
			}
			return runValidate(cmd.OutOrStdout(), args[0], rules, !draft)
		},
	}

	cmd.Flags().Bool("draft", false, "Skip the minimum portfolio size check")

	return cmd
}

// runCheckCSV loads path as an upload would and prints its catalog
func runCheckCSV(ctx context.Context, out io.Writer, path string, maxBytes int64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	file := catalog.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        int64(len(data)),
		Data:        data,
	}
	if err := catalog.CheckUpload([]catalog.File{file}, maxBytes); err != nil {
		return printRejection(out, err)
	}

	dataset, err := catalog.ParseCSV(ctx, bytes.NewReader(data))
	if err != nil {
		return printRejection(out, err)
	}

	fmt.Fprintf(out, "%s: %d rows, %d tickers\n\n", file.Name, len(dataset.Records), len(dataset.Tickers))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tOBS\tFIRST\tLAST\tMEAN RETURN\tANN. VOLATILITY")
	for _, s := range catalog.Summarize(dataset) {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%.6f\t%.4f\n",
			s.Ticker, s.Observations, s.FirstDate, s.LastDate, s.MeanReturn, s.AnnualizedVolatility)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, catalog.MsgReady)
	return nil
}

func printRejection(out io.Writer, err error) error {
	var rejection *catalog.RejectionError
	if !errors.As(err, &rejection) {
		return err
	}
	for _, msg := range rejection.Messages() {
		fmt.Fprintf(out, "✗ %s\n", msg)
	}
	return rejection
}

// runValidate decodes the payload at path and prints every violation
func runValidate(out io.Writer, path string, rules form.Rules, submitting bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var payload form.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}

	errs := form.Validate(payload, rules, submitting)
	if len(errs) == 0 {
		fmt.Fprintf(out, "✓ Payload is valid (%d securities)\n", len(payload.Stocks))
		return nil
	}

	for _, fe := range errs {
		fmt.Fprintf(out, "✗ %s: %s\n", fe.Path, fe.Message)
	}
	return errs
}
