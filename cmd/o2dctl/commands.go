package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/models"
	"o2d-backend/internal/report"
)

func newMetricsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the dashboard metrics for the filter flags as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := opts.criteria()
			if err != nil {
				return err
			}
			records, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			summary, _ := dispatch.Summarize(records, criteria)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"total_records":   summary.TotalRecords,
				"metrics":         summary.Metrics,
				"applied_filters": summary.Applied,
			})
		},
	}
}

func newTopCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the top customers by amount as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}
			criteria, err := opts.criteria()
			if err != nil {
				return err
			}
			records, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			top := dispatch.TopCustomers(dispatch.Filter(records, criteria), limit)
			return printJSON(cmd.OutOrStdout(), top)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of customers")
	return cmd
}

func newReportCmd(opts *options) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the dashboard report file",
		Long:  `Renders the same report as GET /api/dashboard/report. Without --out the file is written to the current directory under its default name; "-" writes to stdout.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			criteria, err := opts.criteria()
			if err != nil {
				return err
			}
			records, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}

			data := report.Build(time.Now(), criteria, records)
			body := &bytes.Buffer{}
			switch f {
			case models.ReportFormatXLSX:
				if body, err = report.RenderXLSX(data); err != nil {
					return err
				}
			default:
				if err := report.RenderHTML(body, data); err != nil {
					return err
				}
			}

			if out == "-" {
				_, err := body.WriteTo(cmd.OutOrStdout())
				return err
			}
			if out == "" {
				out = report.FileName(data.GeneratedAt, f)
			}
			if err := os.WriteFile(out, body.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d records)\n", out, data.TotalRecords)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "html", "Report format: html or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", `Output file ("-" for stdout)`)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
