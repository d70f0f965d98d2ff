// Command o2dctl reads the FMS sheet directly and prints dashboard
// figures or writes the report file, without running the server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"o2d-backend/internal/config"
	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/logging"
	"o2d-backend/internal/sheets"
	"o2d-backend/internal/snapshot"
)

type options struct {
	scriptURL  string
	sheet      string
	layoutFile string
	timeout    time.Duration
	verbose    bool

	party       string
	state       string
	salesperson string
	item        string
	from        string
	to          string
}

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "o2dctl",
		Short:        "Order-to-dispatch dashboard tools",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.scriptURL, "script-url", cfg.ScriptURL, "Apps Script web app URL (or set SCRIPT_URL)")
	pf.StringVar(&opts.sheet, "sheet", cfg.FMSSheet, "FMS sheet name")
	pf.StringVar(&opts.layoutFile, "layout", cfg.LayoutFile, "YAML sheet layout file")
	pf.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Upstream timeout")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	pf.StringVar(&opts.party, "party", "", "Filter by party name")
	pf.StringVar(&opts.state, "state", "", "Filter by state")
	pf.StringVar(&opts.salesperson, "salesperson", "", "Filter by salesperson")
	pf.StringVar(&opts.item, "item", "", "Filter by item name")
	pf.StringVar(&opts.from, "from", "", "From date (dd/mm/yyyy or yyyy-mm-dd)")
	pf.StringVar(&opts.to, "to", "", "To date (dd/mm/yyyy or yyyy-mm-dd)")

	root.AddCommand(newMetricsCmd(opts), newTopCmd(opts), newReportCmd(opts))
	return root
}

func (o *options) criteria() (dispatch.Criteria, error) {
	from, err := dispatch.ParseDateBound(o.from)
	if err != nil {
		return dispatch.Criteria{}, fmt.Errorf("--from: %w", err)
	}
	to, err := dispatch.ParseDateBound(o.to)
	if err != nil {
		return dispatch.Criteria{}, fmt.Errorf("--to: %w", err)
	}
	if from != nil && to != nil && to.Before(*from) {
		return dispatch.Criteria{}, fmt.Errorf("--to is before --from")
	}
	return dispatch.Criteria{
		Party:       o.party,
		State:       o.state,
		Salesperson: o.salesperson,
		Item:        o.item,
		From:        from,
		To:          to,
	}, nil
}

// load fetches the sheet once and returns the parsed records.
func (o *options) load(ctx context.Context) ([]dispatch.Record, error) {
	if o.scriptURL == "" {
		return nil, config.ErrMissingScriptURL
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log, err := logging.New(level, "console")
	if err != nil {
		return nil, err
	}
	defer func() { _ = log.Sync() }()

	layout, err := dispatch.LoadLayout(o.layoutFile)
	if err != nil {
		return nil, err
	}
	if o.layoutFile == "" {
		layout.Sheet = o.sheet
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	client := sheets.NewClient(o.scriptURL, &http.Client{Timeout: o.timeout}, log)
	snap, err := snapshot.NewService(client, snapshot.NewMemoryStore(), layout, log).Refresh(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug("sheet loaded", zap.Int("records", len(snap.Records)))
	return snap.Records, nil
}
