package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"laundry-branch-monitor/config"
	"laundry-branch-monitor/internal/sim"
)

// dayFile is the input of the simulate command. JSON files are read with
// the same decoder since JSON is valid YAML.
type dayFile struct {
	Timezone       string        `yaml:"timezone"`
	Now            string        `yaml:"now"`
	DefaultWashers int           `yaml:"default_washers"`
	DefaultDryers  int           `yaml:"default_dryers"`
	Machines       []sim.Machine `yaml:"machines"`
	Transactions   []sim.Record  `yaml:"transactions"`
}

func newSimulateCmd() *cobra.Command {
	var (
		file   string
		now    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Compute the machine board of a day file",
		Long: `Compute the machine board of a day file at a given instant.

Examples:
  laundrysim simulate --file day.yaml
  laundrysim simulate --file day.json --now 2026-10-19T10:05:00+07:00 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := readDayFile(file)
			if err != nil {
				return err
			}
			if now != "" {
				day.Now = now
			}
			res, err := simulate(day)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case "table":
				return writeTable(cmd.OutOrStdout(), res)
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "day file (YAML or JSON)")
	cmd.Flags().StringVar(&now, "now", "", "instant to simulate at, RFC3339 (default: file value or current time)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readDayFile(path string) (*dayFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var day dayFile
	if err := yaml.NewDecoder(f).Decode(&day); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &day, nil
}

func simulate(day *dayFile) (*sim.Result, error) {
	tz := day.Timezone
	if tz == "" {
		tz = "Asia/Jakarta"
	}
	loc := config.Location(tz)

	at := time.Now()
	if day.Now != "" {
		parsed, err := time.Parse(time.RFC3339, day.Now)
		if err != nil {
			return nil, fmt.Errorf("invalid now %q: %w", day.Now, err)
		}
		at = parsed
	}

	washers, dryers := day.DefaultWashers, day.DefaultDryers
	if washers <= 0 {
		washers = 5
	}
	if dryers <= 0 {
		dryers = 5
	}

	return sim.Run(sim.Input{
		Records:        day.Transactions,
		Machines:       day.Machines,
		Location:       loc,
		Now:            at,
		DefaultWashers: washers,
		DefaultDryers:  dryers,
	}), nil
}

func writeTable(out io.Writer, res *sim.Result) error {
	loc := res.Now.Location()
	fmt.Fprintf(out, "Board at %s\n", res.Now.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "Washers available %s, dryers available %s, utilization %s%%\n\n",
		res.Availability.Washers, res.Availability.Dryers, res.Availability.Utilization.StringFixed(1))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MACHINE\tSTATUS\tFINISH\tLEFT")
	for _, m := range res.Machines {
		finish, left := "-", "-"
		if m.FinishAt != nil {
			finish = m.FinishAt.In(loc).Format("15:04")
			left = fmt.Sprintf("%dm", m.MinutesRemaining)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.Label, finish, left)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tSERVICES\tSTART\tPROGRESS")
	for _, p := range res.Transactions {
		progress := fmt.Sprintf("finished %dm ago", p.MinutesSinceFinish)
		switch {
		case p.Canceled:
			progress = "canceled"
		case p.Running:
			progress = fmt.Sprintf("running, %dm left", p.MinutesRemaining)
		case !p.SameDay:
			progress = "other day"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Code, p.Services, p.Start.In(loc).Format("15:04"), progress)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, t := range res.Overflow {
		fmt.Fprintf(out, "no free machine: %s %s #%d\n", t.Code, t.Service, t.Unit)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "skipped %s: %s\n", s.Code, strings.TrimSpace(s.Reason))
	}
	return nil
}
