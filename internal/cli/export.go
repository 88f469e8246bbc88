package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"holidayd/internal/holiday"
	"holidayd/internal/model"
	"holidayd/internal/week"
)

var exportICSCmd = LeafCommand{
	Use:   "export-ics",
	Short: "Write holidays as an iCalendar file",
	IntFlags: []IntFlag{
		{Name: "year", Usage: "export the whole year instead of the current week"},
	},
	StrFlags: []StringFlag{
		{Name: "region", Usage: "country code (default: config region)"},
		{Name: "out", Usage: "output file (default: stdout)"},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		year, _ := cmd.Flags().GetInt("year")
		region, _ := cmd.Flags().GetString("region")
		out, _ := cmd.Flags().GetString("out")
		if region == "" {
			region = cfg.Region
		}

		loc := cfg.Location()
		now := func() time.Time { return time.Now().In(loc) }
		return runExportICS(cmd, buildSource(cfg), exportOptions{Year: year, Region: region, Out: out}, now)
	},
}.Build()

type yearLookup interface {
	Lookup(ctx context.Context, year int, region string) holiday.Result
}

type exportOptions struct {
	Year   int
	Region string
	Out    string
}

func runExportICS(cmd *cobra.Command, src yearLookup, opts exportOptions, nowFunc func() time.Time) error {
	ctx := cmd.Context()
	region := strings.ToUpper(opts.Region)
	now := nowFunc()

	var (
		name     string
		holidays []model.Holiday
		origin   holiday.Origin
	)
	if opts.Year > 0 {
		res := src.Lookup(ctx, opts.Year, region)
		name = fmt.Sprintf("Public holidays %s %d", region, opts.Year)
		holidays, origin = res.Holidays, res.Origin
	} else {
		r := week.Current(now)
		name = fmt.Sprintf("Public holidays %s week %s", region, r.String())
		for _, y := range yearsOf(r) {
			res := src.Lookup(ctx, y, region)
			holidays = append(holidays, holiday.Filter(res.Holidays, r)...)
			origin = res.Origin
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := holiday.WriteICS(w, name, holidays, now); err != nil {
		return err
	}
	if opts.Out != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d holiday(s) to %s %s\n",
			Primary("wrote"), len(holidays), opts.Out, Silent("("+string(origin)+")"))
	}
	return nil
}

func yearsOf(r week.Range) []int {
	if r.Start.Year() == r.End.Year() {
		return []int{r.Start.Year()}
	}
	return []int{r.Start.Year(), r.End.Year()}
}
