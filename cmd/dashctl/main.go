package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	apiclient "github.com/splax/cubedash/pkg/api/client"
	"github.com/splax/cubedash/pkg/config"
)

const defaultAPI = "http://localhost:8501"

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "metrics":
		err = commandMetrics(args)
	case "series":
		err = commandSeries(args)
	case "sql":
		err = commandSQL(args)
	case "model":
		err = commandModel(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase string) (*apiclient.Client, error) {
	base := strings.TrimSpace(apiBase)
	if base == "" {
		base = config.GetString("DASHCTL_API", defaultAPI)
	}
	return apiclient.New(base)
}

func commandMetrics(args []string) error {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	apiBase := fs.String("api", "", "Dashboard base URL (default $DASHCTL_API or "+defaultAPI+")")
	fs.Parse(args)

	client, err := newClient(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	catalog, err := client.Metrics(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tMEASURE\tDESCRIPTION")
	for _, m := range catalog.Metrics {
		marker := ""
		if m.Key == catalog.Defaults["metric"] {
			marker = " (default)"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\n", m.Key, marker, m.Measure, m.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\ngranularities: %s\n", strings.Join(catalog.Granularities, ", "))
	return nil
}

type selectionFlags struct {
	api    *string
	metric *string
	from   *string
	to     *string
	grain  *string
}

func bindSelection(fs *flag.FlagSet) selectionFlags {
	return selectionFlags{
		api:    fs.String("api", "", "Dashboard base URL (default $DASHCTL_API or "+defaultAPI+")"),
		metric: fs.String("metric", "", "Metric key, e.g. \"Weekly Active\""),
		from:   fs.String("from", "", "Start date YYYY-MM-DD (inclusive)"),
		to:     fs.String("to", "", "End date YYYY-MM-DD (exclusive)"),
		grain:  fs.String("grain", "", "Day, Week, Month or Year"),
	}
}

func (s selectionFlags) query() apiclient.SeriesQuery {
	return apiclient.SeriesQuery{
		Metric: strings.TrimSpace(*s.metric),
		From:   strings.TrimSpace(*s.from),
		To:     strings.TrimSpace(*s.to),
		Grain:  strings.TrimSpace(*s.grain),
	}
}

func fetchPanel(sel selectionFlags) (apiclient.Panel, error) {
	client, err := newClient(*sel.api)
	if err != nil {
		return apiclient.Panel{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return client.Series(ctx, sel.query())
}

func commandSeries(args []string) error {
	fs := flag.NewFlagSet("series", flag.ExitOnError)
	sel := bindSelection(fs)
	asJSON := fs.Bool("json", false, "Print the raw panel as JSON")
	fs.Parse(args)

	panel, err := fetchPanel(sel)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(panel)
	}

	fmt.Printf("%s (%s)\n\n", panel.Metric.Key, panel.Series.Measure)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TIME\tVALUE\t")
	for _, p := range panel.Series.Points {
		fmt.Fprintf(tw, "%s\t%s\t\n", p.Time.UTC().Format("2006-01-02"), formatValue(p.Value, panel.Series.Format))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) && len(panel.Series.Points) > 0 {
		width, _, err := term.GetSize(fd)
		if err != nil || width <= 0 {
			width = 80
		}
		fmt.Printf("\n%s\n", sparkline(values(panel.Series.Points), width))
	}
	return nil
}

func commandSQL(args []string) error {
	fs := flag.NewFlagSet("sql", flag.ExitOnError)
	sel := bindSelection(fs)
	fs.Parse(args)

	panel, err := fetchPanel(sel)
	if err != nil {
		return err
	}
	fmt.Println(panel.SQL)
	return nil
}

func commandModel(args []string) error {
	fs := flag.NewFlagSet("model", flag.ExitOnError)
	apiBase := fs.String("api", "", "Dashboard base URL (default $DASHCTL_API or "+defaultAPI+")")
	fs.Parse(args)

	client, err := newClient(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	model, err := client.Model(ctx)
	if err != nil {
		return err
	}
	fmt.Print(model)
	return nil
}

func values(points []apiclient.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func formatValue(v float64, format string) string {
	if format == "percentage" {
		return fmt.Sprintf("%.2f%%", v*100)
	}
	return fmt.Sprintf("%.0f", v)
}

func printUsage() {
	fmt.Printf("dashctl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	dashctl metrics [--api http://localhost:8501]
	dashctl series [--metric "Daily Active"] [--from 2019-02-01] [--to 2020-02-01] [--grain Month] [--json]
	dashctl sql [--metric ...] [--from ...] [--to ...] [--grain ...]
	dashctl model
	dashctl version
`)
}

func printVersion() {
	fmt.Printf("dashctl %s\n", buildVersion)
}
