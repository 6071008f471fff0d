// Command lookoutcv inspects LookOutCV prediction logs: summary statistics,
// outliers, correlations, recorded schemas, and the metric registry.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	lookoutcv "github.com/kavinraja10/lookoutcv"
	"github.com/kavinraja10/lookoutcv/internal/imgmetrics"
)

const usageText = `Usage: lookoutcv <command> [flags]

Commands:
  insights  Summarize logged predictions (stats, outliers, correlations)
  models    List models with log files
  metrics   List available image-quality metrics
  schema    Show the recorded schema for a model
  version   Print version and exit

Run 'lookoutcv <command> --help' for command flags.
`

// envLogsDir overrides the configured logs directory when set.
const envLogsDir = "LOOKOUTCV_LOGS_DIR"

func main() {
	// A .env file in the working directory may carry LOOKOUTCV_LOGS_DIR;
	// a missing file is fine.
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}

	switch args[0] {
	case "insights":
		return runInsights(args[1:])
	case "models":
		return runModels(args[1:])
	case "metrics":
		return runMetrics(args[1:])
	case "schema":
		return runSchema(args[1:])
	case "version":
		fmt.Println(lookoutcv.Version)
		return 0
	case "help", "--help", "-h":
		fmt.Print(usageText)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "lookoutcv: unknown command %q\n", args[0])
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}
}

func runMetrics(args []string) int {
	fs := flag.NewFlagSet("metrics", flag.ContinueOnError)
	var format string
	fs.StringVarP(&format, "format", "f", "text", "Output format: text, json")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr,
			"Usage: lookoutcv metrics [flags]\n\n"+
				"List available image-quality metrics.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 && fs.Arg(0) != "list" {
		fmt.Fprintf(os.Stderr, "lookoutcv: metrics takes no arguments\n")
		return 2
	}

	defs := imgmetrics.All()
	switch format {
	case "text":
		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCOLUMN\tDESCRIPTION")
		for _, def := range defs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				def.ID, def.Name, imgmetrics.ColumnName(def), def.Description)
		}
		if err := tw.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "lookoutcv: writing output: %v\n", err)
			return 1
		}
	case "json":
		if err := writeMetricsJSON(os.Stdout, defs); err != nil {
			fmt.Fprintf(os.Stderr, "lookoutcv: writing output: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(os.Stderr, "lookoutcv: unknown format %q (supported: text, json)\n", format)
		return 2
	}
	return 0
}
