package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/gobwas/glob"
	flag "github.com/spf13/pflag"

	lookoutcv "github.com/kavinraja10/lookoutcv"
	"github.com/kavinraja10/lookoutcv/internal/config"
	"github.com/kavinraja10/lookoutcv/internal/imgmetrics"
	"github.com/kavinraja10/lookoutcv/internal/insights"
	"github.com/kavinraja10/lookoutcv/internal/output"
	"github.com/kavinraja10/lookoutcv/internal/schema"
)

type insightsOptions struct {
	configPath string
	logsDir    string
	format     string
	iqr        float64
	modelGlob  string
}

func runInsights(args []string) int {
	fs := flag.NewFlagSet("insights", flag.ContinueOnError)
	var opts insightsOptions
	fs.StringVarP(&opts.configPath, "config", "c", "", "Override config file path")
	fs.StringVar(&opts.logsDir, "logs-dir", "", "Logs directory (overrides config and env)")
	fs.StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, markdown, html")
	fs.Float64Var(&opts.iqr, "iqr", insights.DefaultIQRMultiplier, "IQR multiplier for outlier fences")
	fs.StringVar(&opts.modelGlob, "model", "", "Only analyze models matching this glob")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr,
			"Usage: lookoutcv insights [flags] [models...]\n\n"+
				"Summarize logged predictions per model: summary statistics,\n"+
				"IQR outliers, and a correlation matrix. Positional model names\n"+
				"are glob patterns; without any, every model is analyzed.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.iqr <= 0 {
		fmt.Fprintf(os.Stderr, "lookoutcv: --iqr must be > 0\n")
		return 2
	}

	formatter, err := output.ForFormat(opts.format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: %v\n", err)
		return 2
	}

	logsDir, err := resolveLogsDir(opts.logsDir, opts.configPath, os.Getenv(envLogsDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: %v\n", err)
		return 1
	}

	patterns := append([]string(nil), fs.Args()...)
	if opts.modelGlob != "" {
		patterns = append(patterns, opts.modelGlob)
	}

	datasets, err := insights.Load(logsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: %v\n", err)
		return 1
	}
	datasets, err = filterModels(datasets, patterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: %v\n", err)
		return 2
	}
	if len(datasets) == 0 {
		fmt.Fprintf(os.Stderr, "lookoutcv: no models match %v\n", patterns)
		return 1
	}

	reports := make([]insights.Report, 0, len(datasets))
	for i := range datasets {
		reports = append(reports, insights.Analyze(&datasets[i], opts.iqr))
	}

	if err := formatter.Format(os.Stdout, reports); err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: writing output: %v\n", err)
		return 1
	}
	return 0
}

func runModels(args []string) int {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	var configPath, logsDir string
	fs.StringVarP(&configPath, "config", "c", "", "Override config file path")
	fs.StringVar(&logsDir, "logs-dir", "", "Logs directory (overrides config and env)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr,
			"Usage: lookoutcv models [flags]\n\n"+
				"List models with log files under the logs directory.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	dir, err := resolveLogsDir(logsDir, configPath, os.Getenv(envLogsDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: %v\n", err)
		return 1
	}
	datasets, err := insights.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tFILES\tROWS\tCOLUMNS")
	for i := range datasets {
		d := &datasets[i]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", d.Model, len(d.Files), len(d.Rows), len(d.Fields))
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: writing output: %v\n", err)
		return 1
	}
	return 0
}

func runSchema(args []string) int {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	var configPath, logsDir string
	fs.StringVarP(&configPath, "config", "c", "", "Override config file path")
	fs.StringVar(&logsDir, "logs-dir", "", "Logs directory (overrides config and env)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr,
			"Usage: lookoutcv schema [flags] <model>\n\n"+
				"Show the recorded (evolved) schema for a model.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "lookoutcv: schema requires exactly one model name\n")
		return 2
	}
	model := fs.Arg(0)

	dir, err := resolveLogsDir(logsDir, configPath, os.Getenv(envLogsDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: %v\n", err)
		return 1
	}

	reg, err := schema.OpenRegistry(filepath.Join(dir, lookoutcv.SchemaRegistryFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: %v\n", err)
		return 1
	}
	defer func() { _ = reg.Close() }()

	fields, err := reg.Load(model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: %v\n", err)
		return 1
	}
	if fields == nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: no schema recorded for model %q\n", model)
		return 1
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\n", f.Name, f.Type)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "lookoutcv: writing output: %v\n", err)
		return 1
	}
	return 0
}

// resolveLogsDir picks the logs directory: flag, then environment, then
// config file, then the built-in default.
func resolveLogsDir(flagDir, configPath, envDir string) (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	if envDir != "" {
		return envDir, nil
	}

	if configPath == "" {
		found, err := config.Discover(".")
		if err != nil {
			return "", err
		}
		configPath = found
	}

	var loaded *config.Config
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return "", err
		}
		loaded = cfg
	}
	merged := config.Merge(config.Defaults(), loaded)
	if merged.LogsDir == "" {
		return config.DefaultLogsDir, nil
	}
	return merged.LogsDir, nil
}

// filterModels keeps datasets whose model name matches any of the glob
// patterns. No patterns keeps everything.
func filterModels(datasets []insights.Dataset, patterns []string) ([]insights.Dataset, error) {
	if len(patterns) == 0 {
		return datasets, nil
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid model pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	out := datasets[:0]
	for _, d := range datasets {
		for _, g := range globs {
			if g.Match(d.Model) {
				out = append(out, d)
				break
			}
		}
	}
	return out, nil
}

type jsonMetric struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Column      string `json:"column"`
	Description string `json:"description"`
}

func writeMetricsJSON(w io.Writer, defs []imgmetrics.Definition) error {
	items := make([]jsonMetric, 0, len(defs))
	for _, def := range defs {
		items = append(items, jsonMetric{
			ID:          def.ID,
			Name:        def.Name,
			Column:      imgmetrics.ColumnName(def),
			Description: def.Description,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
