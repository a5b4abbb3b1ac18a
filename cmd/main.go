// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"trkeys/internal/catalog"
	"trkeys/internal/config"
	"trkeys/internal/export"
	"trkeys/internal/help"
	"trkeys/internal/observability"
	"trkeys/internal/recovery"
	"trkeys/internal/version"
)

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string) *config.Config {
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg, _ = config.LoadConfig("")
	}
	return cfg
}

func main() {
	tablePath := flag.String("table", "", "Path to the compiled message table (JSON)")
	resourcesDir := flag.String("resources", "", "Project directory to harvest candidate strings from")
	hintsFile := flag.String("hints", "", "Path to a file of candidate keys, one per line")
	previousCSV := flag.String("previous", "", "Path to a prior export CSV; its keys seed the search and drive the diff")
	outputFile := flag.String("output", "translations.csv", "Path for the recovered translation CSV")
	diffFile := flag.String("diff", "", "Path for the comparison CSV against --previous (default: <output>.diff.csv)")
	reportFile := flag.String("report", "", "Path for the JSON run report (default: <output>.report.json)")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	listProfiles := flag.Bool("list-profiles", false, "List available profiles in config file")
	localeName := flag.String("locale", "", "Locale used as the message reference (default: en or least-empty)")
	workers := flag.Int("workers", 0, "Worker pool size for the search stages (default: all CPUs)")
	stageTimeout := flag.Duration("stage-timeout", 0, "Per-stage time budget (default: 30s)")
	enableStage5 := flag.Bool("enable-stage5", false, "Enable the quadratic combination stage (slow)")
	strictCollisions := flag.Bool("strict-collisions", false, "Fail when one key would resolve two different messages")
	compileMode := flag.Bool("compile", false, "Compile a key,locale... CSV at --previous into a hashed table at --table and exit")
	verbose := flag.Bool("verbose", false, "Display per-stage details")
	debug := flag.Bool("debug", false, "Enable debug logging of the recovery flow")
	quiet := flag.Bool("quiet", false, "Suppress progress output (useful for scripts and CI/CD)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}
	if *showHelp {
		help.NewSystem(*noColor).ShowGeneralHelp()
		return
	}

	cfg := loadConfiguration(*configFile)

	if *listProfiles {
		fmt.Println("Available profiles:")
		for _, name := range cfg.ListProfiles() {
			profile := cfg.GetProfile(name)
			fmt.Printf("  %-12s %s\n", name, profile.Description)
		}
		return
	}

	if *profileName != "" {
		if err := cfg.ApplyProfile(*profileName); err != nil {
			fatalf("%v", err)
		}
	}

	// Explicit flags win over config file and profile
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if setFlags["workers"] {
		cfg.Defaults.Workers = *workers
	}
	if setFlags["stage-timeout"] {
		cfg.Defaults.StageTimeoutSeconds = int((*stageTimeout).Seconds())
	}
	if setFlags["enable-stage5"] {
		cfg.Defaults.Stage5 = *enableStage5
	}
	if setFlags["strict-collisions"] {
		cfg.Defaults.StrictCollisions = *strictCollisions
	}
	if setFlags["locale"] {
		cfg.Defaults.Locale = *localeName
	}
	if setFlags["verbose"] {
		cfg.Defaults.Verbose = *verbose
	}
	if setFlags["debug"] {
		cfg.Defaults.Debug = *debug
	}
	if cfg.Defaults.Debug {
		cfg.Defaults.Verbose = true
	}
	if setFlags["no-color"] {
		cfg.Defaults.NoColor = *noColor
	}

	if cfg.Defaults.NoColor || *quiet || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

	if *compileMode {
		if *previousCSV == "" || *tablePath == "" {
			fatalf("--compile requires --previous (source CSV) and --table (output path)")
		}
		if err := compileTable(*previousCSV, *tablePath); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Compiled %s -> %s\n", *previousCSV, *tablePath)
		return
	}

	if *tablePath == "" {
		fmt.Fprintln(os.Stderr, "Error: --table is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(cfg, runPaths{
		table:     *tablePath,
		resources: *resourcesDir,
		hints:     *hintsFile,
		previous:  *previousCSV,
		output:    *outputFile,
		diff:      *diffFile,
		report:    *reportFile,
	}, *quiet); err != nil {
		fatalf("%v", err)
	}
}

type runPaths struct {
	table     string
	resources string
	hints     string
	previous  string
	output    string
	diff      string
	report    string
}

func run(cfg *config.Config, paths runPaths, quiet bool) error {
	ctx := context.Background()

	table, err := catalog.LoadHashedTable(paths.table)
	if err != nil {
		return err
	}
	sources := make([]*catalog.HashedSource, 0, len(table.Locales))
	for _, hl := range table.Locales {
		src, err := catalog.NewHashedSource(hl)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}
	locales := make([]export.Locale, len(sources))
	for i, src := range sources {
		locales[i] = export.Locale{Name: src.Locale(), Messages: src.Messages()}
	}
	defaultSource := sources[export.SelectDefaultLocale(locales, cfg.Defaults.Locale)]

	var resources []string
	if paths.resources != "" {
		resources, err = catalog.LoadResourceStrings(ctx, paths.resources, cfg.Defaults.Extensions)
		if err != nil {
			return err
		}
	}

	var hintKeys []string
	if paths.hints != "" {
		hintKeys, err = catalog.LoadHintKeys(paths.hints)
		if err != nil {
			return err
		}
	}

	var previous export.Table
	havePrevious := false
	if paths.previous != "" {
		previous, err = export.ReadCSV(paths.previous)
		if err != nil {
			return err
		}
		havePrevious = true
	}

	observer := buildObserver(cfg)
	opts := recovery.DefaultOptions()
	opts.Workers = cfg.Defaults.Workers
	opts.StageTimeout = time.Duration(cfg.Defaults.StageTimeoutSeconds) * time.Second
	opts.Stage4 = cfg.Defaults.Stage4
	opts.Stage5 = cfg.Defaults.Stage5
	opts.StrictCollisions = cfg.Defaults.StrictCollisions
	opts.AffixThreshold = cfg.Defaults.AffixThreshold
	opts.Observer = observer
	if !quiet && isTerminal(os.Stderr) {
		opts.Progress = func(stage string, completed, total int) {
			fmt.Fprintf(os.Stderr, "\r%s: %d/%d      ", stage, completed, total)
		}
	}

	engine, err := recovery.New(recovery.Inputs{
		Source:       defaultSource,
		Messages:     defaultSource.Messages(),
		Resources:    resources,
		HintKeys:     hintKeys,
		PreviousKeys: previous.Keys,
	}, opts)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := engine.Run(ctx)
	if !quiet && isTerminal(os.Stderr) {
		fmt.Fprint(os.Stderr, "\r                                        \r")
	}
	if err != nil {
		return err
	}

	printSummary(cfg, result, time.Since(start))
	if float64(result.Missing) > cfg.Export.ResaveThreshold*float64(len(result.Keys)) {
		color.Yellow("Missing keys exceed %.0f%% of messages; export flagged for manual review",
			cfg.Export.ResaveThreshold*100)
	}

	current := buildExportTable(result, defaultSource, sources)
	current = export.Prune(current)
	if err := export.WriteCSV(paths.output, current); err != nil {
		return err
	}
	if !quiet {
		fmt.Printf("Wrote %s (%d rows)\n", paths.output, len(current.Keys))
	}

	if havePrevious && cfg.Export.WriteDiff {
		rows := export.Diff(previous, current)
		diffPath := paths.diff
		if diffPath == "" {
			diffPath = paths.output + ".diff.csv"
		}
		if err := export.WriteDiffCSV(diffPath, previous, current, rows); err != nil {
			return err
		}
		if !quiet {
			fmt.Printf("Wrote %s (%d changed rows)\n", diffPath, len(rows))
			if export.NeedsResave(rows, current, cfg.Export.ResaveThreshold) {
				color.Yellow("Changes exceed %.0f%% of rows; review before replacing the previous export",
					cfg.Export.ResaveThreshold*100)
			}
		}
	}

	if cfg.Export.WriteReport {
		reportPath := paths.report
		if reportPath == "" {
			reportPath = paths.output + ".report.json"
		}
		rep := export.NewReport(paths.table, len(defaultSource.Messages()), result)
		if err := export.WriteReport(reportPath, rep); err != nil {
			return err
		}
	}
	return nil
}

// buildExportTable assembles the output table: the recovered key column plus
// one message column per locale. The reference locale column comes straight
// from the known messages; the other locales are resolved through the
// recovered keys, leaving gaps where a key is missing or unresolved.
func buildExportTable(result *recovery.Result, defaultSource *catalog.HashedSource, sources []*catalog.HashedSource) export.Table {
	t := export.Table{Keys: result.Keys}
	messages := defaultSource.Messages()
	for _, src := range sources {
		loc := export.Locale{Name: src.Locale(), Messages: make([]string, len(result.Keys))}
		for i, key := range result.Keys {
			if src == defaultSource {
				loc.Messages[i] = messages[i]
				continue
			}
			if strings.HasPrefix(key, recovery.MissingKeyPrefix) {
				continue
			}
			if msg, ok := src.Lookup(key); ok {
				loc.Messages[i] = msg
			}
		}
		t.Locales = append(t.Locales, loc)
	}
	return t
}

// compileTable builds the hashed lookup table from a plain key,locale... CSV.
func compileTable(csvPath, tablePath string) error {
	src, err := export.ReadCSV(csvPath)
	if err != nil {
		return err
	}
	table := &catalog.HashedTable{Version: catalog.HashedTableVersion}
	for _, loc := range src.Locales {
		table.Locales = append(table.Locales, catalog.CompileLocale(loc.Name, src.Keys, loc.Messages))
	}
	return catalog.WriteHashedTable(tablePath, table)
}

func buildObserver(cfg *config.Config) *observability.StandardObserver {
	level := observability.ObservabilityOff
	if cfg.Defaults.Verbose {
		level = observability.ObservabilityMetrics
	}
	if cfg.Defaults.Debug {
		level = observability.ObservabilityDebug
	}
	observer := observability.NewStandardObserver(level, os.Stderr)
	if cfg.Defaults.Debug {
		observer.DebugObserver = observability.NewDebugObserver(os.Stderr)
	}
	return observer
}

func printSummary(cfg *config.Config, result *recovery.Result, elapsed time.Duration) {
	recovered := len(result.Keys) - result.Missing
	if result.Missing == 0 {
		color.Green("Recovered %d/%d keys in %s", recovered, len(result.Keys), elapsed.Round(time.Millisecond))
	} else {
		color.Yellow("Recovered %d/%d keys in %s (%d missing)",
			recovered, len(result.Keys), elapsed.Round(time.Millisecond), result.Missing)
	}
	if result.TimedOut {
		color.Red("Search timed out before finishing; results are partial")
	}
	for _, warning := range result.Warnings {
		color.Yellow("Warning: %s", warning)
	}
	if cfg.Defaults.Verbose {
		for _, st := range result.Stages {
			fmt.Printf("  %-10s %6d keys  %8s\n",
				st.Name, st.KeysFound, st.Elapsed.Round(time.Millisecond))
			if cfg.Defaults.Debug {
				for _, key := range st.Keys {
					fmt.Printf("    %s\n", key)
				}
			}
		}
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// isTerminal checks if the file descriptor is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
